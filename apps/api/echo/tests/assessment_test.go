package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/tathmini/apps/api/echo"
	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/content"
	"github.com/trezcool/tathmini/tests"
)

func TestHome(t *testing.T) {
	app, _ := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+core.Conf.AppName+" API!", rec.Body.String())
}

func TestAssessmentApi_retrieveItem(t *testing.T) {
	app, repo := setup(t)
	q := testutil.NewChoiceQuestion("q1", []string{"yes", "no"}, 0)
	testutil.SaveItems(t, repo, q)

	studentToken := getToken(t, student, RoleStudent)
	instructorToken := getToken(t, instructor, RoleInstructor)
	path := "/v1/items/" + q.NTIID

	runHTTPTests(t, app, []httpTest{
		{name: "no token", method: http.MethodGet, path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "student: solutions stripped", method: http.MethodGet, path: path, token: studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, assessment.StripSolutions(q)),
		},
		{name: "instructor", method: http.MethodGet, path: path, token: instructorToken, wantCode: http.StatusOK, wantData: marchallObj(t, q)},
		{name: "not found", method: http.MethodGet, path: "/v1/items/nope", token: studentToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})
}

func TestAssessmentApi_queryItems(t *testing.T) {
	app, repo := setup(t)
	q1 := testutil.NewMathQuestion("a", "1")
	q2 := testutil.NewMathQuestion("b", "2")
	set := testutil.NewQuestionSet("set", q1, q2)
	testutil.SaveItems(t, repo, q1, q2, set)

	token := getToken(t, instructor, RoleInstructor)
	runHTTPTests(t, app, []httpTest{
		{name: "all", method: http.MethodGet, path: "/v1/items", token: token, wantCode: http.StatusOK, wantData: marchallList(t, q1, q2, set)},
		{
			name: "by type", method: http.MethodGet, path: "/v1/items?type=" + assessment.MimeQuestionSet, token: token,
			wantCode: http.StatusOK, wantData: marchallList(t, set),
		},
		{
			name: "ordered", method: http.MethodGet, path: "/v1/items?type=" + assessment.MimeQuestion + "&ordering=-ntiid", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t, q2, q1),
		},
		{name: "search", method: http.MethodGet, path: "/v1/items?search=nothing", token: token, wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name: "bad ordering", method: http.MethodGet, path: "/v1/items?ordering=password", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ordering": "invalid ordering field: password"}),
		},
	})
}

func TestAssessmentApi_saveItem(t *testing.T) {
	app, repo := setup(t)
	q := testutil.NewMathQuestion("q1", "42")
	bad := testutil.NewMathQuestion("q2", "42")
	bad.NTIID = "q2"

	studentToken := getToken(t, student, RoleStudent)
	instructorToken := getToken(t, instructor, RoleInstructor)

	runHTTPTests(t, app, []httpTest{
		{name: "student", method: http.MethodPost, path: "/v1/items", body: marchallObj(t, q), token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "instructor", method: http.MethodPost, path: "/v1/items", body: marchallObj(t, q), token: instructorToken, wantCode: http.StatusCreated, wantData: marchallObj(t, q)},
		{name: "invalid", method: http.MethodPost, path: "/v1/items", body: marchallObj(t, bad), token: instructorToken, wantCode: http.StatusBadRequest},
		{name: "unknown type", method: http.MethodPost, path: "/v1/items", body: []byte(`{"MimeType": "text/plain"}`), token: instructorToken, wantCode: http.StatusBadRequest},
		{name: "not json", method: http.MethodPost, path: "/v1/items", body: []byte(`lol`), token: instructorToken, wantCode: http.StatusBadRequest},
	})

	got, err := repo.GetItem(context.Background(), q.NTIID)
	require.NoError(t, err)
	assert.Equal(t, "42", got.(*assessment.Question).Parts[0].Solutions[0].Text)
	_, err = repo.GetItem(context.Background(), bad.NTIID)
	assert.Equal(t, assessment.ErrNotFound, err)
}

func TestAssessmentApi_destroyItem(t *testing.T) {
	app, repo := setup(t)
	q := testutil.NewMathQuestion("q1", "42")
	testutil.SaveItems(t, repo, q)

	path := "/v1/items/" + q.NTIID
	runHTTPTests(t, app, []httpTest{
		{name: "student", method: http.MethodDelete, path: path, token: getToken(t, student, RoleStudent), wantCode: http.StatusForbidden},
		{name: "admin", method: http.MethodDelete, path: path, token: getToken(t, instructor, RoleAdmin), wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodDelete, path: path, token: getToken(t, instructor, RoleAdmin), wantCode: http.StatusNotFound},
	})
}

func TestAssessmentApi_importIndex(t *testing.T) {
	app, repo := setup(t)
	book, err := content.LoadBookFile("../../../../core/content/testdata/physics.yaml")
	require.NoError(t, err)
	idx, err := content.Compiler{}.Compile(book)
	require.NoError(t, err)
	data, err := idx.Marshal()
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPost, "/v1/index", getToken(t, instructor, RoleInstructor), data)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Count)

	items, err := repo.QueryItems(context.Background(), assessment.ItemFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, items, 7)

	req, rec = newAuthRequest(http.MethodPost, "/v1/index", getToken(t, instructor, RoleInstructor), []byte(`{"Items": 1}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssessmentApi_assessQuestion(t *testing.T) {
	app, repo := setup(t)
	q := testutil.NewMathQuestion("q1", "9.8", "m/s^2")
	set := testutil.NewQuestionSet("set", q)
	testutil.SaveItems(t, repo, q, set)
	token := getToken(t, student, RoleStudent)

	one := 1.0
	zero := 0.0
	assessed := func(resp assessment.Response, value *float64) assessment.AssessedQuestion {
		return assessment.AssessedQuestion{
			QuestionID: q.NTIID,
			Parts:      []assessment.AssessedPart{{SubmittedResponse: resp, AssessedValue: value}},
		}
	}
	path := "/v1/questions/" + q.NTIID + "/assess"

	runHTTPTests(t, app, []httpTest{
		{
			name: "correct", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"parts": ["9.80 m/s^2"]}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, assessed(assessment.TextResponse("9.80 m/s^2"), &one)),
		},
		{
			name: "missing unit", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"questionId": "` + q.NTIID + `", "parts": ["9.8"]}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, assessed(assessment.TextResponse("9.8"), &zero)),
		},
		{
			name: "other question", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"questionId": "other", "parts": ["9.8"]}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"questionId": "does not match the URL"}),
		},
		{
			name: "too many parts", method: http.MethodPost, path: path, token: token,
			body: []byte(`{"parts": ["9.8", "1"]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "not a question", method: http.MethodPost, path: "/v1/questions/" + set.NTIID + "/assess", token: token,
			body: []byte(`{"parts": ["9.8"]}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	})

	t.Run("question set", func(t *testing.T) {
		body := []byte(`{"questions": [{"questionId": "` + q.NTIID + `", "parts": ["9.8 m/s^2"]}]}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/questionsets/"+set.NTIID+"/assess", token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assessment.AssessedQuestionSet{
				QuestionSetID: set.NTIID,
				Questions:     []assessment.AssessedQuestion{assessed(assessment.TextResponse("9.8 m/s^2"), &one)},
			}),
		}, rec)
	})
}

func TestAssessmentApi_submissions(t *testing.T) {
	app, repo := setup(t)
	q1 := testutil.NewMathQuestion("q1", "4")
	q2 := testutil.NewChoiceQuestion("q2", []string{"red", "blue"}, 1)
	set := testutil.NewQuestionSet("set", q1, q2)
	hw := testutil.NewAssignment("hw", set)
	testutil.SaveItems(t, repo, q1, q2, set, hw)

	studentToken := getToken(t, student, RoleStudent)
	otherToken := getToken(t, core.Person{ID: "bob"}, RoleStudent)
	instructorToken := getToken(t, instructor, RoleInstructor)
	path := "/v1/assignments/" + hw.NTIID + "/submissions"
	body := []byte(`{"parts": [{"questionSetId": "` + set.NTIID + `", "questions": [
		{"questionId": "` + q1.NTIID + `", "parts": ["4"]},
		{"questionId": "` + q2.NTIID + `", "parts": ["red"]}
	]}]}`)

	submit := func(token string) assessment.AssessedAssignment {
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got assessment.AssessedAssignment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	mine := submit(studentToken)
	assert.NotEmpty(t, mine.ID)
	assert.Equal(t, student.ID, mine.Creator)
	assert.Equal(t, 1.0, mine.Earned)
	assert.Equal(t, 2.0, mine.Possible)
	assert.False(t, mine.Late)
	theirs := submit(otherToken)

	ids := func(token, query string) []string {
		req, rec := newAuthRequest(http.MethodGet, path+query, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var subs []assessment.AssessedAssignment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
		out := make([]string, 0, len(subs))
		for _, s := range subs {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{mine.ID}, ids(studentToken, ""))
	assert.Equal(t, []string{mine.ID}, ids(studentToken, "?creator=bob"), "students only see their own")
	assert.Equal(t, []string{mine.ID, theirs.ID}, ids(instructorToken, ""))
	assert.Equal(t, []string{theirs.ID}, ids(instructorToken, "?creator=bob"))
	assert.Equal(t, []string{theirs.ID, mine.ID}, ids(instructorToken, "?ordering=-creator"))

	runHTTPTests(t, app, []httpTest{
		{name: "no token", method: http.MethodPost, path: path, body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "not an assignment", method: http.MethodPost, path: "/v1/assignments/" + set.NTIID + "/submissions", token: studentToken,
			body: body, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "other assignment", method: http.MethodPost, path: path, token: studentToken,
			body:     []byte(`{"assignmentId": "other", "parts": []}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"assignmentId": "does not match the URL"}),
		},
		{
			name: "history of a question", method: http.MethodGet, path: "/v1/assignments/" + q1.NTIID + "/submissions", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "missing part", method: http.MethodPost, path: path, token: studentToken,
			body: []byte(`{"parts": []}`), wantCode: http.StatusBadRequest,
		},
	})
}
