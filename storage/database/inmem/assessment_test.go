package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

func question(id, container string) *assessment.Question {
	return &assessment.Question{
		NTIID:       id,
		ContainerID: container,
		Content:     "2+2?",
		Parts: []assessment.Part{{
			Kind:      assessment.NumericMathPart,
			Solutions: []assessment.Solution{{Kind: assessment.NumericMathSolution, Text: "4"}},
		}},
	}
}

func TestAssessmentRepository_items(t *testing.T) {
	ctx := context.Background()
	repo := NewAssessmentRepository(Open())

	q1 := question("tag:nextthought.com,2011-10:T-NAQ-b", "ch1")
	q2 := question("tag:nextthought.com,2011-10:T-NAQ-a", "ch2")
	set := &assessment.QuestionSet{
		NTIID:     "tag:nextthought.com,2011-10:T-NAQ-set",
		Title:     "Warm up",
		Questions: []assessment.Question{*q1},
	}
	require.NoError(t, repo.SaveItems(ctx, q1, q2, set))

	got, err := repo.GetItem(ctx, q1.NTIID)
	require.NoError(t, err)
	assert.Equal(t, q1.NTIID, got.ItemNTIID())
	assert.Equal(t, "4", got.(*assessment.Question).Parts[0].Solutions[0].Text)

	_, err = repo.GetItem(ctx, "missing")
	assert.Equal(t, assessment.ErrNotFound, err)

	// stored items are not shared with callers
	got.(*assessment.Question).Content = "changed"
	again, err := repo.GetItem(ctx, q1.NTIID)
	require.NoError(t, err)
	assert.Equal(t, "2+2?", again.(*assessment.Question).Content)

	ntiids := func(items []assessment.Item) []string {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ItemNTIID())
		}
		return ids
	}
	tests := []struct {
		name     string
		filter   assessment.ItemFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{q2.NTIID, q1.NTIID, set.NTIID}},
		{
			name:     "ordered desc",
			ordering: []core.DBOrdering{{Field: "ntiid"}},
			want:     []string{set.NTIID, q1.NTIID, q2.NTIID},
		},
		{name: "by type", filter: assessment.ItemFilter{MimeTypes: []string{assessment.MimeQuestionSet}}, want: []string{set.NTIID}},
		{name: "by container", filter: assessment.ItemFilter{ContainerID: "ch1"}, want: []string{q1.NTIID}},
		{name: "search title", filter: assessment.ItemFilter{Search: "warm"}, want: []string{set.NTIID}},
		{name: "search ntiid", filter: assessment.ItemFilter{Search: "naq-a"}, want: []string{q2.NTIID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.QueryItems(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ntiids(items))
		})
	}

	// re-saving replaces the item
	q1.Content = "3+3?"
	require.NoError(t, repo.SaveItems(ctx, q1))
	got, err = repo.GetItem(ctx, q1.NTIID)
	require.NoError(t, err)
	assert.Equal(t, "3+3?", got.(*assessment.Question).Content)

	require.NoError(t, repo.DeleteItems(ctx, q1.NTIID, "missing"))
	_, err = repo.GetItem(ctx, q1.NTIID)
	assert.Equal(t, assessment.ErrNotFound, err)
}

func TestAssessmentRepository_submissions(t *testing.T) {
	ctx := context.Background()
	repo := NewAssessmentRepository(Open())

	hw := &assessment.Assignment{NTIID: "tag:nextthought.com,2011-10:T-NAQ-hw", Title: "HW"}
	require.NoError(t, repo.SaveItems(ctx, hw))

	now := time.Now().UTC()
	subs := []assessment.AssessedAssignment{
		{ID: "1", AssignmentID: hw.NTIID, Creator: "bob", SubmittedAt: now, Earned: 1},
		{ID: "2", AssignmentID: hw.NTIID, Creator: "amy", SubmittedAt: now.Add(time.Minute), Earned: 3},
		{ID: "3", AssignmentID: hw.NTIID, Creator: "bob", SubmittedAt: now.Add(2 * time.Minute), Earned: 2},
	}
	for _, sub := range subs {
		require.NoError(t, repo.CreateSubmission(ctx, sub))
	}
	assert.Equal(t, assessment.ErrNotFound, repo.CreateSubmission(ctx, assessment.AssessedAssignment{AssignmentID: "missing"}))

	ids := func(subs []assessment.AssessedAssignment) []string {
		out := make([]string, 0, len(subs))
		for _, s := range subs {
			out = append(out, s.ID)
		}
		return out
	}

	got, err := repo.QuerySubmissions(ctx, assessment.SubmissionFilter{AssignmentID: hw.NTIID}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(got))

	got, err = repo.QuerySubmissions(ctx, assessment.SubmissionFilter{Creator: "bob"}, []core.DBOrdering{{Field: "earned"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids(got))

	// deleting the assignment deletes its submissions
	require.NoError(t, repo.DeleteItems(ctx, hw.NTIID))
	got, err = repo.QuerySubmissions(ctx, assessment.SubmissionFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssessmentRepository_submissionsAreCopied(t *testing.T) {
	ctx := context.Background()
	repo := NewAssessmentRepository(Open())

	hw := &assessment.Assignment{NTIID: "tag:nextthought.com,2011-10:T-NAQ-hw", Title: "HW"}
	require.NoError(t, repo.SaveItems(ctx, hw))

	one := 1.0
	sub := assessment.AssessedAssignment{
		ID:           "1",
		AssignmentID: hw.NTIID,
		Parts: []assessment.AssessedQuestionSet{{
			QuestionSetID: "set",
			Questions: []assessment.AssessedQuestion{{
				QuestionID: "q",
				Parts:      []assessment.AssessedPart{{SubmittedResponse: assessment.TextResponse("5"), AssessedValue: &one}},
			}},
		}},
	}
	require.NoError(t, repo.CreateSubmission(ctx, sub))

	// the caller's submission is not shared with the store
	sub.Parts[0].QuestionSetID = "changed"
	one = 0

	got, err := repo.QuerySubmissions(ctx, assessment.SubmissionFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "set", got[0].Parts[0].QuestionSetID)
	assert.Equal(t, 1.0, *got[0].Parts[0].Questions[0].Parts[0].AssessedValue)

	// neither are query results
	got[0].Parts[0].QuestionSetID = "changed again"
	again, err := repo.QuerySubmissions(ctx, assessment.SubmissionFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "set", again[0].Parts[0].QuestionSetID)
}
