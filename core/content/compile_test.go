package content

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/ntiid"
)

func testCompiler() Compiler {
	validate, translator := core.NewValidator()
	assessment.RegisterValidators(validate, translator)
	return Compiler{Provider: "Default", Validate: validate}
}

func compileTestBook(t *testing.T) *Index {
	t.Helper()
	book, err := LoadBookFile("testdata/physics.yaml")
	require.NoError(t, err)
	idx, err := testCompiler().Compile(book)
	require.NoError(t, err)
	return idx
}

func itemID(local string) string {
	return ntiid.Make("Tathmini", ntiid.TypeAssessment, "physics101."+local)
}

func TestCompiler_Compile(t *testing.T) {
	idx := compileTestBook(t)

	rootID := ntiid.Make("Tathmini", ntiid.TypeHTML, "physics101")
	require.Contains(t, idx.Items, rootID)
	root := idx.Items[rootID]
	assert.Equal(t, "index.html", root.Filename)
	assert.Empty(t, root.AssessmentItems)
	require.Len(t, root.Items, 2)

	kinematicsID := ntiid.Make("Tathmini", ntiid.TypeHTML, "physics101.kinematics")
	kinematics := root.Items[kinematicsID]
	require.NotNil(t, kinematics)
	assert.Equal(t, "kinematics.html", kinematics.Href)
	assert.Len(t, kinematics.AssessmentItems, 4)

	gravity, ok := kinematics.AssessmentItems[itemID("gravity")].(*assessment.Question)
	require.True(t, ok)
	assert.Equal(t, kinematicsID, gravity.ContainerID)
	part := gravity.Parts[0]
	assert.Equal(t, assessment.NumericMathPart, part.Kind)
	assert.Equal(t, assessment.NumericMathSolution, part.Solutions[0].Kind)
	assert.Equal(t, "9.80", part.Solutions[0].Text, "numbers keep their written form")
	assert.Equal(t, []string{"m/s^2", "m/s²"}, part.Solutions[0].AllowedUnits)
	assert.Equal(t, 1.0, part.Solutions[0].Weight)

	units := kinematics.AssessmentItems[itemID("units")].(*assessment.Question)
	assert.Equal(t, map[string]int{"0": 1, "1": 0}, units.Parts[0].Solutions[0].Mapping)

	items := idx.Flatten()
	require.Len(t, items, 7)
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i-1].ItemNTIID(), items[i].ItemNTIID())
	}

	vocabID := ntiid.Make("Tathmini", ntiid.TypeHTML, "physics101.vocabulary")
	hw := root.Items[vocabID].AssessmentItems[itemID("hw1")].(*assessment.Assignment)
	assert.Equal(t, "homework", hw.CategoryName)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), *hw.AvailableBeginning)
	require.Len(t, hw.Parts, 2)
	assert.True(t, hw.Parts[0].AutoGrade)
	assert.False(t, hw.Parts[1].AutoGrade)
	assert.Equal(t, itemID("warmup"), hw.Parts[0].QuestionSet.NTIID)
	assert.Len(t, hw.Parts[1].QuestionSet.Questions, 2)

	// a compiled question grades as authored
	got, err := assessment.AssessQuestion(gravity, assessment.QuestionSubmission{
		QuestionID: gravity.NTIID,
		Parts:      []assessment.Response{assessment.TextResponse("9.8 m/s^2")},
	})
	require.NoError(t, err)
	earned, _ := got.Score()
	assert.Equal(t, 1.0, earned)
}

func TestCompiler_Compile_embeddedCopies(t *testing.T) {
	idx := compileTestBook(t)
	kinematics := idx.Items[ntiid.Make("Tathmini", ntiid.TypeHTML, "physics101")].
		Items[ntiid.Make("Tathmini", ntiid.TypeHTML, "physics101.kinematics")]
	gravity := kinematics.AssessmentItems[itemID("gravity")].(*assessment.Question)
	warmup := kinematics.AssessmentItems[itemID("warmup")].(*assessment.QuestionSet)
	require.Equal(t, gravity.NTIID, warmup.Questions[0].NTIID)

	warmup.Questions[0].Parts[0].Solutions[0].Text = "1"
	warmup.Questions[0].Parts[0].Solutions[0].AllowedUnits[0] = "km"
	assert.Equal(t, "9.80", gravity.Parts[0].Solutions[0].Text)
	assert.Equal(t, "m/s^2", gravity.Parts[0].Solutions[0].AllowedUnits[0])

	var hw *assessment.Assignment
	for _, item := range idx.Flatten() {
		if a, ok := item.(*assessment.Assignment); ok {
			hw = a
		}
	}
	require.NotNil(t, hw)
	hw.Parts[0].QuestionSet.Questions[1].Content = "changed"
	assert.NotEqual(t, "changed", warmup.Questions[1].Content)
}

func TestCompiler_Compile_deterministic(t *testing.T) {
	first, err := compileTestBook(t).Marshal()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := compileTestBook(t).Marshal()
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}
}

func TestCompiler_Compile_errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no id",
			yaml:    "title: nope\n",
			wantErr: "book id is required",
		},
		{
			name:    "unknown field",
			yaml:    "id: b\nchapters: []\n",
			wantErr: "field chapters not found",
		},
		{
			name: "duplicate id",
			yaml: `
id: b
questions:
  - {id: q, parts: [{type: freeresponse}]}
sections:
  - id: q
`,
			wantErr: `duplicate id "q"`,
		},
		{
			name: "unknown question",
			yaml: `
id: b
question_sets:
  - {id: s, questions: [q]}
`,
			wantErr: `unknown question "q"`,
		},
		{
			name: "unknown part type",
			yaml: `
id: b
questions:
  - {id: q, parts: [{type: essay}]}
`,
			wantErr: "unknown part type",
		},
		{
			name: "no solutions for files",
			yaml: `
id: b
questions:
  - {id: q, parts: [{type: file, solutions: [{value: x}]}]}
`,
			wantErr: "filepart parts have no solutions",
		},
		{
			name: "invalid question",
			yaml: `
id: b
questions:
  - id: q
    parts:
      - {type: multiplechoice, choices: [a], solutions: [{value: 4}]}
`,
			wantErr: "validating",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, err := LoadBook(strings.NewReader(tt.yaml))
			if err == nil {
				_, err = testCompiler().Compile(book)
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompiler_Compile_provider(t *testing.T) {
	book, err := LoadBook(strings.NewReader("id: b\nquestions:\n  - {id: q, parts: [{type: freeresponse}]}\n"))
	require.NoError(t, err)

	idx, err := testCompiler().Compile(book)
	require.NoError(t, err)
	assert.Contains(t, idx.Items, ntiid.Make("Default", ntiid.TypeHTML, "b"))

	_, err = Compiler{}.Compile(book)
	assert.EqualError(t, err, "a provider is required")
}

func TestIndex_roundTrip(t *testing.T) {
	idx := compileTestBook(t)
	data, err := idx.Marshal()
	require.NoError(t, err)

	read, err := ReadIndex(bytes.NewReader(data))
	require.NoError(t, err)
	again, err := read.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	assert.Contains(t, string(data), `"AssessmentItems"`)
	assert.Contains(t, string(data), `"filename": "index.html"`)
}

func TestReadIndex_mismatchedKey(t *testing.T) {
	data := `{"Items": {"root": {"NTIID": "root", "AssessmentItems": {
		"other": {"MimeType": "application/vnd.nextthought.naquestionset", "NTIID": "set", "questions": []}
	}}}}`
	_, err := ReadIndex(strings.NewReader(data))
	assert.ErrorContains(t, err, "item set is indexed under other")
}

func TestDiff(t *testing.T) {
	same, err := Diff([]byte("a\nb\n"), []byte("a\nb\n"), "old", "new")
	require.NoError(t, err)
	assert.Empty(t, same)

	diff, err := Diff([]byte("a\nb\nc\n"), []byte("a\nB\nc\n"), "old", "new")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- old")
	assert.Contains(t, diff, "+++ new")
	assert.Contains(t, diff, "-b")
	assert.Contains(t, diff, "+B")
}
