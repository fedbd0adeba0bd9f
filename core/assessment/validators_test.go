package assessment

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tathmini/core"
)

func newTestValidator() *validator.Validate {
	validate, translator := core.NewValidator()
	RegisterValidators(validate, translator)
	return validate
}

// failedTags returns the validation tags that failed, keyed by field namespace.
func failedTags(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("Struct() error = %T %v, want validator.ValidationErrors", err, err)
	}
	tags := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags
}

func TestQuestionValidation(t *testing.T) {
	validate := newTestValidator()
	const id = "tag:nextthought.com,2011-10:Tathmini-NAQ-q1"

	tests := []struct {
		name    string
		q       Question
		wantTag string
		wantErr bool
	}{
		{
			name: "valid",
			q: Question{NTIID: id, Parts: []Part{{
				Kind: MultipleChoicePart, Choices: []string{"a", "b"},
				Solutions: []Solution{{Kind: MultipleChoiceSolution, Index: 1}},
			}}},
		},
		{name: "bad ntiid", q: Question{NTIID: "q1", Parts: []Part{{Kind: FreeResponsePart}}}, wantTag: ntiidTag, wantErr: true},
		{name: "no parts", q: Question{NTIID: id}, wantTag: "required", wantErr: true},
		{name: "unknown part kind", q: Question{NTIID: id, Parts: []Part{{Kind: "nope"}}}, wantTag: partTypeTag, wantErr: true},
		{
			name:    "missing choices",
			q:       Question{NTIID: id, Parts: []Part{{Kind: MultipleChoicePart}}},
			wantTag: "required", wantErr: true,
		},
		{
			name: "choice out of range",
			q: Question{NTIID: id, Parts: []Part{{
				Kind: MultipleChoicePart, Choices: []string{"a"},
				Solutions: []Solution{{Kind: MultipleChoiceSolution, Index: 3}},
			}}},
			wantTag: solutionRangeTag, wantErr: true,
		},
		{
			name: "solution kind",
			q: Question{NTIID: id, Parts: []Part{{
				Kind: FreeResponsePart, Solutions: []Solution{{Kind: NumericMathSolution, Text: "1"}},
			}}},
			wantTag: solutionTypeTag, wantErr: true,
		},
		{
			name: "weight",
			q: Question{NTIID: id, Parts: []Part{{
				Kind: FreeResponsePart, Solutions: []Solution{{Kind: FreeResponseSolution, Text: "1", Weight: 2}},
			}}},
			wantTag: weightTag, wantErr: true,
		},
		{
			name:    "labels & values length",
			q:       Question{NTIID: id, Parts: []Part{{Kind: MatchingPart, Labels: []string{"a", "b"}, Values: []string{"x"}}}},
			wantTag: sameLenTag, wantErr: true,
		},
		{
			name: "bad pattern",
			q: Question{NTIID: id, Parts: []Part{{
				Kind:      FillInTheBlankShortAnswerPart,
				Solutions: []Solution{{Kind: FillInTheBlankShortAnswerSolution, Patterns: map[string]RegEx{"b1": {Pattern: "("}}}},
			}}},
			wantTag: regexTag, wantErr: true,
		},
		{
			name: "missing blank",
			q: Question{NTIID: id, Parts: []Part{{
				Kind:      FillInTheBlankShortAnswerPart,
				Input:     `<input type="blankfield" name="b1"/>`,
				Solutions: []Solution{{Kind: FillInTheBlankShortAnswerSolution, Patterns: map[string]RegEx{"b2": {Pattern: "x"}}}},
			}}},
			wantTag: blankTag, wantErr: true,
		},
		{
			name: "word from the question's bank",
			q: Question{
				NTIID:    id,
				WordBank: &WordBank{Entries: []WordEntry{{WID: "1", Word: "up"}}},
				Parts: []Part{{
					Kind:      FillInTheBlankWithWordBankPart,
					Solutions: []Solution{{Kind: FillInTheBlankWithWordBankSolution, Words: map[string][]string{"b1": {"1"}}}},
				}},
			},
		},
		{
			name: "missing word",
			q: Question{NTIID: id, Parts: []Part{{
				Kind:      FillInTheBlankWithWordBankPart,
				WordBank:  &WordBank{Entries: []WordEntry{{WID: "1", Word: "up"}}},
				Solutions: []Solution{{Kind: FillInTheBlankWithWordBankSolution, Words: map[string][]string{"b1": {"7"}}}},
			}}},
			wantTag: wordRefTag, wantErr: true,
		},
		{
			name: "duplicate wids",
			q: Question{
				NTIID:    id,
				WordBank: &WordBank{Entries: []WordEntry{{WID: "1", Word: "up"}, {WID: "1", Word: "down"}}},
				Parts:    []Part{{Kind: FreeResponsePart}},
			},
			wantTag: uniqueWIDTag, wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			found := false
			for _, tag := range failedTags(t, err) {
				if tag == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("Struct() error = %v, want tag %s", err, tt.wantTag)
			}
		})
	}
}

func TestAssignmentValidation(t *testing.T) {
	validate := newTestValidator()
	begin := time.Now()
	end := begin.Add(-time.Hour)
	a := Assignment{
		NTIID:              "tag:nextthought.com,2011-10:Tathmini-NAQ-hw",
		Title:              "HW",
		AvailableBeginning: &begin,
		AvailableEnding:    &end,
		Parts: []AssignmentPart{{QuestionSet: QuestionSet{
			NTIID:     "tag:nextthought.com,2011-10:Tathmini-NAQ-hw.set",
			Questions: []Question{{NTIID: "tag:nextthought.com,2011-10:Tathmini-NAQ-hw.q", Parts: []Part{{Kind: FreeResponsePart}}}},
		}}},
	}

	tags := failedTags(t, validate.Struct(a))
	if tags["available_for_submission_ending"] != dateRangeTag {
		t.Errorf("Struct() failed tags = %v, want %s on available_for_submission_ending", tags, dateRangeTag)
	}

	a.AvailableEnding = nil
	if err := validate.Struct(a); err != nil {
		t.Errorf("Struct() error = %v, want nil", err)
	}
}
