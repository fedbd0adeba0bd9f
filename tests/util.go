// Package testutil provides fixtures shared by the tests of several packages.
package testutil

import (
	"context"
	"testing"

	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/ntiid"
)

const Provider = "Test"

func ItemID(local string) string {
	return ntiid.Make(Provider, ntiid.TypeAssessment, local)
}

// NewMathQuestion returns a one part numeric question.
func NewMathQuestion(local, answer string, units ...string) *assessment.Question {
	sol := assessment.Solution{Kind: assessment.NumericMathSolution, Text: answer}
	if len(units) > 0 {
		sol.AllowedUnits = units
	}
	return &assessment.Question{
		NTIID:   ItemID(local),
		Content: "Compute " + local,
		Parts: []assessment.Part{{
			Kind:      assessment.NumericMathPart,
			Solutions: []assessment.Solution{sol},
		}},
	}
}

// NewChoiceQuestion returns a one part multiple choice question.
func NewChoiceQuestion(local string, choices []string, answer int) *assessment.Question {
	return &assessment.Question{
		NTIID:   ItemID(local),
		Content: "Choose " + local,
		Parts: []assessment.Part{{
			Kind:        assessment.MultipleChoicePart,
			Choices:     choices,
			Explanation: "because",
			Solutions:   []assessment.Solution{{Kind: assessment.MultipleChoiceSolution, Index: answer}},
		}},
	}
}

func NewQuestionSet(local string, questions ...*assessment.Question) *assessment.QuestionSet {
	qs := &assessment.QuestionSet{NTIID: ItemID(local), Title: local}
	for _, q := range questions {
		qs.Questions = append(qs.Questions, *q)
	}
	return qs
}

// NewAssignment returns an always available assignment with one auto-graded part per set.
func NewAssignment(local string, sets ...*assessment.QuestionSet) *assessment.Assignment {
	a := &assessment.Assignment{NTIID: ItemID(local), Title: local}
	for _, qs := range sets {
		a.Parts = append(a.Parts, assessment.AssignmentPart{Title: qs.Title, AutoGrade: true, QuestionSet: *qs})
	}
	return a
}

func SaveItems(t *testing.T, repo assessment.Repository, items ...assessment.Item) {
	t.Helper()
	if err := repo.SaveItems(context.Background(), items...); err != nil {
		t.Fatalf("SaveItems() failed: %v", err)
	}
}
