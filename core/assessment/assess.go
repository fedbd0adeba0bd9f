package assessment

import (
	"errors"
	"time"

	"github.com/trezcool/tathmini/core"
)

var ErrNotAvailable = errors.New("assignment is not yet available for submission")

// AssessQuestion grades a submission against the question's solutions.
func AssessQuestion(q *Question, sub QuestionSubmission) (AssessedQuestion, error) {
	return assessQuestion(q, sub, true)
}

func assessQuestion(q *Question, sub QuestionSubmission, autoGrade bool) (AssessedQuestion, error) {
	if sub.QuestionID != q.NTIID {
		return AssessedQuestion{}, core.NewInvalidValueError(sub.QuestionID, "submission is not for question %s", q.NTIID)
	}
	if len(sub.Parts) != len(q.Parts) {
		return AssessedQuestion{}, core.NewInvalidValueError(
			len(sub.Parts), "question %s expects %d responses", q.NTIID, len(q.Parts),
		)
	}

	assessed := AssessedQuestion{QuestionID: q.NTIID, Parts: make([]AssessedPart, len(q.Parts))}
	for i := range q.Parts {
		part := q.Parts[i]
		if q.WordBank != nil {
			part.WordBank = part.WordBank.Merge(q.WordBank)
		}
		ap, err := assessPart(&part, sub.Parts[i], autoGrade)
		if err != nil {
			return AssessedQuestion{}, err
		}
		assessed.Parts[i] = ap
	}
	return assessed, nil
}

func assessPart(p *Part, resp Response, autoGrade bool) (AssessedPart, error) {
	ap := AssessedPart{SubmittedResponse: resp}

	switch p.Kind {
	case FilePart:
		if resp != nil {
			f, ok := resp.(FileResponse)
			if !ok {
				return AssessedPart{}, core.NewInvalidValueError(resp, "expected an uploaded file")
			}
			if err := p.ValidateFileResponse(f); err != nil {
				return AssessedPart{}, err
			}
		}
		return ap, nil
	case ModeledContentPart:
		switch r := resp.(type) {
		case nil, ModeledContentResponse:
		case ListResponse:
			ap.SubmittedResponse = ModeledContentResponse{Value: r}
		case TextResponse:
			ap.SubmittedResponse = ModeledContentResponse{Value: []string{string(r)}}
		default:
			return AssessedPart{}, core.NewInvalidValueError(resp, "expected modeled content")
		}
		return ap, nil
	}

	if !autoGrade || !p.AutoGradable() {
		return ap, nil
	}
	grade, err := p.Grade(resp)
	if err != nil {
		return AssessedPart{}, err
	}
	ap.AssessedValue = &grade
	ap.possible = p.MaxGrade()
	return ap, nil
}

// AssessQuestionSet grades the questions answered in the submission.
// Questions not in the submission are left out of the result.
func AssessQuestionSet(qs *QuestionSet, sub QuestionSetSubmission) (AssessedQuestionSet, error) {
	return assessQuestionSet(qs, sub, true)
}

func assessQuestionSet(qs *QuestionSet, sub QuestionSetSubmission, autoGrade bool) (AssessedQuestionSet, error) {
	if sub.QuestionSetID != qs.NTIID {
		return AssessedQuestionSet{}, core.NewInvalidValueError(sub.QuestionSetID, "submission is not for question set %s", qs.NTIID)
	}

	assessed := AssessedQuestionSet{QuestionSetID: qs.NTIID, Questions: make([]AssessedQuestion, 0, len(sub.Questions))}
	seen := make(map[string]bool, len(sub.Questions))
	for _, qsub := range sub.Questions {
		q, ok := qs.Question(qsub.QuestionID)
		if !ok {
			return AssessedQuestionSet{}, core.NewInvalidValueError(qsub.QuestionID, "question is not in set %s", qs.NTIID)
		}
		if seen[qsub.QuestionID] {
			return AssessedQuestionSet{}, core.NewInvalidValueError(qsub.QuestionID, "question submitted more than once")
		}
		seen[qsub.QuestionID] = true

		aq, err := assessQuestion(q, qsub, autoGrade)
		if err != nil {
			return AssessedQuestionSet{}, err
		}
		assessed.Questions = append(assessed.Questions, aq)
	}
	return assessed, nil
}

// AssessAssignment grades an assignment submission made at now.
// Submissions before the assignment's beginning are rejected; those after its ending are flagged late.
func AssessAssignment(a *Assignment, sub AssignmentSubmission, now time.Time) (AssessedAssignment, error) {
	if sub.AssignmentID != a.NTIID {
		return AssessedAssignment{}, core.NewInvalidValueError(sub.AssignmentID, "submission is not for assignment %s", a.NTIID)
	}
	if !a.IsAvailable(now) {
		return AssessedAssignment{}, core.NewValidationError(
			ErrNotAvailable,
			core.FieldError{Field: "assignmentId", Error: ErrNotAvailable.Error()},
		)
	}
	if len(sub.Parts) != len(a.Parts) {
		return AssessedAssignment{}, core.NewInvalidValueError(
			len(sub.Parts), "assignment %s expects %d parts", a.NTIID, len(a.Parts),
		)
	}

	assessed := AssessedAssignment{
		AssignmentID: a.NTIID,
		Late:         a.IsLate(now),
		SubmittedAt:  now,
		Parts:        make([]AssessedQuestionSet, len(a.Parts)),
	}
	for i := range a.Parts {
		aqs, err := assessQuestionSet(&a.Parts[i].QuestionSet, sub.Parts[i], a.Parts[i].AutoGrade)
		if err != nil {
			return AssessedAssignment{}, err
		}
		assessed.Parts[i] = aqs
		earned, possible := aqs.Score()
		assessed.Earned += earned
		assessed.Possible += possible
	}
	return assessed, nil
}
