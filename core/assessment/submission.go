package assessment

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type (
	// QuestionSubmission holds one response per part of the question (nil for unanswered parts).
	QuestionSubmission struct {
		QuestionID string     `json:"questionId" validate:"required"`
		Parts      []Response `json:"parts"`
	}

	QuestionSetSubmission struct {
		QuestionSetID string               `json:"questionSetId" validate:"required"`
		Questions     []QuestionSubmission `json:"questions" validate:"dive"`
	}

	// AssignmentSubmission holds one question set submission per part of the assignment.
	AssignmentSubmission struct {
		AssignmentID string                  `json:"assignmentId" validate:"required"`
		Parts        []QuestionSetSubmission `json:"parts" validate:"dive"`
	}

	// AssessedPart is the result of grading a part. AssessedValue is nil when the part was not auto-graded.
	AssessedPart struct {
		SubmittedResponse Response `json:"submittedResponse"`
		AssessedValue     *float64 `json:"assessedValue"`

		possible float64
	}

	AssessedQuestion struct {
		QuestionID string         `json:"questionId"`
		Parts      []AssessedPart `json:"parts"`
	}

	AssessedQuestionSet struct {
		QuestionSetID string             `json:"questionSetId"`
		Questions     []AssessedQuestion `json:"questions"`
	}

	AssessedAssignment struct {
		ID           string                `json:"id"`
		AssignmentID string                `json:"assignmentId"`
		Creator      string                `json:"creator"`
		Late         bool                  `json:"late"`
		SubmittedAt  time.Time             `json:"submittedAt"`
		Parts        []AssessedQuestionSet `json:"parts"`
		Earned       float64               `json:"earned"`
		Possible     float64               `json:"possible"`
	}
)

func (s QuestionSubmission) MarshalJSON() ([]byte, error) {
	type alias QuestionSubmission
	if s.Parts == nil {
		s.Parts = []Response{}
	}
	return json.Marshal(struct {
		header
		alias
	}{header{"QuestionSubmission", MimeQuestionSubmission}, alias(s)})
}

func (s *QuestionSubmission) UnmarshalJSON(data []byte) error {
	var aux struct {
		QuestionID string            `json:"questionId"`
		Parts      []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	parts, err := decodeResponses(aux.Parts)
	if err != nil {
		return err
	}
	*s = QuestionSubmission{QuestionID: aux.QuestionID, Parts: parts}
	return nil
}

func decodeResponses(raws []json.RawMessage) ([]Response, error) {
	responses := make([]Response, len(raws))
	for i, raw := range raws {
		resp, err := DecodeResponse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
		responses[i] = resp
	}
	return responses, nil
}

func (s QuestionSetSubmission) MarshalJSON() ([]byte, error) {
	type alias QuestionSetSubmission
	if s.Questions == nil {
		s.Questions = []QuestionSubmission{}
	}
	return json.Marshal(struct {
		header
		alias
	}{header{"QuestionSetSubmission", MimeQuestionSetSubmission}, alias(s)})
}

func (s AssignmentSubmission) MarshalJSON() ([]byte, error) {
	type alias AssignmentSubmission
	if s.Parts == nil {
		s.Parts = []QuestionSetSubmission{}
	}
	return json.Marshal(struct {
		header
		alias
	}{header{"AssignmentSubmission", MimeAssignmentSubmission}, alias(s)})
}

func (p AssessedPart) MarshalJSON() ([]byte, error) {
	type alias AssessedPart
	return json.Marshal(struct {
		header
		alias
	}{header{"AssessedPart", MimeAssessedPart}, alias(p)})
}

func (p *AssessedPart) UnmarshalJSON(data []byte) error {
	var aux struct {
		SubmittedResponse json.RawMessage `json:"submittedResponse"`
		AssessedValue     *float64        `json:"assessedValue"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	resp, err := DecodeResponse(aux.SubmittedResponse)
	if err != nil {
		return err
	}
	*p = AssessedPart{SubmittedResponse: resp, AssessedValue: aux.AssessedValue}
	return nil
}

func (q AssessedQuestion) MarshalJSON() ([]byte, error) {
	type alias AssessedQuestion
	return json.Marshal(struct {
		header
		alias
	}{header{"AssessedQuestion", MimeAssessedQuestion}, alias(q)})
}

func (qs AssessedQuestionSet) MarshalJSON() ([]byte, error) {
	type alias AssessedQuestionSet
	return json.Marshal(struct {
		header
		alias
	}{header{"AssessedQuestionSet", MimeAssessedQuestionSet}, alias(qs)})
}

func (a AssessedAssignment) MarshalJSON() ([]byte, error) {
	type alias AssessedAssignment
	return json.Marshal(struct {
		header
		alias
	}{header{"AssessedAssignment", MimeAssessedAssignment}, alias(a)})
}

// Score returns the sum of the assessed values and the highest sum the graded parts could get.
func (q *AssessedQuestion) Score() (earned, possible float64) {
	for _, p := range q.Parts {
		if p.AssessedValue != nil {
			earned += *p.AssessedValue
			possible += p.possible
		}
	}
	return earned, possible
}

func (qs *AssessedQuestionSet) Score() (earned, possible float64) {
	for i := range qs.Questions {
		e, p := qs.Questions[i].Score()
		earned += e
		possible += p
	}
	return earned, possible
}

// Graded tells if at least one part of the submission was auto-graded.
func (a *AssessedAssignment) Graded() bool {
	for _, qs := range a.Parts {
		for _, q := range qs.Questions {
			for _, p := range q.Parts {
				if p.AssessedValue != nil {
					return true
				}
			}
		}
	}
	return false
}
