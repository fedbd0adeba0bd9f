package assessment

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
)

// Item is an assessment object addressable by NTIID: a question, a question set or an assignment.
type Item interface {
	ItemNTIID() string
	ItemMimeType() string
	ItemContainerID() string
	ItemTitle() string
}

var (
	_ Item = (*Question)(nil)
	_ Item = (*QuestionSet)(nil)
	_ Item = (*Assignment)(nil)
)

type (
	Question struct {
		NTIID       string    `json:"NTIID" validate:"required,ntiid"`
		ContainerID string    `json:"containerId,omitempty"`
		Content     string    `json:"content"`
		Parts       []Part    `json:"parts" validate:"required,min=1,dive"`
		WordBank    *WordBank `json:"wordbank,omitempty"`
	}

	QuestionSet struct {
		NTIID       string     `json:"NTIID" validate:"required,ntiid"`
		ContainerID string     `json:"containerId,omitempty"`
		Title       string     `json:"title,omitempty"`
		Questions   []Question `json:"questions" validate:"required,min=1,dive"`
	}

	Assignment struct {
		NTIID              string           `json:"NTIID" validate:"required,ntiid"`
		ContainerID        string           `json:"containerId,omitempty"`
		Title              string           `json:"title" validate:"notblank"`
		Content            string           `json:"content,omitempty"`
		CategoryName       string           `json:"category_name,omitempty"`
		IsNonPublic        bool             `json:"is_non_public"`
		AvailableBeginning *time.Time       `json:"available_for_submission_beginning,omitempty"`
		AvailableEnding    *time.Time       `json:"available_for_submission_ending,omitempty"`
		Parts              []AssignmentPart `json:"parts" validate:"required,min=1,dive"`
	}

	AssignmentPart struct {
		Title       string      `json:"title,omitempty"`
		Content     string      `json:"content,omitempty"`
		AutoGrade   bool        `json:"auto_grade"`
		QuestionSet QuestionSet `json:"question_set"`
	}
)

func (q *Question) ItemNTIID() string       { return q.NTIID }
func (q *Question) ItemMimeType() string    { return MimeQuestion }
func (q *Question) ItemContainerID() string { return q.ContainerID }
func (q *Question) ItemTitle() string       { return "" }

func (qs *QuestionSet) ItemNTIID() string       { return qs.NTIID }
func (qs *QuestionSet) ItemMimeType() string    { return MimeQuestionSet }
func (qs *QuestionSet) ItemContainerID() string { return qs.ContainerID }
func (qs *QuestionSet) ItemTitle() string       { return qs.Title }

func (a *Assignment) ItemNTIID() string       { return a.NTIID }
func (a *Assignment) ItemMimeType() string    { return MimeAssignment }
func (a *Assignment) ItemContainerID() string { return a.ContainerID }
func (a *Assignment) ItemTitle() string       { return a.Title }

func (q Question) MarshalJSON() ([]byte, error) {
	type alias Question
	return json.Marshal(struct {
		header
		alias
	}{header{"Question", MimeQuestion}, alias(q)})
}

func (qs QuestionSet) MarshalJSON() ([]byte, error) {
	type alias QuestionSet
	if qs.Questions == nil {
		qs.Questions = []Question{}
	}
	return json.Marshal(struct {
		header
		alias
	}{header{"QuestionSet", MimeQuestionSet}, alias(qs)})
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	type alias Assignment
	return json.Marshal(struct {
		header
		alias
	}{header{"Assignment", MimeAssignment}, alias(a)})
}

func (ap AssignmentPart) MarshalJSON() ([]byte, error) {
	type alias AssignmentPart
	return json.Marshal(struct {
		header
		alias
	}{header{"AssignmentPart", MimeAssignmentPart}, alias(ap)})
}

// Question returns the question of the set with the given NTIID.
func (qs *QuestionSet) Question(ntiid string) (*Question, bool) {
	for i := range qs.Questions {
		if qs.Questions[i].NTIID == ntiid {
			return &qs.Questions[i], true
		}
	}
	return nil, false
}

// IsAvailable tells if the assignment accepts submissions at t.
func (a *Assignment) IsAvailable(t time.Time) bool {
	return a.AvailableBeginning == nil || !t.Before(*a.AvailableBeginning)
}

// IsLate tells if a submission made at t is past the assignment's ending.
func (a *Assignment) IsLate(t time.Time) bool {
	return a.AvailableEnding != nil && t.After(*a.AvailableEnding)
}

func (q Question) WithoutSolutions() Question {
	parts := make([]Part, len(q.Parts))
	for i, p := range q.Parts {
		parts[i] = p.WithoutSolutions()
	}
	q.Parts = parts
	return q
}

func (qs QuestionSet) WithoutSolutions() QuestionSet {
	questions := make([]Question, len(qs.Questions))
	for i, q := range qs.Questions {
		questions[i] = q.WithoutSolutions()
	}
	qs.Questions = questions
	return qs
}

func (a Assignment) WithoutSolutions() Assignment {
	parts := make([]AssignmentPart, len(a.Parts))
	for i, p := range a.Parts {
		p.QuestionSet = p.QuestionSet.WithoutSolutions()
		parts[i] = p
	}
	a.Parts = parts
	return a
}

// StripSolutions returns a copy of the item that can be displayed to students.
func StripSolutions(item Item) Item {
	switch it := item.(type) {
	case *Question:
		q := it.WithoutSolutions()
		return &q
	case *QuestionSet:
		qs := it.WithoutSolutions()
		return &qs
	case *Assignment:
		a := it.WithoutSolutions()
		return &a
	}
	return item
}

// Children returns the items nested in item (the questions of a set, the sets of an assignment, recursively).
func Children(item Item) []Item {
	var children []Item
	switch it := item.(type) {
	case *QuestionSet:
		for i := range it.Questions {
			children = append(children, &it.Questions[i])
		}
	case *Assignment:
		for i := range it.Parts {
			qs := &it.Parts[i].QuestionSet
			children = append(children, qs)
			children = append(children, Children(qs)...)
		}
	}
	return children
}

// DecodeItem decodes an externalized item, dispatching on its MimeType (or Class).
func DecodeItem(data []byte) (Item, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, errors.Wrap(err, "decoding item header")
	}

	var item Item
	switch {
	case h.MimeType == MimeQuestion || (h.MimeType == "" && h.Class == "Question"):
		item = &Question{}
	case h.MimeType == MimeQuestionSet || (h.MimeType == "" && h.Class == "QuestionSet"):
		item = &QuestionSet{}
	case h.MimeType == MimeAssignment || (h.MimeType == "" && h.Class == "Assignment"):
		item = &Assignment{}
	default:
		return nil, core.NewInvalidValueError(h.MimeType+h.Class, "unknown item type")
	}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", item.ItemMimeType())
	}
	return item, nil
}
