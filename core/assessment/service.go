package assessment

import (
	"bytes"
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
)

var (
	// errors
	ErrNotFound = errors.New("item not found")

	// mockable
	nowFunc = func() time.Time { return time.Now().UTC() }
	newID   = func() string { return uuid.New().String() }

	itemOrderings       = []string{"ntiid", "mime_type", "container_id", "title", "created_at", "updated_at"}
	submissionOrderings = []string{"submitted_at", "creator", "earned"}
)

type (
	// ItemFilter applies AND operation on its fields. Search does a case-insensitive match on the NTIID or title.
	ItemFilter struct {
		MimeTypes   []string `query:"type"`
		ContainerID string   `query:"container"`
		Search      string   `query:"search"`
	}

	SubmissionFilter struct {
		AssignmentID string `query:"-"`
		Creator      string `query:"creator"`
	}

	Repository interface {
		// SaveItems creates the items or replaces the existing ones with the same NTIID.
		SaveItems(ctx context.Context, items ...Item) error
		GetItem(ctx context.Context, ntiid string) (Item, error)
		QueryItems(ctx context.Context, filter ItemFilter, ordering []core.DBOrdering) ([]Item, error)
		DeleteItems(ctx context.Context, ntiids ...string) error
		CreateSubmission(ctx context.Context, sub AssessedAssignment) error
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, ordering []core.DBOrdering) ([]AssessedAssignment, error)
	}

	Service interface {
		SaveItems(ctx context.Context, items ...Item) error
		GetItem(ctx context.Context, ntiid string) (Item, error)
		QueryItems(ctx context.Context, filter ItemFilter, ordering []core.DBOrdering) ([]Item, error)
		DeleteItems(ctx context.Context, ntiids ...string) error
		AssessQuestion(ctx context.Context, sub QuestionSubmission) (AssessedQuestion, error)
		AssessQuestionSet(ctx context.Context, sub QuestionSetSubmission) (AssessedQuestionSet, error)
		SubmitAssignment(ctx context.Context, creator core.Person, sub AssignmentSubmission) (AssessedAssignment, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, ordering []core.DBOrdering) ([]AssessedAssignment, error)
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{repo: repo, mailSvc: mailSvc, validate: validate}
}

func (f *ItemFilter) IsEmpty() bool {
	return len(f.MimeTypes) == 0 && f.ContainerID == "" && f.Search == ""
}

func (f *ItemFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.ContainerID = core.CleanString(f.ContainerID)
	types := f.MimeTypes[:0]
	for _, t := range f.MimeTypes {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				types = append(types, part)
			}
		}
	}
	f.MimeTypes = types
}

// Matches tells if an item passes the filter.
func (f *ItemFilter) Matches(item Item) bool {
	if len(f.MimeTypes) > 0 && !containsString(f.MimeTypes, item.ItemMimeType()) {
		return false
	}
	if f.ContainerID != "" && item.ItemContainerID() != f.ContainerID {
		return false
	}
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(item.ItemNTIID()), search) ||
			strings.Contains(strings.ToLower(item.ItemTitle()), search)
	}
	return true
}

func (svc *service) SaveItems(ctx context.Context, items ...Item) error {
	for _, item := range items {
		if err := svc.validate.Struct(item); err != nil {
			return err
		}
	}
	return svc.repo.SaveItems(ctx, items...)
}

func (svc *service) GetItem(ctx context.Context, ntiid string) (Item, error) {
	return svc.repo.GetItem(ctx, ntiid)
}

func (svc *service) QueryItems(ctx context.Context, filter ItemFilter, ordering []core.DBOrdering) ([]Item, error) {
	if err := core.CheckOrdering(ordering, itemOrderings...); err != nil {
		return nil, err
	}
	return svc.repo.QueryItems(ctx, filter, ordering)
}

func (svc *service) DeleteItems(ctx context.Context, ntiids ...string) error {
	return svc.repo.DeleteItems(ctx, ntiids...)
}

func (svc *service) getQuestion(ctx context.Context, ntiid string) (*Question, error) {
	item, err := svc.repo.GetItem(ctx, ntiid)
	if err != nil {
		return nil, err
	}
	q, ok := item.(*Question)
	if !ok {
		return nil, ErrNotFound
	}
	return q, nil
}

func (svc *service) AssessQuestion(ctx context.Context, sub QuestionSubmission) (AssessedQuestion, error) {
	if err := svc.validate.Struct(sub); err != nil {
		return AssessedQuestion{}, err
	}
	q, err := svc.getQuestion(ctx, sub.QuestionID)
	if err != nil {
		return AssessedQuestion{}, pkgerrors.Wrap(err, "getting question")
	}
	return AssessQuestion(q, sub)
}

func (svc *service) AssessQuestionSet(ctx context.Context, sub QuestionSetSubmission) (AssessedQuestionSet, error) {
	if err := svc.validate.Struct(sub); err != nil {
		return AssessedQuestionSet{}, err
	}
	item, err := svc.repo.GetItem(ctx, sub.QuestionSetID)
	if err != nil {
		return AssessedQuestionSet{}, pkgerrors.Wrap(err, "getting question set")
	}
	qs, ok := item.(*QuestionSet)
	if !ok {
		return AssessedQuestionSet{}, ErrNotFound
	}
	return AssessQuestionSet(qs, sub)
}

// SubmitAssignment grades and records an assignment submission, then emails the grade report to the creator.
func (svc *service) SubmitAssignment(ctx context.Context, creator core.Person, sub AssignmentSubmission) (AssessedAssignment, error) {
	if err := svc.validate.Struct(sub); err != nil {
		return AssessedAssignment{}, err
	}
	item, err := svc.repo.GetItem(ctx, sub.AssignmentID)
	if err != nil {
		return AssessedAssignment{}, pkgerrors.Wrap(err, "getting assignment")
	}
	a, ok := item.(*Assignment)
	if !ok {
		return AssessedAssignment{}, ErrNotFound
	}

	assessed, err := AssessAssignment(a, sub, nowFunc())
	if err != nil {
		return AssessedAssignment{}, err
	}
	assessed.ID = newID()
	assessed.Creator = creator.ID
	if err := svc.repo.CreateSubmission(ctx, assessed); err != nil {
		return AssessedAssignment{}, pkgerrors.Wrap(err, "saving submission")
	}

	if creator.Email != "" {
		if err := svc.sendGradeReport(creator, a, assessed); err != nil {
			return AssessedAssignment{}, pkgerrors.Wrap(err, "sending grade report")
		}
	}
	return assessed, nil
}

func (svc *service) QuerySubmissions(ctx context.Context, filter SubmissionFilter, ordering []core.DBOrdering) ([]AssessedAssignment, error) {
	if err := core.CheckOrdering(ordering, submissionOrderings...); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, filter, ordering)
}

func (svc *service) sendGradeReport(to core.Person, a *Assignment, assessed AssessedAssignment) error {
	name := to.Username
	if name == "" {
		name = to.ID
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: to.Email}},
		Subject:      "Submission received: " + a.Title,
		TemplateName: "assignment_graded",
		TemplateData: map[string]interface{}{
			"Creator":      name,
			"Title":        a.Title,
			"AssignmentID": a.NTIID,
			"SubmissionID": assessed.ID,
			"Earned":       assessed.Earned,
			"Possible":     assessed.Possible,
			"Late":         assessed.Late,
		},
	}

	data, err := json.MarshalIndent(assessed, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "encoding submission")
	}
	if err := msg.Attach(bytes.NewReader(data), "submission-"+assessed.ID+".json", "application/json"); err != nil {
		return err
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}
