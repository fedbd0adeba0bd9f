package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

const pqForeignKeyViolation = "23503"

var (
	// mockable
	nowFunc = func() time.Time { return time.Now().UTC() }

	itemColumns = map[string]string{
		"ntiid":        "ntiid",
		"mime_type":    "mime_type",
		"container_id": "container_id",
		"title":        "title",
		"created_at":   "created_at",
		"updated_at":   "updated_at",
	}
	submissionColumns = map[string]string{
		"submitted_at": "submitted_at",
		"creator":      "creator",
		"earned":       "earned",
	}
)

type (
	itemRow struct {
		NTIID       string      `db:"ntiid"`
		MimeType    string      `db:"mime_type"`
		ContainerID null.String `db:"container_id"`
		Title       null.String `db:"title"`
		Data        []byte      `db:"data"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	submissionRow struct {
		ID           string    `db:"id"`
		AssignmentID string    `db:"assignment_id"`
		Creator      string    `db:"creator"`
		Late         bool      `db:"late"`
		Earned       float64   `db:"earned"`
		Possible     float64   `db:"possible"`
		Data         []byte    `db:"data"`
		SubmittedAt  time.Time `db:"submitted_at"`
		GradedAt     null.Time `db:"graded_at"`
	}

	assessmentRepository struct {
		db *sqlx.DB
	}
)

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) SaveItems(ctx context.Context, items ...assessment.Item) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
		INSERT INTO "assessment_item" (ntiid, mime_type, container_id, title, data, created_at, updated_at)
		VALUES (:ntiid, :mime_type, :container_id, :title, :data, :created_at, :updated_at)
		ON CONFLICT (ntiid) DO UPDATE SET
			mime_type = EXCLUDED.mime_type,
			container_id = EXCLUDED.container_id,
			title = EXCLUDED.title,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`

	now := nowFunc()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return errors.Wrapf(err, "encoding %s", item.ItemNTIID())
		}
		row := itemRow{
			NTIID:       item.ItemNTIID(),
			MimeType:    item.ItemMimeType(),
			ContainerID: null.NewString(item.ItemContainerID(), item.ItemContainerID() != ""),
			Title:       null.NewString(item.ItemTitle(), item.ItemTitle() != ""),
			Data:        data,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err = tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrapf(err, "saving %s", row.NTIID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo *assessmentRepository) GetItem(ctx context.Context, ntiid string) (assessment.Item, error) {
	var row itemRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "assessment_item" WHERE ntiid = $1`, ntiid)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, assessment.ErrNotFound
		}
		return nil, errors.Wrap(err, "selecting item")
	}
	return assessment.DecodeItem(row.Data)
}

func (repo *assessmentRepository) QueryItems(
	ctx context.Context,
	filter assessment.ItemFilter,
	ordering []core.DBOrdering,
) ([]assessment.Item, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if len(filter.MimeTypes) > 0 {
		conds = append(conds, "mime_type = ANY("+arg(pq.Array(filter.MimeTypes))+")")
	}
	if filter.ContainerID != "" {
		conds = append(conds, "container_id = "+arg(filter.ContainerID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, "(ntiid ILIKE "+p+" OR title ILIKE "+p+")")
	}

	q := `SELECT * FROM "assessment_item"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, itemColumns, "ntiid ASC")

	var rows []itemRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting items")
	}
	items := make([]assessment.Item, 0, len(rows))
	for _, row := range rows {
		item, err := assessment.DecodeItem(row.Data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (repo *assessmentRepository) DeleteItems(ctx context.Context, ntiids ...string) error {
	if len(ntiids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM "assessment_item" WHERE ntiid = ANY($1)`, pq.Array(ntiids))
	return errors.Wrap(err, "deleting items")
}

func (repo *assessmentRepository) CreateSubmission(ctx context.Context, sub assessment.AssessedAssignment) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return errors.Wrap(err, "encoding submission")
	}
	row := submissionRow{
		ID:           sub.ID,
		AssignmentID: sub.AssignmentID,
		Creator:      sub.Creator,
		Late:         sub.Late,
		Earned:       sub.Earned,
		Possible:     sub.Possible,
		Data:         data,
		SubmittedAt:  sub.SubmittedAt,
		GradedAt:     null.NewTime(sub.SubmittedAt, sub.Graded()),
	}

	q := `
		INSERT INTO "assignment_submission" (id, assignment_id, creator, late, earned, possible, data, submitted_at, graded_at)
		VALUES (:id, :assignment_id, :creator, :late, :earned, :possible, :data, :submitted_at, :graded_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqForeignKeyViolation {
			return assessment.ErrNotFound
		}
		return errors.Wrap(err, "inserting submission")
	}
	return nil
}

func (repo *assessmentRepository) QuerySubmissions(
	ctx context.Context,
	filter assessment.SubmissionFilter,
	ordering []core.DBOrdering,
) ([]assessment.AssessedAssignment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.AssignmentID != "" {
		args = append(args, filter.AssignmentID)
		conds = append(conds, "assignment_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Creator != "" {
		args = append(args, filter.Creator)
		conds = append(conds, "creator = $"+strconv.Itoa(len(args)))
	}

	q := `SELECT * FROM "assignment_submission"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, submissionColumns, "submitted_at ASC")

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	subs := make([]assessment.AssessedAssignment, 0, len(rows))
	for _, row := range rows {
		var sub assessment.AssessedAssignment
		if err := json.Unmarshal(row.Data, &sub); err != nil {
			return nil, errors.Wrapf(err, "decoding submission %s", row.ID)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// orderBy builds an ORDER BY clause from the orderings on known columns.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(clauses) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
