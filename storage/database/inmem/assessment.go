package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

// mockable
var nowFunc = func() time.Time { return time.Now().UTC() }

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) SaveItems(_ context.Context, items ...assessment.Item) error {
	repo.db.items.Lock()
	defer repo.db.items.Unlock()

	now := nowFunc()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return errors.Wrapf(err, "encoding %s", item.ItemNTIID())
		}
		row := &itemRow{
			ntiid:       item.ItemNTIID(),
			mimeType:    item.ItemMimeType(),
			containerID: item.ItemContainerID(),
			title:       item.ItemTitle(),
			data:        data,
			createdAt:   now,
			updatedAt:   now,
		}
		if old, ok := repo.db.items.table[row.ntiid]; ok {
			row.createdAt = old.createdAt
		}
		repo.db.items.table[row.ntiid] = row
	}
	return nil
}

func (repo *assessmentRepository) GetItem(_ context.Context, ntiid string) (assessment.Item, error) {
	repo.db.items.RLock()
	defer repo.db.items.RUnlock()

	row, ok := repo.db.items.table[ntiid]
	if !ok {
		return nil, assessment.ErrNotFound
	}
	return assessment.DecodeItem(row.data)
}

func (repo *assessmentRepository) QueryItems(
	_ context.Context,
	filter assessment.ItemFilter,
	ordering []core.DBOrdering,
) ([]assessment.Item, error) {
	repo.db.items.RLock()
	defer repo.db.items.RUnlock()

	rows := make([]*itemRow, 0, len(repo.db.items.table))
	for _, row := range repo.db.items.table {
		rows = append(rows, row)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "ntiid", Ascending: true}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return lessItems(rows[i], rows[j], ordering)
	})

	items := make([]assessment.Item, 0, len(rows))
	for _, row := range rows {
		item, err := assessment.DecodeItem(row.data)
		if err != nil {
			return nil, err
		}
		if filter.Matches(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

func lessItems(a, b *itemRow, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "ntiid":
			cmp = strings.Compare(a.ntiid, b.ntiid)
		case "mime_type":
			cmp = strings.Compare(a.mimeType, b.mimeType)
		case "container_id":
			cmp = strings.Compare(a.containerID, b.containerID)
		case "title":
			cmp = strings.Compare(a.title, b.title)
		case "created_at":
			cmp = compareTimes(a.createdAt, b.createdAt)
		case "updated_at":
			cmp = compareTimes(a.updatedAt, b.updatedAt)
		}
		if cmp != 0 {
			return (cmp < 0) == ord.Ascending
		}
	}
	return a.ntiid < b.ntiid
}

func (repo *assessmentRepository) DeleteItems(_ context.Context, ntiids ...string) error {
	repo.db.items.Lock()
	deleted := make(map[string]bool, len(ntiids))
	for _, id := range ntiids {
		if _, ok := repo.db.items.table[id]; ok {
			delete(repo.db.items.table, id)
			deleted[id] = true
		}
	}
	repo.db.items.Unlock()

	// submissions go with their assignment
	repo.db.submissions.Lock()
	defer repo.db.submissions.Unlock()
	kept := repo.db.submissions.rows[:0]
	for _, sub := range repo.db.submissions.rows {
		if !deleted[sub.AssignmentID] {
			kept = append(kept, sub)
		}
	}
	repo.db.submissions.rows = kept
	return nil
}

func (repo *assessmentRepository) CreateSubmission(_ context.Context, sub assessment.AssessedAssignment) error {
	repo.db.items.RLock()
	_, ok := repo.db.items.table[sub.AssignmentID]
	repo.db.items.RUnlock()
	if !ok {
		return assessment.ErrNotFound
	}

	stored, err := copySubmission(sub)
	if err != nil {
		return err
	}

	repo.db.submissions.Lock()
	defer repo.db.submissions.Unlock()
	repo.db.submissions.rows = append(repo.db.submissions.rows, stored)
	return nil
}

// copySubmission returns a copy of sub sharing no memory with it.
func copySubmission(sub assessment.AssessedAssignment) (assessment.AssessedAssignment, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return assessment.AssessedAssignment{}, errors.Wrapf(err, "encoding submission %s", sub.ID)
	}
	var cp assessment.AssessedAssignment
	if err = json.Unmarshal(data, &cp); err != nil {
		return assessment.AssessedAssignment{}, errors.Wrapf(err, "decoding submission %s", sub.ID)
	}
	return cp, nil
}

func (repo *assessmentRepository) QuerySubmissions(
	_ context.Context,
	filter assessment.SubmissionFilter,
	ordering []core.DBOrdering,
) ([]assessment.AssessedAssignment, error) {
	repo.db.submissions.RLock()
	defer repo.db.submissions.RUnlock()

	subs := make([]assessment.AssessedAssignment, 0)
	for _, sub := range repo.db.submissions.rows {
		if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.Creator != "" && sub.Creator != filter.Creator {
			continue
		}
		cp, err := copySubmission(sub)
		if err != nil {
			return nil, err
		}
		subs = append(subs, cp)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "submitted_at", Ascending: true}}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "submitted_at":
				cmp = compareTimes(subs[i].SubmittedAt, subs[j].SubmittedAt)
			case "creator":
				cmp = strings.Compare(subs[i].Creator, subs[j].Creator)
			case "earned":
				switch {
				case subs[i].Earned < subs[j].Earned:
					cmp = -1
				case subs[i].Earned > subs[j].Earned:
					cmp = 1
				}
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return false
	})
	return subs, nil
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
