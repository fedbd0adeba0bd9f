package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/tathmini/core/assessment"
)

type (
	DB struct {
		items       *itemTable
		submissions *submissionTable
	}

	itemTable struct {
		sync.RWMutex
		table map[string]*itemRow
	}

	// items are stored encoded so that callers never share state with the table
	itemRow struct {
		ntiid       string
		mimeType    string
		containerID string
		title       string
		data        []byte
		createdAt   time.Time
		updatedAt   time.Time
	}

	submissionTable struct {
		sync.RWMutex
		rows []assessment.AssessedAssignment
	}
)

func Open() *DB {
	return &DB{
		items:       &itemTable{table: make(map[string]*itemRow)},
		submissions: &submissionTable{},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.items.Lock()
	db.items.table = make(map[string]*itemRow)
	db.items.Unlock()

	db.submissions.Lock()
	db.submissions.rows = nil
	db.submissions.Unlock()
}
