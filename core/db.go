package core

import (
	"github.com/pkg/errors"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CheckOrdering makes sure that every ordering field is one of the allowed fields.
func CheckOrdering(ordering []DBOrdering, allowed ...string) error {
	for _, ord := range ordering {
		found := false
		for _, fld := range allowed {
			if ord.Field == fld {
				found = true
				break
			}
		}
		if !found {
			return NewValidationError(
				errors.Errorf("cannot order by %q", ord.Field),
				FieldError{Field: "ordering", Error: "invalid ordering field: " + ord.Field},
			)
		}
	}
	return nil
}
