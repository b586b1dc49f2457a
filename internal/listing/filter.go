// Package listing filters, sorts and pages task lists. The same Filter drives
// both the SQL query and the in-memory path used for merged views.
package listing

import (
	"strings"
	"time"

	"github.com/yukikurage/task-approval-api/internal/constants"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

type SortField string

const (
	SortSubmittedAt SortField = "submitted_at"
	SortUpdatedAt   SortField = "updated_at"
	SortDeadline    SortField = "deadline"
	SortPriority    SortField = "priority"
)

func (f SortField) Valid() bool {
	switch f {
	case SortSubmittedAt, SortUpdatedAt, SortDeadline, SortPriority:
		return true
	}
	return false
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Filter selects tasks. Every set field narrows the result (AND); within a
// multi-valued field any value matches.
type Filter struct {
	Statuses      []models.TaskStatus
	Categories    []models.TaskCategory
	Priorities    []models.TaskPriority
	SubmittedBy   string
	AssignedTo    string
	Search        string
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	// Archived lists archived tasks instead of active ones.
	Archived bool

	Sort   SortField
	Order  SortOrder
	Limit  int
	Offset int
}

// WithDefaults fills the sort and page defaults: newest submissions first.
func (f Filter) WithDefaults() Filter {
	if f.Sort == "" {
		f.Sort = SortSubmittedAt
	}
	if f.Order == "" {
		f.Order = Desc
	}
	if f.Limit <= 0 {
		f.Limit = constants.DefaultPageSize
	}
	if f.Limit > constants.MaxPageSize {
		f.Limit = constants.MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Validate rejects unknown enum values and inverted date ranges.
func (f Filter) Validate() error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return apierrors.ValidationField("status", "unknown status "+string(s))
		}
	}
	for _, c := range f.Categories {
		if !c.Valid() {
			return apierrors.ValidationField("category", "unknown category "+string(c))
		}
	}
	for _, p := range f.Priorities {
		if !p.Valid() {
			return apierrors.ValidationField("priority", "unknown priority "+string(p))
		}
	}
	if f.Sort != "" && !f.Sort.Valid() {
		return apierrors.ValidationField("sort", "unknown sort field "+string(f.Sort))
	}
	if f.Order != "" && f.Order != Asc && f.Order != Desc {
		return apierrors.ValidationField("order", "must be asc or desc")
	}
	if f.SubmittedFrom != nil && f.SubmittedTo != nil && f.SubmittedTo.Before(*f.SubmittedFrom) {
		return apierrors.ValidationField("submitted_to", "must not be before submitted_from")
	}
	return nil
}

// searchReference returns the stored form of a short reference search
// (tsk-42 -> TSK-000042), or "" when the search is not a reference.
func (f Filter) searchReference() string {
	q := strings.ToUpper(strings.TrimSpace(f.Search))
	seq, err := utils.ParseReferenceNumber(q)
	if err != nil {
		return ""
	}
	return utils.FormatReferenceNumber(seq)
}
