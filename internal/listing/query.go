package listing

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// ScopeQuery restricts a tasks query to the rows the scope may see.
func ScopeQuery(scope session.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.IsAll() {
			return db
		}
		if owner, ok := scope.Owner(); ok {
			return db.Where("(tasks.submitted_by = ? OR tasks.assigned_to = ?)", owner, owner)
		}
		return db.Where("1 = 0")
	}
}

// Where applies the filter conditions to a tasks query.
func (f Filter) Where(db *gorm.DB) *gorm.DB {
	db = db.Where("tasks.is_archived = ?", f.Archived)

	if len(f.Statuses) > 0 {
		db = db.Where("tasks.status IN ?", f.Statuses)
	}
	if len(f.Categories) > 0 {
		db = db.Where("tasks.category IN ?", f.Categories)
	}
	if len(f.Priorities) > 0 {
		db = db.Where("tasks.priority IN ?", f.Priorities)
	}
	if f.SubmittedBy != "" {
		db = db.Where("tasks.submitted_by = ?", f.SubmittedBy)
	}
	if f.AssignedTo != "" {
		db = db.Where("tasks.assigned_to = ?", f.AssignedTo)
	}
	if f.SubmittedFrom != nil {
		db = db.Where("tasks.submitted_at >= ?", *f.SubmittedFrom)
	}
	if f.SubmittedTo != nil {
		db = db.Where("tasks.submitted_at <= ?", *f.SubmittedTo)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		cond := "LOWER(tasks.title) LIKE ? ESCAPE '!' OR LOWER(tasks.description) LIKE ? ESCAPE '!' OR LOWER(tasks.reference_number) LIKE ? ESCAPE '!'"
		args := []any{pattern, pattern, pattern}
		if ref := f.searchReference(); ref != "" {
			cond += " OR tasks.reference_number = ?"
			args = append(args, ref)
		}
		db = db.Where("("+cond+")", args...)
	}
	return db
}

// OrderBy applies the filter's sort with an ID tie-breaker.
func (f Filter) OrderBy(db *gorm.DB) *gorm.DB {
	f = f.WithDefaults()
	dir := "DESC"
	if f.Order == Asc {
		dir = "ASC"
	}

	switch f.Sort {
	case SortPriority:
		db = db.Order(fmt.Sprintf("%s %s", priorityRankExpr(), dir))
	case SortDeadline:
		db = db.Order("CASE WHEN tasks.deadline IS NULL THEN 1 ELSE 0 END ASC").
			Order("tasks.deadline " + dir)
	case SortUpdatedAt:
		db = db.Order("tasks.updated_at " + dir)
	default:
		db = db.Order("tasks.submitted_at " + dir)
	}
	return db.Order("tasks.id ASC")
}

// Paginate applies the filter's limit and offset.
func (f Filter) Paginate(db *gorm.DB) *gorm.DB {
	f = f.WithDefaults()
	return db.Offset(f.Offset).Limit(f.Limit)
}

func priorityRankExpr() string {
	var b strings.Builder
	b.WriteString("CASE tasks.priority")
	for i, p := range models.AllTaskPriorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(models.AllTaskPriorities))
	return b.String()
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
