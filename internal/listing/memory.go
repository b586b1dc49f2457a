package listing

import (
	"sort"
	"strings"

	"github.com/yukikurage/task-approval-api/internal/models"
)

// Match reports whether the task passes every filter condition.
func (f Filter) Match(task *models.Task) bool {
	if task.IsArchived != f.Archived {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, task.Status) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, task.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, task.Priority) {
		return false
	}
	if f.SubmittedBy != "" && task.SubmittedBy != f.SubmittedBy {
		return false
	}
	if f.AssignedTo != "" && !task.IsAssignedTo(f.AssignedTo) {
		return false
	}
	if f.SubmittedFrom != nil && task.SubmittedAt.Before(*f.SubmittedFrom) {
		return false
	}
	if f.SubmittedTo != nil && task.SubmittedAt.After(*f.SubmittedTo) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		matched := strings.Contains(strings.ToLower(task.Title), q) ||
			strings.Contains(strings.ToLower(task.Description), q) ||
			strings.Contains(strings.ToLower(task.ReferenceNumber), q)
		if ref := f.searchReference(); ref != "" && task.ReferenceNumber == ref {
			matched = true
		}
		if !matched {
			return false
		}
	}
	return true
}

// Select filters, sorts and pages tasks in memory. It returns the page and
// the number of matches before paging.
func (f Filter) Select(tasks []models.Task) ([]models.Task, int64) {
	f = f.WithDefaults()

	matched := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		if f.Match(&tasks[i]) {
			matched = append(matched, tasks[i])
		}
	}
	Sort(matched, f.Sort, f.Order)
	return Page(matched, f.Limit, f.Offset), int64(len(matched))
}

// Sort orders tasks in place. Priority sorts by rank (urgent first when
// ascending). Tasks without a deadline sort last in either direction. Ties
// break on ID so the order is stable across calls.
func Sort(tasks []models.Task, field SortField, order SortOrder) {
	desc := order == Desc
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := &tasks[i], &tasks[j]

		if field == SortDeadline {
			switch {
			case a.Deadline == nil && b.Deadline == nil:
				return a.ID < b.ID
			case a.Deadline == nil:
				return false
			case b.Deadline == nil:
				return true
			}
		}

		c := compare(a, b, field)
		if c == 0 {
			return a.ID < b.ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b *models.Task, field SortField) int {
	switch field {
	case SortPriority:
		return rank(a.Priority) - rank(b.Priority)
	case SortDeadline:
		return a.Deadline.Compare(*b.Deadline)
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.SubmittedAt.Compare(b.SubmittedAt)
	}
}

// rank places unknown priorities after low.
func rank(p models.TaskPriority) int {
	if r := p.Rank(); r >= 0 {
		return r
	}
	return len(models.AllTaskPriorities)
}

// Page returns tasks[offset:offset+limit], clamped to the slice.
func Page(tasks []models.Task, limit, offset int) []models.Task {
	if offset >= len(tasks) {
		return []models.Task{}
	}
	end := len(tasks)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return tasks[offset:end]
}

// MergeByID concatenates task sets, keeping the first copy of each task ID.
func MergeByID(sets ...[]models.Task) []models.Task {
	seen := make(map[string]bool)
	merged := make([]models.Task, 0)
	for _, set := range sets {
		for _, task := range set {
			if seen[task.ID] {
				continue
			}
			seen[task.ID] = true
			merged = append(merged, task)
		}
	}
	return merged
}

func containsStatus(values []models.TaskStatus, v models.TaskStatus) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsCategory(values []models.TaskCategory, v models.TaskCategory) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsPriority(values []models.TaskPriority, v models.TaskPriority) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
