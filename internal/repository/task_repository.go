package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/task-approval-api/internal/listing"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
	"github.com/yukikurage/task-approval-api/internal/utils"
	"github.com/yukikurage/task-approval-api/internal/workflow"
)

const taskCounterName = "tasks"

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create allocates the reference number, inserts the task and its creation notifications
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task, plan workflow.NotificationPlan, actorID string) ([]models.Notification, error) {
	var notifications []models.Notification

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, taskCounterName)
		if err != nil {
			return fmt.Errorf("allocate reference number: %w", err)
		}
		task.ReferenceNumber = utils.FormatReferenceNumber(seq)

		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		notifications, err = buildNotifications(tx, plan, task, actorID, task.SubmittedAt)
		if err != nil {
			return err
		}
		return insertNotifications(tx, notifications)
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id string, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks visible under scope with filtering, sorting and pagination
func (r *GormTaskRepository) List(ctx context.Context, scope session.Scope, filter listing.Filter) ([]models.Task, int64, error) {
	filter = filter.WithDefaults()
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Task{}).Scopes(listing.ScopeQuery(scope), filter.Where)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := make([]models.Task, 0)
	err := base().
		Scopes(filter.OrderBy, filter.Paginate).
		Preload("Submitter").
		Preload("Assignee").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// FindBySubmitter lists every task the user submitted
func (r *GormTaskRepository) FindBySubmitter(ctx context.Context, userID string, archived bool) ([]models.Task, error) {
	return r.findWhere(ctx, "submitted_by = ? AND is_archived = ?", userID, archived)
}

// FindByAssignee lists every task assigned to the user
func (r *GormTaskRepository) FindByAssignee(ctx context.Context, userID string, archived bool) ([]models.Task, error) {
	return r.findWhere(ctx, "assigned_to = ? AND is_archived = ?", userID, archived)
}

func (r *GormTaskRepository) findWhere(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Preload("Submitter").
		Preload("Assignee").
		Find(&tasks).Error
	return tasks, err
}

// ApplyTransition performs the compare-and-swap on status and writes the
// event and notifications in the same transaction. Zero matched rows means
// the status moved or the task was archived since it was read.
func (r *GormTaskRepository) ApplyTransition(ctx context.Context, task *models.Task, decision *workflow.Decision) (*TransitionResult, error) {
	result := &TransitionResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ? AND is_archived = ?", decision.TaskID, decision.From, false).
			Updates(decision.Updates)
		if res.Error != nil {
			return fmt.Errorf("update task status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStalePrecondition
		}

		event := decision.Event
		if err := tx.Omit(clause.Associations).Create(&event).Error; err != nil {
			return fmt.Errorf("append task event: %w", err)
		}

		updated := *task
		decision.Apply(&updated)

		notifications, err := buildNotifications(tx, decision.Notifications, &updated, event.ActorID, event.CreatedAt)
		if err != nil {
			return err
		}
		if err := insertNotifications(tx, notifications); err != nil {
			return err
		}

		var reloaded models.Task
		err = tx.Preload("Submitter").
			Preload("Assignee").
			Preload("Resolver").
			First(&reloaded, "id = ?", decision.TaskID).Error
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}

		result.Task = &reloaded
		result.Event = event
		result.Notifications = notifications
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Archive sets the archived flag
func (r *GormTaskRepository) Archive(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND is_archived = ?", id, false).
		Updates(map[string]interface{}{
			"is_archived": true,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a task and everything attached to it
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindDeadlineCandidates lists open, unarchived tasks with a deadline at or before the given time
func (r *GormTaskRepository) FindDeadlineCandidates(ctx context.Context, before time.Time) ([]models.Task, error) {
	terminal := []models.TaskStatus{models.TaskStatusApproved, models.TaskStatusRejected, models.TaskStatusResolved}

	tasks := make([]models.Task, 0)
	err := r.db.WithContext(ctx).
		Where("deadline IS NOT NULL AND deadline <= ?", before).
		Where("is_archived = ? AND status NOT IN ?", false, terminal).
		Order("deadline ASC").
		Find(&tasks).Error
	return tasks, err
}

// nextSequence increments a named counter and returns the new value. The
// UPDATE locks the counter row until the surrounding transaction ends.
func nextSequence(tx *gorm.DB, name string) (uint64, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TaskCounter{Name: name}).Error
	if err != nil {
		return 0, err
	}

	err = tx.Model(&models.TaskCounter{}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + ?", 1)).Error
	if err != nil {
		return 0, err
	}

	var counter models.TaskCounter
	if err := tx.Where("name = ?", name).First(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func adminIDs(db *gorm.DB) ([]string, error) {
	ids := make([]string, 0)
	err := db.Model(&models.Profile{}).
		Where("role IN ? AND is_active = ?", []models.Role{models.RoleCEO, models.RoleSuperAdmin}, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func buildNotifications(tx *gorm.DB, plan workflow.NotificationPlan, task *models.Task, actorID string, at time.Time) ([]models.Notification, error) {
	if plan.Empty() {
		return nil, nil
	}

	var admins []string
	if plan.Audience.Admins {
		var err error
		if admins, err = adminIDs(tx); err != nil {
			return nil, fmt.Errorf("resolve admin recipients: %w", err)
		}
	}

	notifications := plan.Build(task, admins, actorID)
	for i := range notifications {
		notifications[i].CreatedAt = at
	}
	return notifications, nil
}

func insertNotifications(tx *gorm.DB, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := tx.Create(&notifications).Error; err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}
