package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/database"
	"github.com/yukikurage/task-approval-api/internal/listing"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// GormEventRepository is a GORM implementation of EventRepository.
// Events are append-only; they are written by ApplyTransition and never updated.
type GormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) ListByTask(ctx context.Context, taskID string) ([]models.TaskEvent, error) {
	events := make([]models.TaskEvent, 0)
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Preload("Actor").
		Order("created_at DESC").
		Order("id DESC").
		Find(&events).Error
	return events, err
}

func (r *GormEventRepository) Recent(ctx context.Context, scope session.Scope, limit int) ([]models.TaskEvent, error) {
	events := make([]models.TaskEvent, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = task_events.task_id").
		Scopes(listing.ScopeQuery(scope)).
		Preload("Actor").
		Preload("Task").
		Scopes(database.NewestFirst("task_events", "created_at")).
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *GormEventRepository) CountSince(ctx context.Context, scope session.Scope, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TaskEvent{}).
		Joins("JOIN tasks ON tasks.id = task_events.task_id").
		Scopes(listing.ScopeQuery(scope)).
		Where("task_events.created_at >= ?", since).
		Count(&count).Error
	return count, err
}
