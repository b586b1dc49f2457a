package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/task-approval-api/internal/database"
	"github.com/yukikurage/task-approval-api/internal/listing"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *models.TaskComment) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return err
	}

	var author models.Profile
	if err := db.First(&author, "id = ?", comment.AuthorID).Error; err != nil {
		return err
	}
	comment.Author = &author
	return nil
}

func (r *GormCommentRepository) ListByTask(ctx context.Context, taskID string) ([]models.TaskComment, error) {
	comments := make([]models.TaskComment, 0)
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Preload("Author").
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *GormCommentRepository) Recent(ctx context.Context, scope session.Scope, limit int) ([]models.TaskComment, error) {
	comments := make([]models.TaskComment, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = task_comments.task_id").
		Scopes(listing.ScopeQuery(scope)).
		Preload("Author").
		Preload("Task").
		Scopes(database.NewestFirst("task_comments", "created_at")).
		Limit(limit).
		Find(&comments).Error
	return comments, err
}
