package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/database"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) CreateMany(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *GormNotificationRepository) List(ctx context.Context, recipientID string, unreadOnly bool, page utils.PaginationParams) ([]models.Notification, int64, error) {
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
		if unreadOnly {
			query = query.Where("is_read = ?", false)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	notifications := make([]models.Notification, 0)
	err := base().
		Scopes(database.NewestFirst("notifications", "created_at"), database.Paginate(page)).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *GormNotificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead returns gorm.ErrRecordNotFound when the notification does not
// belong to the recipient.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	db := r.db.WithContext(ctx)

	var n models.Notification
	if err := db.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	return db.Model(&n).Update("is_read", true).Error
}

func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *GormNotificationRepository) Exists(ctx context.Context, taskID, recipientID string, kind models.NotificationType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("task_id = ? AND recipient_id = ? AND type = ?", taskID, recipientID, kind).
		Count(&count).Error
	return count > 0, err
}
