package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

// NotificationService reads and acknowledges the caller's own notifications
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// List returns the caller's notifications, newest first
func (s *NotificationService) List(ctx context.Context, sess session.Session, unreadOnly bool, page utils.PaginationParams) ([]models.Notification, int64, error) {
	notifications, total, err := s.notificationRepo.List(ctx, sess.ActorID, unreadOnly, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// UnreadCount counts the caller's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, sess session.Session) (int64, error) {
	count, err := s.notificationRepo.UnreadCount(ctx, sess.ActorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications read. Someone else's
// notification is reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, sess session.Session, id string) error {
	if err := s.notificationRepo.MarkRead(ctx, id, sess.ActorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.NotFound("notification", id)
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller read
func (s *NotificationService) MarkAllRead(ctx context.Context, sess session.Session) (int64, error) {
	count, err := s.notificationRepo.MarkAllRead(ctx, sess.ActorID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	s.logger.Debug("notifications marked read", zap.String("recipient_id", sess.ActorID), zap.Int64("count", count))
	return count, nil
}
