package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTaskSubmitted       NotificationType = "task_submitted"
	NotificationTaskResolved        NotificationType = "task_resolved"
	NotificationNeedsMoreInfo       NotificationType = "needs_more_info"
	NotificationInfoProvided        NotificationType = "info_provided"
	NotificationTaskDelegated       NotificationType = "task_delegated"
	NotificationTaskUpdated         NotificationType = "task_updated"
	NotificationCommentAdded        NotificationType = "comment_added"
	NotificationDeadlineApproaching NotificationType = "deadline_approaching"
	NotificationTaskOverdue         NotificationType = "task_overdue"
)

type Notification struct {
	ID          string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	RecipientID string           `gorm:"type:varchar(36);not null;index" json:"recipient_id"`
	TaskID      *string          `gorm:"type:varchar(36);index" json:"task_id"`
	Type        NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	IsRead      bool             `gorm:"not null;index" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}
