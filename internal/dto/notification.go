package dto

import (
	"time"

	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/services"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

// NotificationDTO represents a notification in API responses
type NotificationDTO struct {
	ID          string                  `json:"id"`
	RecipientID string                  `json:"recipient_id"`
	TaskID      *string                 `json:"task_id"`
	Type        models.NotificationType `json:"type"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	IsRead      bool                    `json:"is_read"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationDTO        `json:"notifications"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// ActivityDTO is one feed entry; exactly one of Event and Comment is set
type ActivityDTO struct {
	Kind    services.ActivityKind `json:"kind"`
	At      time.Time             `json:"at"`
	TaskID  string                `json:"task_id"`
	Task    *TaskRefDTO           `json:"task,omitempty"`
	Event   *EventDTO             `json:"event,omitempty"`
	Comment *CommentDTO           `json:"comment,omitempty"`
}

// TaskRefDTO identifies a task in the activity feed
type TaskRefDTO struct {
	ID              string `json:"id"`
	ReferenceNumber string `json:"reference_number"`
	Title           string `json:"title"`
}

func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		TaskID:      n.TaskID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
	}
}

func ToNotificationDTOs(notifications []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		out[i] = ToNotificationDTO(n)
	}
	return out
}

// ToNotificationListResponse converts a page of notifications
func ToNotificationListResponse(notifications []models.Notification, params utils.PaginationParams, total int64) NotificationListResponse {
	return NotificationListResponse{
		Notifications: ToNotificationDTOs(notifications),
		Pagination:    utils.NewPaginationResponse(params, total),
	}
}

func toTaskRef(task *models.Task) *TaskRefDTO {
	if task == nil || task.ID == "" {
		return nil
	}
	return &TaskRefDTO{ID: task.ID, ReferenceNumber: task.ReferenceNumber, Title: task.Title}
}

// ToActivityDTOs converts the activity feed
func ToActivityDTOs(feed []services.Activity) []ActivityDTO {
	out := make([]ActivityDTO, len(feed))
	for i, a := range feed {
		item := ActivityDTO{Kind: a.Kind, At: a.At}
		if a.Event != nil {
			event := ToEventDTO(*a.Event)
			item.Event = &event
			item.TaskID = a.Event.TaskID
			item.Task = toTaskRef(a.Event.Task)
		}
		if a.Comment != nil {
			comment := ToCommentDTO(*a.Comment)
			item.Comment = &comment
			item.TaskID = a.Comment.TaskID
			item.Task = toTaskRef(a.Comment.Task)
		}
		out[i] = item
	}
	return out
}
