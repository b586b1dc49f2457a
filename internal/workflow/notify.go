package workflow

import (
	"fmt"

	"github.com/yukikurage/task-approval-api/internal/models"
)

// Audience names who receives a notification. Admins expands to every
// active ceo and super_admin profile at write time.
type Audience struct {
	Users  []string
	Admins bool
}

// NotificationPlan describes the notifications a change fans out to.
// The zero value sends nothing.
type NotificationPlan struct {
	Type     models.NotificationType
	Title    string
	Audience Audience
}

// Empty reports whether the plan sends nothing.
func (p NotificationPlan) Empty() bool {
	return p.Type == "" || (!p.Audience.Admins && len(p.Audience.Users) == 0)
}

// Build resolves the audience against the admin directory and returns one
// notification per recipient. The actor never notifies themselves.
func (p NotificationPlan) Build(task *models.Task, adminIDs []string, actorID string) []models.Notification {
	if p.Empty() {
		return nil
	}

	recipients := make([]string, 0, len(p.Audience.Users)+len(adminIDs))
	seen := make(map[string]bool)
	add := func(id string) {
		if id == "" || id == actorID || seen[id] {
			return
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	for _, id := range p.Audience.Users {
		add(id)
	}
	if p.Audience.Admins {
		for _, id := range adminIDs {
			add(id)
		}
	}

	taskID := task.ID
	message := Message(task)
	notifications := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		notifications = append(notifications, models.Notification{
			RecipientID: id,
			TaskID:      &taskID,
			Type:        p.Type,
			Title:       p.Title,
			Message:     message,
		})
	}
	return notifications
}

// Message is the notification body for a task.
func Message(task *models.Task) string {
	return fmt.Sprintf("%s: %s", task.ReferenceNumber, task.Title)
}

// CreationNotifications is the plan for a newly created task.
func CreationNotifications(task *models.Task) NotificationPlan {
	if task.AssignedTo != nil && *task.AssignedTo != "" {
		return NotificationPlan{
			Type:     models.NotificationTaskDelegated,
			Title:    "A task was assigned to you",
			Audience: Audience{Users: []string{*task.AssignedTo}},
		}
	}
	return NotificationPlan{
		Type:     models.NotificationTaskSubmitted,
		Title:    "New task submitted",
		Audience: Audience{Admins: true},
	}
}

// DeadlineNotifications is the plan for a deadline reminder.
func DeadlineNotifications(task *models.Task, kind models.NotificationType) NotificationPlan {
	title := "Task deadline approaching"
	if kind == models.NotificationTaskOverdue {
		title = "Task is overdue"
	}
	users := []string{task.SubmittedBy}
	if task.AssignedTo != nil {
		users = append(users, *task.AssignedTo)
	}
	return NotificationPlan{Type: kind, Title: title, Audience: Audience{Users: users}}
}

func transitionNotifications(task *models.Task, action models.TaskAction, payload Payload) NotificationPlan {
	submitter := Audience{Users: []string{task.SubmittedBy}}
	switch action {
	case models.ActionApprove:
		return NotificationPlan{Type: models.NotificationTaskResolved, Title: "Your task was approved", Audience: submitter}
	case models.ActionReject:
		return NotificationPlan{Type: models.NotificationTaskResolved, Title: "Your task was rejected", Audience: submitter}
	case models.ActionResolve:
		return NotificationPlan{Type: models.NotificationTaskResolved, Title: "Your task was resolved", Audience: submitter}
	case models.ActionRequestInfo:
		return NotificationPlan{Type: models.NotificationNeedsMoreInfo, Title: "More information requested", Audience: submitter}
	case models.ActionDelegate:
		if payload.AssignedTo == nil {
			return NotificationPlan{}
		}
		return NotificationPlan{
			Type:     models.NotificationTaskDelegated,
			Title:    "A task was delegated to you",
			Audience: Audience{Users: []string{*payload.AssignedTo}},
		}
	case models.ActionProvideInfo:
		return NotificationPlan{Type: models.NotificationInfoProvided, Title: "Information provided", Audience: Audience{Admins: true}}
	case models.ActionMarkReady:
		return NotificationPlan{Type: models.NotificationTaskUpdated, Title: "Delegated task ready for review", Audience: Audience{Admins: true}}
	}
	// defer notifies nobody
	return NotificationPlan{}
}
