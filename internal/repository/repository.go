package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/task-approval-api/internal/listing"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
	"github.com/yukikurage/task-approval-api/internal/utils"
	"github.com/yukikurage/task-approval-api/internal/workflow"
)

var (
	// ErrStalePrecondition is returned when a transition's from-status no longer
	// matches the stored row, or the task was archived or deleted meanwhile.
	ErrStalePrecondition = errors.New("task repository: task changed concurrently")
	// ErrNotAllowListed is returned when signing up with an email that is not on the allow-list.
	ErrNotAllowListed = errors.New("profile repository: email is not on the allow-list")
	// ErrCreateProfile is returned when creating a profile fails inside the signup transaction.
	ErrCreateProfile = errors.New("profile repository: create profile failed")
)

// TransitionResult is what a committed transition wrote.
type TransitionResult struct {
	Task          *models.Task
	Event         models.TaskEvent
	Notifications []models.Notification
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create allocates a reference number and inserts the task together with
	// the notifications of plan, in one transaction
	Create(ctx context.Context, task *models.Task, plan workflow.NotificationPlan, actorID string) ([]models.Notification, error)

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id string, preload ...string) (*models.Task, error)

	// List retrieves the tasks visible under scope that match filter
	List(ctx context.Context, scope session.Scope, filter listing.Filter) ([]models.Task, int64, error)

	// FindBySubmitter lists every task the user submitted
	FindBySubmitter(ctx context.Context, userID string, archived bool) ([]models.Task, error)

	// FindByAssignee lists every task assigned to the user
	FindByAssignee(ctx context.Context, userID string, archived bool) ([]models.Task, error)

	// ApplyTransition writes a decision atomically, guarded by the decision's from-status
	ApplyTransition(ctx context.Context, task *models.Task, decision *workflow.Decision) (*TransitionResult, error)

	// Archive sets the archived flag; it reports false when the task was already archived
	Archive(ctx context.Context, id string, at time.Time) (bool, error)

	// Delete removes a task with its comments, events and notifications
	Delete(ctx context.Context, id string) error

	// FindDeadlineCandidates lists open tasks whose deadline is at or before the given time
	FindDeadlineCandidates(ctx context.Context, before time.Time) ([]models.Task, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create inserts a comment and loads its author
	Create(ctx context.Context, comment *models.TaskComment) error

	// ListByTask lists a task's comments, oldest first
	ListByTask(ctx context.Context, taskID string) ([]models.TaskComment, error)

	// Recent lists the newest comments on tasks visible under scope
	Recent(ctx context.Context, scope session.Scope, limit int) ([]models.TaskComment, error)
}

// EventRepository defines the interface for audit event data access
type EventRepository interface {
	// ListByTask lists a task's events, newest first
	ListByTask(ctx context.Context, taskID string) ([]models.TaskEvent, error)

	// Recent lists the newest events on tasks visible under scope
	Recent(ctx context.Context, scope session.Scope, limit int) ([]models.TaskEvent, error)

	// CountSince counts events on tasks visible under scope created at or after since
	CountSince(ctx context.Context, scope session.Scope, since time.Time) (int64, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// CreateMany inserts notifications
	CreateMany(ctx context.Context, notifications []models.Notification) error

	// List lists a recipient's notifications, newest first
	List(ctx context.Context, recipientID string, unreadOnly bool, page utils.PaginationParams) ([]models.Notification, int64, error)

	// UnreadCount counts a recipient's unread notifications
	UnreadCount(ctx context.Context, recipientID string) (int64, error)

	// MarkRead marks one of the recipient's notifications read
	MarkRead(ctx context.Context, id, recipientID string) error

	// MarkAllRead marks every notification of the recipient read
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)

	// Exists reports whether a notification of the type was already sent for the task
	Exists(ctx context.Context, taskID, recipientID string, kind models.NotificationType) (bool, error)
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// CreateFromAllowList creates a profile whose role comes from the allow-list
	// entry for its email, within a single transaction
	CreateFromAllowList(ctx context.Context, profile *models.Profile) error

	// FindByID finds a profile by ID
	FindByID(ctx context.Context, id string) (*models.Profile, error)

	// FindByEmail finds a profile by email
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)

	// List lists profiles ordered by name
	List(ctx context.Context, activeOnly bool) ([]models.Profile, error)

	// AdminIDs lists the IDs of active ceo and super_admin profiles
	AdminIDs(ctx context.Context) ([]string, error)

	// Update applies column updates to a profile
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// AllowedEmailRepository defines the interface for allow-list data access
type AllowedEmailRepository interface {
	// Create adds an allow-list entry
	Create(ctx context.Context, entry *models.AllowedEmail) error

	// FindByID finds an allow-list entry by ID
	FindByID(ctx context.Context, id string) (*models.AllowedEmail, error)

	// FindByEmail finds an allow-list entry by email
	FindByEmail(ctx context.Context, email string) (*models.AllowedEmail, error)

	// List lists allow-list entries by email
	List(ctx context.Context) ([]models.AllowedEmail, error)

	// UpdateRole changes the role granted on sign-up
	UpdateRole(ctx context.Context, id string, role models.Role) error

	// Delete removes an allow-list entry
	Delete(ctx context.Context, id string) error
}
