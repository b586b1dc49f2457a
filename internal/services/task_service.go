package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/listing"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
	"github.com/yukikurage/task-approval-api/internal/workflow"
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	commentRepo repository.CommentRepository
	eventRepo   repository.EventRepository
	profileRepo repository.ProfileRepository
	publisher   changefeed.Publisher
	logger      *zap.Logger
	now         Clock
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	commentRepo repository.CommentRepository,
	eventRepo repository.EventRepository,
	profileRepo repository.ProfileRepository,
	publisher changefeed.Publisher,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		commentRepo: commentRepo,
		eventRepo:   eventRepo,
		profileRepo: profileRepo,
		publisher:   publisher,
		logger:      logger,
		now:         systemClock,
	}
}

// SetClock replaces the time source.
func (s *TaskService) SetClock(clock Clock) {
	s.now = clock
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string              `json:"title" validate:"required,min=3,max=200"`
	Description string              `json:"description" validate:"required,min=10,max=5000"`
	Category    models.TaskCategory `json:"category" validate:"required,oneof=financial project hr_operations client_relations pr_marketing administrative"`
	Priority    models.TaskPriority `json:"priority" validate:"omitempty,oneof=urgent high normal low"`
	Deadline    *time.Time          `json:"deadline"`
	FileLink    *string             `json:"file_link" validate:"omitempty,url,max=2048"`
	AssignedTo  *string             `json:"assigned_to" validate:"omitempty,max=36"`
}

// TransitionInput is a requested workflow action
type TransitionInput struct {
	Action     models.TaskAction `json:"action" validate:"required"`
	Note       *string           `json:"note"`
	AssignedTo *string           `json:"assigned_to"`
}

// TaskDetail is a task with its history and the actions open to the caller
type TaskDetail struct {
	Task             *models.Task
	AvailableActions []models.TaskAction
}

// CreateTask validates and stores a new task. Only the CEO may assign it on creation.
func (s *TaskService) CreateTask(ctx context.Context, sess session.Session, input CreateTaskInput) (*models.Task, error) {
	if !sess.Active {
		return nil, apierrors.Forbidden("Your account is inactive")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.FileLink = trimOptional(input.FileLink)
	input.AssignedTo = trimOptional(input.AssignedTo)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		if !sess.CanDecide() {
			return nil, apierrors.Forbidden("Only the CEO can assign a task on submission")
		}
		if _, err := s.activeProfile(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if input.Priority == "" {
		input.Priority = models.PriorityNormal
	}

	now := s.now()
	if input.Deadline != nil {
		deadline := input.Deadline.UTC().Truncate(time.Millisecond)
		input.Deadline = &deadline
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      workflow.InitialStatus(input.AssignedTo),
		Deadline:    input.Deadline,
		FileLink:    input.FileLink,
		SubmittedBy: sess.ActorID,
		AssignedTo:  input.AssignedTo,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	notifications, err := s.taskRepo.Create(ctx, task, workflow.CreationNotifications(task), sess.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	changes := []changefeed.Change{changefeed.TaskChanged(task)}
	for i := range notifications {
		changes = append(changes, changefeed.NotificationAdded(&notifications[i]))
	}
	announce(ctx, s.publisher, s.logger, changes...)

	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("reference", task.ReferenceNumber),
		zap.String("status", string(task.Status)),
		zap.String("actor_id", sess.ActorID),
	)

	created, err := s.taskRepo.FindByID(ctx, task.ID, "Submitter", "Assignee")
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return created, nil
}

// GetTask returns a visible task with people, comments (oldest first) and
// events (newest first) joined
func (s *TaskService) GetTask(ctx context.Context, sess session.Session, taskID string) (*TaskDetail, error) {
	task, err := s.visibleTask(ctx, sess, taskID, "Submitter", "Assignee", "Resolver")
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		comments, err := s.commentRepo.ListByTask(gctx, task.ID)
		if err != nil {
			return fmt.Errorf("failed to list comments: %w", err)
		}
		task.Comments = comments
		return nil
	})
	g.Go(func() error {
		events, err := s.eventRepo.ListByTask(gctx, task.ID)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
		task.Events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &TaskDetail{
		Task:             task,
		AvailableActions: workflow.AvailableActions(task, sess),
	}, nil
}

// ListTasks returns the tasks visible to the session that match filter.
// Team members get their submitted and assigned sets merged, then filtered,
// sorted and paged in memory.
func (s *TaskService) ListTasks(ctx context.Context, sess session.Session, filter listing.Filter) ([]models.Task, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	scope := sess.Scope()
	if scope.IsAll() {
		tasks, total, err := s.taskRepo.List(ctx, scope, filter)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
		}
		return tasks, total, nil
	}

	userID, _ := scope.Owner()
	var submitted, assigned []models.Task

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		submitted, err = s.taskRepo.FindBySubmitter(gctx, userID, filter.Archived)
		if err != nil {
			return fmt.Errorf("failed to list submitted tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assigned, err = s.taskRepo.FindByAssignee(gctx, userID, filter.Archived)
		if err != nil {
			return fmt.Errorf("failed to list assigned tasks: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	tasks, total := filter.Select(listing.MergeByID(submitted, assigned))
	return tasks, total, nil
}

// TransitionTask is the single entry point for status changes.
func (s *TaskService) TransitionTask(ctx context.Context, sess session.Session, taskID string, input TransitionInput) (*repository.TransitionResult, error) {
	task, err := s.openTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	payload := workflow.Payload{
		Note:       input.Note,
		AssignedTo: trimOptional(input.AssignedTo),
	}
	if input.Action == models.ActionDelegate && payload.AssignedTo != nil {
		assignee, err := s.profileRepo.FindByID(ctx, *payload.AssignedTo)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find assignee: %w", err)
		}
		payload.Assignee = assignee
	}

	decision, err := workflow.Plan(task, input.Action, sess, payload, s.now())
	if err != nil {
		return nil, err
	}

	result, err := s.taskRepo.ApplyTransition(ctx, task, decision)
	if errors.Is(err, repository.ErrStalePrecondition) {
		return nil, s.staleTransition(ctx, taskID, input.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}

	changes := []changefeed.Change{
		changefeed.TaskChanged(result.Task),
		changefeed.EventAdded(&result.Event),
	}
	for i := range result.Notifications {
		changes = append(changes, changefeed.NotificationAdded(&result.Notifications[i]))
	}
	announce(ctx, s.publisher, s.logger, changes...)

	s.logger.Info("task transitioned",
		zap.String("task_id", taskID),
		zap.String("action", string(decision.Action)),
		zap.String("from", string(decision.From)),
		zap.String("to", string(decision.To)),
		zap.String("actor_id", sess.ActorID),
		zap.Int("notifications", len(result.Notifications)),
	)

	return result, nil
}

// staleTransition explains a lost compare-and-swap from the row as it is now.
func (s *TaskService) staleTransition(ctx context.Context, taskID string, action models.TaskAction) error {
	current, err := s.openTask(ctx, taskID)
	if err != nil {
		return err
	}
	return apierrors.InvalidTransition(string(current.Status), string(action))
}

// ArchiveTask hides a task from default listings. Archiving twice is a no-op.
func (s *TaskService) ArchiveTask(ctx context.Context, sess session.Session, taskID string) (*models.Task, error) {
	if !sess.CanDecide() {
		return nil, apierrors.Forbidden("Only the CEO can archive tasks")
	}

	if _, err := s.findTask(ctx, taskID); err != nil {
		return nil, err
	}

	now := s.now()
	changed, err := s.taskRepo.Archive(ctx, taskID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to archive task: %w", err)
	}

	task, err := s.findTask(ctx, taskID, "Submitter", "Assignee", "Resolver")
	if err != nil {
		return nil, err
	}
	if changed {
		announce(ctx, s.publisher, s.logger, changefeed.TaskChanged(task))
		s.logger.Info("task archived", zap.String("task_id", taskID), zap.String("actor_id", sess.ActorID))
	}
	return task, nil
}

// DeleteTask removes a task for good. Only its submitter or a super admin may.
func (s *TaskService) DeleteTask(ctx context.Context, sess session.Session, taskID string) error {
	task, err := s.visibleTask(ctx, sess, taskID)
	if err != nil {
		return err
	}

	if !sess.Active || (task.SubmittedBy != sess.ActorID && sess.Role != models.RoleSuperAdmin) {
		return apierrors.Forbidden("Only the submitter can delete this task")
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.NotFound("task", taskID)
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	announce(ctx, s.publisher, s.logger, changefeed.NewChange(changefeed.TopicTasks, "tasks", taskID, s.now()))
	s.logger.Info("task deleted", zap.String("task_id", taskID), zap.String("actor_id", sess.ActorID))
	return nil
}

// AvailableActions lists what the session may do with a visible task right now
func (s *TaskService) AvailableActions(ctx context.Context, sess session.Session, taskID string) ([]models.TaskAction, error) {
	task, err := s.visibleTask(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}
	return workflow.AvailableActions(task, sess), nil
}

// findTask loads a task, mapping a missing row to NOT_FOUND
func (s *TaskService) findTask(ctx context.Context, taskID string, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("task", taskID)
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// CanSee reports whether the task exists and lies within the session's scope.
func (s *TaskService) CanSee(ctx context.Context, sess session.Session, taskID string) (bool, error) {
	if _, err := s.visibleTask(ctx, sess, taskID); err != nil {
		if errors.Is(err, apierrors.ErrKindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// openTask loads a task that may still transition: archived tasks count as missing
func (s *TaskService) openTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsArchived {
		return nil, apierrors.NotFound("task", taskID)
	}
	return task, nil
}

// visibleTask loads a task the session may read. Tasks outside the scope are
// reported as missing.
func (s *TaskService) visibleTask(ctx context.Context, sess session.Session, taskID string, preload ...string) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID, preload...)
	if err != nil {
		return nil, err
	}
	if !sess.Scope().Allows(task) {
		return nil, apierrors.NotFound("task", taskID)
	}
	return task, nil
}

// activeProfile loads a profile that may receive work
func (s *TaskService) activeProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("profile", id)
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if !profile.IsActive {
		return nil, apierrors.NotFound("profile", id)
	}
	return profile, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
