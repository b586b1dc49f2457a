package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// CommentService handles task comments and the provide_info follow-up a
// submitter's comment triggers
type CommentService struct {
	tasks       *TaskService
	commentRepo repository.CommentRepository
	publisher   changefeed.Publisher
	logger      *zap.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(tasks *TaskService, commentRepo repository.CommentRepository, publisher changefeed.Publisher, logger *zap.Logger) *CommentService {
	return &CommentService{
		tasks:       tasks,
		commentRepo: commentRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// AddCommentInput represents input for adding a comment
type AddCommentInput struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// CommentResult reports the stored comment and what happened to the
// follow-up transition. The comment stands even when the follow-up fails.
type CommentResult struct {
	Comment *models.TaskComment
	// FollowUpAttempted is true when the comment qualified for provide_info.
	FollowUpAttempted bool
	FollowUp          *repository.TransitionResult
	FollowUpErr       error
}

// AddComment stores a comment by a reader of the task. When the submitter
// comments on a task waiting for more information, provide_info is applied
// as a separate step afterwards.
func (s *CommentService) AddComment(ctx context.Context, sess session.Session, taskID string, input AddCommentInput) (*CommentResult, error) {
	if !sess.Active {
		return nil, apierrors.Forbidden("Your account is inactive")
	}

	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	task, err := s.tasks.visibleTask(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	comment := &models.TaskComment{
		TaskID:    task.ID,
		AuthorID:  sess.ActorID,
		Content:   input.Content,
		CreatedAt: s.tasks.now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	announce(ctx, s.publisher, s.logger, changefeed.CommentAdded(comment))

	result := &CommentResult{Comment: comment}
	if !awaitsInfoFrom(task, sess.ActorID) {
		return result, nil
	}

	result.FollowUpAttempted = true
	transition, err := s.tasks.TransitionTask(ctx, sess, task.ID, TransitionInput{Action: models.ActionProvideInfo})
	switch {
	case err == nil:
		result.FollowUp = transition
	case errors.Is(err, apierrors.ErrKindInvalidTransition):
		// someone else moved the task on between the read and the write
		result.FollowUpAttempted = false
		s.logger.Debug("provide_info follow-up no longer applies",
			zap.String("task_id", task.ID),
			zap.String("comment_id", comment.ID),
		)
	default:
		result.FollowUpErr = err
		s.logger.Warn("provide_info follow-up failed; comment kept",
			zap.String("task_id", task.ID),
			zap.String("comment_id", comment.ID),
			zap.Error(err),
		)
	}
	return result, nil
}

// ListComments lists a visible task's comments, oldest first
func (s *CommentService) ListComments(ctx context.Context, sess session.Session, taskID string) ([]models.TaskComment, error) {
	task, err := s.tasks.visibleTask(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func awaitsInfoFrom(task *models.Task, actorID string) bool {
	return !task.IsArchived &&
		task.Status == models.TaskStatusNeedsMoreInfo &&
		task.SubmittedBy == actorID
}
