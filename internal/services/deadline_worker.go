package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/workflow"
)

// DeadlineWorker periodically reminds submitters and assignees of open tasks
// whose deadline is near or past. Each task/recipient/type is notified once.
type DeadlineWorker struct {
	taskRepo         repository.TaskRepository
	notificationRepo repository.NotificationRepository
	publisher        changefeed.Publisher
	interval         time.Duration
	window           time.Duration
	logger           *zap.Logger
	now              Clock
}

func NewDeadlineWorker(
	taskRepo repository.TaskRepository,
	notificationRepo repository.NotificationRepository,
	publisher changefeed.Publisher,
	interval, window time.Duration,
	logger *zap.Logger,
) *DeadlineWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &DeadlineWorker{
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		interval:         interval,
		window:           window,
		logger:           logger,
		now:              systemClock,
	}
}

// SetClock replaces the time source.
func (w *DeadlineWorker) SetClock(clock Clock) {
	w.now = clock
}

// Start checks once, then on every tick until ctx is cancelled.
func (w *DeadlineWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("deadline worker started", zap.Duration("interval", w.interval), zap.Duration("window", w.window))
	w.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			w.runCheck(ctx)
		case <-ctx.Done():
			w.logger.Info("deadline worker stopped")
			return
		}
	}
}

func (w *DeadlineWorker) runCheck(ctx context.Context) {
	start := time.Now()
	sent, err := w.Check(ctx)
	if err != nil {
		w.logger.Warn("deadline check failed", zap.Error(err))
		return
	}
	w.logger.Debug("deadline check finished", zap.Int("sent", sent), zap.Duration("took", time.Since(start)))
}

// Check sends the reminders that are due and returns how many were written.
func (w *DeadlineWorker) Check(ctx context.Context) (int, error) {
	now := w.now()

	tasks, err := w.taskRepo.FindDeadlineCandidates(ctx, now.Add(w.window))
	if err != nil {
		return 0, fmt.Errorf("failed to find deadline candidates: %w", err)
	}

	pending := make([]models.Notification, 0)
	for i := range tasks {
		task := &tasks[i]
		kind := models.NotificationDeadlineApproaching
		if !task.Deadline.After(now) {
			kind = models.NotificationTaskOverdue
		}

		for _, n := range workflow.DeadlineNotifications(task, kind).Build(task, nil, "") {
			exists, err := w.notificationRepo.Exists(ctx, task.ID, n.RecipientID, kind)
			if err != nil {
				return 0, fmt.Errorf("failed to check previous reminder: %w", err)
			}
			if exists {
				continue
			}
			n.CreatedAt = now
			pending = append(pending, n)
		}
	}

	if len(pending) == 0 {
		return 0, nil
	}
	if err := w.notificationRepo.CreateMany(ctx, pending); err != nil {
		return 0, fmt.Errorf("failed to store reminders: %w", err)
	}

	changes := make([]changefeed.Change, 0, len(pending))
	for i := range pending {
		changes = append(changes, changefeed.NotificationAdded(&pending[i]))
	}
	announce(ctx, w.publisher, w.logger, changes...)

	w.logger.Info("deadline reminders sent", zap.Int("count", len(pending)))
	return len(pending), nil
}
