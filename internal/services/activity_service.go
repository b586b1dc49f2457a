package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yukikurage/task-approval-api/internal/constants"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// ActivityKind tags an activity feed entry
type ActivityKind string

const (
	ActivityEvent   ActivityKind = "event"
	ActivityComment ActivityKind = "comment"
)

// Activity is one entry of the feed: either a transition or a comment
type Activity struct {
	Kind    ActivityKind
	At      time.Time
	Event   *models.TaskEvent
	Comment *models.TaskComment
}

// ID identifies the underlying row
func (a Activity) ID() string {
	if a.Event != nil {
		return a.Event.ID
	}
	if a.Comment != nil {
		return a.Comment.ID
	}
	return ""
}

// ActivityService reads the audit trail across tasks
type ActivityService struct {
	eventRepo   repository.EventRepository
	commentRepo repository.CommentRepository
	now         Clock
}

// NewActivityService creates a new ActivityService
func NewActivityService(eventRepo repository.EventRepository, commentRepo repository.CommentRepository) *ActivityService {
	return &ActivityService{
		eventRepo:   eventRepo,
		commentRepo: commentRepo,
		now:         systemClock,
	}
}

// SetClock replaces the time source.
func (s *ActivityService) SetClock(clock Clock) {
	s.now = clock
}

// Feed merges recent events and comments on visible tasks, newest first.
// limit defaults to 50 and is capped at 200.
func (s *ActivityService) Feed(ctx context.Context, sess session.Session, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = constants.DefaultActivityLimit
	}
	if limit > constants.MaxActivityLimit {
		limit = constants.MaxActivityLimit
	}
	scope := sess.Scope()

	var events []models.TaskEvent
	var comments []models.TaskComment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if events, err = s.eventRepo.Recent(gctx, scope, limit); err != nil {
			return fmt.Errorf("failed to list recent events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if comments, err = s.commentRepo.Recent(gctx, scope, limit); err != nil {
			return fmt.Errorf("failed to list recent comments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	feed := make([]Activity, 0, len(events)+len(comments))
	for i := range events {
		feed = append(feed, Activity{Kind: ActivityEvent, At: events[i].CreatedAt, Event: &events[i]})
	}
	for i := range comments {
		feed = append(feed, Activity{Kind: ActivityComment, At: comments[i].CreatedAt, Comment: &comments[i]})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		if !feed[i].At.Equal(feed[j].At) {
			return feed[i].At.After(feed[j].At)
		}
		return feed[i].ID() > feed[j].ID()
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// RecentCount counts transitions on visible tasks within the trailing window.
// A non-positive window means 60 minutes.
func (s *ActivityService) RecentCount(ctx context.Context, sess session.Session, window time.Duration) (int64, error) {
	if window <= 0 {
		window = constants.DefaultRecentActivityMins * time.Minute
	}

	count, err := s.eventRepo.CountSince(ctx, sess.Scope(), s.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to count recent activity: %w", err)
	}
	return count, nil
}
