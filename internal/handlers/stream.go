package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/requestguard"
	"github.com/yukikurage/task-approval-api/internal/services"
	"github.com/yukikurage/task-approval-api/internal/session"
)

const keepAliveInterval = 25 * time.Second

// badge is the unread notification count pushed to stream clients
type badge struct {
	Unread int64     `json:"unread"`
	Stale  bool      `json:"stale"`
	AsOf   time.Time `json:"as_of"`
}

// TaskVisibility decides whether a change on a task may reach a session.
type TaskVisibility interface {
	CanSee(ctx context.Context, sess session.Session, taskID string) (bool, error)
}

// StreamHandler serves change notifications as server-sent events. Every
// connection gets its own watcher: push from the configured source, with
// polling through the probe while push is down.
type StreamHandler struct {
	source              changefeed.Source
	probe               changefeed.Probe
	tasks               TaskVisibility
	notificationService *services.NotificationService
	opts                changefeed.WatcherOptions
	readTimeout         time.Duration
	logger              *zap.Logger
}

func NewStreamHandler(
	source changefeed.Source,
	probe changefeed.Probe,
	tasks TaskVisibility,
	notificationService *services.NotificationService,
	opts changefeed.WatcherOptions,
	readTimeout time.Duration,
	logger *zap.Logger,
) *StreamHandler {
	return &StreamHandler{
		source:              source,
		probe:               probe,
		tasks:               tasks,
		notificationService: notificationService,
		opts:                opts,
		readTimeout:         readTimeout,
		logger:              logger,
	}
}

// Stream emits `change` for every row change on the caller's topics and
// `badge` with the unread count whenever the caller's notifications change.
// Payloads carry row IDs only; clients refetch through the scoped endpoints.
func (h *StreamHandler) Stream(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	topics := []string{
		changefeed.TopicTasks,
		changefeed.TopicTaskEvents,
		changefeed.TopicTaskComments,
		changefeed.NotificationsTopic(sess.ActorID),
	}
	poller := changefeed.NewPoller(h.probe, topics, time.Now().UTC())
	watcher := changefeed.NewWatcher(h.source, poller, topics, h.opts, h.logger)
	unread := h.unreadRefresher(sess)

	changes := make(chan changefeed.Change, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := watcher.Run(ctx, func(change changefeed.Change) {
			select {
			case changes <- change:
			case <-ctx.Done():
			}
		})
		if err != nil {
			h.logger.Warn("change watcher stopped", zap.String("user_id", sess.ActorID), zap.Error(err))
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	h.pushBadge(ctx, c, unread)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			if !h.visible(ctx, sess, change) {
				continue
			}
			c.SSEvent("change", change)
			c.Writer.Flush()
			if _, mine := changefeed.RecipientOf(change.Topic); mine {
				h.pushBadge(ctx, c, unread)
			}
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"status": watcher.Status()})
			c.Writer.Flush()
		}
	}
}

// visible drops task changes outside the session's scope. Notification topics
// are already per recipient.
func (h *StreamHandler) visible(ctx context.Context, sess session.Session, change changefeed.Change) bool {
	if sess.Scope().IsAll() {
		return true
	}
	if _, mine := changefeed.RecipientOf(change.Topic); mine {
		return true
	}
	if change.TaskID == "" {
		return false
	}
	ok, err := h.tasks.CanSee(ctx, sess, change.TaskID)
	if err != nil {
		h.logger.Warn("stream visibility check failed", zap.String("user_id", sess.ActorID), zap.String("task_id", change.TaskID), zap.Error(err))
		return false
	}
	return ok
}

func (h *StreamHandler) unreadRefresher(sess session.Session) *requestguard.Refresher[int64] {
	return requestguard.NewRefresher[int64]("unread_badge", func(ctx context.Context) (int64, error) {
		return h.notificationService.UnreadCount(ctx, sess)
	}, h.readTimeout, h.logger)
}

// pushBadge refreshes the count and sends the latest snapshot. A failed
// refresh resends the previous count marked stale.
func (h *StreamHandler) pushBadge(ctx context.Context, c *gin.Context, unread *requestguard.Refresher[int64]) {
	_, _ = unread.Refresh(ctx)
	count, ok := unread.Snapshot()
	if !ok {
		return
	}
	c.SSEvent("badge", badge{Unread: count, Stale: unread.Stale(), AsOf: unread.UpdatedAt().UTC()})
	c.Writer.Flush()
}
