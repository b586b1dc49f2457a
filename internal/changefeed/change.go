// Package changefeed tells callers that rows changed so they can refresh. It
// delivers through a push backend (Redis pub/sub or an in-process broker) and
// falls back to polling the store while push is unhealthy.
package changefeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-approval-api/internal/models"
)

// Topics
const (
	TopicTasks         = "tasks"
	TopicTaskEvents    = "task_events"
	TopicTaskComments  = "task_comments"
	notificationPrefix = "notifications:"
)

// NotificationsTopic is the topic for one recipient's notifications.
func NotificationsTopic(recipientID string) string {
	return notificationPrefix + recipientID
}

// RecipientOf returns the recipient of a notifications topic.
func RecipientOf(topic string) (string, bool) {
	if !strings.HasPrefix(topic, notificationPrefix) {
		return "", false
	}
	return strings.TrimPrefix(topic, notificationPrefix), true
}

// Change says that a row reached a new version. ID is derived from the row
// and version, so the same change observed by push and by poll has one ID.
type Change struct {
	ID      string    `json:"id"`
	Topic   string    `json:"topic"`
	Table   string    `json:"table"`
	RowID   string    `json:"row_id"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
	// TaskID is the task the row belongs to, when it belongs to one.
	TaskID string `json:"task_id,omitempty"`
}

// NewChange builds a change for a row version. Versions have millisecond
// resolution to match what every supported database stores.
func NewChange(topic, table, rowID string, at time.Time) Change {
	version := at.UnixMilli()
	return Change{
		ID:      fmt.Sprintf("%s:%s:%d", table, rowID, version),
		Topic:   topic,
		Table:   table,
		RowID:   rowID,
		Version: version,
		At:      at,
	}
}

// OfTask sets the owning task.
func (c Change) OfTask(taskID string) Change {
	c.TaskID = taskID
	return c
}

func TaskChanged(task *models.Task) Change {
	return NewChange(TopicTasks, "tasks", task.ID, task.UpdatedAt).OfTask(task.ID)
}

func EventAdded(event *models.TaskEvent) Change {
	return NewChange(TopicTaskEvents, "task_events", event.ID, event.CreatedAt).OfTask(event.TaskID)
}

func CommentAdded(comment *models.TaskComment) Change {
	return NewChange(TopicTaskComments, "task_comments", comment.ID, comment.CreatedAt).OfTask(comment.TaskID)
}

func NotificationAdded(n *models.Notification) Change {
	c := NewChange(NotificationsTopic(n.RecipientID), "notifications", n.ID, n.CreatedAt)
	if n.TaskID != nil {
		c = c.OfTask(*n.TaskID)
	}
	return c
}

// Publisher announces committed changes. Publishing is best-effort: callers
// log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, changes ...Change) error
}

// Status of a push subscription.
type Status string

const (
	StatusConnecting   Status = "CONNECTING"
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusClosed       Status = "CLOSED"
)

// Source is a push backend. Subscribe blocks, delivering changes on the
// given topics to handle, until ctx is cancelled or the subscription breaks.
// onStatus is told about every status change.
type Source interface {
	Subscribe(ctx context.Context, topics []string, handle func(Change), onStatus func(Status)) error
}

func topicSet(topics []string) map[string]bool {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}
	return set
}
