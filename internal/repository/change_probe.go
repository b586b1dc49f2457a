package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
)

// ChangeProbe reads row versions from the store for the polling fallback.
type ChangeProbe struct {
	db *gorm.DB
}

func NewChangeProbe(db *gorm.DB) *ChangeProbe {
	return &ChangeProbe{db: db}
}

type rowVersion struct {
	ID     string
	At     time.Time
	TaskID *string
}

// ChangesSince implements changefeed.Probe.
func (p *ChangeProbe) ChangesSince(ctx context.Context, topic string, after changefeed.Cursor, limit int) ([]changefeed.Change, error) {
	table, column, taskColumn := "", "", "task_id"
	query := p.db.WithContext(ctx)

	switch topic {
	case changefeed.TopicTasks:
		table, column, taskColumn = "tasks", "updated_at", "id"
	case changefeed.TopicTaskEvents:
		table, column = "task_events", "created_at"
	case changefeed.TopicTaskComments:
		table, column = "task_comments", "created_at"
	default:
		recipient, ok := changefeed.RecipientOf(topic)
		if !ok {
			return nil, fmt.Errorf("unknown change topic %q", topic)
		}
		table, column = "notifications", "created_at"
		query = query.Where("recipient_id = ?", recipient)
	}

	var rows []rowVersion
	err := query.Table(table).
		Select(fmt.Sprintf("id, %s AS at, %s AS task_id", column, taskColumn)).
		Where(fmt.Sprintf("(%[1]s > ? OR (%[1]s = ? AND id > ?))", column), after.At, after.At, after.RowID).
		Order(column + " ASC").
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	changes := make([]changefeed.Change, 0, len(rows))
	for _, row := range rows {
		change := changefeed.NewChange(topic, table, row.ID, row.At)
		if row.TaskID != nil {
			change = change.OfTask(*row.TaskID)
		}
		changes = append(changes, change)
	}
	return changes, nil
}
