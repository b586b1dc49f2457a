package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds composite indexes that gorm tags do not express
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Listing: status filter on active tasks
		{"tasks", "idx_tasks_status_archived", "status, is_archived"},
		// Deadline worker scan
		{"tasks", "idx_tasks_archived_deadline", "is_archived, deadline"},

		// Unread badge and notification list
		{"notifications", "idx_notifications_recipient_read", "recipient_id, is_read"},
		// Deadline reminder dedupe
		{"notifications", "idx_notifications_task_recipient_type", "task_id, recipient_id, type"},

		// Task history and activity feed
		{"task_events", "idx_task_events_task_created", "task_id, created_at"},
		{"task_comments", "idx_task_comments_task_created", "task_id, created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("table", idx.table), zap.String("columns", idx.columns))
	}

	return nil
}
