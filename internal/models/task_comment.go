package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskComment is immutable once created.
type TaskComment struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TaskID    string    `gorm:"type:varchar(36);not null;index" json:"task_id"`
	AuthorID  string    `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Relations
	Author *Profile `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Task   *Task    `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (c *TaskComment) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
