package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskAction string

const (
	ActionApprove     TaskAction = "approve"
	ActionReject      TaskAction = "reject"
	ActionRequestInfo TaskAction = "request_info"
	ActionDefer       TaskAction = "defer"
	ActionResolve     TaskAction = "resolve"
	ActionDelegate    TaskAction = "delegate"
	ActionProvideInfo TaskAction = "provide_info"
	ActionMarkReady   TaskAction = "mark_ready"
)

var AllTaskActions = []TaskAction{
	ActionApprove,
	ActionReject,
	ActionRequestInfo,
	ActionDefer,
	ActionResolve,
	ActionDelegate,
	ActionProvideInfo,
	ActionMarkReady,
}

func (a TaskAction) Valid() bool {
	for _, known := range AllTaskActions {
		if a == known {
			return true
		}
	}
	return false
}

// TaskEvent is the append-only audit record of one executed transition.
type TaskEvent struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TaskID     string     `gorm:"type:varchar(36);not null;index" json:"task_id"`
	ActorID    string     `gorm:"type:varchar(36);not null;index" json:"actor_id"`
	Action     TaskAction `gorm:"type:varchar(32);not null" json:"action"`
	FromStatus TaskStatus `gorm:"type:varchar(32);not null" json:"from_status"`
	ToStatus   TaskStatus `gorm:"type:varchar(32);not null" json:"to_status"`
	Note       *string    `gorm:"type:text" json:"note"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`

	// Relations
	Actor *Profile `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Task  *Task    `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (e *TaskEvent) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
