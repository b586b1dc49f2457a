package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusInReview      TaskStatus = "in_review"
	TaskStatusNeedsMoreInfo TaskStatus = "needs_more_info"
	TaskStatusDelegated     TaskStatus = "delegated"
	TaskStatusDeferred      TaskStatus = "deferred"
	TaskStatusApproved      TaskStatus = "approved"
	TaskStatusRejected      TaskStatus = "rejected"
	TaskStatusResolved      TaskStatus = "resolved"
)

// AllTaskStatuses lists every status in display order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInReview,
	TaskStatusNeedsMoreInfo,
	TaskStatusDelegated,
	TaskStatusDeferred,
	TaskStatusApproved,
	TaskStatusRejected,
	TaskStatusResolved,
}

func (s TaskStatus) Valid() bool {
	for _, known := range AllTaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusApproved || s == TaskStatusRejected || s == TaskStatusResolved
}

type TaskCategory string

const (
	CategoryFinancial       TaskCategory = "financial"
	CategoryProject         TaskCategory = "project"
	CategoryHROperations    TaskCategory = "hr_operations"
	CategoryClientRelations TaskCategory = "client_relations"
	CategoryPRMarketing     TaskCategory = "pr_marketing"
	CategoryAdministrative  TaskCategory = "administrative"
)

var AllTaskCategories = []TaskCategory{
	CategoryFinancial,
	CategoryProject,
	CategoryHROperations,
	CategoryClientRelations,
	CategoryPRMarketing,
	CategoryAdministrative,
}

func (c TaskCategory) Valid() bool {
	for _, known := range AllTaskCategories {
		if c == known {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityUrgent TaskPriority = "urgent"
	PriorityHigh   TaskPriority = "high"
	PriorityNormal TaskPriority = "normal"
	PriorityLow    TaskPriority = "low"
)

var AllTaskPriorities = []TaskPriority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

func (p TaskPriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities from most to least pressing: urgent(0) .. low(3).
// Unknown priorities rank -1.
func (p TaskPriority) Rank() int {
	for i, known := range AllTaskPriorities {
		if p == known {
			return i
		}
	}
	return -1
}

type Task struct {
	ID              string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReferenceNumber string       `gorm:"type:varchar(20);uniqueIndex;not null" json:"reference_number"`
	Title           string       `gorm:"type:varchar(200);not null" json:"title"`
	Description     string       `gorm:"type:text;not null" json:"description"`
	Category        TaskCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	Priority        TaskPriority `gorm:"type:varchar(16);not null;index" json:"priority"`
	Status          TaskStatus   `gorm:"type:varchar(32);not null;index" json:"status"`
	Deadline        *time.Time   `gorm:"index" json:"deadline"`
	FileLink        *string      `gorm:"type:varchar(2048)" json:"file_link"`
	SubmittedBy     string       `gorm:"type:varchar(36);not null;index" json:"submitted_by"`
	AssignedTo      *string      `gorm:"type:varchar(36);index" json:"assigned_to"`
	ResolvedBy      *string      `gorm:"type:varchar(36)" json:"resolved_by"`
	ResolutionNote  *string      `gorm:"type:text" json:"resolution_note"`
	DelegationNote  *string      `gorm:"type:text" json:"delegation_note"`
	IsArchived      bool         `gorm:"not null;index" json:"is_archived"`
	SubmittedAt     time.Time    `gorm:"not null;index" json:"submitted_at"`
	ResolvedAt      *time.Time   `json:"resolved_at"`
	UpdatedAt       time.Time    `gorm:"index" json:"updated_at"`

	// Relations
	Submitter *Profile      `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	Assignee  *Profile      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Resolver  *Profile      `gorm:"foreignKey:ResolvedBy" json:"resolver,omitempty"`
	Comments  []TaskComment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Events    []TaskEvent   `gorm:"foreignKey:TaskID" json:"events,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// TaskCounter backs the human-readable reference number sequence.
type TaskCounter struct {
	Name  string `gorm:"type:varchar(32);primaryKey"`
	Value uint64 `gorm:"not null"`
}
