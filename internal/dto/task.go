package dto

import (
	"time"

	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/services"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

// ProfileSummaryDTO represents a person attached to a task
type ProfileSummaryDTO struct {
	ID        string      `json:"id"`
	FullName  string      `json:"full_name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	AvatarURL *string     `json:"avatar_url"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID              string              `json:"id"`
	ReferenceNumber string              `json:"reference_number"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Category        models.TaskCategory `json:"category"`
	Priority        models.TaskPriority `json:"priority"`
	Status          models.TaskStatus   `json:"status"`
	Deadline        *time.Time          `json:"deadline"`
	FileLink        *string             `json:"file_link"`
	SubmittedBy     string              `json:"submitted_by"`
	AssignedTo      *string             `json:"assigned_to"`
	ResolvedBy      *string             `json:"resolved_by"`
	ResolutionNote  *string             `json:"resolution_note"`
	DelegationNote  *string             `json:"delegation_note"`
	IsArchived      bool                `json:"is_archived"`
	SubmittedAt     time.Time           `json:"submitted_at"`
	ResolvedAt      *time.Time          `json:"resolved_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Submitter       *ProfileSummaryDTO  `json:"submitter,omitempty"`
	Assignee        *ProfileSummaryDTO  `json:"assignee,omitempty"`
	Resolver        *ProfileSummaryDTO  `json:"resolver,omitempty"`
}

// CommentDTO represents a task comment
type CommentDTO struct {
	ID        string             `json:"id"`
	TaskID    string             `json:"task_id"`
	AuthorID  string             `json:"author_id"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"created_at"`
	Author    *ProfileSummaryDTO `json:"author,omitempty"`
}

// EventDTO represents one audit record
type EventDTO struct {
	ID         string             `json:"id"`
	TaskID     string             `json:"task_id"`
	ActorID    string             `json:"actor_id"`
	Action     models.TaskAction  `json:"action"`
	FromStatus models.TaskStatus  `json:"from_status"`
	ToStatus   models.TaskStatus  `json:"to_status"`
	Note       *string            `json:"note"`
	CreatedAt  time.Time          `json:"created_at"`
	Actor      *ProfileSummaryDTO `json:"actor,omitempty"`
}

// TaskDetailDTO is a task with its history
type TaskDetailDTO struct {
	TaskDTO
	Comments         []CommentDTO        `json:"comments"`
	Events           []EventDTO          `json:"events"`
	AvailableActions []models.TaskAction `json:"available_actions"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// TransitionResponse is the outcome of a workflow action
type TransitionResponse struct {
	Task          TaskDTO           `json:"task"`
	Event         EventDTO          `json:"event"`
	Notifications []NotificationDTO `json:"notifications"`
}

// FollowUpDTO reports the provide_info step triggered by a comment
type FollowUpDTO struct {
	Applied bool      `json:"applied"`
	Task    *TaskDTO  `json:"task,omitempty"`
	Event   *EventDTO `json:"event,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// CommentResponse is a stored comment plus its follow-up, if one ran
type CommentResponse struct {
	Comment  CommentDTO   `json:"comment"`
	FollowUp *FollowUpDTO `json:"follow_up,omitempty"`
}

// Conversion functions

// ToProfileSummaryDTO converts a preloaded profile; nil stays nil
func ToProfileSummaryDTO(p *models.Profile) *ProfileSummaryDTO {
	if p == nil || p.ID == "" {
		return nil
	}
	return &ProfileSummaryDTO{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Role:      p.Role,
		AvatarURL: p.AvatarURL,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:              task.ID,
		ReferenceNumber: task.ReferenceNumber,
		Title:           task.Title,
		Description:     task.Description,
		Category:        task.Category,
		Priority:        task.Priority,
		Status:          task.Status,
		Deadline:        task.Deadline,
		FileLink:        task.FileLink,
		SubmittedBy:     task.SubmittedBy,
		AssignedTo:      task.AssignedTo,
		ResolvedBy:      task.ResolvedBy,
		ResolutionNote:  task.ResolutionNote,
		DelegationNote:  task.DelegationNote,
		IsArchived:      task.IsArchived,
		SubmittedAt:     task.SubmittedAt,
		ResolvedAt:      task.ResolvedAt,
		UpdatedAt:       task.UpdatedAt,
		Submitter:       ToProfileSummaryDTO(task.Submitter),
		Assignee:        ToProfileSummaryDTO(task.Assignee),
		Resolver:        ToProfileSummaryDTO(task.Resolver),
	}
}

// ToCommentDTO converts a TaskComment model to CommentDTO
func ToCommentDTO(comment models.TaskComment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		Author:    ToProfileSummaryDTO(comment.Author),
	}
}

// ToEventDTO converts a TaskEvent model to EventDTO
func ToEventDTO(event models.TaskEvent) EventDTO {
	return EventDTO{
		ID:         event.ID,
		TaskID:     event.TaskID,
		ActorID:    event.ActorID,
		Action:     event.Action,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		Note:       event.Note,
		CreatedAt:  event.CreatedAt,
		Actor:      ToProfileSummaryDTO(event.Actor),
	}
}

func ToCommentDTOs(comments []models.TaskComment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}

func ToEventDTOs(events []models.TaskEvent) []EventDTO {
	out := make([]EventDTO, len(events))
	for i, e := range events {
		out[i] = ToEventDTO(e)
	}
	return out
}

// ToTaskDetailDTO converts a task detail with comments and events
func ToTaskDetailDTO(detail services.TaskDetail) TaskDetailDTO {
	return TaskDetailDTO{
		TaskDTO:          ToTaskDTO(*detail.Task),
		Comments:         ToCommentDTOs(detail.Task.Comments),
		Events:           ToEventDTOs(detail.Task.Events),
		AvailableActions: detail.AvailableActions,
	}
}

// ToTaskListResponse converts a page of tasks
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}

// ToTransitionResponse converts a committed transition
func ToTransitionResponse(result repository.TransitionResult) TransitionResponse {
	return TransitionResponse{
		Task:          ToTaskDTO(*result.Task),
		Event:         ToEventDTO(result.Event),
		Notifications: ToNotificationDTOs(result.Notifications),
	}
}

// ToCommentResponse converts a comment result, including the follow-up outcome
func ToCommentResponse(result services.CommentResult) CommentResponse {
	resp := CommentResponse{Comment: ToCommentDTO(*result.Comment)}
	if !result.FollowUpAttempted {
		return resp
	}

	followUp := &FollowUpDTO{}
	if result.FollowUp != nil {
		task := ToTaskDTO(*result.FollowUp.Task)
		event := ToEventDTO(result.FollowUp.Event)
		followUp.Applied = true
		followUp.Task = &task
		followUp.Event = &event
	}
	if result.FollowUpErr != nil {
		followUp.Error = "The comment was saved but the task could not be moved back to pending; please retry"
	}
	resp.FollowUp = followUp
	return resp
}
