// Package workflow is the task transition contract: which actions are legal
// from which status, who may invoke them, and what a successful transition
// writes. It performs no I/O; the repository applies a Decision atomically.
package workflow

import (
	"strings"
	"time"

	"github.com/yukikurage/task-approval-api/internal/constants"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// Default notes recorded when the actor supplies none.
const (
	DefaultProvideInfoNote = "Requested information has been provided."
	DefaultMarkReadyNote   = "Delegated work is ready for review."
)

type actorKind int

const (
	actorDecider actorKind = iota
	actorSubmitter
	actorAssignee
)

type rule struct {
	from  []models.TaskStatus
	to    models.TaskStatus
	actor actorKind
}

func (r rule) allows(status models.TaskStatus) bool {
	for _, s := range r.from {
		if s == status {
			return true
		}
	}
	return false
}

var open = []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInReview}

var openOrDeferred = []models.TaskStatus{
	models.TaskStatusPending,
	models.TaskStatusInReview,
	models.TaskStatusDeferred,
}

var rules = map[models.TaskAction]rule{
	models.ActionApprove:     {from: open, to: models.TaskStatusApproved, actor: actorDecider},
	models.ActionReject:      {from: open, to: models.TaskStatusRejected, actor: actorDecider},
	models.ActionRequestInfo: {from: open, to: models.TaskStatusNeedsMoreInfo, actor: actorDecider},
	models.ActionDefer:       {from: open, to: models.TaskStatusDeferred, actor: actorDecider},
	models.ActionResolve:     {from: openOrDeferred, to: models.TaskStatusResolved, actor: actorDecider},
	models.ActionDelegate:    {from: openOrDeferred, to: models.TaskStatusDelegated, actor: actorDecider},
	models.ActionProvideInfo: {from: []models.TaskStatus{models.TaskStatusNeedsMoreInfo}, to: models.TaskStatusPending, actor: actorSubmitter},
	models.ActionMarkReady:   {from: []models.TaskStatus{models.TaskStatusDelegated}, to: models.TaskStatusInReview, actor: actorAssignee},
}

// Target returns the status an action leads to.
func Target(action models.TaskAction) (models.TaskStatus, bool) {
	r, ok := rules[action]
	return r.to, ok
}

// Payload carries the optional inputs of a transition.
type Payload struct {
	Note       *string
	AssignedTo *string
	// Assignee is the profile AssignedTo refers to, resolved by the caller.
	// Nil means no such profile exists.
	Assignee *models.Profile
}

// Decision is everything a legal transition writes.
type Decision struct {
	TaskID        string
	Action        models.TaskAction
	From          models.TaskStatus
	To            models.TaskStatus
	Updates       map[string]interface{}
	Event         models.TaskEvent
	Notifications NotificationPlan
}

// Plan validates a transition against the current task row and returns what to
// write. Checks run in order: actor, current status, payload. The caller is
// responsible for the existence check before calling Plan.
func Plan(task *models.Task, action models.TaskAction, sess session.Session, payload Payload, now time.Time) (*Decision, error) {
	r, ok := rules[action]
	if !ok {
		return nil, apierrors.ValidationField("action", "unknown action")
	}

	if !permitted(r.actor, task, sess) {
		return nil, apierrors.Forbidden("You are not allowed to " + string(action) + " this task")
	}

	if !r.allows(task.Status) {
		return nil, apierrors.InvalidTransition(string(task.Status), string(action))
	}

	note, err := normalizeNote(action, payload.Note)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":     r.to,
		"updated_at": now,
	}

	if action == models.ActionDelegate {
		if err := validateAssignee(payload); err != nil {
			return nil, err
		}
		updates["assigned_to"] = *payload.AssignedTo
		updates["delegation_note"] = note
	}

	if r.to.IsTerminal() {
		updates["resolved_by"] = sess.ActorID
		updates["resolved_at"] = now
	}

	if r.actor == actorDecider && action != models.ActionDelegate && note != nil {
		updates["resolution_note"] = *note
	}

	decision := &Decision{
		TaskID:  task.ID,
		Action:  action,
		From:    task.Status,
		To:      r.to,
		Updates: updates,
		Event: models.TaskEvent{
			TaskID:     task.ID,
			ActorID:    sess.ActorID,
			Action:     action,
			FromStatus: task.Status,
			ToStatus:   r.to,
			Note:       note,
			CreatedAt:  now,
		},
		Notifications: transitionNotifications(task, action, payload),
	}
	return decision, nil
}

// Apply copies the decision's field changes onto an in-memory task.
func (d *Decision) Apply(task *models.Task) {
	task.Status = d.To
	if t, ok := d.Updates["updated_at"].(time.Time); ok {
		task.UpdatedAt = t
	}
	if v, ok := d.Updates["assigned_to"].(string); ok {
		assignee := v
		task.AssignedTo = &assignee
		task.Assignee = nil
	}
	if v, ok := d.Updates["delegation_note"]; ok {
		if n, _ := v.(*string); n != nil {
			note := *n
			task.DelegationNote = &note
		} else {
			task.DelegationNote = nil
		}
	}
	if v, ok := d.Updates["resolved_by"].(string); ok {
		resolver := v
		task.ResolvedBy = &resolver
		task.Resolver = nil
	}
	if t, ok := d.Updates["resolved_at"].(time.Time); ok {
		resolvedAt := t
		task.ResolvedAt = &resolvedAt
	}
	if v, ok := d.Updates["resolution_note"].(string); ok {
		note := v
		task.ResolutionNote = &note
	}
}

// AvailableActions lists the actions the session could perform on the task
// right now, in table order.
func AvailableActions(task *models.Task, sess session.Session) []models.TaskAction {
	actions := make([]models.TaskAction, 0)
	if task.IsArchived {
		return actions
	}
	for _, action := range models.AllTaskActions {
		r := rules[action]
		if permitted(r.actor, task, sess) && r.allows(task.Status) {
			actions = append(actions, action)
		}
	}
	return actions
}

// InitialStatus is the status of a newly created task.
func InitialStatus(assignedTo *string) models.TaskStatus {
	if assignedTo != nil && *assignedTo != "" {
		return models.TaskStatusDelegated
	}
	return models.TaskStatusPending
}

func permitted(kind actorKind, task *models.Task, sess session.Session) bool {
	if !sess.Active {
		return false
	}
	switch kind {
	case actorDecider:
		return sess.CanDecide()
	case actorSubmitter:
		return sess.ActorID != "" && sess.ActorID == task.SubmittedBy
	case actorAssignee:
		return sess.ActorID != "" && task.IsAssignedTo(sess.ActorID)
	}
	return false
}

func normalizeNote(action models.TaskAction, note *string) (*string, error) {
	var trimmed string
	if note != nil {
		trimmed = strings.TrimSpace(*note)
	}
	if len([]rune(trimmed)) > constants.MaxNoteLength {
		return nil, apierrors.ValidationField("note", "must be at most 2000 characters")
	}
	if trimmed == "" {
		switch action {
		case models.ActionProvideInfo:
			trimmed = DefaultProvideInfoNote
		case models.ActionMarkReady:
			trimmed = DefaultMarkReadyNote
		default:
			return nil, nil
		}
	}
	return &trimmed, nil
}

func validateAssignee(payload Payload) error {
	if payload.AssignedTo == nil || strings.TrimSpace(*payload.AssignedTo) == "" {
		return apierrors.ValidationField("assigned_to", "required for delegate")
	}
	if payload.Assignee == nil || payload.Assignee.ID != *payload.AssignedTo || !payload.Assignee.IsActive {
		return apierrors.NotFound("profile", *payload.AssignedTo)
	}
	return nil
}
