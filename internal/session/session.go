// Package session carries the acting user's identity into every core call.
// Nothing in the core reads identity from ambient state.
package session

import (
	"time"

	"github.com/yukikurage/task-approval-api/internal/models"
)

type Session struct {
	ActorID   string
	Role      models.Role
	Active    bool
	ExpiresAt time.Time
}

// FromProfile builds a session for the given profile.
func FromProfile(p *models.Profile, expiresAt time.Time) Session {
	return Session{
		ActorID:   p.ID,
		Role:      p.Role,
		Active:    p.IsActive,
		ExpiresAt: expiresAt,
	}
}

// Expired reports whether the session is past its expiry. A zero expiry never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsAdmin reports oversight access: ceo and super_admin see every task.
func (s Session) IsAdmin() bool {
	return s.Role.IsAdmin()
}

// CanDecide reports whether the actor may perform the CEO-only workflow
// actions. super_admin is read-only for workflow.
func (s Session) CanDecide() bool {
	return s.Active && s.Role == models.RoleCEO
}

// Scope returns the row visibility the actor is entitled to.
func (s Session) Scope() Scope {
	if s.IsAdmin() {
		return AllTasks()
	}
	return OwnedBy(s.ActorID)
}

// Scope restricts which tasks a query may return. It is derived from the
// session, never from request input.
type Scope struct {
	kind   scopeKind
	userID string
}

type scopeKind int

const (
	scopeNone scopeKind = iota
	scopeAll
	scopeOwned
)

// AllTasks grants visibility of every task.
func AllTasks() Scope {
	return Scope{kind: scopeAll}
}

// OwnedBy grants visibility of tasks the user submitted or is assigned to.
func OwnedBy(userID string) Scope {
	return Scope{kind: scopeOwned, userID: userID}
}

func (s Scope) IsAll() bool {
	return s.kind == scopeAll
}

// Owner returns the owning user for an OwnedBy scope.
func (s Scope) Owner() (string, bool) {
	if s.kind != scopeOwned {
		return "", false
	}
	return s.userID, true
}

// Allows reports whether the task is visible under the scope. The zero
// Scope allows nothing.
func (s Scope) Allows(task *models.Task) bool {
	switch s.kind {
	case scopeAll:
		return true
	case scopeOwned:
		return task.SubmittedBy == s.userID || task.IsAssignedTo(s.userID)
	default:
		return false
	}
}
