package constants

import "time"

// Session and context keys
const (
	SessionCookieName    = "task_session"
	ContextKeyUserID     = "user_id"
	ContextKeyExpiresAt  = "expires_at"
	ContextKeySession    = "session"
	ContextKeyTask       = "task"
	ContextKeyRequestID  = "request_id"
	HeaderRequestID      = "X-Request-ID"
	DefaultSessionMaxAge = 7 * 24 * time.Hour
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Validation limits
const (
	MinPasswordLength   = 8
	MinTitleLength      = 3
	MaxTitleLength      = 200
	MinDescriptionLen   = 10
	MaxDescriptionLen   = 5000
	MaxNoteLength       = 2000
	MaxCommentLength    = 2000
	ReferenceNumberBase = "TSK"
)

// Activity feed
const (
	DefaultActivityLimit      = 50
	MaxActivityLimit          = 200
	DefaultRecentActivityMins = 60
)
