package errors

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeValidation   = "VALIDATION_ERROR"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Business logic errors
	ErrCodeInvalidTransition = "INVALID_TRANSITION"

	// Service errors
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeTransport     = "TRANSPORT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Error is a domain failure carrying one of the error codes above as its kind.
// Services return it; handlers turn it into an APIError with Respond.
type Error struct {
	Kind    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: ...}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func newError(kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrKindValidation        = &Error{Kind: ErrCodeValidation}
	ErrKindForbidden         = &Error{Kind: ErrCodeForbidden}
	ErrKindNotFound          = &Error{Kind: ErrCodeNotFound}
	ErrKindInvalidTransition = &Error{Kind: ErrCodeInvalidTransition}
	ErrKindSessionExpired    = &Error{Kind: ErrCodeSessionExpired}
	ErrKindUnauthorized      = &Error{Kind: ErrCodeUnauthorized}
	ErrKindConflict          = &Error{Kind: ErrCodeConflict}
	ErrKindTimeout           = &Error{Kind: ErrCodeTimeout}
	ErrKindTransport         = &Error{Kind: ErrCodeTransport}
)

func Validation(message string, details map[string]any) *Error {
	return newError(ErrCodeValidation, message, details)
}

// ValidationField reports one invalid field.
func ValidationField(field, reason string) *Error {
	return newError(ErrCodeValidation, fmt.Sprintf("invalid value for '%s': %s", field, reason), map[string]any{
		"field":  field,
		"reason": reason,
	})
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return newError(ErrCodeForbidden, message, nil)
}

func NotFound(resource, id string) *Error {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), map[string]any{
		"resource": resource,
		"id":       id,
	})
}

// InvalidTransition reports that the current status does not permit the action.
func InvalidTransition(current, action string) *Error {
	return newError(ErrCodeInvalidTransition,
		fmt.Sprintf("cannot %s a task in status %s", action, current),
		map[string]any{
			"current_status": current,
			"action":         action,
		})
}

func SessionExpired(message string) *Error {
	if message == "" {
		message = "Session expired, please sign in again"
	}
	return newError(ErrCodeSessionExpired, message, nil)
}

func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return newError(ErrCodeUnauthorized, message, nil)
}

func ConflictError(message string) *Error {
	return newError(ErrCodeConflict, message, nil)
}

// Transport reports a backend that could not be reached or is not configured.
func Transport(message string, err error) *Error {
	return &Error{Kind: ErrCodeTransport, Message: message, Err: err}
}

// KindOf classifies any error into one of the error codes.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Kind
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCodeNotFound
	}
	if stderrors.Is(err, driver.ErrBadConn) {
		return ErrCodeTransport
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrCodeTimeout
		}
		return ErrCodeTransport
	}

	return ErrCodeInternalError
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeSessionExpired, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidTransition, ErrCodeConflict, ErrCodeAlreadyExists:
		return http.StatusConflict
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Classify returns err as an *Error. Errors that are not already domain
// errors get the kind KindOf assigns and a generic message; the cause is kept.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr
	}

	kind := KindOf(err)
	var message string
	switch kind {
	case ErrCodeTimeout:
		message = "Request timed out"
	case ErrCodeTransport:
		message = "Storage temporarily unreachable"
	case ErrCodeNotFound:
		message = "Resource not found"
	default:
		message = "Internal server error"
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Respond writes err as an APIError. Internal errors never leak their message.
func Respond(c *gin.Context, err error) {
	classified := Classify(err)
	if classified.Kind == ErrCodeInternalError {
		InternalError(c, "")
		return
	}

	var details interface{}
	if len(classified.Details) > 0 {
		details = classified.Details
	}
	RespondWithError(c, StatusFor(classified.Kind), NewAPIErrorWithDetails(classified.Kind, classified.Message, details))
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// ForbiddenResponse sends a 403 response
func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFoundResponse sends a 404 response
func NotFoundResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
