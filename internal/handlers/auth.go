package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService   *services.AuthService
	sessionMaxAge time.Duration
	logger        *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, sessionMaxAge time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		sessionMaxAge: sessionMaxAge,
		logger:        logger,
	}
}

// Signup registers a profile for an allow-listed email.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProfileDTO(*profile))
}

// Login authenticates a profile and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	expiresAt, err := middleware.StartSession(c, profile.ID, h.sessionMaxAge)
	if err != nil {
		h.logger.Error("failed to save session", zap.String("profile_id", profile.ID), zap.Error(err))
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":    dto.ToProfileDTO(*profile),
		"expires_at": expiresAt,
	})
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.EndSession(c); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated profile.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	profile, err := h.authService.GetProfile(c.Request.Context(), sess.ActorID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":    dto.ToProfileDTO(*profile),
		"expires_at": sess.ExpiresAt,
	})
}

// UpdateCurrentUser edits the authenticated profile's name and department.
func (h *AuthHandler) UpdateCurrentUser(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.authService.UpdateOwnProfile(c.Request.Context(), sess, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}
