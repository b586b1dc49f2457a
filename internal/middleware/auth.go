package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/constants"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// StartSession stores the profile ID and its expiry in the cookie session
func StartSession(c *gin.Context, profileID string, maxAge time.Duration) (time.Time, error) {
	expiresAt := time.Now().UTC().Add(maxAge)

	store := sessions.Default(c)
	store.Clear()
	store.Set(constants.ContextKeyUserID, profileID)
	store.Set(constants.ContextKeyExpiresAt, expiresAt.UnixMilli())
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
	})
	return expiresAt, store.Save()
}

// EndSession clears the cookie session
func EndSession(c *gin.Context) error {
	store := sessions.Default(c)
	store.Clear()
	store.Options(sessions.Options{Path: "/", MaxAge: -1})
	return store.Save()
}

// RequireAuth resolves the cookie session into a session.Session. The profile
// is reloaded on every request so role and activation changes apply at once.
func RequireAuth(profiles repository.ProfileRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := sessions.Default(c)
		userID, _ := store.Get(constants.ContextKeyUserID).(string)

		var expiresAt time.Time
		if raw, ok := store.Get(constants.ContextKeyExpiresAt).(int64); ok {
			expiresAt = time.UnixMilli(raw).UTC()
		}

		sess, err := resolveSession(c.Request.Context(), profiles, userID, expiresAt, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, apierrors.ErrKindUnauthorized), errors.Is(err, apierrors.ErrKindSessionExpired):
				if userID != "" {
					_ = EndSession(c)
				}
			case errors.Is(err, apierrors.ErrKindForbidden):
			default:
				logger.Error("failed to load session profile", zap.String("user_id", userID), zap.Error(err))
			}
			apierrors.Respond(c, err)
			c.Abort()
			return
		}

		// Store user ID and session in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeySession, sess)
		c.Next()
	}
}

// resolveSession checks the stored identity against the current profile.
func resolveSession(ctx context.Context, profiles repository.ProfileRepository, userID string, expiresAt, now time.Time) (session.Session, error) {
	if userID == "" {
		return session.Session{}, apierrors.Unauthenticated("")
	}

	profile, err := profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Session{}, apierrors.Unauthenticated("")
		}
		return session.Session{}, err
	}

	sess := session.FromProfile(profile, expiresAt)
	if sess.Expired(now) {
		return session.Session{}, apierrors.SessionExpired("Your session has expired, please sign in again")
	}
	if !sess.Active {
		return session.Session{}, apierrors.Forbidden("Your account is inactive")
	}
	return sess, nil
}

// RequireAdmin allows only ceo and super_admin through. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !sess.IsAdmin() {
			apierrors.ForbiddenResponse(c, "Only the CEO or an administrator can perform this action")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession retrieves the current session from context
func GetSession(c *gin.Context) (session.Session, bool) {
	value, exists := c.Get(constants.ContextKeySession)
	if !exists {
		return session.Session{}, false
	}
	sess, ok := value.(session.Session)
	return sess, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
