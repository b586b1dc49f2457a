package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
)

// RequireUUIDParam rejects requests whose path parameter is not a UUID.
// A malformed ID is reported as not found so it looks like any unknown row.
func RequireUUIDParam(name, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(name)); err != nil {
			apierrors.NotFoundResponse(c, resource+" not found")
			c.Abort()
			return
		}
		c.Next()
	}
}
