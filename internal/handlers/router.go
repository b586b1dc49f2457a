package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/repository"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Task         *TaskHandler
	Comment      *CommentHandler
	Notification *NotificationHandler
	Team         *TeamHandler
	Stream       *StreamHandler
}

// RegisterRoutes mounts the API on r. Session middleware must already be
// installed. Everything except the event stream runs under requestTimeout.
func RegisterRoutes(r *gin.Engine, h Handlers, profiles repository.ProfileRepository, requestTimeout time.Duration, logger *zap.Logger) {
	requireAuth := middleware.RequireAuth(profiles, logger)
	taskID := middleware.RequireUUIDParam("id", "Task")

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Approval API is running",
		})
	})

	api := r.Group("/api")

	// long-lived, so outside the request timeout
	if h.Stream != nil {
		api.GET("/stream", requireAuth, h.Stream.Stream)
	}

	timed := api.Group("", middleware.Timeout(requestTimeout))
	{
		// Auth routes (public)
		auth := timed.Group("/auth")
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", h.Auth.Logout)
			auth.GET("/me", requireAuth, h.Auth.GetCurrentUser)
			auth.PATCH("/me", requireAuth, h.Auth.UpdateCurrentUser)
		}

		// Task routes (protected)
		tasks := timed.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", h.Task.ListTasks)
			tasks.POST("", h.Task.CreateTask)
			tasks.POST("/triage", h.Task.TriageTask)
			tasks.GET("/:id", taskID, h.Task.GetTask)
			tasks.POST("/:id/transition", taskID, h.Task.TransitionTask)
			tasks.POST("/:id/archive", taskID, h.Task.ArchiveTask)
			tasks.DELETE("/:id", taskID, h.Task.DeleteTask)
			tasks.GET("/:id/comments", taskID, h.Comment.ListComments)
			tasks.POST("/:id/comments", taskID, h.Comment.AddComment)
		}

		notifications := timed.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.GET("/unread-count", h.Notification.UnreadCount)
			notifications.POST("/read-all", h.Notification.MarkAllRead)
			notifications.POST("/:id/read", middleware.RequireUUIDParam("id", "Notification"), h.Notification.MarkRead)
		}

		activity := timed.Group("/activity")
		activity.Use(requireAuth)
		{
			activity.GET("", h.Notification.ActivityFeed)
			activity.GET("/recent-count", h.Notification.RecentActivityCount)
		}

		team := timed.Group("/team")
		team.Use(requireAuth)
		{
			team.GET("/members", h.Team.ListMembers)
			team.PATCH("/members/:id", middleware.RequireAdmin(), h.Team.UpdateMember)
			team.GET("/allowed-emails", middleware.RequireAdmin(), h.Team.ListAllowedEmails)
			team.POST("/allowed-emails", middleware.RequireAdmin(), h.Team.AddAllowedEmail)
			team.PATCH("/allowed-emails/:id", middleware.RequireAdmin(), h.Team.UpdateAllowedEmail)
			team.DELETE("/allowed-emails/:id", middleware.RequireAdmin(), h.Team.RemoveAllowedEmail)
		}
	}
}
