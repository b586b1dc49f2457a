package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/constants"
	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/services"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	activityService     *services.ActivityService
}

func NewNotificationHandler(notificationService *services.NotificationService, activityService *services.ActivityService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		activityService:     activityService,
	}
}

// ListNotifications returns the caller's notifications, newest first.
// ?unread=true limits the list to unread ones.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	params := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.List(c.Request.Context(), sess, unreadOnly, params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationListResponse(notifications, params, total))
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), sess)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), sess, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), sess)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// ActivityFeed merges events and comments across the caller's tasks.
// ?limit defaults to 50 and is capped at 200.
func (h *NotificationHandler) ActivityFeed(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultActivityLimit)))

	feed, err := h.activityService.Feed(c.Request.Context(), sess, limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": dto.ToActivityDTOs(feed)})
}

// RecentActivityCount counts transitions in the trailing ?minutes window (default 60)
func (h *NotificationHandler) RecentActivityCount(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	minutes, err := strconv.Atoi(c.DefaultQuery("minutes", strconv.Itoa(constants.DefaultRecentActivityMins)))
	if err != nil || minutes <= 0 {
		apierrors.Respond(c, apierrors.ValidationField("minutes", "must be a positive integer"))
		return
	}

	count, err := h.activityService.RecentCount(c.Request.Context(), sess, time.Duration(minutes)*time.Minute)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count, "minutes": minutes})
}
