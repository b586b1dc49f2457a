package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/services"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// ListMembers returns team profiles; ?active=true limits to active ones
func (h *TeamHandler) ListMembers(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	profiles, err := h.teamService.ListMembers(c.Request.Context(), sess, activeOnly)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": dto.ToProfileDTOs(profiles)})
}

func (h *TeamHandler) UpdateMember(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.UpdateMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.teamService.UpdateMember(c.Request.Context(), sess, c.Param("id"), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

func (h *TeamHandler) ListAllowedEmails(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	entries, err := h.teamService.ListAllowedEmails(c.Request.Context(), sess)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed_emails": dto.ToAllowedEmailDTOs(entries)})
}

func (h *TeamHandler) AddAllowedEmail(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.AllowEmailInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	entry, err := h.teamService.AddAllowedEmail(c.Request.Context(), sess, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAllowedEmailDTO(*entry))
}

func (h *TeamHandler) UpdateAllowedEmail(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	entry, err := h.teamService.UpdateAllowedEmailRole(c.Request.Context(), sess, c.Param("id"), req.Role)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAllowedEmailDTO(*entry))
}

func (h *TeamHandler) RemoveAllowedEmail(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.teamService.RemoveAllowedEmail(c.Request.Context(), sess, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email removed from the allow-list"})
}
