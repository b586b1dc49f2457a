package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// ListComments returns a task's comments, oldest first
func (h *CommentHandler) ListComments(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentDTOs(comments)})
}

// AddComment stores a comment. A submitter answering a request for
// information also moves the task back to pending.
func (h *CommentHandler) AddComment(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.AddCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.commentService.AddComment(c.Request.Context(), sess, c.Param("id"), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentResponse(*result))
}
