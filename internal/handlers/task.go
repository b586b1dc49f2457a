package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/listing"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/services"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

type TaskHandler struct {
	taskService   *services.TaskService
	triageService *services.TriageService
}

func NewTaskHandler(taskService *services.TaskService, triageService *services.TriageService) *TaskHandler {
	return &TaskHandler{
		taskService:   taskService,
		triageService: triageService,
	}
}

// ListTasks returns the tasks visible to the current user.
// Filters: status, category, priority (repeated or comma separated),
// submitted_by, assigned_to, search, from, to (RFC3339), archived, sort, order.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	filter, err := filterFromQuery(c, params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), sess, filter)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// CreateTask submits a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), sess, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// TriageTask suggests a category and priority for a draft task
func (h *TaskHandler) TriageTask(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.TriageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	suggestion, err := h.triageService.Suggest(c.Request.Context(), sess, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

// GetTask returns a task with its comments, events and the caller's available actions
func (h *TaskHandler) GetTask(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	detail, err := h.taskService.GetTask(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*detail))
}

// TransitionTask applies a workflow action
func (h *TaskHandler) TransitionTask(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req services.TransitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.TransitionTask(c.Request.Context(), sess, c.Param("id"), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransitionResponse(*result))
}

// ArchiveTask hides a task from the default listings
func (h *TaskHandler) ArchiveTask(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.ArchiveTask(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task with its comments, events and notifications
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), sess, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func filterFromQuery(c *gin.Context, params utils.PaginationParams) (listing.Filter, error) {
	filter := listing.Filter{
		SubmittedBy: c.Query("submitted_by"),
		AssignedTo:  c.Query("assigned_to"),
		Search:      c.Query("search"),
		Sort:        listing.SortField(c.Query("sort")),
		Order:       listing.SortOrder(c.Query("order")),
		Limit:       params.Limit,
		Offset:      params.Offset,
	}

	for _, v := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, models.TaskStatus(v))
	}
	for _, v := range queryList(c, "category") {
		filter.Categories = append(filter.Categories, models.TaskCategory(v))
	}
	for _, v := range queryList(c, "priority") {
		filter.Priorities = append(filter.Priorities, models.TaskPriority(v))
	}

	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apierrors.ValidationField("archived", "must be true or false")
		}
		filter.Archived = archived
	}

	var err error
	if filter.SubmittedFrom, err = queryTime(c, "from"); err != nil {
		return filter, err
	}
	if filter.SubmittedTo, err = queryTime(c, "to"); err != nil {
		return filter, err
	}

	return filter, filter.Validate()
}

// queryList accepts both ?k=a&k=b and ?k=a,b
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apierrors.ValidationField(key, "must be an RFC3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}
