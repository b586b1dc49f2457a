package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/utils"
)

func (suite *HandlerTestSuite) createTask(cookies []*http.Cookie, title string) dto.TaskDTO {
	w := suite.request(http.MethodPost, "/api/tasks", gin.H{
		"title":       title,
		"description": "Please decide before Friday",
		"category":    "financial",
		"priority":    "high",
	}, cookies)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var task dto.TaskDTO
	suite.decode(w, &task)
	return task
}

func (suite *HandlerTestSuite) transition(cookies []*http.Cookie, taskID string, body gin.H) dto.TransitionResponse {
	w := suite.request(http.MethodPost, "/api/tasks/"+taskID+"/transition", body, cookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.TransitionResponse
	suite.decode(w, &resp)
	return resp
}

func (suite *HandlerTestSuite) TestCreateTask_Success() {
	task := suite.createTask(suite.login(suite.member), "Renew office lease")

	suite.Equal("TSK-000001", task.ReferenceNumber)
	suite.Equal(models.TaskStatusPending, task.Status)
	suite.Equal(models.PriorityHigh, task.Priority)
	suite.Equal(suite.member.ID, task.SubmittedBy)
	suite.Require().NotNil(task.Submitter)
	suite.Equal(suite.member.Email, task.Submitter.Email)
}

func (suite *HandlerTestSuite) TestCreateTask_InvalidRequest() {
	cookies := suite.login(suite.member)

	w := suite.request(http.MethodPost, "/api/tasks", gin.H{"title": "ab", "description": "short", "category": "travel"}, cookies)
	body := suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)
	fields, ok := body.Details["fields"].(map[string]interface{})
	suite.Require().True(ok)
	suite.Contains(fields, "title")
	suite.Contains(fields, "description")
	suite.Contains(fields, "category")
}

func (suite *HandlerTestSuite) TestCreateTask_MemberCannotAssign() {
	w := suite.request(http.MethodPost, "/api/tasks", gin.H{
		"title":       "Hire a contractor",
		"description": "Short engagement for the migration",
		"category":    "hr_operations",
		"assigned_to": suite.other.ID,
	}, suite.login(suite.member))
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestListTasks_Scoped() {
	memberCookies := suite.login(suite.member)
	suite.createTask(memberCookies, "Member task")
	suite.createTask(suite.login(suite.other), "Other task")

	var resp dto.TaskListResponse
	w := suite.request(http.MethodGet, "/api/tasks", nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &resp)
	suite.Require().Len(resp.Tasks, 1)
	suite.Equal("Member task", resp.Tasks[0].Title)
	suite.Equal(int64(1), resp.Pagination.Total)

	w = suite.request(http.MethodGet, "/api/tasks?sort=submitted_at&order=asc", nil, suite.login(suite.ceo))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &resp)
	suite.Require().Len(resp.Tasks, 2)
	suite.Equal("Member task", resp.Tasks[0].Title)
}

func (suite *HandlerTestSuite) TestListTasks_Filters() {
	memberCookies := suite.login(suite.member)
	first := suite.createTask(memberCookies, "Approve budget")
	suite.createTask(memberCookies, "Sign contract")
	suite.transition(suite.login(suite.ceo), first.ID, gin.H{"action": "approve"})

	var resp dto.TaskListResponse
	w := suite.request(http.MethodGet, "/api/tasks?status=approved,rejected", nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &resp)
	suite.Require().Len(resp.Tasks, 1)
	suite.Equal(first.ID, resp.Tasks[0].ID)

	w = suite.request(http.MethodGet, "/api/tasks?search=contract", nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &resp)
	suite.Require().Len(resp.Tasks, 1)
	suite.Equal("Sign contract", resp.Tasks[0].Title)

	seq, err := utils.ParseReferenceNumber(first.ReferenceNumber)
	suite.Require().NoError(err)
	w = suite.request(http.MethodGet, fmt.Sprintf("/api/tasks?search=tsk-%d", seq), nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &resp)
	suite.Require().Len(resp.Tasks, 1)
	suite.Equal(first.ID, resp.Tasks[0].ID)

	for _, partial := range []string{"TSK-0000", "tsk-00000", "SK-0000"} {
		w = suite.request(http.MethodGet, "/api/tasks?search="+partial, nil, memberCookies)
		suite.Require().Equal(http.StatusOK, w.Code)
		suite.decode(w, &resp)
		suite.Len(resp.Tasks, 2, partial)
	}
}

func (suite *HandlerTestSuite) TestListTasks_InvalidFilter() {
	cookies := suite.login(suite.member)

	w := suite.request(http.MethodGet, "/api/tasks?status=lost", nil, cookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)

	w = suite.request(http.MethodGet, "/api/tasks?from=yesterday", nil, cookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)
}

func (suite *HandlerTestSuite) TestListTasks_Unauthorized() {
	w := suite.request(http.MethodGet, "/api/tasks", nil, nil)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
}

func (suite *HandlerTestSuite) TestGetTask_Detail() {
	memberCookies := suite.login(suite.member)
	task := suite.createTask(memberCookies, "Quarterly bonus")
	ceoCookies := suite.login(suite.ceo)
	suite.transition(ceoCookies, task.ID, gin.H{"action": "request_info", "note": "Which team?"})

	w := suite.request(http.MethodGet, "/api/tasks/"+task.ID, nil, ceoCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var detail dto.TaskDetailDTO
	suite.decode(w, &detail)
	suite.Equal(models.TaskStatusNeedsMoreInfo, detail.Status)
	suite.Require().Len(detail.Events, 1)
	suite.Equal(models.ActionRequestInfo, detail.Events[0].Action)
	suite.Empty(detail.AvailableActions, "the CEO has nothing to do while waiting for information")

	w = suite.request(http.MethodGet, "/api/tasks/"+task.ID, nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &detail)
	suite.Equal([]models.TaskAction{models.ActionProvideInfo}, detail.AvailableActions)
}

func (suite *HandlerTestSuite) TestGetTask_OutOfScopeIsNotFound() {
	task := suite.createTask(suite.login(suite.member), "Private request")

	w := suite.request(http.MethodGet, "/api/tasks/"+task.ID, nil, suite.login(suite.other))
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestGetTask_MalformedID() {
	w := suite.request(http.MethodGet, "/api/tasks/42", nil, suite.login(suite.ceo))
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestTransition_ApproveThenConflict() {
	task := suite.createTask(suite.login(suite.member), "New laptop")
	ceoCookies := suite.login(suite.ceo)

	resp := suite.transition(ceoCookies, task.ID, gin.H{"action": "approve", "note": "Go ahead"})
	suite.Equal(models.TaskStatusApproved, resp.Task.Status)
	suite.Require().NotNil(resp.Task.ResolvedBy)
	suite.Equal(suite.ceo.ID, *resp.Task.ResolvedBy)
	suite.Equal(models.TaskStatusPending, resp.Event.FromStatus)
	suite.Require().Len(resp.Notifications, 1)
	suite.Equal(suite.member.ID, resp.Notifications[0].RecipientID)
	suite.Equal(models.NotificationTaskResolved, resp.Notifications[0].Type)

	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/transition", gin.H{"action": "reject"}, ceoCookies)
	body := suite.assertError(w, http.StatusConflict, apierrors.ErrCodeInvalidTransition)
	suite.Equal("approved", body.Details["current_status"])
	suite.Equal("reject", body.Details["action"])
}

func (suite *HandlerTestSuite) TestTransition_Forbidden() {
	memberCookies := suite.login(suite.member)
	task := suite.createTask(memberCookies, "Self approval")

	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/transition", gin.H{"action": "approve"}, memberCookies)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/transition", gin.H{"action": "approve"}, suite.login(suite.admin))
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestTransition_DelegateRequiresAssignee() {
	task := suite.createTask(suite.login(suite.member), "Vendor review")
	ceoCookies := suite.login(suite.ceo)

	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/transition", gin.H{"action": "delegate"}, ceoCookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)

	resp := suite.transition(ceoCookies, task.ID, gin.H{"action": "delegate", "assigned_to": suite.other.ID, "note": "Own this"})
	suite.Equal(models.TaskStatusDelegated, resp.Task.Status)
	suite.Require().NotNil(resp.Task.AssignedTo)
	suite.Equal(suite.other.ID, *resp.Task.AssignedTo)

	// the delegate now sees the task
	w = suite.request(http.MethodGet, "/api/tasks/"+task.ID, nil, suite.login(suite.other))
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestTransition_UnknownAction() {
	task := suite.createTask(suite.login(suite.member), "Typo")
	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/transition", gin.H{"action": "approve_all"}, suite.login(suite.ceo))
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)
}

func (suite *HandlerTestSuite) TestArchiveTask() {
	memberCookies := suite.login(suite.member)
	task := suite.createTask(memberCookies, "Old request")

	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/archive", nil, memberCookies)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/archive", nil, suite.login(suite.ceo))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var archived dto.TaskDTO
	suite.decode(w, &archived)
	suite.True(archived.IsArchived)

	var resp dto.TaskListResponse
	w = suite.request(http.MethodGet, "/api/tasks", nil, memberCookies)
	suite.decode(w, &resp)
	suite.Empty(resp.Tasks)

	w = suite.request(http.MethodGet, "/api/tasks?archived=true", nil, memberCookies)
	suite.decode(w, &resp)
	suite.Len(resp.Tasks, 1)
}

func (suite *HandlerTestSuite) TestDeleteTask() {
	memberCookies := suite.login(suite.member)
	task := suite.createTask(memberCookies, "Mistake")

	w := suite.request(http.MethodDelete, "/api/tasks/"+task.ID, nil, suite.login(suite.ceo))
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = suite.request(http.MethodDelete, "/api/tasks/"+task.ID, nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/api/tasks/"+task.ID, nil, memberCookies)
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestTriage_NotConfigured() {
	w := suite.request(http.MethodPost, "/api/tasks/triage", gin.H{"title": "Office party", "description": "Plan the end of year party"}, suite.login(suite.member))
	suite.assertError(w, http.StatusServiceUnavailable, apierrors.ErrCodeTransport)
}

func (suite *HandlerTestSuite) TestComments_ProvideInfoFollowUp() {
	memberCookies := suite.login(suite.member)
	task := suite.createTask(memberCookies, "Conference travel")
	ceoCookies := suite.login(suite.ceo)
	suite.transition(ceoCookies, task.ID, gin.H{"action": "request_info", "note": "What is the total cost?"})

	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/comments", gin.H{"content": "About 2,000 EUR all in."}, memberCookies)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.CommentResponse
	suite.decode(w, &resp)
	suite.Equal("About 2,000 EUR all in.", resp.Comment.Content)
	suite.Require().NotNil(resp.FollowUp)
	suite.True(resp.FollowUp.Applied)
	suite.Require().NotNil(resp.FollowUp.Task)
	suite.Equal(models.TaskStatusPending, resp.FollowUp.Task.Status)
	suite.Equal(models.ActionProvideInfo, resp.FollowUp.Event.Action)

	// a CEO comment never triggers a follow-up
	w = suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/comments", gin.H{"content": "Thanks"}, ceoCookies)
	suite.Require().Equal(http.StatusCreated, w.Code)
	suite.decode(w, &resp)
	suite.Nil(resp.FollowUp)

	w = suite.request(http.MethodGet, "/api/tasks/"+task.ID+"/comments", nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Comments []dto.CommentDTO `json:"comments"`
	}
	suite.decode(w, &list)
	suite.Require().Len(list.Comments, 2)
	suite.ElementsMatch([]string{"About 2,000 EUR all in.", "Thanks"}, []string{list.Comments[0].Content, list.Comments[1].Content})
}

func (suite *HandlerTestSuite) TestComments_Validation() {
	cookies := suite.login(suite.member)
	task := suite.createTask(cookies, "Empty comment")

	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/comments", gin.H{"content": "   "}, cookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)

	w = suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/comments", gin.H{"content": "hi"}, suite.login(suite.other))
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}
