package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/services"
)

func (suite *HandlerTestSuite) unreadCount(cookies []*http.Cookie) int64 {
	w := suite.request(http.MethodGet, "/api/notifications/unread-count", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var body struct {
		Count int64 `json:"count"`
	}
	suite.decode(w, &body)
	return body.Count
}

func (suite *HandlerTestSuite) TestNotifications_ReadFlow() {
	suite.createTask(suite.login(suite.member), "First")
	suite.createTask(suite.login(suite.member), "Second")
	ceoCookies := suite.login(suite.ceo)

	suite.Equal(int64(2), suite.unreadCount(ceoCookies))

	w := suite.request(http.MethodGet, "/api/notifications?unread=true", nil, ceoCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list dto.NotificationListResponse
	suite.decode(w, &list)
	suite.Require().Len(list.Notifications, 2)
	suite.Equal(models.NotificationTaskSubmitted, list.Notifications[0].Type)

	w = suite.request(http.MethodPost, "/api/notifications/"+list.Notifications[0].ID+"/read", nil, ceoCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(int64(1), suite.unreadCount(ceoCookies))

	// someone else's notification looks missing
	w = suite.request(http.MethodPost, "/api/notifications/"+list.Notifications[1].ID+"/read", nil, suite.login(suite.admin))
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)

	w = suite.request(http.MethodPost, "/api/notifications/read-all", nil, ceoCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(int64(0), suite.unreadCount(ceoCookies))
}

func (suite *HandlerTestSuite) TestActivity() {
	memberCookies := suite.login(suite.member)
	task := suite.createTask(memberCookies, "Team offsite")
	ceoCookies := suite.login(suite.ceo)
	suite.transition(ceoCookies, task.ID, gin.H{"action": "request_info", "note": "Where?"})
	w := suite.request(http.MethodPost, "/api/tasks/"+task.ID+"/comments", gin.H{"content": "Lisbon"}, memberCookies)
	suite.Require().Equal(http.StatusCreated, w.Code)

	suite.createTask(suite.login(suite.other), "Not yours")

	w = suite.request(http.MethodGet, "/api/activity?limit=10", nil, memberCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var feed struct {
		Activity []dto.ActivityDTO `json:"activity"`
	}
	suite.decode(w, &feed)
	// request_info, the comment and the provide_info follow-up
	suite.Require().Len(feed.Activity, 3)
	kinds := map[services.ActivityKind]int{}
	for _, item := range feed.Activity {
		kinds[item.Kind]++
		suite.Equal(task.ID, item.TaskID)
	}
	suite.Equal(2, kinds[services.ActivityEvent])
	suite.Equal(1, kinds[services.ActivityComment])

	w = suite.request(http.MethodGet, "/api/activity/recent-count", nil, ceoCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var count struct {
		Count   int64 `json:"count"`
		Minutes int   `json:"minutes"`
	}
	suite.decode(w, &count)
	suite.Equal(int64(2), count.Count)
	suite.Equal(60, count.Minutes)

	w = suite.request(http.MethodGet, "/api/activity/recent-count?minutes=-5", nil, ceoCookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)
}

func (suite *HandlerTestSuite) TestStream_ChangeAndBadge() {
	server := httptest.NewServer(suite.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/stream", nil)
	suite.Require().NoError(err)
	for _, c := range suite.login(suite.ceo) {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan string, 32)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event:"); ok {
				events <- name
			}
		}
	}()

	await := func(name string) {
		for {
			select {
			case got, ok := <-events:
				suite.Require().True(ok, "stream closed before %q", name)
				if got == name {
					return
				}
			case <-ctx.Done():
				suite.FailNow("timed out waiting for " + name)
			}
		}
	}

	await("badge")

	suite.createTask(suite.login(suite.member), "Streamed task")

	await("change")
	await("badge")
}

func (suite *HandlerTestSuite) TestStream_TeamMemberSeesOwnTasksOnly() {
	server := httptest.NewServer(suite.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/stream", nil)
	suite.Require().NoError(err)
	for _, c := range suite.login(suite.member) {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	type event struct {
		name string
		data string
	}
	events := make(chan event, 32)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		var name string
		for scanner.Scan() {
			line := scanner.Text()
			if v, ok := strings.CutPrefix(line, "event:"); ok {
				name = v
			} else if v, ok := strings.CutPrefix(line, "data:"); ok {
				events <- event{name: name, data: v}
			}
		}
	}()

	next := func() event {
		select {
		case e, ok := <-events:
			suite.Require().True(ok, "stream closed")
			return e
		case <-ctx.Done():
			suite.FailNow("timed out waiting for stream event")
			return event{}
		}
	}

	suite.Require().Equal("badge", next().name)

	foreign := suite.createTask(suite.login(suite.other), "Not yours")
	own := suite.createTask(suite.login(suite.member), "Yours")

	for {
		e := next()
		if e.name != "change" {
			continue
		}
		var change changefeed.Change
		suite.Require().NoError(json.Unmarshal([]byte(e.data), &change))
		suite.NotEqual(foreign.ID, change.TaskID)
		if change.TaskID == own.ID {
			break
		}
	}
}

func (suite *HandlerTestSuite) TestStream_RequiresAuth() {
	w := suite.request(http.MethodGet, "/api/stream", nil, nil)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
}
