package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
	"github.com/yukikurage/task-approval-api/internal/constants"
	"github.com/yukikurage/task-approval-api/internal/database"
	"github.com/yukikurage/task-approval-api/internal/middleware"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/services"
)

const testPassword = "supersecret"

// HandlerTestSuite drives the full router over an in-memory database
type HandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	broker *changefeed.Broker

	ceo, admin, member, other *models.Profile
}

// SetupTest runs before each test
func (suite *HandlerTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	suite.Require().NoError(err)
	suite.db = db

	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(suite.T())

	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	allowedRepo := repository.NewAllowedEmailRepository(db)

	suite.broker = changefeed.NewBroker()
	taskService := services.NewTaskService(taskRepo, commentRepo, eventRepo, profileRepo, suite.broker, logger)
	commentService := services.NewCommentService(taskService, commentRepo, suite.broker, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)

	h := Handlers{
		Auth:         NewAuthHandler(services.NewAuthService(profileRepo, logger), time.Hour, logger),
		Task:         NewTaskHandler(taskService, services.NewTriageService("", logger)),
		Comment:      NewCommentHandler(commentService),
		Notification: NewNotificationHandler(notificationService, services.NewActivityService(eventRepo, commentRepo)),
		Team:         NewTeamHandler(services.NewTeamService(profileRepo, allowedRepo, logger)),
		Stream: NewStreamHandler(suite.broker, repository.NewChangeProbe(db), taskService, notificationService,
			changefeed.WatcherOptions{PollInterval: 50 * time.Millisecond}, time.Second, logger),
	}

	suite.router = gin.New()
	suite.router.Use(middleware.RequestID())
	suite.router.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	RegisterRoutes(suite.router, h, profileRepo, 5*time.Second, logger)

	// short-lived session for expiry tests
	suite.router.POST("/test/short-session/:id", func(c *gin.Context) {
		if _, err := middleware.StartSession(c, c.Param("id"), time.Millisecond); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	suite.ceo = suite.createProfile("ceo@example.com", models.RoleCEO)
	suite.admin = suite.createProfile("admin@example.com", models.RoleSuperAdmin)
	suite.member = suite.createProfile("member@example.com", models.RoleTeamMember)
	suite.other = suite.createProfile("other@example.com", models.RoleTeamMember)
}

// TearDownTest runs after each test
func (suite *HandlerTestSuite) TearDownTest() {
	suite.broker.Close()
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *HandlerTestSuite) createProfile(email string, role models.Role) *models.Profile {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	suite.Require().NoError(err)
	p := &models.Profile{Email: email, FullName: string(role), Role: role, IsActive: true, PasswordHash: string(hash)}
	suite.Require().NoError(suite.db.Create(p).Error)
	return p
}

func (suite *HandlerTestSuite) request(method, url string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// login signs the profile in and returns the session cookies
func (suite *HandlerTestSuite) login(p *models.Profile) []*http.Cookie {
	w := suite.request(http.MethodPost, "/api/auth/login", gin.H{"email": p.Email, "password": testPassword}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	suite.Require().NotEmpty(cookies, "expected session cookie to be set")
	return cookies
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

func (suite *HandlerTestSuite) assertError(w *httptest.ResponseRecorder, status int, code string) errorBody {
	suite.Require().Equal(status, w.Code, w.Body.String())
	var body errorBody
	suite.decode(w, &body)
	suite.Equal(code, body.Code)
	return body
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
