package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/constants"
	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
)

func (suite *HandlerTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.NotEmpty(w.Header().Get(constants.HeaderRequestID))
}

func (suite *HandlerTestSuite) TestSignup_RequiresAllowList() {
	payload := gin.H{"email": "new@example.com", "password": testPassword, "full_name": "New Person"}

	w := suite.request(http.MethodPost, "/api/auth/signup", payload, nil)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	suite.Require().NoError(suite.db.Create(&models.AllowedEmail{Email: "new@example.com", Role: models.RoleTeamMember}).Error)

	w = suite.request(http.MethodPost, "/api/auth/signup", payload, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var profile dto.ProfileDTO
	suite.decode(w, &profile)
	suite.Equal("new@example.com", profile.Email)
	suite.Equal(models.RoleTeamMember, profile.Role)
	suite.True(profile.IsActive)
}

func (suite *HandlerTestSuite) TestSignup_InvalidBody() {
	w := suite.request(http.MethodPost, "/api/auth/signup", gin.H{"email": "x@example.com", "password": "short", "full_name": "X"}, nil)
	body := suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)
	suite.Contains(body.Details, "fields")
}

func (suite *HandlerTestSuite) TestLogin_WrongPassword() {
	w := suite.request(http.MethodPost, "/api/auth/login", gin.H{"email": suite.member.Email, "password": "nope-nope"}, nil)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeInvalidCredentials)
}

func (suite *HandlerTestSuite) TestLogin_ThenMe() {
	cookies := suite.login(suite.member)

	w := suite.request(http.MethodGet, "/api/auth/me", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Profile   dto.ProfileDTO `json:"profile"`
		ExpiresAt time.Time      `json:"expires_at"`
	}
	suite.decode(w, &body)
	suite.Equal(suite.member.ID, body.Profile.ID)
	suite.True(body.ExpiresAt.After(time.Now()))
}

func (suite *HandlerTestSuite) TestMe_Unauthenticated() {
	w := suite.request(http.MethodGet, "/api/auth/me", nil, nil)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
}

func (suite *HandlerTestSuite) TestLogout_EndsSession() {
	cookies := suite.login(suite.member)

	w := suite.request(http.MethodPost, "/api/auth/logout", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
}

func (suite *HandlerTestSuite) TestExpiredSession() {
	w := suite.request(http.MethodPost, "/test/short-session/"+suite.member.ID, nil, nil)
	suite.Require().Equal(http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()

	time.Sleep(5 * time.Millisecond)

	w = suite.request(http.MethodGet, "/api/tasks", nil, cookies)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeSessionExpired)
}

func (suite *HandlerTestSuite) TestInactiveProfile_Forbidden() {
	cookies := suite.login(suite.member)
	suite.Require().NoError(suite.db.Model(&models.Profile{}).Where("id = ?", suite.member.ID).Update("is_active", false).Error)

	w := suite.request(http.MethodGet, "/api/tasks", nil, cookies)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestLogin_InactiveProfile() {
	suite.Require().NoError(suite.db.Model(&models.Profile{}).Where("id = ?", suite.other.ID).Update("is_active", false).Error)

	w := suite.request(http.MethodPost, "/api/auth/login", gin.H{"email": suite.other.Email, "password": testPassword}, nil)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestUpdateMe_EditsOwnDetails() {
	cookies := suite.login(suite.member)

	w := suite.request(http.MethodPatch, "/api/auth/me", gin.H{
		"full_name":  "  Renamed Member ",
		"department": "Finance",
		"role":       "ceo",
		"is_active":  false,
	}, cookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var profile dto.ProfileDTO
	suite.decode(w, &profile)
	suite.Equal("Renamed Member", profile.FullName)
	suite.Require().NotNil(profile.Department)
	suite.Equal("Finance", *profile.Department)
	suite.Equal(models.RoleTeamMember, profile.Role)
	suite.True(profile.IsActive)

	w = suite.request(http.MethodPatch, "/api/auth/me", gin.H{"department": ""}, cookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &profile)
	suite.Nil(profile.Department)
}

func (suite *HandlerTestSuite) TestUpdateMe_Validation() {
	cookies := suite.login(suite.member)

	w := suite.request(http.MethodPatch, "/api/auth/me", gin.H{"full_name": "   "}, cookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)

	w = suite.request(http.MethodPatch, "/api/auth/me", gin.H{}, cookies)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeValidation)

	w = suite.request(http.MethodPatch, "/api/auth/me", gin.H{"full_name": "Nobody"}, nil)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
}
