package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/task-approval-api/internal/dto"
	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
)

func (suite *HandlerTestSuite) TestListMembers_AnyUser() {
	w := suite.request(http.MethodGet, "/api/team/members?active=true", nil, suite.login(suite.member))
	suite.Require().Equal(http.StatusOK, w.Code)
	var body struct {
		Members []dto.ProfileDTO `json:"members"`
	}
	suite.decode(w, &body)
	suite.Len(body.Members, 4)
}

func (suite *HandlerTestSuite) TestUpdateMember_AdminOnly() {
	w := suite.request(http.MethodPatch, "/api/team/members/"+suite.other.ID, gin.H{"is_active": false}, suite.login(suite.member))
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestUpdateMember_Deactivate() {
	w := suite.request(http.MethodPatch, "/api/team/members/"+suite.other.ID, gin.H{"is_active": false}, suite.login(suite.admin))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var profile dto.ProfileDTO
	suite.decode(w, &profile)
	suite.False(profile.IsActive)

	w = suite.request(http.MethodPost, "/api/auth/login", gin.H{"email": suite.other.Email, "password": testPassword}, nil)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestUpdateMember_NotSelf() {
	cookies := suite.login(suite.ceo)

	w := suite.request(http.MethodPatch, "/api/team/members/"+suite.ceo.ID, gin.H{"is_active": false}, cookies)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = suite.request(http.MethodPatch, "/api/team/members/"+suite.ceo.ID, gin.H{"role": "team_member"}, cookies)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (suite *HandlerTestSuite) TestAllowedEmails_Lifecycle() {
	cookies := suite.login(suite.ceo)

	w := suite.request(http.MethodPost, "/api/team/allowed-emails", gin.H{"email": "Hire@Example.com", "role": "team_member"}, cookies)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var entry dto.AllowedEmailDTO
	suite.decode(w, &entry)
	suite.Equal("hire@example.com", entry.Email)
	suite.Require().NotNil(entry.AddedBy)
	suite.Equal(suite.ceo.ID, *entry.AddedBy)

	w = suite.request(http.MethodPost, "/api/team/allowed-emails", gin.H{"email": "hire@example.com", "role": "ceo"}, cookies)
	suite.assertError(w, http.StatusConflict, apierrors.ErrCodeConflict)

	w = suite.request(http.MethodPatch, "/api/team/allowed-emails/"+entry.ID, gin.H{"role": "super_admin"}, cookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &entry)
	suite.Equal(models.RoleSuperAdmin, entry.Role)

	w = suite.request(http.MethodGet, "/api/team/allowed-emails", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		AllowedEmails []dto.AllowedEmailDTO `json:"allowed_emails"`
	}
	suite.decode(w, &list)
	suite.Len(list.AllowedEmails, 1)

	w = suite.request(http.MethodDelete, "/api/team/allowed-emails/"+entry.ID, nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodDelete, "/api/team/allowed-emails/"+entry.ID, nil, cookies)
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestAllowedEmails_MemberForbidden() {
	w := suite.request(http.MethodGet, "/api/team/allowed-emails", nil, suite.login(suite.member))
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}
