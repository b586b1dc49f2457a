package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
)

var (
	ErrInvalidCredentials = &apierrors.Error{Kind: apierrors.ErrCodeInvalidCredentials, Message: "Invalid email or password"}
	ErrEmailTaken         = &apierrors.Error{Kind: apierrors.ErrCodeAlreadyExists, Message: "An account with this email already exists"}
	ErrNotAllowListed     = apierrors.Forbidden("This email is not allowed to sign up")
	ErrProfileInactive    = apierrors.Forbidden("Your account is inactive")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	profileRepo repository.ProfileRepository
	logger      *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(profileRepo repository.ProfileRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// SignupInput represents the required information to create a new profile.
type SignupInput struct {
	Email      string  `json:"email" validate:"required,email,max=255"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	FullName   string  `json:"full_name" validate:"required,min=1,max=255"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// Signup creates a profile for an allow-listed email. The role comes from
// the allow-list entry, never from the request.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.Profile, error) {
	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	input.Department = trimOptional(input.Department)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := s.profileRepo.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        input.Email,
		FullName:     input.FullName,
		Department:   input.Department,
		PasswordHash: string(hashedPassword),
	}

	if err := s.profileRepo.CreateFromAllowList(ctx, profile); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotAllowListed):
			return nil, ErrNotAllowListed
		case errors.Is(err, repository.ErrCreateProfile):
			return nil, fmt.Errorf("failed to create profile: %w", err)
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	s.logger.Info("profile created", zap.String("profile_id", profile.ID), zap.String("role", string(profile.Role)))
	return profile, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and returns the authenticated profile.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.Profile, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !profile.IsActive {
		return nil, ErrProfileInactive
	}

	return profile, nil
}

// GetProfile retrieves a profile by ID.
func (s *AuthService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("profile", id)
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return profile, nil
}

// UpdateProfileInput holds the fields a profile owner may edit. A blank
// department clears it.
type UpdateProfileInput struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// UpdateOwnProfile lets the signed-in user edit their name and department.
// Role and activation stay with the team admins.
func (s *AuthService) UpdateOwnProfile(ctx context.Context, sess session.Session, input UpdateProfileInput) (*models.Profile, error) {
	updates := make(map[string]interface{})
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apierrors.ValidationField("full_name", "must not be blank")
		}
		input.FullName = &name
		updates["full_name"] = name
	}
	if input.Department != nil {
		if dept := strings.TrimSpace(*input.Department); dept == "" {
			updates["department"] = nil
		} else {
			input.Department = &dept
			updates["department"] = dept
		}
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apierrors.Validation("Nothing to update", nil)
	}

	if err := s.profileRepo.Update(ctx, sess.ActorID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("profile", sess.ActorID)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("profile updated", zap.String("profile_id", sess.ActorID), zap.Any("fields", keys(updates)))
	return s.GetProfile(ctx, sess.ActorID)
}
