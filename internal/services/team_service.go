package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// TeamService provides business logic for managing profiles and the sign-up allow-list.
type TeamService struct {
	profileRepo      repository.ProfileRepository
	allowedEmailRepo repository.AllowedEmailRepository
	logger           *zap.Logger
}

// NewTeamService creates a new TeamService.
func NewTeamService(profileRepo repository.ProfileRepository, allowedEmailRepo repository.AllowedEmailRepository, logger *zap.Logger) *TeamService {
	return &TeamService{
		profileRepo:      profileRepo,
		allowedEmailRepo: allowedEmailRepo,
		logger:           logger,
	}
}

// UpdateMemberInput represents changes to a team member. Nil fields are left alone.
type UpdateMemberInput struct {
	Role       *models.Role `json:"role" validate:"omitempty,oneof=ceo team_member super_admin"`
	IsActive   *bool        `json:"is_active"`
	FullName   *string      `json:"full_name" validate:"omitempty,min=1,max=255"`
	Department *string      `json:"department" validate:"omitempty,max=100"`
}

// AllowEmailInput represents a new allow-list entry.
type AllowEmailInput struct {
	Email string      `json:"email" validate:"required,email,max=255"`
	Role  models.Role `json:"role" validate:"required,oneof=ceo team_member super_admin"`
}

// ListMembers returns every profile, or only active ones. Any signed-in user
// may list members so tasks can be delegated.
func (s *TeamService) ListMembers(ctx context.Context, sess session.Session, activeOnly bool) ([]models.Profile, error) {
	if !sess.Active {
		return nil, apierrors.Forbidden("Your account is inactive")
	}

	profiles, err := s.profileRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return profiles, nil
}

// UpdateMember changes a member's role, activation or details. Admins cannot
// deactivate or demote themselves.
func (s *TeamService) UpdateMember(ctx context.Context, sess session.Session, id string, input UpdateMemberInput) (*models.Profile, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	input.FullName = trimOptional(input.FullName)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if id == sess.ActorID {
		if input.IsActive != nil && !*input.IsActive {
			return nil, apierrors.Forbidden("You cannot deactivate yourself")
		}
		if input.Role != nil && *input.Role != sess.Role {
			return nil, apierrors.Forbidden("You cannot change your own role")
		}
	}

	updates := make(map[string]interface{})
	if input.Role != nil {
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.FullName != nil {
		updates["full_name"] = *input.FullName
	}
	if input.Department != nil {
		if dept := strings.TrimSpace(*input.Department); dept == "" {
			updates["department"] = nil
		} else {
			updates["department"] = dept
		}
	}
	if len(updates) == 0 {
		return nil, apierrors.Validation("Nothing to update", nil)
	}

	if err := s.profileRepo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("profile", id)
		}
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	s.logger.Info("member updated", zap.String("profile_id", id), zap.String("actor_id", sess.ActorID), zap.Any("fields", keys(updates)))

	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return profile, nil
}

// ListAllowedEmails returns the allow-list.
func (s *TeamService) ListAllowedEmails(ctx context.Context, sess session.Session) ([]models.AllowedEmail, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	entries, err := s.allowedEmailRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowed emails: %w", err)
	}
	return entries, nil
}

// AddAllowedEmail lets an email sign up with the given role.
func (s *TeamService) AddAllowedEmail(ctx context.Context, sess session.Session, input AllowEmailInput) (*models.AllowedEmail, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	addedBy := sess.ActorID
	return s.SeedAllowedEmail(ctx, &addedBy, input)
}

// SeedAllowedEmail adds an allow-list entry without a session. It is how the
// first CEO gets in.
func (s *TeamService) SeedAllowedEmail(ctx context.Context, addedBy *string, input AllowEmailInput) (*models.AllowedEmail, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := s.allowedEmailRepo.FindByEmail(ctx, input.Email); err == nil {
		return nil, apierrors.ConflictError("Email is already on the allow-list")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check allow-list: %w", err)
	}

	entry := &models.AllowedEmail{
		Email:   input.Email,
		Role:    input.Role,
		AddedBy: addedBy,
	}
	if err := s.allowedEmailRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add allowed email: %w", err)
	}

	s.logger.Info("email allow-listed", zap.String("email", entry.Email), zap.String("role", string(entry.Role)))
	return entry, nil
}

// UpdateAllowedEmailRole changes the role a pending sign-up will receive.
func (s *TeamService) UpdateAllowedEmailRole(ctx context.Context, sess session.Session, id string, role models.Role) (*models.AllowedEmail, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apierrors.ValidationField("role", "must be one of: ceo team_member super_admin")
	}

	if err := s.allowedEmailRepo.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("allowed_email", id)
		}
		return nil, fmt.Errorf("failed to update allowed email: %w", err)
	}

	entry, err := s.allowedEmailRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find allowed email: %w", err)
	}
	return entry, nil
}

// RemoveAllowedEmail removes an allow-list entry. Existing profiles are unaffected.
func (s *TeamService) RemoveAllowedEmail(ctx context.Context, sess session.Session, id string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}

	if err := s.allowedEmailRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.NotFound("allowed_email", id)
		}
		return fmt.Errorf("failed to remove allowed email: %w", err)
	}
	return nil
}

func requireAdmin(sess session.Session) error {
	if !sess.Active || !sess.IsAdmin() {
		return apierrors.Forbidden("Admin access required")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
