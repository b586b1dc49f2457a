package dto

import (
	"time"

	"github.com/yukikurage/task-approval-api/internal/models"
)

// ProfileDTO represents a full profile in API responses
type ProfileDTO struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"full_name"`
	Role       models.Role `json:"role"`
	Department *string     `json:"department"`
	AvatarURL  *string     `json:"avatar_url"`
	IsActive   bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AllowedEmailDTO represents an allow-list entry
type AllowedEmailDTO struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	AddedBy   *string     `json:"added_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// ToProfileDTO converts a Profile model to ProfileDTO
func ToProfileDTO(p models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:         p.ID,
		Email:      p.Email,
		FullName:   p.FullName,
		Role:       p.Role,
		Department: p.Department,
		AvatarURL:  p.AvatarURL,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
	}
}

func ToProfileDTOs(profiles []models.Profile) []ProfileDTO {
	out := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		out[i] = ToProfileDTO(p)
	}
	return out
}

// ToAllowedEmailDTO converts an AllowedEmail model
func ToAllowedEmailDTO(e models.AllowedEmail) AllowedEmailDTO {
	return AllowedEmailDTO{
		ID:        e.ID,
		Email:     e.Email,
		Role:      e.Role,
		AddedBy:   e.AddedBy,
		CreatedAt: e.CreatedAt,
	}
}

func ToAllowedEmailDTOs(entries []models.AllowedEmail) []AllowedEmailDTO {
	out := make([]AllowedEmailDTO, len(entries))
	for i, e := range entries {
		out[i] = ToAllowedEmailDTO(e)
	}
	return out
}
