package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleCEO        Role = "ceo"
	RoleTeamMember Role = "team_member"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCEO, RoleTeamMember, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role has oversight access to every task.
func (r Role) IsAdmin() bool {
	return r == RoleCEO || r == RoleSuperAdmin
}

type Profile struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	Department   *string   `gorm:"type:varchar(100)" json:"department"`
	AvatarURL    *string   `gorm:"type:varchar(500)" json:"avatar_url"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
