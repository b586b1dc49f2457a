package models

import (
	"time"

	"gorm.io/gorm"
)

// AllowedEmail gates sign-up: only listed addresses may register, and they
// receive the role stored here.
type AllowedEmail struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	AddedBy   *string   `gorm:"type:varchar(36)" json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *AllowedEmail) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
