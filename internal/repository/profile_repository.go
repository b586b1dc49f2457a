package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/models"
)

// GormProfileRepository is a GORM implementation of ProfileRepository
type GormProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &GormProfileRepository{db: db}
}

// CreateFromAllowList looks up the allow-list entry and creates the profile atomically.
func (r *GormProfileRepository) CreateFromAllowList(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.AllowedEmail
		if err := tx.Where("email = ?", profile.Email).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAllowListed
			}
			return err
		}

		profile.Role = entry.Role
		profile.IsActive = true
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateProfile, err)
		}
		return nil
	})
}

// FindByID finds a profile by ID
func (r *GormProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByEmail finds a profile by email
func (r *GormProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *GormProfileRepository) List(ctx context.Context, activeOnly bool) ([]models.Profile, error) {
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	profiles := make([]models.Profile, 0)
	err := query.Order("full_name ASC").Order("id ASC").Find(&profiles).Error
	return profiles, err
}

func (r *GormProfileRepository) AdminIDs(ctx context.Context) ([]string, error) {
	return adminIDs(r.db.WithContext(ctx))
}

// Update returns gorm.ErrRecordNotFound when no profile has the ID
func (r *GormProfileRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	db := r.db.WithContext(ctx)

	var profile models.Profile
	if err := db.First(&profile, "id = ?", id).Error; err != nil {
		return err
	}
	return db.Model(&profile).Updates(updates).Error
}
