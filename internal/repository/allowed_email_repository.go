package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/models"
)

// GormAllowedEmailRepository is a GORM implementation of AllowedEmailRepository
type GormAllowedEmailRepository struct {
	db *gorm.DB
}

// NewAllowedEmailRepository creates a new AllowedEmailRepository
func NewAllowedEmailRepository(db *gorm.DB) AllowedEmailRepository {
	return &GormAllowedEmailRepository{db: db}
}

func (r *GormAllowedEmailRepository) Create(ctx context.Context, entry *models.AllowedEmail) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormAllowedEmailRepository) FindByID(ctx context.Context, id string) (*models.AllowedEmail, error) {
	var entry models.AllowedEmail
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *GormAllowedEmailRepository) FindByEmail(ctx context.Context, email string) (*models.AllowedEmail, error) {
	var entry models.AllowedEmail
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *GormAllowedEmailRepository) List(ctx context.Context) ([]models.AllowedEmail, error) {
	entries := make([]models.AllowedEmail, 0)
	err := r.db.WithContext(ctx).Order("email ASC").Find(&entries).Error
	return entries, err
}

// UpdateRole returns gorm.ErrRecordNotFound when no entry has the ID
func (r *GormAllowedEmailRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	db := r.db.WithContext(ctx)

	var entry models.AllowedEmail
	if err := db.First(&entry, "id = ?", id).Error; err != nil {
		return err
	}
	return db.Model(&entry).Update("role", role).Error
}

func (r *GormAllowedEmailRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AllowedEmail{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
