package repository

import (
	"context"
	"time"

	"inkd/internal/models"

	"gorm.io/gorm"
)

// IdentityRepository persists credentials for the identity service.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	TouchSignIn(ctx context.Context, id string, at time.Time) error
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository returns a new IdentityRepository implementation.
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if err := r.db.WithContext(ctx).Create(identity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("An account with this email already exists")
		}
		return mapError(err, "Identity", identity.ID)
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, mapError(err, "Identity", id)
	}
	return &identity, nil
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error; err != nil {
		return nil, mapError(err, "Identity", email)
	}
	return &identity, nil
}

func (r *identityRepository) TouchSignIn(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Identity{}).Where("id = ?", id).Update("last_sign_in_at", at)
	if res.Error != nil {
		return mapError(res.Error, "Identity", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Identity", id)
	}
	return nil
}
