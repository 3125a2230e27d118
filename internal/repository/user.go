package repository

import (
	"context"

	"inkd/internal/cache"
	"inkd/internal/models"
	"inkd/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for profile rows.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ListArtists(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewUserRepository returns a new UserRepository implementation. c may be nil.
func NewUserRepository(db *gorm.DB, c *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: c}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func(ctx context.Context) error {
		defer observability.TrackQuery("select", "users")()
		return mapError(r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error, "User", id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&user).Error; err != nil {
		return nil, mapError(err, "User", handle)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return mapError(err, "User", user.ID)
	}
	r.cache.Invalidate(ctx, cache.UserKey(user.ID))
	return nil
}

// ListArtists returns artists that can be placed on the map, newest first.
func (r *userRepository) ListArtists(ctx context.Context) ([]models.User, error) {
	defer observability.TrackQuery("select", "users")()
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("is_artist = ?", true).
		Where("lat IS NOT NULL AND lng IS NOT NULL").
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, mapError(err, "User", "artists")
	}
	return users, nil
}
