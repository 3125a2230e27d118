package repository

import (
	"context"

	"inkd/internal/cache"
	"inkd/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HighlightRepository reads and curates the daily bundle.
type HighlightRepository interface {
	// GetByDate returns the row for a YYYY-MM-DD key, or a not_found error.
	GetByDate(ctx context.Context, date string) (*models.DailyHighlight, error)
	Upsert(ctx context.Context, h *models.DailyHighlight) error
}

type highlightRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewHighlightRepository(db *gorm.DB, c *cache.Cache) HighlightRepository {
	return &highlightRepository{db: db, cache: c}
}

func (r *highlightRepository) GetByDate(ctx context.Context, date string) (*models.DailyHighlight, error) {
	var h models.DailyHighlight
	err := r.cache.Aside(ctx, cache.HighlightKey(date), &h, cache.HighlightTTL, func(ctx context.Context) error {
		return mapError(r.db.WithContext(ctx).Where("date = ?", date).First(&h).Error, "DailyHighlight", date)
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Upsert replaces the bundle for h.Date.
func (r *highlightRepository) Upsert(ctx context.Context, h *models.DailyHighlight) error {
	if h.Suggestions == nil {
		h.Suggestions = []string{}
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"artwork_post_id", "artist_user_id", "suggestions", "expires_at"}),
	}).Create(h).Error
	if err != nil {
		return mapError(err, "DailyHighlight", h.Date)
	}
	r.cache.Invalidate(ctx, cache.HighlightKey(h.Date))
	return nil
}
