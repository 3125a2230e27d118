package repository

import (
	"context"

	"inkd/internal/models"

	"gorm.io/gorm"
)

// PortfolioRepository stores artist work samples.
type PortfolioRepository interface {
	Create(ctx context.Context, item *models.PortfolioItem) error
	ListByUser(ctx context.Context, userID string) ([]models.PortfolioItem, error)
	Delete(ctx context.Context, id, userID string) error
}

type portfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository(db *gorm.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

func (r *portfolioRepository) Create(ctx context.Context, item *models.PortfolioItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return mapError(err, "PortfolioItem", item.ID)
	}
	return nil
}

func (r *portfolioRepository) ListByUser(ctx context.Context, userID string) ([]models.PortfolioItem, error) {
	var items []models.PortfolioItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, mapError(err, "PortfolioItem", userID)
	}
	return items, nil
}

// Delete removes an item only when it belongs to userID.
func (r *portfolioRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.PortfolioItem{})
	if res.Error != nil {
		return mapError(res.Error, "PortfolioItem", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("PortfolioItem", id)
	}
	return nil
}
