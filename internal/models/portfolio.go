package models

import (
	"time"
)

// PortfolioCategory is the kind of work sample an artist uploads.
type PortfolioCategory string

const (
	PortfolioCategoryTattoo PortfolioCategory = "tattoo"
	PortfolioCategoryFlash  PortfolioCategory = "flash"
	PortfolioCategoryDesign PortfolioCategory = "design"
)

// PortfolioCategories lists categories in display order.
var PortfolioCategories = []PortfolioCategory{
	PortfolioCategoryTattoo,
	PortfolioCategoryFlash,
	PortfolioCategoryDesign,
}

// Valid reports whether c is a known category.
func (c PortfolioCategory) Valid() bool {
	switch c {
	case PortfolioCategoryTattoo, PortfolioCategoryFlash, PortfolioCategoryDesign:
		return true
	}
	return false
}

// PortfolioItem is an artist-owned work sample, distinct from a feed post.
type PortfolioItem struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string            `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ImageURL  string            `gorm:"not null" json:"image_url"`
	Category  PortfolioCategory `gorm:"type:varchar(20);not null" json:"category"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PortfolioItem) TableName() string {
	return "portfolio"
}

// PortfolioInput holds the fields for a new portfolio item.
type PortfolioInput struct {
	UserID   string            `json:"user_id"`
	ImageURL string            `json:"image_url"`
	Category PortfolioCategory `json:"category"`
}
