package models

import (
	"time"
)

// Post is a user-authored feed entry. Posts are immutable once created.
type Post struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string       `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ImageURL    string       `gorm:"not null" json:"image_url"`
	Description *string      `gorm:"type:text" json:"description"`
	Location    *string      `json:"location"`
	Tags        []string     `gorm:"serializer:json" json:"tags"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	User        *UserSummary `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// PostInput holds the fields a caller may set when creating a post.
type PostInput struct {
	ImageURL    string   `json:"image_url"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TruncateTags returns at most limit tags and how many were left out.
func TruncateTags(tags []string, limit int) ([]string, int) {
	if limit < 0 {
		limit = 0
	}
	if len(tags) <= limit {
		return tags, 0
	}
	return tags[:limit], len(tags) - limit
}
