package models

import (
	"time"
)

// HighlightDateLayout is the date key format for daily highlights.
const HighlightDateLayout = "2006-01-02"

// DailyHighlight is the curated bundle row for one day.
type DailyHighlight struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Date          string     `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"`
	ArtworkPostID *string    `gorm:"type:varchar(36)" json:"artwork_post_id"`
	ArtistUserID  *string    `gorm:"type:varchar(36)" json:"artist_user_id"`
	Suggestions   []string   `gorm:"serializer:json" json:"suggestions"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// TableName specifies the table name for GORM
func (DailyHighlight) TableName() string {
	return "daily_highlights"
}

// HighlightBundle is a daily highlight with its references resolved.
type HighlightBundle struct {
	ArtworkOfTheDay *Post  `json:"artwork_of_the_day"`
	ArtistOfTheDay  *User  `json:"artist_of_the_day"`
	Suggestions     []Post `json:"suggestions"`
}

// Empty reports whether the bundle has nothing to show.
func (b *HighlightBundle) Empty() bool {
	return b == nil || (b.ArtworkOfTheDay == nil && b.ArtistOfTheDay == nil && len(b.Suggestions) == 0)
}

// HighlightDate returns the date key for t in UTC.
func HighlightDate(t time.Time) string {
	return t.UTC().Format(HighlightDateLayout)
}
