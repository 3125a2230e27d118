// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is the public profile row for an account, artist or client.
type User struct {
	ID         string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email      string            `gorm:"uniqueIndex;not null" json:"email"`
	Name       *string           `json:"name"`
	Handle     *string           `gorm:"index" json:"handle"`
	ProfileImg *string           `json:"profile_img"`
	Styles     []string          `gorm:"serializer:json" json:"styles"`
	Locations  []string          `gorm:"serializer:json" json:"locations"`
	Bio        *string           `gorm:"type:text" json:"bio"`
	Links      map[string]string `gorm:"serializer:json" json:"links"`
	Lat        *float64          `json:"lat"`
	Lng        *float64          `json:"lng"`
	IsArtist   bool              `gorm:"not null;default:false;index" json:"is_artist"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// HasCoordinates reports whether the user can be placed on the map.
func (u *User) HasCoordinates() bool {
	return u.Lat != nil && u.Lng != nil
}

// HasAnyStyle reports whether any of the user's style tags is in styles.
func (u *User) HasAnyStyle(styles []string) bool {
	for _, s := range u.Styles {
		for _, want := range styles {
			if s == want {
				return true
			}
		}
	}
	return false
}

// UserSummary is the author projection joined onto posts.
type UserSummary struct {
	ID         string  `gorm:"primaryKey" json:"-"`
	Name       *string `json:"name"`
	Handle     *string `json:"handle"`
	ProfileImg *string `json:"profile_img"`
}

// TableName maps the summary onto the users table.
func (UserSummary) TableName() string {
	return "users"
}

// ProfileFields are the profile values supplied at sign-up.
type ProfileFields struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	IsArtist bool   `json:"is_artist"`
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
