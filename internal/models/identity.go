package models

import (
	"time"
)

// IdentityMetadata is the profile data captured with the credentials at sign-up.
type IdentityMetadata struct {
	Name     string `json:"name,omitempty"`
	Handle   string `json:"handle,omitempty"`
	IsArtist bool   `json:"is_artist,omitempty"`
}

// Identity is an account in the identity service, separate from its public profile row.
type Identity struct {
	ID               string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email            string           `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string           `gorm:"not null" json:"-"`
	Metadata         IdentityMetadata `gorm:"serializer:json" json:"user_metadata"`
	EmailConfirmedAt *time.Time       `json:"email_confirmed_at"`
	LastSignInAt     *time.Time       `json:"last_sign_in_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Identity) TableName() string {
	return "auth_identities"
}

// AuthUser is the identity as seen by the containers.
type AuthUser struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	Metadata IdentityMetadata `json:"user_metadata"`
}

// AuthUser projects the identity without credentials.
func (i *Identity) AuthUser() *AuthUser {
	return &AuthUser{ID: i.ID, Email: i.Email, Metadata: i.Metadata}
}

// Session is an authenticated session as issued by the identity service.
type Session struct {
	ID          string    `json:"session_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *AuthUser `json:"user"`
}

// AuthEvent names a session state change.
type AuthEvent string

const (
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthChange is delivered to session subscribers.
type AuthChange struct {
	Event   AuthEvent `json:"event"`
	Session *Session  `json:"session,omitempty"`
}

// SignUpResult reports how sign-up concluded.
type SignUpResult struct {
	NeedsVerification bool     `json:"needs_verification"`
	Session           *Session `json:"session,omitempty"`
}
