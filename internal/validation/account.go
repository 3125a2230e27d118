// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
)

// bcrypt ignores everything past 72 bytes, so longer passwords are rejected outright.
const maxPasswordBytes = 72

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", maxPasswordBytes)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return errors.New("password must contain at least one letter")
	}
	if !hasDigit {
		return errors.New("password must contain at least one digit")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// NormalizeHandle strips a leading "@" and surrounding space.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// ValidateHandle checks a public handle. An empty handle is allowed; profiles may omit it.
func ValidateHandle(handle string) error {
	if handle == "" {
		return nil
	}
	if len(handle) < 3 {
		return errors.New("handle must be at least 3 characters long")
	}
	if len(handle) > 30 {
		return errors.New("handle must not exceed 30 characters")
	}
	if !handleRegex.MatchString(handle) {
		return errors.New("handle can only contain letters, numbers, underscores, and dots")
	}
	if handle[0] == '.' || handle[len(handle)-1] == '.' {
		return errors.New("handle cannot start or end with a dot")
	}
	return nil
}

// ValidateName bounds a display name.
func ValidateName(name string) error {
	if len([]rune(name)) > 80 {
		return errors.New("name must not exceed 80 characters")
	}
	return nil
}
