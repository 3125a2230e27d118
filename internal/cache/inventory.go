package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%s"
	HighlightKeyPrefix = "highlight:%s"
	PrefsKeyPrefix     = "prefs:%s"
)

const (
	UserTTL      = 5 * time.Minute
	HighlightTTL = 10 * time.Minute
	PrefsTTL     = 365 * 24 * time.Hour
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// HighlightKey is keyed by the YYYY-MM-DD date of the bundle.
func HighlightKey(date string) string {
	return fmt.Sprintf(HighlightKeyPrefix, date)
}

// PrefsKey holds a device's client-local preferences.
func PrefsKey(deviceID string) string {
	return fmt.Sprintf(PrefsKeyPrefix, deviceID)
}
