package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"inkd/internal/models"
)

const (
	maxDescriptionRunes = 2200
	maxTags             = 30
	maxTagRunes         = 40
	maxQueryRunes       = 500
	maxMessageRunes     = 4000
)

// ParseTags splits a comma-separated tag field, trimming entries and dropping empties.
func ParseTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ValidateImageURL requires an absolute http(s) URL.
func ValidateImageURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("image_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("image_url must be an absolute http(s) URL")
	}
	return nil
}

// ValidatePostInput checks the fields of a new post.
func ValidatePostInput(in models.PostInput) error {
	if err := ValidateImageURL(in.ImageURL); err != nil {
		return err
	}
	if len([]rune(in.Description)) > maxDescriptionRunes {
		return fmt.Errorf("description must not exceed %d characters", maxDescriptionRunes)
	}
	if len(in.Tags) > maxTags {
		return fmt.Errorf("a post may have at most %d tags", maxTags)
	}
	for _, tag := range in.Tags {
		if len([]rune(tag)) > maxTagRunes {
			return fmt.Errorf("tag %q must not exceed %d characters", tag, maxTagRunes)
		}
	}
	return nil
}

// ValidatePortfolioInput checks the fields of a new portfolio item.
func ValidatePortfolioInput(in models.PortfolioInput) error {
	if in.UserID == "" {
		return errors.New("user_id is required")
	}
	if err := ValidateImageURL(in.ImageURL); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return fmt.Errorf("category must be one of tattoo, flash, design")
	}
	return nil
}

// ValidateCoordinates checks a latitude/longitude pair.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return errors.New("coordinates must be numbers")
	}
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateZoom checks a map zoom level.
func ValidateZoom(zoom float64) error {
	if zoom < 0 || zoom > 22 {
		return errors.New("zoom must be between 0 and 22")
	}
	return nil
}

// ValidateMessage checks an assistant chat message.
func ValidateMessage(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("message must not be empty")
	}
	if len([]rune(trimmed)) > maxMessageRunes {
		return fmt.Errorf("message must not exceed %d characters", maxMessageRunes)
	}
	return nil
}

// ValidateResearchQuery checks a market-research query.
func ValidateResearchQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return errors.New("query must not be empty")
	}
	if len([]rune(trimmed)) > maxQueryRunes {
		return fmt.Errorf("query must not exceed %d characters", maxQueryRunes)
	}
	return nil
}

// ValidateAppointmentTime requires a booking in the future.
func ValidateAppointmentTime(at, now time.Time) error {
	if at.IsZero() {
		return errors.New("date_time is required")
	}
	if !at.After(now) {
		return errors.New("date_time must be in the future")
	}
	return nil
}
