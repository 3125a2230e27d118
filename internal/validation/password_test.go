package validation

import (
	"strings"
	"testing"
	"time"

	"inkd/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "needle42ink", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Bytes", strings.Repeat("a", 71) + "1", false},
		{"Too Short", "abc12", true},
		{"Too Long", strings.Repeat("a", 72) + "1", true},
		{"No Digit", "onlyletters", true},
		{"No Letter", "1234567890", true},
		{"Unicode Letters", "Ångström99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHandle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		handle  string
		wantErr bool
	}{
		{"Valid", "ink.by_mara", false},
		{"Empty Allowed", "", false},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Illegal Chars", "ink@mara", true},
		{"Starts Dot", ".mara", true},
		{"Ends Dot", "mara.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHandle(tt.handle)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeHandleAndEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "mara", NormalizeHandle("  @mara "))
	assert.Equal(t, "mara@example.com", NormalizeEmail(" Mara@Example.COM "))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Plus Tag", "test+ink@example.co", false},
		{"No At", "testexample.com", true},
		{"No Domain", "test@", true},
		{"Too Long", strings.Repeat("a", 250) + "@b.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"blackwork", "fine line", "botanical"}, ParseTags(" blackwork, fine line,,botanical , "))
	assert.Nil(t, ParseTags(""))
}

func TestValidatePostInput(t *testing.T) {
	t.Parallel()
	manyTags := make([]string, 31)
	for i := range manyTags {
		manyTags[i] = "t"
	}

	tests := []struct {
		name    string
		in      models.PostInput
		wantErr bool
	}{
		{"Valid", models.PostInput{ImageURL: "https://cdn.example.com/a.jpg", Tags: []string{"dotwork"}}, false},
		{"Missing Image", models.PostInput{}, true},
		{"Relative Image", models.PostInput{ImageURL: "/a.jpg"}, true},
		{"Bad Scheme", models.PostInput{ImageURL: "ftp://example.com/a.jpg"}, true},
		{"Too Many Tags", models.PostInput{ImageURL: "https://x.io/a.png", Tags: manyTags}, true},
		{"Long Tag", models.PostInput{ImageURL: "https://x.io/a.png", Tags: []string{strings.Repeat("x", 41)}}, true},
		{"Long Description", models.PostInput{ImageURL: "https://x.io/a.png", Description: strings.Repeat("x", 2201)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostInput(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePortfolioInput(t *testing.T) {
	t.Parallel()
	valid := models.PortfolioInput{UserID: "u1", ImageURL: "https://x.io/flash.png", Category: models.PortfolioCategoryFlash}
	assert.NoError(t, ValidatePortfolioInput(valid))

	noUser := valid
	noUser.UserID = ""
	assert.Error(t, ValidatePortfolioInput(noUser))

	badCategory := valid
	badCategory.Category = "sketch"
	assert.Error(t, ValidatePortfolioInput(badCategory))
}

func TestValidateCoordinatesAndZoom(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCoordinates(37.7749, -122.4194))
	assert.Error(t, ValidateCoordinates(91, 0))
	assert.Error(t, ValidateCoordinates(0, -181))
	assert.NoError(t, ValidateZoom(14))
	assert.Error(t, ValidateZoom(23))
}

func TestValidateMessageAndQuery(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateMessage("hi"))
	assert.Error(t, ValidateMessage("   "))
	assert.NoError(t, ValidateResearchQuery("fine line demand in Oakland"))
	assert.Error(t, ValidateResearchQuery(""))
	assert.Error(t, ValidateResearchQuery(strings.Repeat("q", 501)))
}

func TestValidateAppointmentTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateAppointmentTime(now.Add(time.Hour), now))
	assert.Error(t, ValidateAppointmentTime(now, now))
	assert.Error(t, ValidateAppointmentTime(time.Time{}, now))
}
