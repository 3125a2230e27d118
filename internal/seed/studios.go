package seed

import (
	"context"
	"errors"
	"fmt"

	"inkd/internal/models"

	"gorm.io/gorm"
)

// BuiltInArtist is a fixed demo account that development environments always have.
type BuiltInArtist struct {
	Email  string
	Name   string
	Handle string
	City   string
	Lat    float64
	Lng    float64
	Styles []string
}

// BuiltInArtists are the permanent demo artists around the Bay Area.
var BuiltInArtists = []BuiltInArtist{
	{Email: "mara@inkd.local", Name: "Mara Quinn", Handle: "mara.quinn", City: "San Francisco", Lat: 37.7599, Lng: -122.4148, Styles: []string{"blackwork", "fineline"}},
	{Email: "theo@inkd.local", Name: "Theo Park", Handle: "theo.tattoo", City: "Oakland", Lat: 37.8044, Lng: -122.2712, Styles: []string{"traditional", "neo-traditional"}},
	{Email: "ines@inkd.local", Name: "Ines Duarte", Handle: "ines.ink", City: "San Jose", Lat: 37.3382, Lng: -121.8863, Styles: []string{"fineline", "watercolor"}},
	{Email: "kenji@inkd.local", Name: "Kenji Mori", Handle: "kenji_irezumi", City: "Berkeley", Lat: 37.8715, Lng: -122.2730, Styles: []string{"japanese"}},
	{Email: "ada@inkd.local", Name: "Ada Okafor", Handle: "ada.dotwork", City: "San Francisco", Lat: 37.7793, Lng: -122.4193, Styles: []string{"dotwork", "geometric"}},
}

// Artists ensures the built-in demo artists exist. Existing accounts are left untouched.
func Artists(ctx context.Context, db *gorm.DB, opts Options) ([]models.User, error) {
	f := NewFactory(db, opts)
	out := make([]models.User, 0, len(BuiltInArtists))
	for _, item := range BuiltInArtists {
		var existing models.User
		err := db.WithContext(ctx).Where("email = ?", item.Email).First(&existing).Error
		switch {
		case err == nil:
			out = append(out, existing)
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("look up %s: %w", item.Email, err)
		}

		item := item
		u, err := f.CreateAccount(ctx, true, func(u *models.User) {
			u.Email = item.Email
			u.Name = models.StringPtr(item.Name)
			u.Handle = models.StringPtr(item.Handle)
			u.Styles = item.Styles
			u.Locations = []string{item.City}
			u.Lat, u.Lng = &item.Lat, &item.Lng
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", item.Email, err)
		}
		out = append(out, *u)
	}
	return out, nil
}
