// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkd/internal/geo"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword signs in every seeded account.
const DefaultPassword = "inkwell123"

// Styles is the style vocabulary seeded artists draw from.
var Styles = []string{
	"blackwork", "fineline", "traditional", "neo-traditional", "japanese",
	"realism", "watercolor", "geometric", "dotwork", "lettering",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	hash  string
}

// NewFactory creates a Factory bound to db. A zero opts.Seed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, opts: opts.withDefaults(), faker: gofakeit.New(seed)}
}

// passwordHash hashes the shared password once per factory.
func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(f.opts.Password), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(b)
	return f.hash, nil
}

// handleFor derives a valid public handle from a display name.
func (f *Factory) handleFor(first, last string) string {
	base := strings.ToLower(first + "." + last)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, base)
	base = strings.Trim(base, ".")
	if len(base) > 24 {
		base = strings.Trim(base[:24], ".")
	}
	handle := fmt.Sprintf("%s%d", base, f.faker.Number(10, 999))
	if validation.ValidateHandle(handle) != nil {
		handle = fmt.Sprintf("ink%d", f.faker.Number(1000, 999999))
	}
	return handle
}

// BuildAccount constructs a matching identity and profile row without persisting them.
func (f *Factory) BuildAccount(artist bool) (*models.Identity, *models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, nil, err
	}
	first, last := f.faker.FirstName(), f.faker.LastName()
	name := first + " " + last
	handle := f.handleFor(first, last)
	email := validation.NormalizeEmail(handle + "@" + f.faker.DomainName())
	now := time.Now().UTC()
	id := models.NewID()

	identity := &models.Identity{
		ID:               id,
		Email:            email,
		PasswordHash:     hash,
		Metadata:         models.IdentityMetadata{Name: name, Handle: handle, IsArtist: artist},
		EmailConfirmedAt: &now,
		CreatedAt:        now,
	}
	user := &models.User{
		ID:         id,
		Email:      email,
		Name:       models.StringPtr(name),
		Handle:     models.StringPtr(handle),
		ProfileImg: models.StringPtr(fmt.Sprintf("https://i.pravatar.cc/150?u=%s", id)),
		Styles:     []string{},
		Locations:  []string{},
		Links:      map[string]string{},
		IsArtist:   artist,
		CreatedAt:  f.backdate(),
	}
	if artist {
		f.dressArtist(user)
	}
	return identity, user, nil
}

// dressArtist gives an artist styles, a studio city, a bio and map coordinates near the center.
func (f *Factory) dressArtist(u *models.User) {
	styles := append([]string(nil), Styles...)
	f.faker.ShuffleStrings(styles)
	u.Styles = styles[:f.faker.Number(1, 3)]

	pos := f.scatter(f.opts.Center, f.opts.SpreadDegrees)
	u.Lat, u.Lng = &pos.Lat, &pos.Lng
	u.Locations = []string{f.opts.City}
	u.Bio = models.StringPtr(fmt.Sprintf("Tattooing %s in %s. %s", strings.Join(u.Styles, ", "), f.opts.City, f.faker.HipsterSentence(8)))
	u.Links = map[string]string{"instagram": "https://instagram.com/" + *u.Handle}
}

// scatter returns a point within spread degrees of center.
func (f *Factory) scatter(center geo.Coordinates, spread float64) geo.Coordinates {
	return geo.Coordinates{
		Lat: center.Lat + f.faker.Float64Range(-spread, spread),
		Lng: center.Lng + f.faker.Float64Range(-spread, spread),
	}
}

// backdate picks a created_at within the last MaxDays.
func (f *Factory) backdate() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().UTC().Add(-back)
}

// CreateAccount persists an identity and its profile row together.
func (f *Factory) CreateAccount(ctx context.Context, artist bool, overrides ...func(*models.User)) (*models.User, error) {
	identity, user, err := f.BuildAccount(artist)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(user)
	}
	identity.Email = user.Email
	identity.Metadata.IsArtist = user.IsArtist
	if user.Name != nil {
		identity.Metadata.Name = *user.Name
	}
	if user.Handle != nil {
		identity.Metadata.Handle = *user.Handle
	}

	if f.opts.DryRun {
		observability.Log().Info("[dry-run] CreateAccount", slog.String("email", user.Email), slog.Bool("artist", artist))
		return user, nil
	}

	err = f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(identity).Error; err != nil {
			return err
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a feed post for user without persisting it.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	tags := user.Styles
	if len(tags) == 0 {
		tags = []string{f.faker.RandomString(Styles)}
	}
	tags = append(append([]string(nil), tags...), strings.ToLower(f.faker.Animal()))

	post := &models.Post{
		ID:          models.NewID(),
		UserID:      user.ID,
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()),
		Description: models.StringPtr(f.faker.Sentence(f.faker.Number(6, 14))),
		Tags:        tags,
		CreatedAt:   f.backdate(),
	}
	if len(user.Locations) > 0 {
		post.Location = models.StringPtr(user.Locations[0])
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// BuildPortfolioItem constructs a work sample for user without persisting it.
func (f *Factory) BuildPortfolioItem(user *models.User, category models.PortfolioCategory) *models.PortfolioItem {
	return &models.PortfolioItem{
		ID:        models.NewID(),
		UserID:    user.ID,
		ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s-%s/800/1000", category, f.faker.UUID()),
		Category:  category,
		CreatedAt: f.backdate(),
	}
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		observability.Log().Info("[dry-run] CreatePostsBatch", slog.Int("posts", len(posts)))
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(posts, f.opts.BatchSize).Error
}

// CreatePortfolioBatch persists portfolio items in batches.
func (f *Factory) CreatePortfolioBatch(ctx context.Context, items []*models.PortfolioItem) error {
	if len(items) == 0 {
		return nil
	}
	if f.opts.DryRun {
		observability.Log().Info("[dry-run] CreatePortfolioBatch", slog.Int("items", len(items)))
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(items, f.opts.BatchSize).Error
}
