package seed

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"inkd/internal/cache"
	"inkd/internal/models"
	"inkd/internal/repository"

	"gorm.io/gorm"
)

const maxSuggestions = 3

// ErrNothingToCurate is returned when there are no posts or artists to pick from.
var ErrNothingToCurate = errors.New("no posts or artists to curate a highlight from")

// Curator picks the daily highlight bundle from recent posts and known artists.
type Curator struct {
	posts      repository.PostRepository
	users      repository.UserRepository
	highlights repository.HighlightRepository
	rng        *rand.Rand
}

// NewCurator builds a curator over db. c may wrap a nil client.
func NewCurator(db *gorm.DB, c *cache.Cache, seed int64) *Curator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Curator{
		posts:      repository.NewPostRepository(db),
		users:      repository.NewUserRepository(db, c),
		highlights: repository.NewHighlightRepository(db, c),
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec // curation is not security sensitive
	}
}

// Curate writes the bundle for day, replacing any earlier pick for the same date.
func (c *Curator) Curate(ctx context.Context, day time.Time) (*models.DailyHighlight, error) {
	posts, err := c.posts.List(ctx, 100)
	if err != nil {
		return nil, err
	}
	artists, err := c.users.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 && len(artists) == 0 {
		return nil, ErrNothingToCurate
	}

	date := models.HighlightDate(day)
	start, _ := time.Parse(models.HighlightDateLayout, date)
	expires := start.Add(24 * time.Hour)
	h := &models.DailyHighlight{Date: date, ExpiresAt: &expires, Suggestions: []string{}}

	c.rng.Shuffle(len(posts), func(i, j int) { posts[i], posts[j] = posts[j], posts[i] })
	if len(posts) > 0 {
		h.ArtworkPostID = &posts[0].ID
		for _, p := range posts[1:] {
			if len(h.Suggestions) == maxSuggestions {
				break
			}
			h.Suggestions = append(h.Suggestions, p.ID)
		}
	}

	// Prefer an artist other than the artwork's author so the bundle features two people.
	if len(artists) > 0 {
		pick := artists[c.rng.Intn(len(artists))]
		if h.ArtworkPostID != nil && pick.ID == posts[0].UserID && len(artists) > 1 {
			for _, a := range artists {
				if a.ID != posts[0].UserID {
					pick = a
					break
				}
			}
		}
		h.ArtistUserID = &pick.ID
	}

	if err := c.highlights.Upsert(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}
