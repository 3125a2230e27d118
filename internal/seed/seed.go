package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkd/internal/geo"
	"inkd/internal/models"
	"inkd/internal/observability"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	Artists            int
	Clients            int
	PostsPerArtist     int
	PortfolioPerArtist int

	// Artists are scattered within SpreadDegrees of Center.
	Center        geo.Coordinates
	SpreadDegrees float64
	City          string

	MaxDays   int
	BatchSize int
	Password  string
	Seed      int64
	FastHash  bool
	DryRun    bool
	Clean     bool
}

func (o Options) withDefaults() Options {
	if !o.Center.Valid() || (o.Center == geo.Coordinates{}) {
		o.Center = geo.Coordinates{Lat: 37.7749, Lng: -122.4194}
	}
	if o.SpreadDegrees <= 0 {
		o.SpreadDegrees = 0.15
	}
	if o.City == "" {
		o.City = "San Francisco"
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	return o
}

// CategoryDistribution weights portfolio categories.
type CategoryDistribution struct {
	Tattoo int
	Flash  int
	Design int
}

var defaultDistribution = CategoryDistribution{Tattoo: 60, Flash: 25, Design: 15}

// computeCounts splits n across categories, giving the rounding remainder to tattoos.
func computeCounts(n int, d CategoryDistribution) map[models.PortfolioCategory]int {
	total := d.Tattoo + d.Flash + d.Design
	if total <= 0 || n <= 0 {
		return map[models.PortfolioCategory]int{}
	}
	flash := n * d.Flash / total
	design := n * d.Design / total
	return map[models.PortfolioCategory]int{
		models.PortfolioCategoryTattoo: n - flash - design,
		models.PortfolioCategoryFlash:  flash,
		models.PortfolioCategoryDesign: design,
	}
}

// Result summarizes what a seed run created.
type Result struct {
	Artists   []models.User
	Clients   []models.User
	Posts     int
	Portfolio int
}

// Seeder creates a demo data set through a Factory.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	f := NewFactory(db, opts)
	return &Seeder{db: db, opts: f.opts, factory: f}
}

// Factory exposes the seeder's entity factory.
func (s *Seeder) Factory() *Factory { return s.factory }

// Run seeds accounts, posts and portfolio items.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	log := observability.Log()
	log.Info("starting database seeding",
		slog.Int("artists", s.opts.Artists),
		slog.Int("clients", s.opts.Clients),
		slog.Bool("dry_run", s.opts.DryRun))

	if s.opts.Clean && !s.opts.DryRun {
		if err := Clean(ctx, s.db); err != nil {
			log.Warn("could not clear existing data, continuing", slog.String("error", err.Error()))
		}
	}

	res := &Result{}
	for i := 0; i < s.opts.Artists; i++ {
		u, err := s.factory.CreateAccount(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("create artist: %w", err)
		}
		res.Artists = append(res.Artists, *u)
	}
	for i := 0; i < s.opts.Clients; i++ {
		u, err := s.factory.CreateAccount(ctx, false)
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
		res.Clients = append(res.Clients, *u)
	}
	log.Info("accounts created", slog.Int("artists", len(res.Artists)), slog.Int("clients", len(res.Clients)))

	var posts []*models.Post
	var items []*models.PortfolioItem
	counts := computeCounts(s.opts.PortfolioPerArtist, defaultDistribution)
	for i := range res.Artists {
		artist := &res.Artists[i]
		for j := 0; j < s.opts.PostsPerArtist; j++ {
			posts = append(posts, s.factory.BuildPost(artist))
		}
		for _, category := range models.PortfolioCategories {
			for j := 0; j < counts[category]; j++ {
				items = append(items, s.factory.BuildPortfolioItem(artist, category))
			}
		}
	}
	if err := s.factory.CreatePostsBatch(ctx, posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	if err := s.factory.CreatePortfolioBatch(ctx, items); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	res.Posts, res.Portfolio = len(posts), len(items)

	log.Info("database seeding completed", slog.Int("posts", res.Posts), slog.Int("portfolio", res.Portfolio))
	return res, nil
}

// Clean removes every seeded table's rows, children first.
func Clean(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.AssistantEvent{},
		&models.AssistantReport{},
		&models.AssistantSettings{},
		&models.DailyHighlight{},
		&models.Appointment{},
		&models.Message{},
		&models.PortfolioItem{},
		&models.Post{},
		&models.User{},
		&models.Identity{},
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
