package main

import (
	"fmt"
	"time"

	"inkd/internal/cache"
	"inkd/internal/database"
	"inkd/internal/geo"
	"inkd/internal/models"
	"inkd/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var (
		opts     seed.Options
		lat, lng float64
		builtIns bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo artists, clients, posts and portfolios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			if cfg.IsProduction() {
				return codeError(2, "refusing to seed a production database")
			}
			if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
				return fmt.Errorf("schema setup failed: %w", err)
			}

			opts.Center = geo.Coordinates{Lat: lat, Lng: lng}
			if builtIns {
				artists, err := seed.Artists(cmd.Context(), db, opts)
				if err != nil {
					return err
				}
				cmd.Printf("built-in artists: %d (password %s)\n", len(artists), seed.DefaultPassword)
			}
			res, err := seed.NewSeeder(db, opts).Run(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d artists, %d clients, %d posts, %d portfolio items\n",
				len(res.Artists), len(res.Clients), res.Posts, res.Portfolio)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Artists, "artists", 20, "Number of generated artists")
	f.IntVar(&opts.Clients, "clients", 10, "Number of generated clients")
	f.IntVar(&opts.PostsPerArtist, "posts", 4, "Posts per artist")
	f.IntVar(&opts.PortfolioPerArtist, "portfolio", 6, "Portfolio items per artist")
	f.Float64Var(&lat, "lat", 37.7749, "Latitude artists are scattered around")
	f.Float64Var(&lng, "lng", -122.4194, "Longitude artists are scattered around")
	f.StringVar(&opts.City, "city", "San Francisco", "Studio city for generated artists")
	f.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 uses the clock)")
	f.BoolVar(&opts.Clean, "clean", false, "Delete existing rows first")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Build entities without writing them")
	f.BoolVar(&opts.FastHash, "fast-hash", false, "Hash passwords at minimum bcrypt cost")
	f.BoolVar(&builtIns, "built-ins", true, "Also ensure the fixed demo artists")
	return cmd
}

func newHighlightCmd() *cobra.Command {
	var (
		date string
		seedN int64
	)
	cmd := &cobra.Command{
		Use:   "highlight",
		Short: "Curate the daily highlight bundle for a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now()
			if date != "" {
				parsed, err := time.Parse(models.HighlightDateLayout, date)
				if err != nil {
					return codeError(2, "invalid --date %q, want YYYY-MM-DD", date)
				}
				day = parsed
			}

			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			// Redis is optional; with it the cached bundle for the date is invalidated.
			rdb := cache.InitRedis(cfg.RedisURL)
			if rdb != nil {
				defer func() { _ = rdb.Close() }()
			}

			h, err := seed.NewCurator(db, cache.New(rdb), seedN).Curate(cmd.Context(), day)
			if err != nil {
				return err
			}
			cmd.Printf("highlight %s: artwork=%s artist=%s suggestions=%d\n",
				h.Date, deref(h.ArtworkPostID), deref(h.ArtistUserID), len(h.Suggestions))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to curate, YYYY-MM-DD (default today, UTC)")
	cmd.Flags().Int64Var(&seedN, "seed", 0, "Random seed (0 uses the clock)")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
