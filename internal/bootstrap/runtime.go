// Package bootstrap wires the process-wide runtime: database, schema, Redis and demo data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkd/internal/cache"
	"inkd/internal/config"
	"inkd/internal/database"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo ensures the built-in demo artists and today's highlight exist.
	SeedDemo bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// InitRuntime connects to the database, applies the schema and connects Redis.
// The returned Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("schema setup failed: %w", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	if opts.SeedDemo {
		if err := EnsureDemoData(ctx, cfg, db, cache.New(rdb), opts.Now); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}
	return db, rdb, nil
}

// EnsureDemoData seeds the built-in artists and curates today's highlight when none exists.
// It refuses to run outside development and test.
func EnsureDemoData(ctx context.Context, cfg *config.Config, db *gorm.DB, c *cache.Cache, now func() time.Time) error {
	if cfg == nil || db == nil {
		return nil
	}
	env := strings.ToLower(cfg.Env)
	if env != "development" && env != "test" {
		return fmt.Errorf("demo data is only seeded in development, not %q", cfg.Env)
	}
	if now == nil {
		now = time.Now
	}

	artists, err := seed.Artists(ctx, db, seed.Options{})
	if err != nil {
		return err
	}

	date := models.HighlightDate(now())
	var existing int64
	if err := db.WithContext(ctx).Model(&models.DailyHighlight{}).Where("date = ?", date).Count(&existing).Error; err != nil {
		return err
	}
	if existing == 0 {
		if _, err := seed.NewCurator(db, c, 0).Curate(ctx, now()); err != nil && !errors.Is(err, seed.ErrNothingToCurate) {
			return err
		}
	}

	observability.Log().Info("demo data ensured",
		slog.Int("artists", len(artists)),
		slog.String("highlight_date", date))
	return nil
}
