// Package bootstrap wires the database, Redis and optional seed data for the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/middleware"
	"skillswap/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCatalog upserts the predefined skills after the schema is applied.
	SeedCatalog bool
}

// InitRuntime connects to the database and Redis and optionally seeds the skill catalog.
// The Redis client is nil when Redis is not configured or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	replica, err := database.ConnectReplica(cfg)
	if err != nil {
		middleware.Logger.Warn("read replica unavailable, reads use the primary",
			slog.String("error", err.Error()))
	} else if replica != nil {
		database.SetReadDB(replica)
	}

	if cfg.RedisURL != "" {
		cache.InitRedis(ctx, cfg.RedisURL)
	}
	r := cache.GetClient()

	if opts.SeedCatalog {
		skills, err := seed.Skills(db.WithContext(ctx))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed skill catalog: %w", err)
		}
		middleware.Logger.Info("skill catalog ensured", slog.Int("skills", len(skills)))
	}

	return db, r, nil
}
