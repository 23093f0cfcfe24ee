// Package bootstrap opens the runtime dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedGroups upserts the built-in groups after the schema is applied.
	SeedGroups bool
}

// InitRuntime connects to the database, applies the schema and connects to Redis. The Redis
// client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(ctx, cfg.RedisURL)
	if r == nil {
		middleware.Logger.WarnContext(ctx, "Running without Redis: index cache and session revocation are disabled")
	}

	if opts.SeedGroups {
		n, err := seed.Groups(ctx, db)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in groups: %w", err)
		}
		middleware.Logger.InfoContext(ctx, "Built-in groups ensured", slog.Int("count", n))
	}

	return db, r, nil
}
