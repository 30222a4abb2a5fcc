// Package bootstrap wires the process-wide dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"karmafeed/internal/cache"
	"karmafeed/internal/config"
	"karmafeed/internal/database"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations and/or AutoMigrate per DB_SCHEMA_MODE.
	ApplySchema bool
	// SkipRedis leaves the Redis client nil.
	SkipRedis bool
}

var (
	connect = database.Connect

	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 10 * time.Second
)

// InitRuntime connects to the database (with retries) and Redis.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := ConnectWithRetry(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	var r *redis.Client
	if !opts.SkipRedis {
		// May be nil if unreachable.
		r = cache.InitRedis(cfg.RedisURL)
	}

	return db, r, nil
}

// ConnectWithRetry retries database.Connect with exponential backoff, up to
// DB_CONNECT_RETRIES extra attempts.
func ConnectWithRetry(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var (
		db      *gorm.DB
		attempt int
	)

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		conn, err := connect(cfg)
		if err != nil {
			return err
		}
		db = conn
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval

	notify := func(err error, wait time.Duration) {
		log.Printf("database connection attempt %d failed: %v (retrying in %s)", attempt, err, wait)
	}

	if err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, cfg.DBConnectRetries), ctx), notify); err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return db, nil
}
