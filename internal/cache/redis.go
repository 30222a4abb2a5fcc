// Package cache owns the shared Redis client.
package cache

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"karmafeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Options parses addr as a redis:// URL or a bare host:port.
func Options(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to Redis and returns the client, or nil when Redis is
// unreachable. Rate limiting and live events degrade without it.
func InitRedis(addr string) *redis.Client {
	if addr == "" {
		log.Println("Redis disabled: REDIS_URL is empty")
		client = nil
		return nil
	}

	opts, err := Options(addr)
	if err != nil {
		log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (continuing without redis)", addr, err)
		client = nil
		return nil
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without redis)", err)
		_ = rdb.Close()
		client = nil
		return nil
	}

	log.Println("Redis connected successfully")
	client = rdb
	return client
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}
