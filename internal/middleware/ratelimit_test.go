package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit_Bypass(t *testing.T) {
	for _, env := range []string{"test", "development", "stress"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			allowed, remaining, err := CheckRateLimit(context.Background(), nil, "likes", "1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, 1, remaining)
		})
	}
}

func TestCheckRateLimit_NilRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	allowed, _, err := CheckRateLimit(context.Background(), nil, "likes", "1", 1, time.Minute)
	assert.ErrorIs(t, err, errNilRedis)
	assert.False(t, allowed)
}

func TestCheckRateLimit_CountsWithinWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, err := CheckRateLimit(ctx, rdb, "likes", "actor:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, err := CheckRateLimit(ctx, rdb, "likes", "actor:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	assert.True(t, mr.TTL("rl:likes:actor:1") > 0)

	mr.FastForward(2 * time.Minute)
	allowed, _, err = CheckRateLimit(ctx, rdb, "likes", "actor:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, rdb := newTestRedis(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.Next()
	})
	app.Post("/like", RateLimit(rdb, 2, time.Minute, "likes"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/like", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)
}

func TestRateLimitMiddleware_FailPolicies(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	mr.Close()

	app := fiber.New()
	app.Get("/open", RateLimitWithPolicy(rdb, 1, time.Minute, FailOpen, "open"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/closed", RateLimitWithPolicy(rdb, 1, time.Minute, FailClosed, "closed"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/closed", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
