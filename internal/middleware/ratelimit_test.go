package middleware

import (
	"context"
	"net/http"
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

func TestCheckRateLimit(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "comment", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "comment", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:comment:user:1"))

	mr.FastForward(time.Minute + time.Second)
	allowed, err = CheckRateLimit(ctx, rdb, "comment", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_FirstHitOpensWindowWithTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	allowed, err := CheckRateLimit(ctx, rdb, "post", "ip:10.0.0.1", 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)

	got, err := mr.Get("rl:post:ip:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 30*time.Second, mr.TTL("rl:post:ip:10.0.0.1"))

	// later hits in the window keep the original expiry
	mr.FastForward(10 * time.Second)
	allowed, err = CheckRateLimit(ctx, rdb, "post", "ip:10.0.0.1", 1, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 20*time.Second, mr.TTL("rl:post:ip:10.0.0.1"))
}

func TestCheckRateLimit_NilRedis(t *testing.T) {
	allowed, err := CheckRateLimit(context.Background(), nil, "test", "1", 1, time.Minute)
	assert.ErrorIs(t, err, ErrNoRateLimitStore)
	assert.False(t, allowed)
}

func TestRateLimiterMiddleware(t *testing.T) {
	handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	t.Run("Disabled passes through", func(t *testing.T) {
		app := fiber.New()
		app.Post("/test", NewRateLimiter(nil, false).Limit("test", 1, time.Minute, FailClosed), handler)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("FailOpen with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Post("/test", NewRateLimiter(nil, true).Limit("test", 1, time.Minute, FailOpen), handler)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("FailClosed with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Post("/sensitive", NewRateLimiter(nil, true).Limit("sensitive", 1, time.Minute, FailClosed), handler)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sensitive", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("Blocks after limit, GET not counted", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		limit := NewRateLimiter(rdb, true).Limit("signup", 1, time.Minute, FailOpen)
		app.Get("/signup", limit, handler)
		app.Post("/signup", limit, handler)

		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/signup", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/signup", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/signup", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})
}
