package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/asistetec/internal/config"
	"github.com/iliyamo/asistetec/internal/logging"
)

func limitCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func limited(mw echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	return e
}

func post(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucket_Local(t *testing.T) {
	e := limited(NewTokenBucket(limitCfg(), nil, logging.Discard()))

	r1 := post(e, "10.0.0.1")
	assert.Equal(t, http.StatusOK, r1.Code)
	assert.Equal(t, "2", r1.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", r1.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)

	r3 := post(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, r3.Code)
	assert.Equal(t, "60", r3.Header().Get("Retry-After"))
	assert.Contains(t, r3.Body.String(), msgTooManyRequests)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.2").Code, "buckets are per ip")
}

func TestTokenBucket_LocalRefills(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	cfg := limitCfg()
	e := limited(tokenBucket(cfg, newLocalBuckets(cfg), logging.Discard(), func() time.Time { return now }))

	post(e, "10.0.0.1")
	post(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, post(e, "10.0.0.1").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "10.0.0.1").Code)
}

func TestTokenBucket_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	cfg := limitCfg()
	e := limited(tokenBucket(cfg, &redisBuckets{rdb: rdb, cfg: cfg}, logging.Discard(), func() time.Time { return now }))

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	r3 := post(e, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, r3.Code)
	assert.Equal(t, "60", r3.Header().Get("Retry-After"))
	assert.Equal(t, "0", r3.Header().Get("X-RateLimit-Remaining"))

	assert.True(t, mr.Exists("rl:ip:10.0.0.1:route:POST /api/auth/login"))

	now = now.Add(90 * time.Second)
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
}

func TestTokenBucket_RedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cfg := limitCfg()
	cfg.Capacity = 1
	e := limited(NewTokenBucket(cfg, rdb, logging.Discard()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	}
}

func TestTokenBucket_Disabled(t *testing.T) {
	cfg := limitCfg()
	cfg.Enabled = false
	cfg.Capacity = 1
	e := limited(NewTokenBucket(cfg, nil, logging.Discard()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := limitCfg()
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.9", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:10.0.0.9:user:anon:route:POST /api/auth/login", buildRateKey(cfg, c))
}
