package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/asistetec/internal/config"
	"github.com/iliyamo/asistetec/internal/logging"
)

const msgTooManyRequests = "Demasiadas solicitudes, intente más tarde"

type takeResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// buckets takes one token from the bucket stored under key.
type buckets interface {
	take(ctx context.Context, key string, now time.Time) (takeResult, error)
}

// NewTokenBucket returns a rate limiting middleware.  Buckets are kept in
// Redis when rdb is non-nil so every instance shares them, and in process
// memory otherwise.  Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logging.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	var b buckets
	if rdb != nil {
		b = &redisBuckets{rdb: rdb, cfg: cfg}
	} else {
		b = newLocalBuckets(cfg)
	}
	return tokenBucket(cfg, b, log, time.Now)
}

func tokenBucket(cfg config.RateLimitConfig, b buckets, log logging.Logger, now func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// One bucket per key; the key strategy comes from config.
			key := buildRateKey(cfg, c)
			ctx := c.Request().Context()
			res, err := b.take(ctx, key, now())
			if err != nil {
				// Fail open: a limiter outage must not take login down.
				log.Warn(ctx, "rate limiter unavailable", "key", key, "err", err)
				return next(c)
			}

			// Expose the bucket state on every response, allowed or not.
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))

			if !res.allowed {
				// Retry-After is whole seconds, never zero.
				secs := int(math.Ceil(res.retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				log.Info(ctx, "rate limited", "key", key, "retry_after", secs)
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       msgTooManyRequests,
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	-- load bucket state; a missing hash starts full
	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	-- refill whole intervals only
	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

type redisBuckets struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
}

func (r *redisBuckets) take(ctx context.Context, key string, now time.Time) (takeResult, error) {
	vals, err := limiterScript.Run(ctx, r.rdb, []string{key},
		now.UnixMilli(),
		r.cfg.Capacity,
		r.cfg.RefillTokens,
		r.cfg.RefillInterval.Milliseconds(),
		int64(r.cfg.TTL/time.Second),
	).Result()
	if err != nil {
		return takeResult{}, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return takeResult{}, fmt.Errorf("unexpected limiter result %#v", vals)
	}
	return takeResult{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

// localBuckets is the single-process fallback.  Idle buckets are swept once
// per TTL.
type localBuckets struct {
	cfg       config.RateLimitConfig
	limit     rate.Limit
	mu        sync.Mutex
	m         map[string]*localBucket
	lastSweep time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{
		cfg:   cfg,
		limit: rate.Limit(float64(cfg.RefillTokens) / cfg.RefillInterval.Seconds()),
		m:     make(map[string]*localBucket),
	}
}

func (l *localBuckets) take(_ context.Context, key string, now time.Time) (takeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.cfg.TTL {
		for k, b := range l.m {
			if now.Sub(b.seen) > l.cfg.TTL {
				delete(l.m, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.m[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.limit, l.cfg.Capacity)}
		l.m[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return takeResult{remaining: 0, retry: delay}, nil
	}
	return takeResult{allowed: true, remaining: int64(b.lim.TokensAt(now))}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", userID(c), "route", route)
	}
	return strings.Join(parts, ":")
}
