package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/restaurant-dashboard/internal/config"
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
)

// takeToken refills the bucket stored at KEYS[1] for the whole intervals
// elapsed since its last refill, then takes one token when available.
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_s.
// Returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now, cap, step, every, ttl =
	tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(b[1]), tonumber(b[2])
if tokens == nil or at == nil then
	tokens, at = cap, now
end

local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
	tokens = math.min(cap, tokens + n * step)
	at = at + n * every
end

local allowed, wait = 0, 0
if tokens > 0 then
	allowed, tokens = 1, tokens - 1
else
	wait = math.max(0, every - (now - at))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// bucketResult is the decoded reply of takeToken.
type bucketResult struct {
	Allowed   bool
	Remaining int64
	Wait      time.Duration
}

// RetryAfter is Wait rounded up to whole seconds, as Retry-After expects.
func (b bucketResult) RetryAfter() int {
	return int((b.Wait + time.Second - 1) / time.Second)
}

func parseBucketResult(v any) (bucketResult, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return bucketResult{}, fmt.Errorf("ratelimit: unexpected script reply %#v", v)
	}
	n := make([]int64, 3)
	for i, x := range arr {
		switch t := x.(type) {
		case int64:
			n[i] = t
		case string:
			p, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return bucketResult{}, fmt.Errorf("ratelimit: reply field %d: %w", i, err)
			}
			n[i] = p
		default:
			return bucketResult{}, fmt.Errorf("ratelimit: reply field %d has type %T", i, x)
		}
	}
	return bucketResult{
		Allowed:   n[0] == 1,
		Remaining: max(n[1], 0),
		Wait:      time.Duration(max(n[2], 0)) * time.Millisecond,
	}, nil
}

// NewTokenBucket rate-limits the API with a token bucket kept in Redis.
// When Redis fails the request is let through: the dashboard is read-only
// and availability matters more than the limit.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			reply, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second),
			).Result()
			var res bucketResult
			if err == nil {
				res, err = parseBucketResult(reply)
			}
			if err != nil {
				if cfg.Debug {
					log.Warn().Err(err).Str("key", key).Msg("ratelimit: skipped")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set(headerRateLimitLimit, strconv.Itoa(cfg.Capacity))
			h.Set(headerRateLimitRemaining, strconv.FormatInt(res.Remaining, 10))
			if res.Allowed {
				return next(c)
			}

			h.Set(echo.HeaderRetryAfter, strconv.Itoa(res.RetryAfter()))
			if cfg.Debug {
				log.Info().Str("key", key).Dur("wait", res.Wait).Msg("ratelimit: blocked")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": res.RetryAfter(),
			})
		}
	}
}

// rateKey picks the bucket: the token subject when the caller presented
// one, the client IP otherwise, optionally split by route.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	if sub := subject(c); sub != anonymous {
		parts = append(parts, "sub", sub)
	} else {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		parts = append(parts, "ip", ip)
	}
	if cfg.PerRoute {
		parts = append(parts, "route", c.Request().Method+" "+c.Path())
	}
	return strings.Join(parts, ":")
}
