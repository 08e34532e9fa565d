package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/restaurant-dashboard/internal/config"
)

const headerXCache = "X-Cache"

// perRequestHeaders describe the request being served, not the resource,
// and are never replayed from the cache.
var perRequestHeaders = []string{
	headerXCache,
	headerRateLimitLimit,
	headerRateLimitRemaining,
	echo.HeaderRetryAfter,
	echo.HeaderContentLength,
}

// NewRedisCache serves repeated API reads from Redis.  Only 200 responses
// are stored, together with their resource headers; bodies above
// MaxBodyBytes are served but not stored.  A nil client disables caching.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					res := c.Response()
					restoreHeaders(res.Header(), hdr)
					res.Header().Set(headerXCache, "HIT")
					res.WriteHeader(status)
					_, err := res.Write(body)
					return err
				}
			} else if !errors.Is(err, redis.Nil) {
				log.Debug().Err(err).Str("key", key).Msg("cache: redis get failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set(headerXCache, "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}
			payload, err := encodePayload(cw.status, storableHeader(c.Response().Header()), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// The response is already written; a cancelled client must not
			// abort the store.
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
				log.Debug().Err(err).Str("key", key).Msg("cache: redis set failed")
			}
			return nil
		}
	}
}

// cacheKey hashes the route pattern with the sorted query string, so
// ?a=1&b=2 and ?b=2&a=1 share an entry.
func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.Query().Encode()))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// storableHeader is a copy of h without the per-request headers.
func storableHeader(h http.Header) http.Header {
	out := h.Clone()
	for _, k := range perRequestHeaders {
		out.Del(k)
	}
	return out
}

// restoreHeaders copies cached headers onto dst.  Keys dst already carries,
// such as the rate limiter's counters for this request, are left alone.
func restoreHeaders(dst, cached http.Header) {
	for k, vals := range cached {
		if _, set := dst[k]; set {
			continue
		}
		dst[k] = append([]string(nil), vals...)
	}
}

// captureWriter tees the response body into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	keep := b
	if cw.limit > 0 {
		room := max(cw.limit-cw.size, 0)
		keep = b[:min(int64(len(b)), room)]
	}
	cw.buf.Write(keep)
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// A payload is [status u32][header length u32][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if n > len(bs)-8 {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if n > 0 {
		if err := json.Unmarshal(bs[8:8+n], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return int(binary.BigEndian.Uint32(bs[0:4])), header, bs[8+n:], true
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
