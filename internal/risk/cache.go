package risk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultCacheTTL is how long a classification result is reused
	DefaultCacheTTL = 24 * time.Hour

	cacheKeyPrefix = "mailguard:risk:"
)

// CachedBackend memoizes validated classifier results in Redis, keyed by
// a digest of the request. Redis failures fall through to the wrapped backend.
type CachedBackend struct {
	next   Backend
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedBackend wraps next with a Redis cache
func NewCachedBackend(next Backend, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedBackend {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedBackend{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// Analyze implements Backend
func (c *CachedBackend) Analyze(ctx context.Context, req Request) (*RawAssessment, error) {
	key := CacheKey(req)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var raw RawAssessment
		if jsonErr := json.Unmarshal(cached, &raw); jsonErr == nil {
			return &raw, nil
		}
	case !errors.Is(err, redis.Nil):
		c.warn("risk cache read failed", err)
	}

	raw, err := c.next.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	// Only payloads that pass validation are worth remembering.
	if _, vErr := Validate(raw); vErr == nil {
		if data, mErr := json.Marshal(raw); mErr == nil {
			if sErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); sErr != nil {
				c.warn("risk cache write failed", sErr)
			}
		}
	}
	return raw, nil
}

func (c *CachedBackend) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.Any("error", err))
	}
}

// CacheKey returns the Redis key for a request
func CacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Subject))
	h.Write([]byte{0})
	h.Write([]byte(req.Body))
	h.Write([]byte{0})
	h.Write([]byte(req.AttachmentName))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
