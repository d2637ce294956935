package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitedError reports an exceeded quota. It is an expected outcome, not
// a system failure: callers branch on it and surface the retry hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Governor counts requests per caller key within fixed windows in the shared
// fast store. The first increment of a window sets the key's TTL; when the
// TTL lapses the counter vanishes and the window starts over.
type Governor struct {
	rdb    *redis.Client
	prefix string
}

// NewGovernor builds a governor whose keys live under the given prefix.
func NewGovernor(rdb *redis.Client, prefix string) *Governor {
	if prefix == "" {
		prefix = "rl"
	}
	return &Governor{rdb: rdb, prefix: prefix}
}

// Check atomically increments the counter for {scope, callerKey} and fails
// with *RateLimitedError once the window's count exceeds limit. Store errors
// are wrapped in ErrStoreUnavailable; callers reject rather than let an
// outage disable throttling.
func (g *Governor) Check(ctx context.Context, scope, callerKey string, limit int, window time.Duration) error {
	key := g.prefix + ":" + scope + ":" + callerKey

	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		if err := g.rdb.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if count > int64(limit) {
		retry := window
		// The live TTL gives the caller an exact hint; fall back to the
		// full window when it cannot be read.
		if ttl, err := g.rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			retry = ttl
		}
		return &RateLimitedError{RetryAfter: retry}
	}
	return nil
}
