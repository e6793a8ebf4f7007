package balances

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedReader wraps another Reader with a Redis cache. Wallet balance
// lookups are comparatively expensive (they fan out to RPC nodes), so the
// reconciliation and diagnosis paths read through this cache.
type CachedReader struct {
	inner  Reader
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedReader creates a read-through cache around inner.
func NewCachedReader(inner Reader, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedReader {
	return &CachedReader{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(accountID string) string {
	return fmt.Sprintf("balances:%s", accountID)
}

// GetBalances returns the cached snapshot when present, otherwise reads
// from the inner reader and populates the cache. Cache failures degrade to
// the inner reader, never to an error.
func (r *CachedReader) GetBalances(ctx context.Context, accountID string) (Snapshot, error) {
	key := cacheKey(accountID)

	raw, err := r.client.Get(ctx, key).Result()
	if err == nil {
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			return snap, nil
		}
		// Corrupt cache entry: drop it and fall through to the inner reader.
		r.logger.Warn("dropping corrupt balance cache entry", "account", accountID)
		r.client.Del(ctx, key)
	} else if err != redis.Nil {
		r.logger.Warn("balance cache read failed", "account", accountID, "error", err)
	}

	snap, err := r.inner.GetBalances(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(snap); err == nil {
		if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			r.logger.Warn("balance cache write failed", "account", accountID, "error", err)
		}
	}

	return snap, nil
}

// Invalidate removes the cached snapshot for an account, forcing the next
// read to hit the inner reader.
func (r *CachedReader) Invalidate(ctx context.Context, accountID string) error {
	return r.client.Del(ctx, cacheKey(accountID)).Err()
}
