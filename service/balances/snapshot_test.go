package balances

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Totals(t *testing.T) {
	snap := Snapshot{
		"usdc": {"solana": 5, "base": 8},
		"sol":  {"solana": 1.5},
	}

	assert.Equal(t, 14.5, snap.Total())
	assert.Equal(t, 13.0, snap.TokenTotal("usdc"))
	assert.Equal(t, 0.0, snap.TokenTotal("eth"))
	assert.Nil(t, snap.Chains("eth"))
}

func TestStaticReader_UnknownAccount(t *testing.T) {
	r := NewStaticReader(nil)

	snap, err := r.GetBalances(context.Background(), AccountSavings)
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Total())
}

func TestCachedReader_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	inner := NewStaticReader(map[string]Snapshot{
		AccountDaily: {"usdc": {"base": 10}},
	})
	cached := NewCachedReader(inner, client, time.Minute, logger)

	ctx := context.Background()

	snap, err := cached.GetBalances(ctx, AccountDaily)
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.TokenTotal("usdc"))

	// Mutating the inner reader must not be visible until the cache entry
	// expires or is invalidated.
	inner.Set(AccountDaily, Snapshot{"usdc": {"base": 99}})

	snap, err = cached.GetBalances(ctx, AccountDaily)
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.TokenTotal("usdc"))

	require.NoError(t, cached.Invalidate(ctx, AccountDaily))

	snap, err = cached.GetBalances(ctx, AccountDaily)
	require.NoError(t, err)
	assert.Equal(t, 99.0, snap.TokenTotal("usdc"))
}

func TestCachedReader_RedisDownFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	inner := NewStaticReader(map[string]Snapshot{
		AccountDaily: {"sol": {"solana": 2}},
	})
	cached := NewCachedReader(inner, client, time.Minute, logger)

	mr.Close()

	snap, err := cached.GetBalances(context.Background(), AccountDaily)
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap.TokenTotal("sol"))
}
