package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupcart/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSnapshots(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	snaps := NewSnapshots(client, 10*time.Second)

	_, gen, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache is a miss")
	assert.Equal(t, int64(0), gen)

	g := models.NewGroup("owner", "Cached")
	g.ID = "g-1"
	g.Items["rice"] = models.GroupItem{ProductID: "rice", Quantity: 3}
	g.Payments["owner"] = models.Payment{UserID: "owner", HasPaid: true, Amount: decimal.RequireFromString("9.99")}
	require.NoError(t, snaps.Put(ctx, gen, []*models.Group{g}))

	groups, _, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, groups, 1)
	assert.Equal(t, "g-1", groups[0].ID)
	assert.Equal(t, 3, groups[0].Items["rice"].Quantity)
	assert.True(t, groups[0].Payments["owner"].Amount.Equal(decimal.RequireFromString("9.99")))
	assert.NotNil(t, groups[0].Participants)

	mr.FastForward(11 * time.Second)
	_, _, ok, err = snaps.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot expires after its TTL")
}

func TestSnapshots_EmptyListIsAHit(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	snaps := NewSnapshots(client, 0)

	require.NoError(t, snaps.Put(ctx, 0, nil))
	groups, _, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, groups)
}

func TestSnapshots_Invalidate(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	snaps := NewSnapshots(client, time.Minute)

	require.NoError(t, snaps.Put(ctx, 0, []*models.Group{models.NewGroup("o", "n")}))
	require.True(t, mr.Exists(SnapshotKey(0)))

	require.NoError(t, snaps.Invalidate(ctx))
	_, gen, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestSnapshots_PutAfterInvalidateIsNotServed(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	snaps := NewSnapshots(client, time.Minute)

	// A reader misses and goes to the store...
	_, gen, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	stale := []*models.Group{models.NewGroup("o", "before the write")}

	// ...a write commits and invalidates before the reader caches its result.
	require.NoError(t, snaps.Invalidate(ctx))
	require.NoError(t, snaps.Put(ctx, gen, stale))

	_, current, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a list read before the invalidation must not be served")

	fresh := []*models.Group{models.NewGroup("o", "after the write")}
	require.NoError(t, snaps.Put(ctx, current, fresh))
	groups, _, ok, err := snaps.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, groups, 1)
	assert.Equal(t, "after the write", groups[0].Name)
}

func TestSnapshots_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	snaps := NewSnapshots(client, time.Minute)
	mr.Close()

	_, _, _, err = snaps.Get(context.Background())
	assert.Error(t, err)
}

func TestDedup(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	dedup := NewDedup(client, "payments")

	seen, err := dedup.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, dedup.Mark(ctx, "evt-1"))
	seen, err = dedup.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.True(t, mr.Exists("groupcart:dedup:payments:evt-1"))
	assert.Equal(t, TTLDedup, mr.TTL("groupcart:dedup:payments:evt-1"))
}
