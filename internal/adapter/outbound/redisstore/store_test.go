package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openheads/headcatalog/internal/domain/favorite"
)

// newTestStore runs an in-process Redis server for the test.
func newTestStore(t *testing.T) (*FavoriteStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "headcatalog")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedis_AddListOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))
	require.NoError(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	require.NoError(t, store.Add(ctx, "alice", "Animals", "Axolotl"))

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []favorite.Record{
		{UserID: "alice", Category: "VIP", Item: "Dragon"},
		{UserID: "alice", Category: "Mobs", Item: "Creeper"},
		{UserID: "alice", Category: "Animals", Item: "Axolotl"},
	}, list)
}

func TestRedis_AddIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))
	require.NoError(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []favorite.Record{
		{UserID: "alice", Category: "VIP", Item: "Dragon"},
		{UserID: "alice", Category: "Mobs", Item: "Creeper"},
	}, list)

	// A repeated add keeps the original position and burns no sequence number.
	score, err := mr.ZScore("headcatalog:favorites:alice", member("VIP", "Dragon"))
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
	seq, err := mr.Get("headcatalog:favorites_seq:alice")
	require.NoError(t, err)
	assert.Equal(t, "2", seq)
}

func TestRedis_ReAddAfterRemoveMovesToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))
	require.NoError(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	require.NoError(t, store.Remove(ctx, "alice", "VIP", "Dragon"))
	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []favorite.Record{
		{UserID: "alice", Category: "Mobs", Item: "Creeper"},
		{UserID: "alice", Category: "VIP", Item: "Dragon"},
	}, list)
}

func TestRedis_HasRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	has, err := store.Has(ctx, "alice", "Mobs", "Creeper")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.Has(ctx, "bob", "Mobs", "Creeper")
	require.NoError(t, err)
	assert.False(t, has, "favorites are per user")

	require.NoError(t, store.Remove(ctx, "alice", "Mobs", "Creeper"))
	has, err = store.Has(ctx, "alice", "Mobs", "Creeper")
	require.NoError(t, err)
	assert.False(t, has)

	// Removing an absent favorite is not an error.
	require.NoError(t, store.Remove(ctx, "alice", "Mobs", "Creeper"))

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedis_ServerDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Ping(ctx))
	mr.Close()

	assert.Error(t, store.Ping(ctx))
	assert.Error(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	_, err := store.Has(ctx, "alice", "Mobs", "Creeper")
	assert.Error(t, err)
	_, err = store.List(ctx, "alice")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := Open(ctx, mr.Addr(), 0, "headcatalog")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	assert.True(t, mr.Exists("headcatalog:favorites:alice"))

	addr := mr.Addr()
	mr.Close()
	_, err = Open(ctx, addr, 0, "headcatalog")
	assert.Error(t, err)
}

// TestRedis_LiveServer repeats the ordering check against a real server when
// HEADCATALOG_TEST_REDIS_ADDR is set.
func TestRedis_LiveServer(t *testing.T) {
	addr := os.Getenv("HEADCATALOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HEADCATALOG_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	prefix := fmt.Sprintf("headcatalog-test-%d", time.Now().UnixNano())
	store, err := Open(ctx, addr, 0, prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := store.client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			store.client.Del(context.Background(), keys...)
		}
		_ = store.Close()
	})

	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))
	require.NoError(t, store.Add(ctx, "alice", "Mobs", "Creeper"))
	require.NoError(t, store.Add(ctx, "alice", "VIP", "Dragon"))

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []favorite.Record{
		{UserID: "alice", Category: "VIP", Item: "Dragon"},
		{UserID: "alice", Category: "Mobs", Item: "Creeper"},
	}, list)
}

func TestMember_SplitsOnSeparator(t *testing.T) {
	t.Parallel()

	m := member("Mobs", "Creeper Head")
	assert.Equal(t, "Mobs\x1fCreeper Head", m)
}
