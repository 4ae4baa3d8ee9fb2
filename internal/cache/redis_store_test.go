package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/scrollkit/cardfeed/pkg/config"
)

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(&config.RedisConfig{URL: "redis://" + mr.Addr(), Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_PutGet(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	payload := []byte(`{"query":{"search":[{"pageid":1}]}}`)

	require.NoError(t, store.Put(ctx, "wikipedia", "mars|5", payload, now, now.Add(time.Hour)))

	got, ok, err := store.Get(ctx, "wikipedia", "mars|5", now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, string(payload), string(got))

	// The key itself carries the remaining lifetime.
	ttl := mr.TTL(store.entryKey("wikipedia", "mars|5"))
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Hour)

	// Other providers never see the entry.
	_, ok, err = store.Get(ctx, "nasa", "mars|5", now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, "nasa", "apollo|3", []byte(`{"v":1}`), now, now.Add(time.Hour)))

	// Past the envelope expiry the entry is a miss even while the key lives.
	_, ok, err := store.Get(ctx, "nasa", "apollo|3", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	// Once redis drops the key, the read is a plain miss.
	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Get(ctx, "nasa", "apollo|3", now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStore_MissingKey(t *testing.T) {
	store, _ := newMiniRedisStore(t)

	got, ok, err := store.Get(context.Background(), "wikipedia", "never written", time.Now())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
}

func TestRedisStore_SkipsExpiredWrites(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, "nasa", "old|3", []byte(`{}`), now, now))
	require.False(t, mr.Exists(store.entryKey("nasa", "old|3")))
}

func TestRedisStore_BehindResponseCache(t *testing.T) {
	store, _ := newMiniRedisStore(t)
	ctx := context.Background()
	clock := time.Now().UTC()
	rc := NewResponseCache(store, time.Hour).WithClock(func() time.Time { return clock })

	rc.Put(ctx, "wikipedia", "venus|5", []byte(`{"ok":true}`))
	got, ok := rc.Get(ctx, "wikipedia", "venus|5")
	require.True(t, ok)
	require.JSONEq(t, `{"ok":true}`, string(got))

	clock = clock.Add(2 * time.Hour)
	_, ok = rc.Get(ctx, "wikipedia", "venus|5")
	require.False(t, ok)
}

func TestRedisStore_Health(t *testing.T) {
	store, mr := newMiniRedisStore(t)

	require.NoError(t, store.Health(context.Background()))
	mr.Close()
	require.Error(t, store.Health(context.Background()))
}
