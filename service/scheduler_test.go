package service

import (
	"context"
	"testing"
	"time"

	"jars/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Every(t *testing.T) {
	s := NewScheduler()

	_, err := s.Every(0, "bad", func() {})
	assert.Error(t, err)

	_, err = s.Every(time.Minute, "noop", func() {})
	require.NoError(t, err)
	_, err = s.Every(500*time.Millisecond, "fast", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	s.Stop()
}

func TestPurgeExpiredJob(t *testing.T) {
	store := cache.NewMemoryStore(10, time.Millisecond)
	require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
	time.Sleep(5 * time.Millisecond)

	PurgeExpiredJob(store)()

	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRefresher(t *testing.T) {
	_, err := NewCacheRefresher(nil, nil, "refresh(); DROP TABLE users")
	assert.Error(t, err)

	store := cache.NewMemoryStore(10, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, cache.DashboardKey(7, 0), []byte("{}")))
	require.NoError(t, store.Set(ctx, cache.DashboardKey(8, 0), []byte("{}")))

	r, err := NewCacheRefresher(store, nil, "refresh_user_jar_balances")
	require.NoError(t, err)
	require.NoError(t, r.Invalidate(ctx, 7))
	// 非 postgres 时 Refresh 不做任何事
	require.NoError(t, r.Refresh(ctx, 7))

	gen, err := store.Counter(ctx, cache.DashboardGenKey(7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	_, ok, _ := store.Get(ctx, cache.DashboardKey(7, 0))
	assert.False(t, ok)

	gen, _ = store.Counter(ctx, cache.DashboardGenKey(8))
	assert.Zero(t, gen)
	_, ok, _ = store.Get(ctx, cache.DashboardKey(8, 0))
	assert.True(t, ok)

	assert.NoError(t, InvalidateDashboard(ctx, nil, 7))
}
