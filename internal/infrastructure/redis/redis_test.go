package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestCatalogCache(t *testing.T) {
	server, client := newTestRedis(t)
	cache := NewCatalogCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "1001", &domain.ReferenceItem{SkuID: "1001", Name: "Basmati", SystemQuantity: 4}))
	item, ok, err := cache.Get(ctx, "1001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Basmati", item.Name)
	assert.Equal(t, time.Minute, server.TTL(catalogKey))

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, err = cache.Get(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogCache_CorruptValueIsMiss(t *testing.T) {
	server, client := newTestRedis(t)
	server.HSet(catalogKey, "bad", "{not json")

	_, ok, err := NewCatalogCache(client, 0).Get(context.Background(), "bad")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogCache_Unavailable(t *testing.T) {
	server, client := newTestRedis(t)
	server.Close()

	_, _, err := NewCatalogCache(client, time.Minute).Get(context.Background(), "1001")

	assert.Error(t, err)
}

func TestUploadLocker(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewUploadLocker(client, nil)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "reference-upload")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "reference-upload")
	assert.ErrorIs(t, err, application.ErrUploadInProgress)

	other, err := locker.Lock(ctx, "roster-upload")
	require.NoError(t, err)
	other()

	unlock()
	again, err := locker.Lock(ctx, "reference-upload")
	require.NoError(t, err)
	again()
}

func TestLimiterStore(t *testing.T) {
	_, client := newTestRedis(t)
	store, err := NewLimiterStore(client)
	require.NoError(t, err)

	rate, err := limiter.NewRateFromFormatted("2-M")
	require.NoError(t, err)
	instance := limiter.New(store, rate)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := instance.Get(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, res.Reached)
	}
	res, err := instance.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Reached)
}
