package utility

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	svc := NewMemoryCacheService().(*memoryCacheService)
	defer svc.Stop()
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", 42, 0))
	v, err := svc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	require.NoError(t, svc.Delete(ctx, "k"))
	v, err = svc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMemoryCache_Expiration(t *testing.T) {
	svc := NewMemoryCacheService().(*memoryCacheService)
	defer svc.Stop()
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	v, err := svc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMemoryCache_IncrementConcurrent(t *testing.T) {
	svc := NewMemoryCacheService().(*memoryCacheService)
	defer svc.Stop()
	ctx := context.Background()

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementWithTTL(ctx, "counter", time.Hour)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := svc.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "500", v)
}

func TestMemoryCache_IncrementWithTTL(t *testing.T) {
	svc := NewMemoryCacheService().(*memoryCacheService)
	defer svc.Stop()
	ctx := context.Background()

	n, err := svc.IncrementWithTTL(ctx, "c", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// 后续递增不会延长过期时间
	time.Sleep(20 * time.Millisecond)
	n, err = svc.IncrementWithTTL(ctx, "c", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	time.Sleep(20 * time.Millisecond)
	v, err := svc.Get(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, v)

	// 过期后重新从 1 开始
	n, err = svc.IncrementWithTTL(ctx, "c", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCache_IncrementNonInteger(t *testing.T) {
	svc := NewMemoryCacheService().(*memoryCacheService)
	defer svc.Stop()
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "c", "abc", 0))
	_, err := svc.IncrementWithTTL(ctx, "c", time.Hour)
	assert.Error(t, err)
}

func TestNewCacheServiceWithFallback(t *testing.T) {
	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = unreachable.Close() })

	tests := []struct {
		name   string
		client *redis.Client
	}{
		{"未配置Redis", nil},
		{"Redis不可达", unreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCacheServiceWithFallback(context.Background(), tt.client)
			assert.Equal(t, CacheTypeMemory, GetCacheServiceType(svc))

			n, err := svc.IncrementWithTTL(context.Background(), "downloads", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			svc.(*memoryCacheService).Stop()
		})
	}
}
