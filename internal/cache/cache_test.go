package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/carbonledger/api/internal/cache"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(0, 0)
	defer c.Close()

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", []byte("value"), time.Minute))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), v)

		require.NoError(t, c.Delete(ctx, "k"))
		_, err = c.Get(ctx, "k")
		assert.ErrorIs(t, err, cache.ErrKeyNotFound)
	})

	t.Run("expired keys are gone", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", []byte("x"), -time.Second))
		ok, err := c.Exists(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = c.Get(ctx, "short")
		assert.ErrorIs(t, err, cache.ErrKeyNotFound)
	})

	t.Run("delete pattern", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gen:a", []byte("1"), time.Minute))
		require.NoError(t, c.Set(ctx, "gen:b", []byte("2"), time.Minute))
		require.NoError(t, c.Set(ctx, "other", []byte("3"), time.Minute))
		require.NoError(t, c.DeletePattern(ctx, "gen:*"))

		ok, _ := c.Exists(ctx, "gen:a")
		assert.False(t, ok)
		ok, _ = c.Exists(ctx, "other")
		assert.True(t, ok)
	})
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(2, 0)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "soon", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "late", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	ok, _ := c.Exists(ctx, "soon")
	assert.False(t, ok)
	ok, _ = c.Exists(ctx, "late")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryCache(0, 0)
	svc := cache.NewStore(backend, cache.StoreConfig{Enabled: true, Prefix: "test"})

	type row struct {
		Scope1 float64 `json:"scope1"`
	}
	require.NoError(t, svc.Put(ctx, "gen:1", row{Scope1: 4.5}, 0))

	var got row
	require.NoError(t, svc.Get(ctx, "gen:1", &got))
	assert.Equal(t, 4.5, got.Scope1)

	raw, err := backend.Get(ctx, "test:gen:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"scope1":4.5}`, string(raw))

	require.NoError(t, svc.Invalidate(ctx, "gen:*"))
	assert.ErrorIs(t, svc.Get(ctx, "gen:1", &got), cache.ErrKeyNotFound)

	a := cache.Key("gen", map[string]interface{}{"b": 1, "a": "x"})
	b := cache.Key("gen", map[string]interface{}{"a": "x", "b": 1})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, cache.Key("gen", map[string]interface{}{"a": "y", "b": 1}))
}

func TestStore_Disabled(t *testing.T) {
	svc := cache.NewStore(cache.NewMemoryCache(0, 0), cache.StoreConfig{})
	var out string
	assert.False(t, svc.IsEnabled())
	assert.ErrorIs(t, svc.Get(context.Background(), "k", &out), cache.ErrCacheDisabled)
	assert.ErrorIs(t, svc.Put(context.Background(), "k", "v", 0), cache.ErrCacheDisabled)
}

func TestRevocations(t *testing.T) {
	ctx := context.Background()
	services, err := cache.NewServices(platformconfig.CacheConfig{Enabled: false})
	require.NoError(t, err)
	defer services.Close()

	assert.False(t, services.Lookups.IsEnabled())

	revoked, err := services.Revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, services.Revocations.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = services.Revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, services.Revocations.Revoke(ctx, "jti-2", time.Now().Add(-time.Hour)))
	revoked, _ = services.Revocations.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)
}

func TestNewBackend_InvalidType(t *testing.T) {
	_, err := cache.NewBackend(platformconfig.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.ErrorIs(t, err, cache.ErrInvalidBackend)
}

func TestServicesCollector(t *testing.T) {
	ctx := context.Background()
	services, err := cache.NewServices(platformconfig.CacheConfig{Enabled: true, Backend: "memory"})
	require.NoError(t, err)
	defer services.Close()

	var out bool
	_ = services.Lookups.Get(ctx, "missing", &out)
	require.NoError(t, services.Lookups.Put(ctx, "present", true, 0))
	require.NoError(t, services.Lookups.Get(ctx, "present", &out))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(services.Collector()))
	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			values[mf.GetName()] = m.GetCounter().GetValue()
		} else {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["carbon_ledger_cache_hits_total"])
	assert.Equal(t, 1.0, values["carbon_ledger_cache_misses_total"])
	assert.Equal(t, 1.0, values["carbon_ledger_cache_keys"])
}
