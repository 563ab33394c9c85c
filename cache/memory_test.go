package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-framework/strada/types"
)

func newTestCache(t *testing.T, params map[string]interface{}) types.CacheManager {
	t.Helper()

	mgr, err := NewMemoryCache(context.Background(), nil, &types.CacheConfig{
		Enabled: true,
		Type:    "memory",
		Config:  params,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Start())
	t.Cleanup(func() { _ = mgr.Stop() })

	return mgr
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := newTestCache(t, nil)

	require.NoError(t, c.Set("user:1", map[string]string{"name": "ada"}, time.Minute))

	value, ok := c.Get("user:1")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "ada"}, value)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := newTestCache(t, nil)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestMemoryCache_EmptyKeyRejected(t *testing.T) {
	c := newTestCache(t, nil)

	err := c.Set("", "value", time.Minute)
	assert.ErrorIs(t, err, types.ErrCacheKeyEmpty)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := newTestCache(t, nil)

	require.NoError(t, c.Set("short", "lived", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := newTestCache(t, nil)

	require.NoError(t, c.Set("key", "value", time.Minute))
	require.NoError(t, c.Delete("key"))

	_, ok := c.Get("key")
	assert.False(t, ok)

	assert.ErrorIs(t, c.Delete("key"), types.ErrCacheNotFound)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	c := newTestCache(t, nil)

	require.NoError(t, c.Set("a", 1, time.Minute))
	require.NoError(t, c.Set("b", 2, time.Minute))
	require.NoError(t, c.Set("c", 3, time.Minute))

	require.NoError(t, c.Invalidate("a", "c", "absent"))

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.False(t, ok)
}

func TestMemoryCache_EvictsOldestWhenFull(t *testing.T) {
	c := newTestCache(t, map[string]interface{}{"max_entries": 3})

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, time.Minute))
	}

	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest entry should have been evicted")

	for i := 1; i < 4; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok)
	}
}

func TestMemoryCache_Lifecycle(t *testing.T) {
	mgr, err := NewMemoryCache(context.Background(), nil, &types.CacheConfig{Enabled: true, Type: "memory"})
	require.NoError(t, err)

	assert.False(t, mgr.IsRunning())
	require.NoError(t, mgr.Start())
	assert.True(t, mgr.IsRunning())
	assert.ErrorIs(t, mgr.Start(), types.ErrServerAlreadyRunning)

	require.NoError(t, mgr.Stop())
	assert.False(t, mgr.IsRunning())
	assert.ErrorIs(t, mgr.Stop(), types.ErrServerNotRunning)
}

func TestNewCacheManager_Disabled(t *testing.T) {
	cfg := &types.ServiceConfig{Cache: &types.CacheConfig{Enabled: false}}
	_, err := NewCacheManager(context.Background(), staticConfig(cfg), nil)
	assert.ErrorIs(t, err, types.ErrCacheIsDisabled)
}

func TestNewCacheManager_UnknownType(t *testing.T) {
	cfg := &types.ServiceConfig{Cache: &types.CacheConfig{Enabled: true, Type: "memcached"}}
	_, err := NewCacheManager(context.Background(), staticConfig(cfg), nil)
	assert.ErrorIs(t, err, types.ErrCacheTypeUnknown)
}

type staticConfigManager struct {
	cfg *types.ServiceConfig
}

func staticConfig(cfg *types.ServiceConfig) types.ConfigManager {
	return &staticConfigManager{cfg: cfg}
}

func (s *staticConfigManager) Load() error { return nil }

func (s *staticConfigManager) GetConfig() *types.ServiceConfig { return s.cfg }

func (s *staticConfigManager) GetValue(path string, defaultValue interface{}) interface{} {
	return defaultValue
}
