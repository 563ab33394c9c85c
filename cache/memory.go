package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

const (
	MaxTTL     = 24 * time.Hour
	DefaultTTL = 1 * time.Hour
)

type MemoryConfig struct {
	MaxEntries      int    `json:"max_entries"`
	CleanupInterval string `json:"cleanup_interval"`
}

// MemoryCache is an in-process TTL cache with FIFO eviction and a janitor
// goroutine sweeping expired entries.
type MemoryCache struct {
	ctx         context.Context
	cancel      context.CancelFunc
	config      *MemoryConfig
	logger      types.Logger
	data        map[string]*types.CacheEntry
	order       []string
	hits        uint64
	misses      uint64
	evictions   uint64
	mu          sync.RWMutex
	running     int32
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewMemoryCache(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.CacheManager, error) {
	memConfig := &MemoryConfig{
		MaxEntries:      10000,
		CleanupInterval: "5m",
	}
	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, memConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal memory cache config")
		}
	}

	cacheCtx, cancel := context.WithCancel(ctx)

	return &MemoryCache{
		ctx:         cacheCtx,
		cancel:      cancel,
		config:      memConfig,
		logger:      logger,
		data:        make(map[string]*types.CacheEntry),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}, nil
}

func (m *MemoryCache) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	interval, err := time.ParseDuration(m.config.CleanupInterval)
	if err != nil || interval <= 0 {
		interval = 5 * time.Minute
	}

	go m.cleanupLoop(interval)

	if m.logger != nil {
		m.logger.Info("Memory cache started",
			zap.Int("max_entries", m.config.MaxEntries),
			zap.Duration("cleanup_interval", interval))
	}

	return nil
}

func (m *MemoryCache) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServerNotRunning
	}

	close(m.stopCleanup)
	<-m.cleanupDone
	m.cancel()

	m.mu.Lock()
	m.data = make(map[string]*types.CacheEntry)
	m.order = nil
	m.mu.Unlock()

	return nil
}

func (m *MemoryCache) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemoryCache) Get(key string) (interface{}, bool) {
	now := time.Now()

	m.mu.RLock()
	entry, exists := m.data[key]
	if !exists {
		m.mu.RUnlock()
		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
		m.mu.RUnlock()

		m.mu.Lock()
		if entry, exists := m.data[key]; exists && now.After(entry.ExpiresAt) {
			m.removeUnsafe(key)
		}
		m.mu.Unlock()

		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	value := entry.Value
	m.mu.RUnlock()

	atomic.AddUint64(&m.hits, 1)
	return value, true
}

func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	now := time.Now()
	entry := &types.CacheEntry{
		Key:       key,
		Value:     value,
		TTL:       ttl,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		if m.config.MaxEntries > 0 && len(m.data) >= m.config.MaxEntries {
			m.evictOldestUnsafe()
		}
		m.order = append(m.order, key)
	}

	m.data[key] = entry
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return types.ErrCacheNotFound
	}
	m.removeUnsafe(key)
	return nil
}

func (m *MemoryCache) Invalidate(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if _, exists := m.data[key]; exists {
			m.removeUnsafe(key)
		}
	}
	return nil
}

func (m *MemoryCache) removeUnsafe(key string) {
	delete(m.data, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *MemoryCache) evictOldestUnsafe() {
	if len(m.order) == 0 {
		return
	}
	oldest := m.order[0]
	m.order = m.order[1:]
	delete(m.data, oldest)
	atomic.AddUint64(&m.evictions, 1)
}

func (m *MemoryCache) cleanupLoop(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepExpired()
		case <-m.stopCleanup:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *MemoryCache) sweepExpired() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.data {
		if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
			m.removeUnsafe(key)
		}
	}
}
