package middleware

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
)

const MaxMiddlewares = 64

// Registry collects global middleware and freezes them into a weight-ordered
// chain. Registration is rejected after Finalize so the dispatcher can hold
// the ordered slice without further locking.
type Registry struct {
	logger    types.Logger
	entries   map[string]*types.MiddlewareEntry
	ordered   []types.MiddlewareEntry
	mu        sync.Mutex
	finalized int32
}

func NewRegistry(logger types.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[string]*types.MiddlewareEntry),
	}
}

func (r *Registry) Register(mw types.Middleware) error {
	if mw == nil {
		return types.ErrMiddlewareInvalidType
	}

	if atomic.LoadInt32(&r.finalized) == 1 {
		return types.ErrMiddlewareFinalized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= MaxMiddlewares {
		return types.NewErrorf("maximum middleware count exceeded: %d", MaxMiddlewares)
	}

	r.entries[mw.Name()] = &types.MiddlewareEntry{
		Name:       mw.Name(),
		Middleware: mw,
		Weight:     mw.Weight(),
	}
	return nil
}

// Finalize orders the registered middleware by weight. Duplicate weights are
// an error: the chain order must be total and deterministic.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&r.finalized, 0, 1) {
		return types.ErrMiddlewareFinalized
	}

	weights := make(map[int]string, len(r.entries))
	for name, entry := range r.entries {
		if existing, exists := weights[entry.Weight]; exists {
			atomic.StoreInt32(&r.finalized, 0)
			return types.NewErrorf("duplicate weight %d for middlewares '%s' and '%s'",
				entry.Weight, existing, name)
		}
		weights[entry.Weight] = name
	}

	r.ordered = make([]types.MiddlewareEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		r.ordered = append(r.ordered, *entry)
	}

	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Weight < r.ordered[j].Weight
	})

	return nil
}

// Entries returns the finalized chain in execution order.
func (r *Registry) Entries() []types.MiddlewareEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordered
}

// RegisterFromConfig builds and registers every middleware the config
// enables. Weights come from the config so deployments control chain order.
func (r *Registry) RegisterFromConfig(ctx context.Context, config types.ConfigManager, cache types.CacheManager, metrics types.MetricsManager) error {
	mwConfig := config.GetConfig().Middlewares
	if mwConfig == nil || !mwConfig.Enabled {
		return nil
	}

	if item := mwConfig.RequestID; item != nil && item.Enabled {
		if err := r.Register(NewRequestIDMiddleware(config, r.logger)); err != nil {
			return err
		}
	}

	if item := mwConfig.AccessLog; item != nil && item.Enabled {
		if err := r.Register(NewAccessLogMiddleware(config, r.logger)); err != nil {
			return err
		}
	}

	if item := mwConfig.CORS; item != nil && item.Enabled {
		if err := r.Register(NewCORSMiddleware(config, r.logger)); err != nil {
			return err
		}
	}

	if item := mwConfig.BodyLimit; item != nil && item.Enabled {
		if err := r.Register(NewBodyLimitMiddleware(config, r.logger)); err != nil {
			return err
		}
	}

	if item := mwConfig.Auth; item != nil && item.Enabled {
		if err := r.Register(NewAuthMiddleware(config, r.logger)); err != nil {
			return err
		}
	}

	if item := mwConfig.Cache; item != nil && item.Enabled && cache != nil {
		if err := r.Register(NewCacheMiddleware(config, r.logger, cache)); err != nil {
			return err
		}
	}

	if item := mwConfig.Metrics; item != nil && item.Enabled && metrics != nil {
		if err := r.Register(NewMetricsMiddleware(config, r.logger, metrics)); err != nil {
			return err
		}
	}

	if item := mwConfig.Compression; item != nil && item.Enabled {
		if err := r.Register(NewCompressionMiddleware(config, r.logger)); err != nil {
			return err
		}
	}

	if err := r.Finalize(); err != nil {
		return err
	}

	r.logger.Info("Middleware chain finalized", zap.Int("count", len(r.ordered)))
	return nil
}
