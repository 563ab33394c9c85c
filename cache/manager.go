package cache

import (
	"context"

	"github.com/strada-framework/strada/types"
)

// NewCacheManager builds the backend named by the cache config. The cache
// is optional infrastructure: callers get ErrCacheIsDisabled when the
// config turns it off and should degrade rather than fail.
func NewCacheManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.CacheManager, error) {
	cacheConfig := config.GetConfig().Cache
	if cacheConfig == nil || !cacheConfig.Enabled {
		return nil, types.ErrCacheIsDisabled
	}

	switch cacheConfig.Type {
	case "memory":
		return NewMemoryCache(ctx, logger, cacheConfig)
	case "redis":
		return NewRedisCache(ctx, logger, cacheConfig)
	default:
		return nil, types.Errorf(types.ErrCacheTypeUnknown, "type: %s", cacheConfig.Type)
	}
}
