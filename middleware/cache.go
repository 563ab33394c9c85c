package middleware

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

type CacheMiddlewareConfig struct {
	TTL       time.Duration `json:"ttl"`
	MaxStatus int           `json:"max_status"`
}

// CacheMiddleware serves repeat GET requests from the cache manager. A hit
// short-circuits the pipeline; a miss registers a transform that stores the
// final response.
type CacheMiddleware struct {
	logger      types.Logger
	cache       types.CacheManager
	cacheConfig *CacheMiddlewareConfig
	name        string
	weight      int
}

func NewCacheMiddleware(config types.ConfigManager, logger types.Logger, cache types.CacheManager) *CacheMiddleware {
	cacheConfig := &CacheMiddlewareConfig{
		TTL:       5 * time.Minute,
		MaxStatus: 299,
	}

	item := config.GetConfig().Middlewares.Cache
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, cacheConfig); err != nil {
			logger.Error("Failed to unmarshal cache middleware config", zap.Error(err))
		}
	}

	return &CacheMiddleware{
		name:        "cache",
		weight:      item.Weight,
		logger:      logger,
		cache:       cache,
		cacheConfig: cacheConfig,
	}
}

func (c *CacheMiddleware) Name() string { return c.name }
func (c *CacheMiddleware) Weight() int  { return c.weight }

func (c *CacheMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	if rc.Method != fasthttp.MethodGet {
		return types.Continue()
	}

	key := c.buildKey(rc)

	if value, ok := c.cache.Get(key); ok {
		if resp, decoded := decodeCachedResponse(value); decoded {
			resp.SetHeader("X-Cache", "HIT")
			return types.Respond(resp)
		}
	}

	ttl := c.cacheConfig.TTL
	maxStatus := c.cacheConfig.MaxStatus

	return types.Transform(func(resp *types.Response) *types.Response {
		if resp.Status <= maxStatus {
			// Store a snapshot: transforms running after this one still
			// mutate resp in place.
			if err := c.cache.Set(key, snapshotResponse(resp), ttl); err != nil {
				c.logger.Warn("Failed to store response in cache",
					zap.String("key", key), zap.Error(err))
			}
		}
		resp.SetHeader("X-Cache", "MISS")
		return resp
	})
}

// buildKey folds the path and the sorted query into a stable cache key.
func (c *CacheMiddleware) buildKey(rc *types.RequestContext) string {
	if len(rc.Query) == 0 {
		return "response:" + rc.Path
	}

	keys := make([]string, 0, len(rc.Query))
	for k := range rc.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("response:")
	sb.WriteString(rc.Path)
	sb.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(rc.Query[k])
	}
	return sb.String()
}

func snapshotResponse(resp *types.Response) *types.Response {
	clone := &types.Response{
		Status:  resp.Status,
		Headers: make(map[string]string, len(resp.Headers)),
		Body:    append([]byte(nil), resp.Body...),
	}
	for k, v := range resp.Headers {
		clone.Headers[k] = v
	}
	return clone
}

// decodeCachedResponse accepts both the in-process form (*types.Response)
// and the JSON round-tripped form the redis backend returns.
func decodeCachedResponse(value interface{}) (*types.Response, bool) {
	switch v := value.(type) {
	case *types.Response:
		clone := *v
		clone.Headers = make(map[string]string, len(v.Headers)+1)
		for k, val := range v.Headers {
			clone.Headers[k] = val
		}
		return &clone, true
	default:
		resp := &types.Response{}
		if err := utils.UnmarshalConfig(value, resp); err != nil {
			return nil, false
		}
		if resp.Status == 0 {
			return nil, false
		}
		return resp, true
	}
}
