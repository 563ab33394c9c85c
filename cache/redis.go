package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	KeyPrefix    string        `json:"key_prefix"`
}

// RedisCache stores values JSON-encoded under a configurable key prefix.
type RedisCache struct {
	ctx     context.Context
	logger  types.Logger
	config  *RedisConfig
	client  *redis.Client
	running int32
}

func NewRedisCache(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.CacheManager, error) {
	redisConfig := &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "strada",
	}
	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis cache config")
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	return &RedisCache{
		ctx:    ctx,
		logger: logger,
		config: redisConfig,
		client: client,
	}, nil
}

func (r *RedisCache) Start() error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	pingCtx, cancel := context.WithTimeout(r.ctx, r.config.DialTimeout)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		atomic.StoreInt32(&r.running, 0)
		return types.Errorf(types.ErrCacheConnectionFailed, "%v", err)
	}

	if r.logger != nil {
		r.logger.Info("Redis cache started",
			zap.String("addr", fmt.Sprintf("%s:%d", r.config.Host, r.config.Port)),
			zap.String("prefix", r.config.KeyPrefix))
	}

	return nil
}

func (r *RedisCache) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.running, 1, 0) {
		return types.ErrServerNotRunning
	}
	return r.client.Close()
}

func (r *RedisCache) IsRunning() bool {
	return atomic.LoadInt32(&r.running) == 1
}

func (r *RedisCache) Get(key string) (interface{}, bool) {
	data, err := r.client.Get(r.ctx, r.prefixed(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var value interface{}
	if err := utils.Unmarshal(data, &value); err != nil {
		if r.logger != nil {
			r.logger.Warn("Failed to decode cached value", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	return value, true
}

func (r *RedisCache) Set(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	data, err := utils.Marshal(value)
	if err != nil {
		return types.WrapError(err, "failed to encode cache value")
	}

	return r.client.Set(r.ctx, r.prefixed(key), data, ttl).Err()
}

func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.prefixed(key)).Err()
}

func (r *RedisCache) Invalidate(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefixed(key)
	}

	return r.client.Del(r.ctx, prefixed...).Err()
}

func (r *RedisCache) prefixed(key string) string {
	return r.config.KeyPrefix + ":" + key
}
