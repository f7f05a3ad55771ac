// internal/cache/forecast_cache.go

// Package cache provides a read-through cache for forecast and projection
// responses. Redis backs it when configured; otherwise a noop implementation
// keeps the service layer unconditional.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/brazaops/stockcast/internal/config"
	"github.com/brazaops/stockcast/internal/domain"
)

// ForecastCache caches computed forecast and projection payloads. A cache
// miss is (nil, nil); errors are reserved for transport failures.
type ForecastCache interface {
	GetForecast(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error)
	SetForecast(ctx context.Context, skuCode, account string, rows []domain.DatedQuantity) error

	GetProjection(ctx context.Context, skuCode string) ([]domain.ProjectionPoint, error)
	SetProjection(ctx context.Context, skuCode string, points []domain.ProjectionPoint) error

	// InvalidateSKU drops every cached payload for a SKU, across accounts.
	InvalidateSKU(ctx context.Context, skuCode string) error

	// Flush drops all cached payloads. Called after a full forecast run.
	Flush(ctx context.Context) error
}

const keyPrefix = "stockcast:"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and returns a ForecastCache backed by it.
// When caching is disabled or the server is unreachable, it falls back to
// the noop cache so callers never have to branch.
func NewRedisCache(ctx context.Context, cfg *config.CacheConfig) ForecastCache {
	if !cfg.Enabled {
		log.Info().Msg("cache: disabled by configuration")
		return NewNoopCache()
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cache: invalid redis configuration, caching disabled")
		return NewNoopCache()
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("cache: redis unreachable, caching disabled")
		return NewNoopCache()
	}

	log.Info().Str("addr", opts.Addr).Msg("cache: redis connected")
	return &redisCache{
		client: client,
		ttl:    time.Duration(cfg.ForecastTTLSeconds) * time.Second,
	}
}

// redisOptions prefers a full REDIS_URL (managed providers hand these out)
// and falls back to discrete host/port settings.
func redisOptions(cfg *config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		return redis.ParseURL(cfg.RedisURL)
	}
	return &redis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func forecastKey(skuCode, account string) string {
	return fmt.Sprintf("%sforecast:%s:%s", keyPrefix, skuCode, account)
}

func projectionKey(skuCode string) string {
	return fmt.Sprintf("%sprojection:%s", keyPrefix, skuCode)
}

func (c *redisCache) GetForecast(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	var rows []domain.DatedQuantity
	ok, err := c.get(ctx, forecastKey(skuCode, account), &rows)
	if err != nil || !ok {
		return nil, err
	}
	return rows, nil
}

func (c *redisCache) SetForecast(ctx context.Context, skuCode, account string, rows []domain.DatedQuantity) error {
	return c.set(ctx, forecastKey(skuCode, account), rows)
}

func (c *redisCache) GetProjection(ctx context.Context, skuCode string) ([]domain.ProjectionPoint, error) {
	var points []domain.ProjectionPoint
	ok, err := c.get(ctx, projectionKey(skuCode), &points)
	if err != nil || !ok {
		return nil, err
	}
	return points, nil
}

func (c *redisCache) SetProjection(ctx context.Context, skuCode string, points []domain.ProjectionPoint) error {
	return c.set(ctx, projectionKey(skuCode), points)
}

func (c *redisCache) InvalidateSKU(ctx context.Context, skuCode string) error {
	patterns := []string{
		forecastKey(skuCode, "*"),
		projectionKey(skuCode),
	}
	for _, pattern := range patterns {
		if err := c.deleteByPattern(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

func (c *redisCache) Flush(ctx context.Context) error {
	return c.deleteByPattern(ctx, keyPrefix+"*")
}

func (c *redisCache) get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

func (c *redisCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// deleteByPattern scans and deletes matching keys. SCAN keeps the server
// responsive on large keyspaces where KEYS would block.
func (c *redisCache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed scanning cache keys %s: %w", pattern, err)
	}
	return nil
}
