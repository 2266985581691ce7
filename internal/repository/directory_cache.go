package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
)

const (
	userCachePrefix  = "support:user:"
	orderCachePrefix = "support:order:"
)

type cachedUserDirectory struct {
	inner  UserDirectory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserDirectory puts a Redis cache-aside layer in front of inner.
// Redis failures fall through to inner.
func NewCachedUserDirectory(inner UserDirectory, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserDirectory {
	if client == nil || ttl <= 0 {
		return inner
	}
	return &cachedUserDirectory{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (d *cachedUserDirectory) FindUsers(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	return cachedLookup(ctx, d.client, d.logger, userCachePrefix, uniqueIDs(ids), d.ttl, d.inner.FindUsers)
}

type cachedOrderDirectory struct {
	inner  OrderDirectory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOrderDirectory puts a Redis cache-aside layer in front of inner.
func NewCachedOrderDirectory(inner OrderDirectory, client *redis.Client, ttl time.Duration, logger *zap.Logger) OrderDirectory {
	if client == nil || ttl <= 0 {
		return inner
	}
	return &cachedOrderDirectory{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (d *cachedOrderDirectory) FindOrders(ctx context.Context, ids []string) (map[string]domain.OrderSummary, error) {
	return cachedLookup(ctx, d.client, d.logger, orderCachePrefix, uniqueIDs(ids), d.ttl, d.inner.FindOrders)
}

func cachedLookup[T any](
	ctx context.Context,
	client *redis.Client,
	logger *zap.Logger,
	prefix string,
	ids []string,
	ttl time.Duration,
	fetch func(context.Context, []string) (map[string]T, error),
) (map[string]T, error) {
	out := make(map[string]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}

	missing := ids
	cached, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warn("directory cache read failed", zap.String("prefix", prefix), zap.Error(err))
	} else {
		missing = make([]string, 0, len(ids))
		for i, raw := range cached {
			str, ok := raw.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var value T
			if err := json.Unmarshal([]byte(str), &value); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[ids[i]] = value
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := client.Pipeline()
	for id, value := range fetched {
		out[id] = value
		payload, err := json.Marshal(value)
		if err != nil {
			continue
		}
		pipe.Set(ctx, prefix+id, payload, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("directory cache write failed", zap.String("prefix", prefix), zap.Error(err))
	}
	return out, nil
}
