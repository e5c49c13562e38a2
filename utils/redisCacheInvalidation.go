package utils

import (
	"context"
	"fmt"

	"training-crm-backend/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InvalidateCache deletes every cached key for a resource type, for example
// "clients_export" after client data changes
func InvalidateCache(ctx context.Context, rdb *redis.Client, resourceType string) error {
	pattern := fmt.Sprintf("%s:*", resourceType)
	iter := rdb.Scan(ctx, 0, pattern, 0).Iterator()

	for iter.Next(ctx) {
		key := iter.Val()
		if err := rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error during SCAN iteration: %w", err)
	}
	return nil
}

// InvalidateCacheAsync invalidates in the background so write paths do not
// wait on Redis round trips
func InvalidateCacheAsync(rdb *redis.Client, resourceType string) {
	go func() {
		if err := InvalidateCache(context.Background(), rdb, resourceType); err != nil {
			config.Logger.Warn("Cache invalidation failed",
				zap.String("resource_type", resourceType),
				zap.Error(err),
			)
		}
	}()
}
