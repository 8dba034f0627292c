package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimitRepository counts attempts per key in fixed Redis windows.
type RateLimitRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRateLimitRepository constructs the repository. A nil client disables counting.
func NewRateLimitRepository(client *redis.Client, logger *zap.Logger) *RateLimitRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitRepository{client: client, logger: logger}
}

// Hit records one attempt for key and returns the attempts seen in the current
// window together with the time left until the window resets.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, nil
	}
	fullKey := rateLimitKeyPrefix + key

	count, err := r.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", fullKey, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return count, window, fmt.Errorf("redis expire %s: %w", fullKey, err)
		}
		return count, window, nil
	}

	ttl, err := r.client.TTL(ctx, fullKey).Result()
	if err != nil {
		r.logger.Warn("failed to read rate limit ttl", zap.String("key", fullKey), zap.Error(err))
		return count, window, nil
	}
	if ttl < 0 {
		// Key lost its expiry; restore it so the window cannot stick forever.
		_ = r.client.Expire(ctx, fullKey, window).Err()
		ttl = window
	}
	return count, ttl, nil
}

// Reset clears the counter for key.
func (r *RateLimitRepository) Reset(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, rateLimitKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
