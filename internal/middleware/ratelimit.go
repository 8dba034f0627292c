package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/config"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// AttemptCounter counts attempts for a key inside a fixed window.
type AttemptCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// RateLimit throttles a route per client IP. scope separates counters of
// different routes. A successful (2xx) response clears the client's counter,
// so only failed attempts accumulate. Counter failures let the request through.
func RateLimit(counter AttemptCounter, cfg config.RateLimitConfig, scope string, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !cfg.Enabled || counter == nil || cfg.Attempts <= 0 {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		count, ttl, err := counter.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if count > int64(cfg.Attempts) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			metrics.RecordLogin(scope, service.LoginOutcomeRateLimited)
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many attempts, try again later"))
			c.Abort()
			return
		}
		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			if err := counter.Reset(c.Request.Context(), key); err != nil {
				logger.Warn("rate limit reset failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
}
