package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
)

// RateLimitConfig configures a fixed window limiter keyed by client IP and route
type RateLimitConfig struct {
	// Rate uses the limiter format, e.g. "10-M" or "100-H"
	Rate   string
	Store  limiter.Store
	Logger *logging.Logger
}

// RateLimit builds the limiter middleware. A nil Store falls back to process memory.
func RateLimit(config RateLimitConfig) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(config.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", config.Rate, err)
	}

	store := config.Store
	if store == nil {
		store = memory.NewStore()
	}
	instance := limiter.New(store, rate)

	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()

		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// Limiter storage problems must not lock users out.
			if config.Logger != nil {
				config.Logger.WithError(err).Warn("Rate limiter unavailable", "key", key)
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			AbortWithAppError(c, errors.ErrRateLimitExceeded())
			return
		}
		c.Next()
	}, nil
}
