package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig returns the limits used when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      time.Minute,
		KeyPrefix:   "linkledger:ratelimit",
	}
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	def := DefaultRateLimitConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	return cfg
}

// RateLimit counts requests per client IP in a fixed Redis window. Redis
// failures let the request through.
func RateLimit(rdb *redis.Client, cfg RateLimitConfig, logger *zap.Logger) fiber.Handler {
	cfg = cfg.withDefaults()

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := cfg.KeyPrefix + ":" + c.IP()

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.PTTL(ctx, key)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit redis error", zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		count := incr.Val()
		reset := ttl.Val()
		if reset <= 0 {
			// First hit in the window, or a key that lost its expiry.
			if err := rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
				logger.Warn("rate limit expire failed", zap.String("key", key), zap.Error(err))
			}
			reset = cfg.Window
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(cfg.MaxRequests)-count), 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if count > int64(cfg.MaxRequests) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(reset.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded",
			})
		}
		return c.Next()
	}
}
