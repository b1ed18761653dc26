package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
)

const defaultAuthAttemptsPerMinute = 10

// AuthRateLimit limits credential attempts per client IP to maxPerMin in a
// one minute window. Counters live in Redis when cache is set so the limit
// holds across instances; otherwise Fiber's in-process limiter is used.
func AuthRateLimit(cache *redis.Client, prefix string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultAuthAttemptsPerMinute
	}
	if cache == nil {
		return limiter.New(limiter.Config{
			Max:        maxPerMin,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(http.StatusTooManyRequests, "too many authentication attempts, try again later")
			},
		})
	}

	return func(c *fiber.Ctx) error {
		key := prefix + "rl:auth:" + c.IP()
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("rate limit counter unavailable", slog.Any("error", err))
			return c.Next() // fail open
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many authentication attempts, try again later")
		}
		return c.Next()
	}
}
