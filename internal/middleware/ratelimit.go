package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"arcade/internal/cache"
	"arcade/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when its counter cannot be
// read.
type FailPolicy int

const (
	// FailOpen serves the request.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit of identity against resource in a fixed
// window and reports whether it is still within limit.
// Rate limiting is disabled when APP_ENV is unset, "test", "development" or "stress".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, identity string, limit int, window time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}

	key := cache.RateLimitKey(resource, identity)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// rateLimitIdentity keys by resolved profile, then by external identity,
// then by remote IP.
func rateLimitIdentity(c *fiber.Ctx) string {
	if id := ProfileID(c); id != 0 {
		return "profile:" + strconv.FormatUint(id, 10)
	}
	if ext := ExternalID(c); ext != "" {
		return "ext:" + ext
	}
	return "ip:" + c.IP()
}

// RateLimit limits each identity to limit requests per window and lets
// requests through when Redis fails. name, if given, replaces the request
// path as the counter's resource.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit behavior for Redis
// failures.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, rateLimitIdentity(c), limit, window)
		switch {
		case err != nil && policy == FailClosed:
			observability.GlobalLogger.WarnContext(c.UserContext(), "rate limit fail-closed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "rate limit unavailable"})
		case err == nil && !allowed:
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
