package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	loginRateLimitPrefix = "rl:login:"
	loginFailureWindow   = time.Minute
)

// LoginRateLimit throttles credential guessing against /login. Only rejected
// attempts (4xx from the data service) count, per lower-cased e-mail or the
// client IP when no e-mail is sent; a successful login clears the count.
// Without Redis the limiter is a no-op.
func LoginRateLimit(cache *redis.Client, maxFailures int) fiber.Handler {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = c.IP()
		}
		key := loginRateLimitPrefix + subject
		ctx := c.UserContext()

		failures, err := cache.Get(ctx, key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return c.Next() // fail open
		}
		if failures >= int64(maxFailures) {
			if ttl, err := cache.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int((ttl+time.Second-1)/time.Second)))
			}
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}

		err = c.Next()
		var fe *fiber.Error
		switch {
		case err == nil:
			cache.Del(ctx, key)
		case errors.As(err, &fe) && fe.Code >= 400 && fe.Code < 500:
			if n, incErr := cache.Incr(ctx, key).Result(); incErr == nil && n == 1 {
				cache.Expire(ctx, key, loginFailureWindow)
			}
		}
		return err
	}
}
