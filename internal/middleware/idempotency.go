package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	cacheOpTimeout       = 2 * time.Second
)

// replay is a relay response kept for a repeated signup.
type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
	Digest      string `json:"digest"`
}

type replayCache struct {
	cache *redis.Client
	ttl   time.Duration
}

func (r replayCache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cacheOpTimeout)
}

// lookup returns the stored reply, whether a request is still running under
// the key, or redis.Nil when the key is unused.
func (r replayCache) lookup(key string) (replay, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	raw, err := r.cache.Get(ctx, key).Result()
	if err != nil {
		return replay{}, false, err
	}
	if raw == inProgressMarker {
		return replay{}, true, nil
	}
	var stored replay
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return replay{}, false, err
	}
	return stored, false, nil
}

func (r replayCache) reserve(key string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.cache.SetNX(ctx, key, inProgressMarker, r.ttl).Result()
}

func (r replayCache) save(key string, stored replay) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	ctx, cancel := r.ctx()
	defer cancel()
	return r.cache.Set(ctx, key, payload, r.ttl).Err()
}

func (r replayCache) release(key string) {
	ctx, cancel := r.ctx()
	defer cancel()
	r.cache.Del(ctx, key)
}

func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Idempotency replays the first successful reply for POSTs that carry an
// Idempotency-Key header. Keys are scoped per path and bound to the request
// body; failed calls release the key so the client can retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	replays := replayCache{cache: cache, ttl: ttl}
	return func(c *fiber.Ctx) error {
		key := c.Get(idempotencyKeyHeader)
		if key == "" || c.Method() != fiber.MethodPost {
			return c.Next()
		}
		cacheKey := idempotencyPrefix + c.Path() + ":" + key
		digest := bodyDigest(c.Body())

		stored, running, err := replays.lookup(cacheKey)
		switch {
		case err == nil && running:
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		case err == nil:
			if stored.Digest != digest {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused with a different body")
			}
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return c.Status(stored.Status).SendString(stored.Body)
		case !errors.Is(err, redis.Nil):
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		ok, err := replays.reserve(cacheKey)
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !ok {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			replays.release(cacheKey)
			return err
		}

		reply := replay{
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
			Digest:      digest,
		}
		if err := replays.save(cacheKey, reply); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			replays.release(cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}
		return nil
	}
}
