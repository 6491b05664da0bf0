package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:v1:"

// SessionStore tracks which issued tokens are still valid.
type SessionStore interface {
	Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	Active(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string) error
}

// RedisSessions keeps sessions in Redis with the token lifetime as TTL.
type RedisSessions struct {
	cache *redis.Client
}

// NewRedisSessions builds a Redis-backed session store.
func NewRedisSessions(cache *redis.Client) *RedisSessions {
	return &RedisSessions{cache: cache}
}

func (s *RedisSessions) Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	return s.cache.Set(ctx, sessionPrefix+tokenID, userID, ttl).Err()
}

func (s *RedisSessions) Active(ctx context.Context, tokenID string) (bool, error) {
	err := s.cache.Get(ctx, sessionPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisSessions) Revoke(ctx context.Context, tokenID string) error {
	return s.cache.Del(ctx, sessionPrefix+tokenID).Err()
}

type memorySessions struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

// NewMemorySessions builds an in-process session store.
func NewMemorySessions() SessionStore {
	return &memorySessions{now: time.Now, expires: make(map[string]time.Time)}
}

func (s *memorySessions) Save(_ context.Context, tokenID, _ string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[tokenID] = s.now().Add(ttl)
	return nil
}

func (s *memorySessions) Active(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(exp) {
		delete(s.expires, tokenID)
		return false, nil
	}
	return true, nil
}

func (s *memorySessions) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, tokenID)
	return nil
}
