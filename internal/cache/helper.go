package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps a Redis client. A Store with a nil client misses on every read and drops every
// write.
type Store struct {
	rdb redis.Cmdable
}

// NewStore returns a Store over rdb, which may be nil.
func NewStore(rdb redis.Cmdable) *Store {
	if c, ok := rdb.(*redis.Client); ok && c == nil {
		rdb = nil
	}
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetBytes returns the raw value at key. found is false on a miss.
func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// SetBytes stores value at key with ttl.
func (s *Store) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Aside tries Redis first; on a miss or a Redis error it calls fetch and stores the result
// (best-effort). Cache errors never fail the call. A non-positive ttl bypasses the cache, since
// Redis would keep such a key forever.
func (s *Store) Aside(ctx context.Context, key string, ttl time.Duration, fetch func() ([]byte, error)) (value []byte, hit bool, err error) {
	if ttl <= 0 {
		value, err = fetch()
		return value, false, err
	}
	cached, found, getErr := s.GetBytes(ctx, key)
	if getErr == nil && found {
		return cached, true, nil
	}

	value, err = fetch()
	if err != nil {
		return nil, false, err
	}
	_ = s.SetBytes(ctx, key, value, ttl)
	return value, false, nil
}
