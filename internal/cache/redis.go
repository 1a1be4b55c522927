package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a thin TTL cache over redis. A nil *Store is valid and caches
// nothing, so callers can treat caching as optional.
type Store struct {
	Client *redis.Client
}

func New(opt *redis.Options) *Store {
	return &Store{Client: redis.NewClient(opt)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.Client == nil {
		return nil, false, nil
	}
	b, err := s.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Del(ctx, key).Err()
}
