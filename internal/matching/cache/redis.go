package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/redis"
)

const keyPrefix = "match:"

// kv is the subset of pkg/redis.Client the store needs.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore keeps each entry as one JSON value, so SET is the atomic
// replace.
type RedisStore struct {
	client kv
	ttl    time.Duration
	isMiss func(error) bool
}

func NewRedisStore(client *pkgredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, isMiss: pkgredis.IsNilError}
}

func (s *RedisStore) Lookup(ctx context.Context, timelineID string) (*Entry, bool, error) {
	data, err := s.client.Get(ctx, key(timelineID))
	if err != nil {
		if s.isMiss(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return &entry, true, nil
}

func (s *RedisStore) Replace(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := s.client.Set(ctx, key(entry.TimelineID), data, s.ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, timelineID string) error {
	if err := s.client.Del(ctx, key(timelineID)); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func key(timelineID string) string {
	return keyPrefix + timelineID
}
