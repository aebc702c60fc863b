package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Keys are namespaced per shopper
// device so multiple browsing sessions can share one Redis instance.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. The prefix scopes all keys,
// e.g. "storefront:device:1234".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) tokenKey() string {
	return s.prefix + ":token"
}

func (s *RedisStore) draftKey(step string) string {
	return s.prefix + ":draft:" + step
}

func (s *RedisStore) draftPattern() string {
	return s.prefix + ":draft:*"
}

// LoadToken returns the persisted session token, or "" if none exists.
func (s *RedisStore) LoadToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.tokenKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis get session token: %w", err)
	}
	return token, nil
}

// SaveToken persists the session token with the configured TTL.
func (s *RedisStore) SaveToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.tokenKey(), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session token: %w", err)
	}
	return nil
}

// DeleteToken removes the persisted session token.
func (s *RedisStore) DeleteToken(ctx context.Context) error {
	if err := s.client.Del(ctx, s.tokenKey()).Err(); err != nil {
		return fmt.Errorf("redis del session token: %w", err)
	}
	return nil
}

// SaveDraft persists the serialized form values for a checkout step.
func (s *RedisStore) SaveDraft(ctx context.Context, step string, data []byte) error {
	if err := s.client.Set(ctx, s.draftKey(step), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set step draft: %w", err)
	}
	return nil
}

// LoadDraft returns the serialized form values for a checkout step, or nil.
func (s *RedisStore) LoadDraft(ctx context.Context, step string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.draftKey(step)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get step draft: %w", err)
	}
	return data, nil
}

// DeleteDrafts removes all step drafts under this store's namespace.
func (s *RedisStore) DeleteDrafts(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.draftPattern(), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan step drafts: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del step drafts: %w", err)
	}
	return nil
}
