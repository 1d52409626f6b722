// Package redis shares toggles and the session id through Redis, so several
// processes serving the same context start from the same cached state.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	toggled "github.com/toggled-dev/go-sdk"
)

// Storage implements toggled.StorageProvider on top of a Redis client
type Storage struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

type Config struct {
	// Prefix prepended to every key, toggled.StorageKeyPrefix when empty
	KeyPrefix string

	// Expiration of saved values. Zero means no expiration.
	TTL time.Duration
}

var _ toggled.StorageProvider = (*Storage)(nil)

func New(client redis.UniversalClient, cfg Config) *Storage {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = toggled.StorageKeyPrefix
	}
	return &Storage{client: client, keyPrefix: prefix, ttl: cfg.TTL}
}

// Dials addr and wraps the resulting client
func NewFromAddr(ctx context.Context, addr string, cfg Config) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, cfg), nil
}

func (s *Storage) fullKey(key string) string {
	return s.keyPrefix + ":" + key
}

// Get returns "" for a missing key
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.client.Get(ctx, s.fullKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return raw, nil
}

func (s *Storage) Save(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, s.fullKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
