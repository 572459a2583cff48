package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials in Redis. Intended for headless deployments
// (bots, bridges) where several hosts share one signed-in session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a Redis-backed credential store and verifies the
// connection.
func NewRedisStore(addr, password, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if prefix == "" {
		prefix = "messagerie"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// Save stores or replaces the credentials.
func (s *RedisStore) Save(c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.credentialsKey(), data, 0).Err()
}

// Load returns the stored credentials, if any.
func (s *RedisStore) Load() (Credentials, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := s.client.Get(ctx, s.credentialsKey()).Bytes()
	if err == redis.Nil {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, false, nil
	}
	if c.Token == "" {
		return Credentials{}, false, nil
	}
	return c, true, nil
}

// Clear removes the stored credentials.
func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, s.credentialsKey()).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (s *RedisStore) credentialsKey() string {
	return fmt.Sprintf("%s:credentials", s.prefix)
}
