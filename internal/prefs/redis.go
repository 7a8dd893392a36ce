package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis strings. Keys are namespaced so
// several users can share one instance.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStore wraps client. namespace is prepended to every key.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading preference %s: %w", key, err)
	}
	return json.RawMessage(v), true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), b, 0).Err(); err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	return nil
}
