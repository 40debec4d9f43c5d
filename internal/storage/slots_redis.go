package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"chalkboard/internal/domain"
)

const defaultRedisKeyPrefix = "chalkboard:"

// RedisSlotStore keeps each slot as one string key.
type RedisSlotStore struct {
	client    *redis.Client
	keyPrefix string
}

func openRedisSlotStore(ctx context.Context, dsn string) (*RedisSlotStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 4
	opts.MaxConnAge = 30 * time.Minute
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisSlotStore(client, ""), nil
}

// NewRedisSlotStore wraps an existing client. An empty prefix means "chalkboard:".
func NewRedisSlotStore(client *redis.Client, keyPrefix string) *RedisSlotStore {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &RedisSlotStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisSlotStore) slotKey(key string) string {
	return s.keyPrefix + "slot:" + key
}

func (s *RedisSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.slotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get slot %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisSlotStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.slotKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: put slot %s: %w", key, err)
	}
	return nil
}

func (s *RedisSlotStore) Close() error {
	return s.client.Close()
}
