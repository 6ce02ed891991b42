package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document as a JSON string at "<collection>:<id>" and tracks ids in
// the set "<collection>:ids".
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore does not dial; go-redis connects on the first command.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *RedisStore) Insert(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	ok, err := s.client.SetNX(ctx, collection+":"+id, body, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert document into %s: %w", collection, err)
	}
	if !ok {
		return ErrDuplicateID
	}
	if err := s.client.SAdd(ctx, collection+":ids", id).Err(); err != nil {
		return fmt.Errorf("failed to index document %s in %s: %w", id, collection, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Client exposes the underlying connection so the rate limiter can share it.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}
