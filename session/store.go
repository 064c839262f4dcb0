package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reads raw session records. The gateway never writes sessions.
type Store interface {
	// Get returns the record for id, found=false on a miss.
	Get(ctx context.Context, id string) (record []byte, found bool, err error)
}

// RedisStore reads session records written by the account service.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a Redis-backed session store reading keys <prefix><id>.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get resolves a session id to its stored record.
func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}
