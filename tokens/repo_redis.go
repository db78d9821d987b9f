package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps failures talking to Redis
var ErrRedisUnavailable = errors.New("redis unavailable")

const defaultKeyPrefix = "sbt"

var _ Store = (*RedisStore)(nil)

// RedisStore keeps tokens in Redis so provider sessions outlive the process.
// Each client's tokens are one JSON value under "<prefix>:<clientID>".
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store on the given client. A zero ttl keeps keys
// until they are deleted.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewRedisStoreFromURL parses a redis:// URL and verifies the server answers.
func NewRedisStoreFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[Tokens NewRedisStoreFromURL] invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return NewRedisStore(client, defaultKeyPrefix, ttl), nil
}

func (s *RedisStore) key(clientID string) string {
	return s.prefix + ":" + clientID
}

// Upsert stores the tokens of a client, resetting the TTL
func (s *RedisStore) Upsert(ctx context.Context, clientID string, t Tokens) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("[Tokens Upsert] encode: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(clientID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves the tokens of a client
func (s *RedisStore) Get(ctx context.Context, clientID string) (Tokens, error) {
	if clientID == "" {
		return Tokens{}, fmt.Errorf("clientID is required")
	}
	data, err := s.redis.Get(ctx, s.key(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Tokens{}, ErrNotFound
		}
		return Tokens{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("[Tokens Get] decode: %w", err)
	}
	return t, nil
}

// Delete removes the tokens of a client
func (s *RedisStore) Delete(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}
	if err := s.redis.Del(ctx, s.key(clientID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
