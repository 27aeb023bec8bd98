// Package store persists the id of the intent being swapped so a restarted
// swapper can recover it.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the redis key holding the intent id
const DefaultKey = "swapper:intent_id"

// IntentStore keeps a single intent id. Load returns "" when nothing is stored.
type IntentStore interface {
	Save(ctx context.Context, intentID string) error
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// RedisConfig describes the redis connection
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the intent id under a redis key
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ IntentStore = (*RedisStore)(nil)

// NewRedisStore connects to redis and checks the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address must not be empty")
	}
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Save(ctx context.Context, intentID string) error {
	if err := s.client.Set(ctx, s.key, intentID, 0).Err(); err != nil {
		return fmt.Errorf("failed to save intent id: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load intent id: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear intent id: %w", err)
	}
	return nil
}

// Close closes the redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore keeps the intent id in process memory
type MemoryStore struct {
	mu       sync.Mutex
	intentID string
}

var _ IntentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentID = intentID
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intentID, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentID = ""
	return nil
}
