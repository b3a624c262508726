package filterstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hisab/hisab-ledger/internal/products"
)

// RedisStore keeps filters in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "hisab:filters:", ttl: ttl}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (products.Filter, bool, error) {
	payload, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return products.Filter{}, false, nil
		}
		return products.Filter{}, false, err
	}
	var f products.Filter
	if err := json.Unmarshal(payload, &f); err != nil {
		return products.Filter{}, false, err
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, s.prefix+sessionID, s.ttl).Err()
	}
	return f, true, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, sessionID string, f products.Filter) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+sessionID, data, s.ttl).Err()
}

// MemoryStore keeps filters in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	filters map[string]products.Filter
}

// NewMemoryStore constructs MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{filters: make(map[string]products.Filter)}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (products.Filter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.filters[sessionID]
	return f, ok, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, f products.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[sessionID] = f
	return nil
}
