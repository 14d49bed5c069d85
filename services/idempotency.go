package services

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore caches serialized responses keyed by user and client-
// supplied Idempotency-Key so retried scans and redemptions replay the first
// outcome instead of running twice.
type IdempotencyStore interface {
	Get(ctx context.Context, userID, key string) ([]byte, bool)
	Set(ctx context.Context, userID, key string, response []byte)
}

const idempotencyTTL = 24 * time.Hour

// NewIdempotencyStore returns a redis-backed store when REDIS_URL is set,
// else an in-memory one. Tests and single-node deployments run fine on the
// memory store; it just does not survive restarts.
func NewIdempotencyStore() IdempotencyStore {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		return NewMemoryIdempotencyStore()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[idempotency] bad REDIS_URL, falling back to memory store: %v", err)
		return NewMemoryIdempotencyStore()
	}
	return &redisIdempotencyStore{client: redis.NewClient(opts)}
}

type redisIdempotencyStore struct {
	client *redis.Client
}

func idemKey(userID, key string) string {
	return "idem:" + userID + ":" + key
}

func (s *redisIdempotencyStore) Get(ctx context.Context, userID, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, idemKey(userID, key)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *redisIdempotencyStore) Set(ctx context.Context, userID, key string, response []byte) {
	if err := s.client.Set(ctx, idemKey(userID, key), response, idempotencyTTL).Err(); err != nil {
		log.Printf("[idempotency] cache write failed: %v", err)
	}
}

// MemoryIdempotencyStore is a process-local fallback with lazy expiry.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	response  []byte
	expiresAt time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, userID, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[idemKey(userID, key)]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.entries, idemKey(userID, key))
		return nil, false
	}
	return e.response, true
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, userID, key string, response []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[idemKey(userID, key)] = memoryEntry{
		response:  response,
		expiresAt: time.Now().Add(idempotencyTTL),
	}
}
