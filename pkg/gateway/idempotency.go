package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simplifyhr/offerflow/pkg/offer"
)

// ErrInFlight is returned when the same effect of the same transition is
// already being executed by another caller.
var ErrInFlight = fmt.Errorf("gateway: effect already in flight: %w", offer.ErrConflict)

const (
	stateInFlight = "in_flight"
	stateDone     = "done"
)

// Record is what the idempotency store keeps per key.
type Record struct {
	State  string `json:"state"`
	Result Result `json:"result"`
}

// IdempotencyStore reserves effect keys so that a repeated invocation of the
// same transition is detectably a duplicate.
type IdempotencyStore interface {
	// Reserve claims key for ttl. When the key is already taken it returns
	// the existing record and false.
	Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, bool, error)
	// Complete stores the successful result of key for ttl.
	Complete(ctx context.Context, key string, result Result, ttl time.Duration) error
	// Release frees key so a failed effect can be retried.
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: "offerflow:idem:"}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, bool, error) {
	pending, err := json.Marshal(Record{State: stateInFlight})
	if err != nil {
		return nil, false, err
	}
	ok, err := s.client.SetNX(ctx, s.prefix+key, pending, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; treat as still in flight.
		return &Record{State: stateInFlight}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load idempotency key: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, result Result, ttl time.Duration) error {
	payload, err := json.Marshal(Record{State: stateDone, Result: result})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, payload, ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// MemoryIdempotencyStore keeps keys in process. Used by tests and single node runs.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	Record
	expiresAt time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: make(map[string]memoryRecord), now: time.Now}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && s.now().Before(rec.expiresAt) {
		copied := rec.Record
		return &copied, false, nil
	}
	s.records[key] = memoryRecord{Record: Record{State: stateInFlight}, expiresAt: s.now().Add(ttl)}
	return nil, true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, result Result, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = memoryRecord{Record: Record{State: stateDone, Result: result}, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
