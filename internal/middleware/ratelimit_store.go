package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/innkeep/internal/cache"
)

// RateStore counts hits for a key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore is process-local. Expired counters are dropped on access
// and by Sweep.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store for single-instance
// deployments and tests.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{data: make(map[string]*memoryCounter), clock: time.Now}
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++
	return counter.count, counter.windowEnd.Sub(now), nil
}

// Sweep drops expired counters.
func (s *MemoryRateStore) Sweep() {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, counter := range s.data {
		if !now.Before(counter.windowEnd) {
			delete(s.data, key)
		}
	}
}

// storeRateStore adapts a cache.Store (redis or database).
type storeRateStore struct {
	store cache.Store
}

// NewRedisRateStore counts in redis so limits hold across instances.
func NewRedisRateStore(store *cache.RedisClient) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

// NewDatabaseRateStore counts in the cache_entries table.
func NewDatabaseRateStore(store *cache.DatabaseStore) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
