package resolve

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process CacheStore. It backs tests and the mnemonic
// decryption cache, where entries must never leave the process. Expiry is
// lazy: an expired entry is dropped on the read that finds it.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	counters map[string]int64
	now      func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore constructs an empty in-process cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]memoryEntry),
		counters: make(map[string]int64),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, counterKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[counterKey]++
	return s.counters[counterKey], nil
}

// Counter reads a counter value; tests use it to assert hit/miss accounting.
func (s *MemoryStore) Counter(counterKey string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterKey]
}
