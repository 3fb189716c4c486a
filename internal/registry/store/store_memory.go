package store

import (
	"context"
	"fmt"
	"sync"

	"issuer-agent/internal/registry"
	"issuer-agent/pkg/sentinel"
)

// Memory is the in-process Store used by unit tests.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]registry.Registry
}

// NewMemory constructs an empty in-memory registry store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]registry.Registry)}
}

func (m *Memory) Save(_ context.Context, r registry.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.RegistryID]; ok {
		return fmt.Errorf("registry %s: %w", r.RegistryID, sentinel.ErrConflict)
	}
	m.byID[r.RegistryID] = r
	return nil
}

func (m *Memory) FindByRegistryID(_ context.Context, registryID string) (*registry.Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[registryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (m *Memory) ListByAddress(_ context.Context, address string) ([]registry.Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []registry.Registry
	for _, r := range m.byID {
		if r.Address == address {
			out = append(out, r)
		}
	}
	return out, nil
}
