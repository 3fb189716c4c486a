package store

import (
	"context"
	"fmt"
	"sync"

	"issuer-agent/internal/profile"
	"issuer-agent/pkg/sentinel"
)

// Memory is the in-process Store used by unit tests.
type Memory struct {
	mu        sync.RWMutex
	byAddress map[string]profile.Profile
	byProfile map[string]string // profile_id -> address
}

// NewMemory constructs an empty in-memory profile store.
func NewMemory() *Memory {
	return &Memory{
		byAddress: make(map[string]profile.Profile),
		byProfile: make(map[string]string),
	}
}

func (m *Memory) Save(_ context.Context, p profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byAddress[p.Address]; ok {
		return fmt.Errorf("profile address %s: %w", p.Address, sentinel.ErrConflict)
	}
	if _, ok := m.byProfile[p.ProfileID]; ok {
		return fmt.Errorf("profile id %s: %w", p.ProfileID, sentinel.ErrConflict)
	}
	m.byAddress[p.Address] = p
	m.byProfile[p.ProfileID] = p.Address
	return nil
}

func (m *Memory) FindByAddress(_ context.Context, address string) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byAddress[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) FindByProfileID(_ context.Context, profileID string) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.byProfile[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p := m.byAddress[addr]
	return &p, nil
}
