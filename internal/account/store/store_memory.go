package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"issuer-agent/internal/account"
	"issuer-agent/pkg/sentinel"
)

// Memory is the in-process Store used by unit tests.
type Memory struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]account.Account
	byToken map[string]uuid.UUID
}

// NewMemory constructs an empty in-memory account store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[uuid.UUID]account.Account),
		byToken: make(map[string]uuid.UUID),
	}
}

func (m *Memory) Save(_ context.Context, a account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byToken[a.TokenHash]; ok {
		return fmt.Errorf("account token: %w", sentinel.ErrConflict)
	}
	if _, ok := m.byID[a.ID]; ok {
		return fmt.Errorf("account %s: %w", a.ID, sentinel.ErrConflict)
	}
	m.byID[a.ID] = a
	m.byToken[a.TokenHash] = a.ID
	return nil
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) FindByTokenHash(_ context.Context, tokenHash string) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byToken[tokenHash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	a := m.byID[id]
	return &a, nil
}

func (m *Memory) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.Active = active
	m.byID[id] = a
	return nil
}
