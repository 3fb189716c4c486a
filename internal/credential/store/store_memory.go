package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"issuer-agent/internal/credential"
	"issuer-agent/pkg/sentinel"
)

// Memory is the in-process Store used by unit tests.
type Memory struct {
	mu        sync.RWMutex
	byEntry   map[string]credential.Credential
	revisions map[string]struct{} // entryID + "\x00" + digest
}

// NewMemory constructs an empty in-memory credential store.
func NewMemory() *Memory {
	return &Memory{
		byEntry:   make(map[string]credential.Credential),
		revisions: make(map[string]struct{}),
	}
}

func revisionKey(entryID, digest string) string {
	return entryID + "\x00" + digest
}

func (m *Memory) Save(_ context.Context, c credential.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEntry[c.EntryID]; ok {
		return fmt.Errorf("credential entry %s: %w", c.EntryID, sentinel.ErrConflict)
	}
	m.byEntry[c.EntryID] = c
	m.revisions[revisionKey(c.EntryID, c.Digest)] = struct{}{}
	return nil
}

func (m *Memory) UpdateDigest(_ context.Context, entryID, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byEntry[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, dup := m.revisions[revisionKey(entryID, digest)]; dup {
		return fmt.Errorf("revision %s of entry %s: %w", digest, entryID, sentinel.ErrConflict)
	}
	m.revisions[revisionKey(entryID, digest)] = struct{}{}
	c.Digest = digest
	c.UpdatedAt = time.Now().UTC()
	m.byEntry[entryID] = c
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, entryID string, status credential.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byEntry[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	m.byEntry[entryID] = c
	return nil
}

func (m *Memory) FindByEntryID(_ context.Context, entryID string) (*credential.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byEntry[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListByRegistry(_ context.Context, registryID string) ([]credential.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []credential.Credential
	for _, c := range m.byEntry {
		if c.RegistryID == registryID {
			out = append(out, c)
		}
	}
	return out, nil
}
