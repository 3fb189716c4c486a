// Package store persists credential records. Creation is unique per entry
// id; every anchored digest is additionally unique per (entry id, digest), so
// re-anchoring the same revision is a conflict even through the explicit
// update path.
package store

import (
	"context"

	"issuer-agent/internal/credential"
)

// Store is the credential persistence contract. Save creates; UpdateDigest
// and UpdateStatus are the explicit update paths keyed by the same entry id,
// deliberately separate from creation.
type Store interface {
	Save(ctx context.Context, c credential.Credential) error
	UpdateDigest(ctx context.Context, entryID, digest string) error
	UpdateStatus(ctx context.Context, entryID string, status credential.Status) error
	FindByEntryID(ctx context.Context, entryID string) (*credential.Credential, error)
	ListByRegistry(ctx context.Context, registryID string) ([]credential.Credential, error)
}
