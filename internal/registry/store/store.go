// Package store persists registries under the registry_id uniqueness
// constraint. A second save with the same registry_id is a conflict, never an
// overwrite.
package store

import (
	"context"

	"issuer-agent/internal/registry"
)

// Store is the registry persistence contract.
type Store interface {
	Save(ctx context.Context, r registry.Registry) error
	FindByRegistryID(ctx context.Context, registryID string) (*registry.Registry, error)
	ListByAddress(ctx context.Context, address string) ([]registry.Registry, error)
}
