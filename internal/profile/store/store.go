// Package store persists profiles. Save is the idempotent persistence point
// for the profile-create flow: the unique constraints on profile_id and
// address are enforced by the backing store, and a duplicate surfaces as
// sentinel.ErrConflict.
package store

import (
	"context"

	"issuer-agent/internal/profile"
)

// Store is the profile persistence contract.
type Store interface {
	Save(ctx context.Context, p profile.Profile) error
	FindByAddress(ctx context.Context, address string) (*profile.Profile, error)
	FindByProfileID(ctx context.Context, profileID string) (*profile.Profile, error)
}
