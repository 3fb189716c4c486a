// Package store persists API consumer accounts. The bearer token hash is
// unique; creating two accounts from the same token is a conflict.
package store

import (
	"context"

	"github.com/google/uuid"

	"issuer-agent/internal/account"
)

// Store is the account persistence contract.
type Store interface {
	Save(ctx context.Context, a account.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*account.Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
