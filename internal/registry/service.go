// Package registry creates on-chain registries and records their
// chain-assigned identifiers locally.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"issuer-agent/internal/issuance"
	"issuer-agent/internal/ledger"
	"issuer-agent/internal/vault"
)

// Store is the persistence dependency.
type Store interface {
	Save(ctx context.Context, r Registry) error
	FindByRegistryID(ctx context.Context, registryID string) (*Registry, error)
	ListByAddress(ctx context.Context, address string) ([]Registry, error)
}

// Service drives registry creation.
type Service struct {
	coord   *issuance.Coordinator
	signers issuance.SignerResolver
	store   Store
	logger  *slog.Logger
}

// NewService constructs the registry service. signers resolves the owning
// profile address to its signing identity.
func NewService(coord *issuance.Coordinator, signers issuance.SignerResolver, store Store, logger *slog.Logger) *Service {
	return &Service{coord: coord, signers: signers, store: store, logger: logger}
}

// Create submits a registry-create operation owned by address and returns the
// persisted record once the RegistryCreated event confirms it. Confirmation
// timeout is terminal for this call; whether to resubmit is the caller's
// decision because the operation may still land.
func (s *Service) Create(ctx context.Context, address string, schema json.RawMessage) (*Registry, error) {
	op := &createOperation{svc: s, schema: schema}
	res, err := s.coord.Run(ctx, s.signers, address, op)
	if err != nil {
		return nil, err
	}
	s.logger.Info("registry created", "registry_id", res.ResourceID, "address", address)
	return op.saved, nil
}

// Get returns a locally persisted registry.
func (s *Service) Get(ctx context.Context, registryID string) (*Registry, error) {
	return s.store.FindByRegistryID(ctx, registryID)
}

// List returns the registries created by an address.
func (s *Service) List(ctx context.Context, address string) ([]Registry, error) {
	return s.store.ListByAddress(ctx, address)
}

// createOperation is the registry-create variant: digest the registry blob,
// confirm by RegistryCreated bound to the creator, persist under the
// chain-assigned registry id.
type createOperation struct {
	svc    *Service
	schema json.RawMessage
	saved  *Registry
}

func (o *createOperation) Kind() ledger.Kind { return ledger.KindRegistryCreate }

func (o *createOperation) BuildPayload(context.Context) ([]byte, error) {
	blob, err := json.Marshal(map[string]any{
		"title":  "Issuer agent registry",
		"schema": string(o.schema),
		"date":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode registry blob: %w", err)
	}
	digest := sha256.Sum256(blob)
	return json.Marshal(map[string]string{"digest": "0x" + hex.EncodeToString(digest[:])})
}

func (o *createOperation) Confirmation(signer *vault.Account) issuance.Confirmation {
	return issuance.Confirmation{
		Match: func(ev ledger.Event) bool {
			return ev.Is("registry", "RegistryCreated") && ev.Field("creator") == signer.Address
		},
	}
}

func (o *createOperation) PersistRecord(ctx context.Context, ev ledger.Event) (string, error) {
	r := Registry{
		ID:         uuid.New(),
		RegistryID: ev.Field("registry"),
		Schema:     o.schema,
		Address:    ev.Field("creator"),
		ProfileID:  ev.Field("profileId"),
		CreatedAt:  time.Now().UTC(),
	}
	if r.RegistryID == "" {
		return "", fmt.Errorf("event carried no registry identifier")
	}
	if err := o.svc.store.Save(ctx, r); err != nil {
		return "", err
	}
	o.saved = &r
	return r.RegistryID, nil
}

var _ issuance.Operation = (*createOperation)(nil)
