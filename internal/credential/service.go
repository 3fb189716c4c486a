// Package credential anchors claim digests on chain as statement entries and
// tracks their revision and revocation status locally.
package credential

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
	"issuer-agent/internal/registry"
	"issuer-agent/internal/vault"
)

// Store is the persistence dependency.
type Store interface {
	Save(ctx context.Context, c Credential) error
	UpdateDigest(ctx context.Context, entryID, digest string) error
	UpdateStatus(ctx context.Context, entryID string, status Status) error
	FindByEntryID(ctx context.Context, entryID string) (*Credential, error)
	ListByRegistry(ctx context.Context, registryID string) ([]Credential, error)
}

// Registries looks up the registry a credential is issued into.
type Registries interface {
	FindByRegistryID(ctx context.Context, registryID string) (*registry.Registry, error)
}

// Service drives credential issuance, revision, and revocation.
type Service struct {
	coord      *issuance.Coordinator
	signers    issuance.SignerResolver
	registries Registries
	store      Store
	logger     *slog.Logger
}

// NewService constructs the credential service. signers resolves the issuing
// address to its signing identity.
func NewService(coord *issuance.Coordinator, signers issuance.SignerResolver, registries Registries, store Store, logger *slog.Logger) *Service {
	return &Service{coord: coord, signers: signers, registries: registries, store: store, logger: logger}
}

// Issue anchors the digest of claim in the given registry and returns the
// credential record once the Created event confirms the entry. The claim
// contents are digested and discarded; only the digest is submitted or
// stored.
func (s *Service) Issue(ctx context.Context, registryID, holderDID string, claim json.RawMessage) (*Credential, error) {
	reg, err := s.registries.FindByRegistryID(ctx, registryID)
	if err != nil {
		return nil, fmt.Errorf("resolve registry %s: %w", registryID, err)
	}
	op := &issueOperation{
		svc:       s,
		registry:  reg,
		holderDID: holderDID,
		digest:    claimDigest(claim, holderDID),
	}
	if _, err := s.coord.Run(ctx, s.signers, reg.Address, op); err != nil {
		return nil, err
	}
	s.logger.Info("credential issued",
		"entry_id", op.saved.EntryID, "registry_id", registryID, "holder", holderDID)
	return op.saved, nil
}

// Update anchors a new digest for an existing entry. Anchoring a digest the
// entry has already carried is a conflict.
func (s *Service) Update(ctx context.Context, entryID string, claim json.RawMessage) (*Credential, error) {
	cred, err := s.store.FindByEntryID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	op := &updateOperation{
		svc:    s,
		cred:   cred,
		digest: claimDigest(claim, cred.HolderDID),
	}
	if _, err := s.coord.Run(ctx, s.signers, cred.IssuerAddress, op); err != nil {
		return nil, err
	}
	s.logger.Info("credential updated", "entry_id", entryID, "digest", op.digest)
	return s.store.FindByEntryID(ctx, entryID)
}

// Revoke marks the entry revoked on chain and locally. Revoking an already
// revoked entry submits again; the chain decides whether that is an error.
func (s *Service) Revoke(ctx context.Context, entryID string) (*Credential, error) {
	cred, err := s.store.FindByEntryID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	op := &revokeOperation{svc: s, cred: cred}
	if _, err := s.coord.Run(ctx, s.signers, cred.IssuerAddress, op); err != nil {
		return nil, err
	}
	s.logger.Info("credential revoked", "entry_id", entryID)
	return s.store.FindByEntryID(ctx, entryID)
}

// Get returns a locally persisted credential.
func (s *Service) Get(ctx context.Context, entryID string) (*Credential, error) {
	return s.store.FindByEntryID(ctx, entryID)
}

// List returns the credentials anchored in a registry.
func (s *Service) List(ctx context.Context, registryID string) ([]Credential, error) {
	return s.store.ListByRegistry(ctx, registryID)
}

// claimDigest is the canonical digest of claim contents bound to their
// holder. Two holders with identical claims anchor distinct digests.
func claimDigest(claim json.RawMessage, holderDID string) string {
	h := sha256.New()
	h.Write([]byte(holderDID))
	h.Write([]byte{0})
	h.Write(claim)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// issueOperation is the credential-issue variant: submit the digest into a
// registry, confirm by the Created event carrying it, persist under the
// chain-assigned entry id.
type issueOperation struct {
	svc       *Service
	registry  *registry.Registry
	holderDID string
	digest    string
	saved     *Credential
}

func (o *issueOperation) Kind() ledger.Kind { return ledger.KindCredentialIssue }

func (o *issueOperation) BuildPayload(context.Context) ([]byte, error) {
	return json.Marshal(map[string]string{
		"registry": o.registry.RegistryID,
		"digest":   o.digest,
	})
}

func (o *issueOperation) Confirmation(signer *vault.Account) issuance.Confirmation {
	return issuance.Confirmation{
		Match: func(ev ledger.Event) bool {
			return ev.Is("statement", "Created") &&
				ev.Field("creator") == signer.Address &&
				ev.Field("digest") == o.digest
		},
	}
}

func (o *issueOperation) PersistRecord(ctx context.Context, ev ledger.Event) (string, error) {
	c := Credential{
		ID:            uuid.New(),
		EntryID:       ev.Field("entry"),
		Digest:        o.digest,
		RegistryID:    o.registry.RegistryID,
		HolderDID:     o.holderDID,
		IssuerAddress: ev.Field("creator"),
		Status:        StatusActive,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if c.EntryID == "" {
		return "", fmt.Errorf("event carried no entry identifier")
	}
	if err := o.svc.store.Save(ctx, c); err != nil {
		return "", err
	}
	o.saved = &c
	return c.EntryID, nil
}

// updateOperation anchors a new digest for an existing entry.
type updateOperation struct {
	svc    *Service
	cred   *Credential
	digest string
}

func (o *updateOperation) Kind() ledger.Kind { return ledger.KindCredentialUpdate }

func (o *updateOperation) BuildPayload(context.Context) ([]byte, error) {
	return json.Marshal(map[string]string{
		"entry":  o.cred.EntryID,
		"digest": o.digest,
	})
}

func (o *updateOperation) Confirmation(signer *vault.Account) issuance.Confirmation {
	return issuance.Confirmation{
		Match: func(ev ledger.Event) bool {
			return ev.Is("statement", "Updated") &&
				ev.Field("entry") == o.cred.EntryID &&
				ev.Field("digest") == o.digest
		},
	}
}

func (o *updateOperation) PersistRecord(ctx context.Context, ev ledger.Event) (string, error) {
	if err := o.svc.store.UpdateDigest(ctx, o.cred.EntryID, o.digest); err != nil {
		return "", err
	}
	return o.cred.EntryID, nil
}

// revokeOperation marks an entry revoked.
type revokeOperation struct {
	svc  *Service
	cred *Credential
}

func (o *revokeOperation) Kind() ledger.Kind { return ledger.KindCredentialRevoke }

func (o *revokeOperation) BuildPayload(context.Context) ([]byte, error) {
	return json.Marshal(map[string]string{"entry": o.cred.EntryID})
}

func (o *revokeOperation) Confirmation(signer *vault.Account) issuance.Confirmation {
	return issuance.Confirmation{
		Match: func(ev ledger.Event) bool {
			return ev.Is("statement", "Revoked") && ev.Field("entry") == o.cred.EntryID
		},
	}
}

func (o *revokeOperation) PersistRecord(ctx context.Context, ev ledger.Event) (string, error) {
	if err := o.svc.store.UpdateStatus(ctx, o.cred.EntryID, StatusRevoked); err != nil {
		return "", err
	}
	return o.cred.EntryID, nil
}

var (
	_ issuance.Operation = (*issueOperation)(nil)
	_ issuance.Operation = (*updateOperation)(nil)
	_ issuance.Operation = (*revokeOperation)(nil)
)
