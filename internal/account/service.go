// Package account manages API consumers: named callers that authenticate
// with a bearer token and hold their own chain identity.
package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"issuer-agent/internal/vault"
	"issuer-agent/pkg/sentinel"
)

// Store is the persistence dependency.
type Store interface {
	Save(ctx context.Context, a Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service creates accounts and authenticates callers.
type Service struct {
	store    Store
	tokens   *TokenService
	password string
	logger   *slog.Logger
}

// NewService constructs the account service. password encrypts account
// mnemonics at rest.
func NewService(store Store, tokens *TokenService, password string, logger *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, password: password, logger: logger}
}

// Create provisions a named account: a fresh chain identity, its mnemonic
// encrypted at rest, and a bearer token returned exactly once. Losing the
// token means creating a new account; it is not recoverable from the hash.
func (s *Service) Create(ctx context.Context, name string) (*CreateResult, error) {
	mnemonic, err := vault.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	identity, err := vault.DeriveSigningIdentity(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("derive identity: %w", err)
	}
	encrypted, err := vault.Encrypt(mnemonic, s.password)
	if err != nil {
		return nil, fmt.Errorf("encrypt mnemonic: %w", err)
	}

	token := uuid.NewString() + uuid.NewString()
	a := Account{
		ID:          uuid.New(),
		Name:        name,
		TokenHash:   HashToken(token),
		Active:      true,
		Mnemonic:    encrypted,
		Address:     identity.Address,
		DIDDocument: buildDIDDocument(identity),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Save(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("account created", "account_id", a.ID, "name", name, "address", a.Address)
	return &CreateResult{Account: a, Token: token}, nil
}

// Authenticate resolves a bearer token to its active account.
func (s *Service) Authenticate(ctx context.Context, token string) (*Account, error) {
	a, err := s.store.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("unknown token: %w", sentinel.ErrUnauthorized)
	}
	if !a.Active {
		return nil, fmt.Errorf("account %s deactivated: %w", a.ID, sentinel.ErrUnauthorized)
	}
	return a, nil
}

// StartSession exchanges a bearer token for a short-lived JWT session.
func (s *Service) StartSession(ctx context.Context, token string) (string, error) {
	a, err := s.Authenticate(ctx, token)
	if err != nil {
		return "", err
	}
	return s.tokens.GenerateSessionToken(a)
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.store.FindByID(ctx, id)
}

// Deactivate disables an account; its token stops authenticating.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.store.SetActive(ctx, id, false)
}

// HashToken is the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func buildDIDDocument(identity *vault.Account) json.RawMessage {
	did := "did:issuer:" + identity.Address
	doc, _ := json.Marshal(map[string]any{
		"id": did,
		"verificationMethod": []map[string]string{{
			"id":                 did + "#key-0",
			"type":               "Ed25519VerificationKey2020",
			"controller":         did,
			"publicKeyMultibase": "z" + identity.Address,
		}},
		"authentication": []string{did + "#key-0"},
	})
	return doc
}
