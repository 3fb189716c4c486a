// Package profile creates and resolves the funded on-chain accounts that own
// registries and credentials.
package profile

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"issuer-agent/internal/issuance"
	"issuer-agent/internal/ledger"
	"issuer-agent/internal/ledger/poller"
	"issuer-agent/internal/resolve"
	"issuer-agent/internal/vault"
)

// queryAccountProfiles is the chain read path for profile confirmation.
const queryAccountProfiles = "profile.accountProfiles"

// Store is the persistence dependency; the concrete contract lives in the
// store subpackage.
type Store interface {
	Save(ctx context.Context, p Profile) error
	FindByAddress(ctx context.Context, address string) (*Profile, error)
	FindByProfileID(ctx context.Context, profileID string) (*Profile, error)
}

// Config carries the knobs the profile flows need.
type Config struct {
	// Author is the bootstrap-owned stash identity that funds new accounts.
	Author *vault.Account
	// FundingAmount is transferred to every new account before its profile
	// is set on chain.
	FundingAmount uint64
	// EncryptionPassword protects generated mnemonics at rest.
	EncryptionPassword string

	PollAttempts int
	PollDelay    time.Duration
}

// Service drives profile creation and resolution.
type Service struct {
	coord    *issuance.Coordinator
	ledger   ledger.Client
	store    Store
	resolver *resolve.Resolver
	cfg      Config
	logger   *slog.Logger
}

// NewService constructs the profile service. resolver is the shared
// cache-fallback resolver; profile lookups run cache → ledger → store.
func NewService(coord *issuance.Coordinator, lc ledger.Client, store Store, resolver *resolve.Resolver, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		coord:    coord,
		ledger:   lc,
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateResult is returned once, mnemonic included. The mnemonic is never
// recoverable in plaintext afterwards.
type CreateResult struct {
	ProfileID string `json:"profileId"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	Mnemonic  string `json:"mnemonic"`
}

// Create generates a fresh account, funds it from the stash, sets its profile
// on chain, and persists the confirmed record. Funding confirms by transfer
// event; profile creation confirms by polling the account's profile record
// with retry-later semantics (a NotFoundAfterRetries failure means the
// profile may still appear: re-poll, do not resubmit).
func (s *Service) Create(ctx context.Context, pubName string) (*CreateResult, error) {
	mnemonic, err := vault.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	account, err := vault.DeriveSigningIdentity(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	if _, err := s.coord.Run(ctx, issuance.StaticSigner(s.cfg.Author), s.cfg.Author.Address, &fundOperation{
		to:     account.Address,
		amount: s.cfg.FundingAmount,
	}); err != nil {
		return nil, fmt.Errorf("fund account %s: %w", account.Address, err)
	}
	s.logger.Info("account funded", "address", account.Address, "amount", s.cfg.FundingAmount)

	encrypted, err := vault.Encrypt(mnemonic, s.cfg.EncryptionPassword)
	if err != nil {
		return nil, fmt.Errorf("encrypt mnemonic: %w", err)
	}

	op := &createOperation{svc: s, account: account, pubName: pubName, encrypted: encrypted}
	res, err := s.coord.Run(ctx, issuance.StaticSigner(account), account.Address, op)
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		ProfileID: res.ResourceID,
		Address:   account.Address,
		PublicKey: "0x" + hex.EncodeToString(account.PublicKey),
		Mnemonic:  mnemonic,
	}, nil
}

// Resolve looks a profile up by address through the fallback chain:
// cache → chain query → local store.
func (s *Service) Resolve(ctx context.Context, address string) (*Resolved, error) {
	value, source, err := s.resolver.Resolve(ctx, "profile:"+address,
		resolve.Source{Name: "ledger", Fetch: func(ctx context.Context, _ string) ([]byte, bool, error) {
			raw, err := s.ledger.Query(ctx, queryAccountProfiles, address)
			if resolve.IsNotFound(err) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			var profileID string
			if err := json.Unmarshal(raw, &profileID); err != nil {
				return nil, false, fmt.Errorf("decode profile id: %w", err)
			}
			p, err := s.store.FindByAddress(ctx, address)
			if err != nil {
				// Known on chain but not locally; serve the chain's view.
				return marshalResolved(Resolved{ProfileID: profileID, Address: address})
			}
			return marshalResolved(Resolved{ProfileID: profileID, Address: address, PublicKey: p.PublicKey})
		}},
		resolve.Source{Name: "store", Fetch: func(ctx context.Context, _ string) ([]byte, bool, error) {
			p, err := s.store.FindByAddress(ctx, address)
			if resolve.IsNotFound(err) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return marshalResolved(Resolved{ProfileID: p.ProfileID, Address: p.Address, PublicKey: p.PublicKey})
		}},
	)
	if err != nil {
		return nil, err
	}

	var out Resolved
	if err := json.Unmarshal(value, &out); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	s.logger.Debug("profile resolved", "address", address, "source", source)
	return &out, nil
}

func marshalResolved(r Resolved) ([]byte, bool, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// fundOperation transfers the seed balance to a fresh account. Confirmed by
// the transfer event naming the recipient.
type fundOperation struct {
	to     string
	amount uint64
}

func (o *fundOperation) Kind() ledger.Kind { return ledger.KindBalanceTransfer }

func (o *fundOperation) BuildPayload(context.Context) ([]byte, error) {
	return json.Marshal(map[string]any{"to": o.to, "amount": o.amount})
}

func (o *fundOperation) Confirmation(*vault.Account) issuance.Confirmation {
	return issuance.Confirmation{
		Match: func(ev ledger.Event) bool {
			return ev.Is("balances", "Transfer") && ev.Field("to") == o.to
		},
	}
}

func (o *fundOperation) PersistRecord(_ context.Context, ev ledger.Event) (string, error) {
	// Funding leaves no local record; the balance lives on chain.
	return ev.Field("to"), nil
}

// createOperation sets the profile on chain and persists the confirmed
// record. Profile data fields are hashed before leaving the process.
type createOperation struct {
	svc       *Service
	account   *vault.Account
	pubName   string
	encrypted vault.EncryptedSecret
}

func (o *createOperation) Kind() ledger.Kind { return ledger.KindProfileCreate }

func (o *createOperation) BuildPayload(context.Context) ([]byte, error) {
	digest := blake2b.Sum256([]byte(o.pubName))
	return json.Marshal(map[string]string{
		"pub_name": "0x" + hex.EncodeToString(digest[:]),
	})
}

func (o *createOperation) Confirmation(*vault.Account) issuance.Confirmation {
	return issuance.Confirmation{
		Check: func(ctx context.Context) (ledger.Event, bool, error) {
			raw, err := o.svc.ledger.Query(ctx, queryAccountProfiles, o.account.Address)
			if resolve.IsNotFound(err) {
				return ledger.Event{}, false, nil
			}
			if err != nil {
				return ledger.Event{}, false, err
			}
			var profileID string
			if err := json.Unmarshal(raw, &profileID); err != nil {
				return ledger.Event{}, false, fmt.Errorf("decode profile id: %w", err)
			}
			if profileID == "" {
				return ledger.Event{}, false, nil
			}
			// The profile pallet emits no event the indexer forwards, so the
			// confirmed read is projected into the event shape downstream
			// code expects.
			return ledger.Event{
				Section: "profile",
				Method:  "ProfileSet",
				Data:    map[string]string{"profileId": profileID, "account": o.account.Address},
			}, true, nil
		},
		Attempts: o.svc.cfg.PollAttempts,
		Delay:    o.svc.cfg.PollDelay,
	}
}

func (o *createOperation) PersistRecord(ctx context.Context, ev ledger.Event) (string, error) {
	profileID := ev.Field("profileId")
	p := Profile{
		ID:        uuid.New(),
		ProfileID: profileID,
		Address:   o.account.Address,
		PublicKey: "0x" + hex.EncodeToString(o.account.PublicKey),
		Mnemonic:  o.encrypted,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.svc.store.Save(ctx, p); err != nil {
		return "", err
	}
	return profileID, nil
}

// Ensure the variants satisfy the coordinator contract.
var (
	_ issuance.Operation = (*fundOperation)(nil)
	_ issuance.Operation = (*createOperation)(nil)
)
