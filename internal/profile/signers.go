package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"issuer-agent/internal/resolve"
	"issuer-agent/internal/vault"
)

// Signers resolves a profile address to its signing identity. Decrypted
// mnemonics are cached in process with a short TTL so the slow key
// derivation does not run on every operation; the cache tier is the
// in-memory store, never redis, so plaintext secrets stay inside the process.
type Signers struct {
	store    Store
	secrets  *resolve.Resolver
	password string
}

// SecretCacheTTL bounds how long a decrypted mnemonic may stay resident.
const SecretCacheTTL = 5 * time.Minute

// NewSigners builds the resolver-backed signer source.
func NewSigners(store Store, password string, logger *slog.Logger) *Signers {
	return &Signers{
		store:    store,
		secrets:  resolve.New(resolve.NewMemoryStore(), SecretCacheTTL, logger),
		password: password,
	}
}

// ResolveSigner loads the profile, decrypts its mnemonic (cache → decrypt
// chain), and derives the signing identity. A DecryptionFailure is fatal for
// the request: the same inputs can never succeed.
func (s *Signers) ResolveSigner(ctx context.Context, address string) (*vault.Account, error) {
	mnemonic, _, err := s.secrets.Resolve(ctx, "mnemonic:"+address,
		resolve.Source{Name: "decrypt", Fetch: func(ctx context.Context, _ string) ([]byte, bool, error) {
			p, err := s.store.FindByAddress(ctx, address)
			if resolve.IsNotFound(err) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			plain, err := vault.Decrypt(p.Mnemonic, s.password)
			if err != nil {
				return nil, false, err
			}
			return []byte(plain), true, nil
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("resolve signer for %s: %w", address, err)
	}

	account, err := vault.DeriveSigningIdentity(string(mnemonic))
	if err != nil {
		return nil, fmt.Errorf("derive signer for %s: %w", address, err)
	}
	return account, nil
}
