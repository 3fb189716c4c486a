package vault

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

// ErrInvalidMnemonic rejects seed phrases that fail checksum validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

const hkdfInfoSigning = "issuer-agent/signing/v1"

// Account is a resolved signing identity: the address, the public key, and a
// sign capability. It never carries the mnemonic it was derived from; callers
// must not let it outlive the request unless cached with a bounded TTL.
type Account struct {
	Address   string
	PublicKey ed25519.PublicKey

	priv ed25519.PrivateKey
}

// Sign signs data with the account's private key.
func (a *Account) Sign(data []byte) []byte {
	return ed25519.Sign(a.priv, data)
}

// GenerateMnemonic returns a fresh 12-word seed phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("build mnemonic: %w", err)
	}
	return mnemonic, nil
}

// DeriveSigningIdentity deterministically derives an Account from a mnemonic.
// Same mnemonic, same account; the mnemonic itself is never retained.
func DeriveSigningIdentity(mnemonic string) (*Account, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	signingSeed := make([]byte, ed25519.SeedSize)
	kdf := hkdf.New(sha256.New, seed, nil, []byte(hkdfInfoSigning))
	if _, err := io.ReadFull(kdf, signingSeed); err != nil {
		return nil, fmt.Errorf("derive signing seed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(signingSeed)
	pub := priv.Public().(ed25519.PublicKey)

	return &Account{
		Address:   base58.Encode(pub),
		PublicKey: pub,
		priv:      priv,
	}, nil
}
