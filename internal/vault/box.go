package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/box"
)

const hkdfInfoBox = "issuer-agent/box/v1"

// BoxedSecret is the envelope for the asymmetric variant: box encryption with
// a long-lived service keypair plus a per-message nonce. Used when the party
// decrypting a payload is not the one that encrypted it.
type BoxedSecret struct {
	Nonce  string `json:"nonce"`
	Sealed string `json:"encrypt"`
}

// BoxVault holds the service's long-lived curve25519 keypair.
type BoxVault struct {
	pub  [32]byte
	priv [32]byte
}

// NewBoxVault derives the service keypair deterministically from the service
// mnemonic, so every instance of the process shares the same identity.
func NewBoxVault(mnemonic string) (*BoxVault, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	v := &BoxVault{}
	kdf := hkdf.New(sha256.New, seed, nil, []byte(hkdfInfoBox))
	if _, err := io.ReadFull(kdf, v.priv[:]); err != nil {
		return nil, fmt.Errorf("derive box seed: %w", err)
	}
	curve25519.ScalarBaseMult(&v.pub, &v.priv)
	return v, nil
}

// PublicKey returns the service's box public key for peers to encrypt to.
func (v *BoxVault) PublicKey() [32]byte {
	return v.pub
}

// Encrypt seals plaintext for peerPub with a fresh random nonce.
func (v *BoxVault) Encrypt(plaintext []byte, peerPub [32]byte) (BoxedSecret, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return BoxedSecret{}, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := box.Seal(nil, plaintext, &nonce, &peerPub, &v.priv)
	return BoxedSecret{
		Nonce:  hex.EncodeToString(nonce[:]),
		Sealed: hex.EncodeToString(sealed),
	}, nil
}

// Decrypt opens an envelope sealed by peerPub for this service. Fails closed
// with ErrDecryptionFailed on any authentication failure.
func (v *BoxVault) Decrypt(enc BoxedSecret, peerPub [32]byte) ([]byte, error) {
	nonceBytes, err := hex.DecodeString(enc.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, ErrDecryptionFailed
	}
	sealed, err := hex.DecodeString(enc.Sealed)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	plaintext, ok := box.Open(nil, sealed, &nonce, &peerPub, &v.priv)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
