package profile

import (
	"time"

	"github.com/google/uuid"

	"issuer-agent/internal/vault"
)

// Profile is a funded on-chain account this service controls. The mnemonic is
// stored only in its encrypted envelope; the plaintext exists transiently
// while a signer is being derived.
type Profile struct {
	ID        uuid.UUID             `json:"id"`
	ProfileID string                `json:"profileId"`
	Address   string                `json:"address"`
	PublicKey string                `json:"publicKey"`
	Mnemonic  vault.EncryptedSecret `json:"-"`
	CreatedAt time.Time             `json:"createdAt"`
}

// Resolved is the wire/cache projection of a profile: everything but the
// secret envelope.
type Resolved struct {
	ProfileID string `json:"profileId"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}
