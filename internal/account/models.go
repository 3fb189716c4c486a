package account

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"issuer-agent/internal/vault"
)

// Account is an API consumer: a named caller holding its own chain identity.
// The bearer token is returned exactly once at creation; only its hash is
// stored. The mnemonic behind the chain address is kept encrypted at rest.
type Account struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	TokenHash   string                `json:"-"`
	Active      bool                  `json:"active"`
	Mnemonic    vault.EncryptedSecret `json:"-"`
	Address     string                `json:"address"`
	DIDDocument json.RawMessage       `json:"didDocument,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// CreateResult carries the one-time bearer token alongside the account.
type CreateResult struct {
	Account Account `json:"account"`
	Token   string  `json:"token"`
}
