package credential

import (
	"time"

	"github.com/google/uuid"
)

// Status of a credential entry as this service last confirmed it on chain.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Credential is the local record of an on-chain statement entry: the entry
// id, the digest currently anchored for it, and its revocation status. The
// claim contents themselves never touch this service's storage; only the
// digest does.
type Credential struct {
	ID            uuid.UUID `json:"id"`
	EntryID       string    `json:"entryId"`
	Digest        string    `json:"digest"`
	RegistryID    string    `json:"registryId"`
	HolderDID     string    `json:"holderDid"`
	IssuerAddress string    `json:"issuerAddress"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
