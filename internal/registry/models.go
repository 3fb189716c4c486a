package registry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Registry is a ledger-side namespace under which schemas and credential
// entries are grouped. RegistryID is the chain-assigned identifier extracted
// from the creation event; it is the uniqueness key locally.
type Registry struct {
	ID         uuid.UUID       `json:"id"`
	RegistryID string          `json:"registryId"`
	Schema     json.RawMessage `json:"schema"`
	Address    string          `json:"address"`
	ProfileID  string          `json:"profileId"`
	CreatedAt  time.Time       `json:"createdAt"`
}
