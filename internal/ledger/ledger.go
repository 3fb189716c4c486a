// Package ledger defines the contract this service has with the distributed
// ledger. The chain node, its consensus, and its transaction format are
// external collaborators; everything here is the minimal surface the issuance
// flows depend on: submit a signed operation, query a read path, and observe
// the event feed.
package ledger

import "context"

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks

// Kind tags a ledger operation. Every operation the service submits carries
// exactly one kind; predicates and persistence records are keyed off it.
type Kind string

const (
	KindProfileCreate    Kind = "profile-create"
	KindBalanceTransfer  Kind = "balance-transfer"
	KindRegistryCreate   Kind = "registry-create"
	KindCredentialIssue  Kind = "credential-issue"
	KindCredentialUpdate Kind = "credential-update"
	KindCredentialRevoke Kind = "credential-revoke"
)

// Operation is an unsigned ledger operation: a kind plus the canonical payload
// built for it. Payload construction is delegated to the operation builders;
// the ledger treats it as opaque bytes.
type Operation struct {
	Kind    Kind
	Payload []byte
}

// SignedOperation binds an operation to the account that authorized it.
type SignedOperation struct {
	Operation
	Signer    string
	Signature []byte
}

// TxHandle identifies a submitted transaction. It carries no finality
// guarantee; confirmation always comes from the event feed or a read path.
type TxHandle string

// Event is a notification emitted by the ledger once a submitted transaction
// has been included and processed. Data holds the extracted event fields as
// the chain indexer decoded them.
type Event struct {
	Section string            `json:"section"`
	Method  string            `json:"method"`
	Data    map[string]string `json:"data"`
	Block   uint64            `json:"block"`
	TxHash  string            `json:"txHash"`
}

// Is reports whether the event was emitted by the given section and method.
func (e Event) Is(section, method string) bool {
	return e.Section == section && e.Method == method
}

// Field returns the named event data field, or "" when absent.
func (e Event) Field(name string) string {
	return e.Data[name]
}

// Unsubscribe tears down an event subscription. Implementations must make it
// safe to call more than once; the correlator relies on that when the timeout
// and the match race.
type Unsubscribe func()

// Subscriber is the read side of the ledger event feed.
type Subscriber interface {
	// Subscribe registers onEvent for every event observed from the feed and
	// returns the teardown for this one subscription. Each call opens its own
	// subscription; callers own releasing it.
	Subscribe(ctx context.Context, onEvent func(Event)) (Unsubscribe, error)
}

// Client is the full ledger collaborator: event feed, write path, read path.
type Client interface {
	Subscriber

	// Submit hands a signed operation to the chain node. A returned handle
	// means accepted into the pool, not included; resubmitting the same
	// operation is not guaranteed to be safe.
	Submit(ctx context.Context, op SignedOperation) (TxHandle, error)

	// Query reads a value from the authoritative chain state, for example
	// "profile.accountProfiles" with an account address. Returns
	// sentinel.ErrNotFound when the path has no value.
	Query(ctx context.Context, path string, args ...string) ([]byte, error)
}
