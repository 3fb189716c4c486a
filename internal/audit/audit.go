// Package audit keeps an append-only trail of chain operations: what was
// submitted, by whom, and how it ended. Issuing and revoking credentials are
// the kind of actions someone asks about months later; the trail answers
// without grepping logs.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Action classifies a trail entry.
type Action string

const (
	ActionOperationPersisted Action = "operation_persisted"
	ActionOperationFailed    Action = "operation_failed"
)

// Event is one trail entry. Kind and ResourceID identify the operation;
// Detail carries the failure reason for failed runs.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	Kind       string    `json:"kind"`
	ResourceID string    `json:"resourceId,omitempty"`
	Signer     string    `json:"signer,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Store is the trail's persistence contract.
type Store interface {
	Append(ctx context.Context, ev Event) error
	ListByKind(ctx context.Context, kind string, limit int) ([]Event, error)
}

// Recorder accepts events without blocking the operation that emits them.
// The trail is best-effort: when the buffer is full the event is dropped and
// logged, never back-pressured into the issuance path.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewRecorder builds a Recorder with the given buffer depth.
func NewRecorder(depth int, logger *slog.Logger) *Recorder {
	return &Recorder{inbox: make(chan Event, depth), logger: logger}
}

// Record enqueues an event, stamping the time if unset.
func (r *Recorder) Record(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case r.inbox <- ev:
	default:
		r.logger.Warn("audit buffer full, event dropped", "action", ev.Action, "kind", ev.Kind)
	}
}

// Events is the worker's consumption side.
func (r *Recorder) Events() <-chan Event {
	return r.inbox
}
