// Package issuance sequences a chain-backed state change from signer
// resolution through submission, confirmation, and durable persistence.
// Every "create X on chain" flow in the service runs through the one
// coordinator here; the flows differ only in their Operation variant.
package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"issuer-agent/internal/audit"
	"issuer-agent/internal/ledger"
	"issuer-agent/internal/ledger/correlator"
	"issuer-agent/internal/ledger/poller"
	"issuer-agent/internal/platform/metrics"
	"issuer-agent/internal/vault"
)

// State names a position in the coordinator's lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StateSignerResolved State = "signer_resolved"
	StateOperationBuilt State = "operation_built"
	StateSubmitted      State = "submitted"
	StateConfirmed      State = "confirmed"
	StatePersisted      State = "persisted"
	StateFailed         State = "failed"
)

// SignerResolver resolves an owner key to a signing identity.
type SignerResolver interface {
	ResolveSigner(ctx context.Context, owner string) (*vault.Account, error)
}

// SignerResolverFunc adapts a function to SignerResolver.
type SignerResolverFunc func(ctx context.Context, owner string) (*vault.Account, error)

func (f SignerResolverFunc) ResolveSigner(ctx context.Context, owner string) (*vault.Account, error) {
	return f(ctx, owner)
}

// StaticSigner resolves every owner to the given account. Used where the
// signer is already in hand: the bootstrap author identity, or a keypair
// generated moments earlier in the same flow.
func StaticSigner(account *vault.Account) SignerResolver {
	return SignerResolverFunc(func(context.Context, string) (*vault.Account, error) {
		return account, nil
	})
}

// Confirmation describes how an operation kind learns its chain outcome.
// Match set: confirm by the first feed event satisfying it, bounded by the
// correlator deadline. Match nil: confirm by polling Check.
type Confirmation struct {
	Match    func(ledger.Event) bool
	Deadline time.Duration

	Check    poller.Check[ledger.Event]
	Attempts int
	Delay    time.Duration
}

// Operation is one tagged operation variant. Each kind carries its own
// payload construction, its own confirmation, and its own persistence record
// shape; the coordinator stays generic.
type Operation interface {
	Kind() ledger.Kind

	// BuildPayload constructs the canonical ledger payload.
	BuildPayload(ctx context.Context) ([]byte, error)

	// Confirmation is built after signing so predicates can bind to the
	// resolved signer's address.
	Confirmation(signer *vault.Account) Confirmation

	// PersistRecord durably records the confirmed outcome and returns the
	// resource id extracted from the confirmation event. A duplicate resource
	// id must surface as sentinel.ErrConflict, wrapped or not.
	PersistRecord(ctx context.Context, ev ledger.Event) (string, error)
}

// Error is a typed transition failure. The coordinator never retries; callers
// inspect From to decide whether resubmission is safe (a failure before
// StateSubmitted always is, one after may duplicate chain state).
type Error struct {
	Kind ledger.Kind
	From State
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed after %s: %v", e.Kind, e.From, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is a completed run.
type Result struct {
	ResourceID string
	Event      ledger.Event
	TxHandle   ledger.TxHandle
	Signer     string
}

// Coordinator drives operations through the lifecycle. Many runs may be in
// flight at once; runs share nothing but the ledger client and the metrics.
type Coordinator struct {
	ledger     ledger.Client
	correlator *correlator.Correlator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	audit      *audit.Recorder
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAudit records every run's outcome in the audit trail.
func WithAudit(rec *audit.Recorder) Option {
	return func(c *Coordinator) { c.audit = rec }
}

// New constructs a Coordinator.
func New(lc ledger.Client, corr *correlator.Correlator, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:     lc,
		correlator: corr,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("issuer-agent/issuance"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes op end to end: resolve signer → build → submit → confirm →
// persist. owner is the key the signer resolver understands (a profile
// address, or ignored for static signers).
func (c *Coordinator) Run(ctx context.Context, signers SignerResolver, owner string, op Operation) (*Result, error) {
	kind := op.Kind()
	ctx, span := c.tracer.Start(ctx, "issuance.Run",
		trace.WithAttributes(attribute.String("operation.kind", string(kind))))
	defer span.End()

	state := StateIdle

	signer, err := signers.ResolveSigner(ctx, owner)
	if err != nil {
		return nil, c.fail(span, kind, state, fmt.Errorf("resolve signer: %w", err))
	}
	state = StateSignerResolved

	payload, err := op.BuildPayload(ctx)
	if err != nil {
		return nil, c.fail(span, kind, state, fmt.Errorf("build payload: %w", err))
	}
	state = StateOperationBuilt

	signed := ledger.SignedOperation{
		Operation: ledger.Operation{Kind: kind, Payload: payload},
		Signer:    signer.Address,
		Signature: signer.Sign(payload),
	}
	handle, err := c.ledger.Submit(ctx, signed)
	if err != nil {
		return nil, c.fail(span, kind, state, fmt.Errorf("submit: %w", err))
	}
	state = StateSubmitted
	c.metrics.OperationsSubmitted.WithLabelValues(string(kind)).Inc()
	c.logger.Info("operation submitted",
		"kind", kind, "signer", signer.Address, "tx", handle)

	ev, err := c.confirm(ctx, op.Confirmation(signer))
	if err != nil {
		return nil, c.fail(span, kind, state, err)
	}
	state = StateConfirmed
	c.metrics.OperationsConfirmed.WithLabelValues(string(kind)).Inc()

	resourceID, err := op.PersistRecord(ctx, ev)
	if err != nil {
		return nil, c.fail(span, kind, state, fmt.Errorf("persist: %w", err))
	}
	span.SetAttributes(attribute.String("resource.id", resourceID))
	c.logger.Info("operation persisted",
		"kind", kind, "resource_id", resourceID, "block", ev.Block)
	if c.audit != nil {
		c.audit.Record(audit.Event{
			Action:     audit.ActionOperationPersisted,
			Kind:       string(kind),
			ResourceID: resourceID,
			Signer:     signer.Address,
			TxHash:     string(handle),
		})
	}

	return &Result{
		ResourceID: resourceID,
		Event:      ev,
		TxHandle:   handle,
		Signer:     signer.Address,
	}, nil
}

func (c *Coordinator) confirm(ctx context.Context, conf Confirmation) (ledger.Event, error) {
	if conf.Match != nil {
		ev, err := c.correlator.AwaitEventWithin(ctx, conf.Match, conf.Deadline)
		if err != nil {
			return ledger.Event{}, fmt.Errorf("confirm by event: %w", err)
		}
		return ev, nil
	}
	ev, err := poller.PollUntil(ctx, conf.Check, conf.Attempts, conf.Delay)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("confirm by poll: %w", err)
	}
	return ev, nil
}

func (c *Coordinator) fail(span trace.Span, kind ledger.Kind, from State, err error) error {
	c.metrics.OperationsFailed.WithLabelValues(string(kind)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, string(StateFailed))
	c.logger.Error("operation failed", "kind", kind, "state", from, "error", err)
	if c.audit != nil {
		c.audit.Record(audit.Event{
			Action: audit.ActionOperationFailed,
			Kind:   string(kind),
			Detail: fmt.Sprintf("after %s: %v", from, err),
		})
	}
	return &Error{Kind: kind, From: from, Err: err}
}
