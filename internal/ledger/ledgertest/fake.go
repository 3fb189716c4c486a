// Package ledgertest provides an in-memory ledger for unit tests: submitted
// operations are recorded, events are emitted by the test, and query state is
// a plain map.
package ledgertest

import (
	"context"
	"sync"

	"issuer-agent/internal/ledger"
	"issuer-agent/pkg/sentinel"
)

// Fake is an in-memory ledger.Client. All methods are safe for concurrent use.
type Fake struct {
	mu        sync.Mutex
	nextSubID uint64
	subs      map[uint64]func(ledger.Event)
	submitted []ledger.SignedOperation
	state     map[string][]byte

	// SubmitErr, when set, is returned by the next Submit call.
	SubmitErr error

	// Unsubscribed counts teardown invocations that actually removed a
	// subscription, so tests can assert exactly-once release.
	unsubscribed int
}

// New constructs an empty fake ledger.
func New() *Fake {
	return &Fake{
		subs:  make(map[uint64]func(ledger.Event)),
		state: make(map[string][]byte),
	}
}

func (f *Fake) Subscribe(_ context.Context, onEvent func(ledger.Event)) (ledger.Unsubscribe, error) {
	f.mu.Lock()
	f.nextSubID++
	id := f.nextSubID
	f.subs[id] = onEvent
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			f.unsubscribed++
		}
	}, nil
}

func (f *Fake) Submit(_ context.Context, op ledger.SignedOperation) (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		err := f.SubmitErr
		f.SubmitErr = nil
		return "", err
	}
	f.submitted = append(f.submitted, op)
	return ledger.TxHandle("0xfake"), nil
}

func (f *Fake) Query(_ context.Context, path string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.state[stateKey(path, args)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v, nil
}

// Emit delivers an event to every live subscription, in subscription order.
func (f *Fake) Emit(ev ledger.Event) {
	f.mu.Lock()
	handlers := make([]func(ledger.Event), 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// SetState seeds the value returned by Query for path+args.
func (f *Fake) SetState(path string, value []byte, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[stateKey(path, args)] = value
}

// Submitted returns a copy of all submitted operations.
func (f *Fake) Submitted() []ledger.SignedOperation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ledger.SignedOperation, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// OpenSubscriptions reports how many subscriptions are still live.
func (f *Fake) OpenSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// UnsubscribeCount reports how many subscriptions have been released.
func (f *Fake) UnsubscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func stateKey(path string, args []string) string {
	key := path
	for _, a := range args {
		key += "/" + a
	}
	return key
}
