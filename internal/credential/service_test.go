package credential

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credstore "issuer-agent/internal/credential/store"
	"issuer-agent/internal/issuance"
	"issuer-agent/internal/ledger"
	"issuer-agent/internal/ledger/correlator"
	"issuer-agent/internal/ledger/ledgertest"
	"issuer-agent/internal/platform/metrics"
	"issuer-agent/internal/registry"
	registrystore "issuer-agent/internal/registry/store"
	"issuer-agent/internal/vault"
	"issuer-agent/pkg/sentinel"
)

const issuerMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"

type testEnv struct {
	fake    *ledgertest.Fake
	store   *credstore.Memory
	service *Service
	issuer  *vault.Account
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	fake := ledgertest.New()
	issuer, err := vault.DeriveSigningIdentity(issuerMnemonic)
	require.NoError(t, err)

	registries := registrystore.NewMemory()
	require.NoError(t, registries.Save(context.Background(), registry.Registry{
		ID:         uuid.New(),
		RegistryID: "reg-1",
		Schema:     json.RawMessage(`{}`),
		Address:    issuer.Address,
		ProfileID:  "prof-1",
		CreatedAt:  time.Now().UTC(),
	}))

	coord := issuance.New(fake, correlator.New(fake, logger), logger,
		metrics.NewWith(prometheus.NewRegistry()))
	mem := credstore.NewMemory()
	svc := NewService(coord, issuance.StaticSigner(issuer), registries, mem, logger)

	return &testEnv{fake: fake, store: mem, service: svc, issuer: issuer}
}

// confirm emits the statement event once the run's confirmation subscription
// is open.
func (e *testEnv) confirm(t *testing.T, method string, data map[string]string) {
	t.Helper()
	require.Eventually(t, func() bool { return e.fake.OpenSubscriptions() == 1 }, 2*time.Second, 5*time.Millisecond)
	e.fake.Emit(ledger.Event{Section: "statement", Method: method, Data: data})
}

func (e *testEnv) issue(t *testing.T, entryID, holderDID string, claim json.RawMessage) (*Credential, error) {
	t.Helper()
	type outcome struct {
		cred *Credential
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		cred, err := e.service.Issue(context.Background(), "reg-1", holderDID, claim)
		done <- outcome{cred, err}
	}()
	e.confirm(t, "Created", map[string]string{
		"entry":   entryID,
		"creator": e.issuer.Address,
		"digest":  claimDigest(claim, holderDID),
	})
	out := <-done
	return out.cred, out.err
}

func TestIssue(t *testing.T) {
	env := newTestEnv(t)
	claim := json.RawMessage(`{"name":"Alice","degree":"BSc"}`)

	cred, err := env.issue(t, "entry-1", "did:example:alice", claim)
	require.NoError(t, err)
	assert.Equal(t, "entry-1", cred.EntryID)
	assert.Equal(t, "reg-1", cred.RegistryID)
	assert.Equal(t, StatusActive, cred.Status)
	assert.Equal(t, claimDigest(claim, "did:example:alice"), cred.Digest)

	// Only the digest leaves the service; the claim contents are absent from
	// the submitted payload.
	var payload map[string]string
	require.NoError(t, json.Unmarshal(env.fake.Submitted()[0].Payload, &payload))
	assert.NotContains(t, payload, "claim")
	assert.NotContains(t, string(env.fake.Submitted()[0].Payload), "Alice")
}

func TestIssue_UnknownRegistry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Issue(context.Background(), "reg-nowhere", "did:example:alice", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Empty(t, env.fake.Submitted(), "nothing reaches the chain for an unknown registry")
}

func TestIssue_DuplicateEntry(t *testing.T) {
	env := newTestEnv(t)
	claim := json.RawMessage(`{"a":1}`)

	_, err := env.issue(t, "entry-1", "did:example:alice", claim)
	require.NoError(t, err)

	_, err = env.issue(t, "entry-1", "did:example:bob", json.RawMessage(`{"b":2}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	original := json.RawMessage(`{"score":1}`)
	revised := json.RawMessage(`{"score":2}`)

	_, err := env.issue(t, "entry-1", "did:example:alice", original)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := env.service.Update(context.Background(), "entry-1", revised)
		done <- err
	}()
	env.confirm(t, "Updated", map[string]string{
		"entry":  "entry-1",
		"digest": claimDigest(revised, "did:example:alice"),
	})
	require.NoError(t, <-done)

	cred, err := env.store.FindByEntryID(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.Equal(t, claimDigest(revised, "did:example:alice"), cred.Digest)
	assert.Equal(t, StatusActive, cred.Status)
}

func TestUpdate_SameDigestConflicts(t *testing.T) {
	env := newTestEnv(t)
	claim := json.RawMessage(`{"score":1}`)

	_, err := env.issue(t, "entry-1", "did:example:alice", claim)
	require.NoError(t, err)

	// Re-anchoring the revision the entry already carries is rejected by the
	// store's revision uniqueness.
	done := make(chan error, 1)
	go func() {
		_, err := env.service.Update(context.Background(), "entry-1", claim)
		done <- err
	}()
	env.confirm(t, "Updated", map[string]string{
		"entry":  "entry-1",
		"digest": claimDigest(claim, "did:example:alice"),
	})

	err = <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	var cerr *issuance.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, issuance.StateConfirmed, cerr.From)
}

func TestUpdate_UnknownEntry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Update(context.Background(), "entry-nowhere", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.issue(t, "entry-1", "did:example:alice", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	done := make(chan struct {
		cred *Credential
		err  error
	}, 1)
	go func() {
		cred, err := env.service.Revoke(context.Background(), "entry-1")
		done <- struct {
			cred *Credential
			err  error
		}{cred, err}
	}()
	env.confirm(t, "Revoked", map[string]string{"entry": "entry-1"})

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, StatusRevoked, out.cred.Status)
}

func TestHolderBindingChangesDigest(t *testing.T) {
	claim := json.RawMessage(`{"degree":"BSc"}`)
	assert.NotEqual(t,
		claimDigest(claim, "did:example:alice"),
		claimDigest(claim, "did:example:bob"),
		"identical claims for different holders must anchor distinct digests")
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.issue(t, "entry-1", "did:example:alice", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	_, err = env.issue(t, "entry-2", "did:example:bob", json.RawMessage(`{"y":2}`))
	require.NoError(t, err)

	creds, err := env.service.List(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Len(t, creds, 2)
}
