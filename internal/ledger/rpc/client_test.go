package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuer-agent/internal/ledger"
	"issuer-agent/pkg/sentinel"
)

func rpcServer(t *testing.T, result any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		raw, err := json.Marshal(result)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]any{"result": json.RawMessage(raw)})
	}))
}

func TestSubmit(t *testing.T) {
	srv := rpcServer(t, "0xdeadbeef")
	defer srv.Close()

	client := New(srv.URL)
	handle, err := client.Submit(context.Background(), ledger.SignedOperation{
		Operation: ledger.Operation{Kind: ledger.KindRegistryCreate, Payload: []byte(`{}`)},
		Signer:    "addr-1",
		Signature: []byte{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.TxHandle("0xdeadbeef"), handle)
}

func TestQuery(t *testing.T) {
	srv := rpcServer(t, map[string]string{"profileId": "prof-1"})
	defer srv.Close()

	client := New(srv.URL)
	raw, err := client.Query(context.Background(), "profile.accountProfiles", "addr-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"profileId":"prof-1"}`, string(raw))
}

func TestQuery_NullIsNotFound(t *testing.T) {
	srv := rpcServer(t, nil)
	defer srv.Close()

	_, err := New(srv.URL).Query(context.Background(), "profile.accountProfiles", "addr-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestQuery_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Query(context.Background(), "bogus.path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestCall_DeadNodeIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening

	_, err := New(srv.URL).Query(context.Background(), "profile.accountProfiles", "addr-1")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestBreaker(t *testing.T) {
	t.Run("opens after threshold and fails fast", func(t *testing.T) {
		b := newBreaker(3, time.Minute)
		for range 3 {
			require.True(t, b.allow())
			b.recordFailure()
		}
		assert.False(t, b.allow())
	})

	t.Run("success resets the count", func(t *testing.T) {
		b := newBreaker(2, time.Minute)
		require.True(t, b.allow())
		b.recordFailure()
		b.recordSuccess()
		b.recordFailure()
		assert.True(t, b.allow(), "one failure after a success stays under the threshold")
	})

	t.Run("cooldown admits one probe", func(t *testing.T) {
		now := time.Now()
		b := newBreaker(1, 10*time.Second)
		b.now = func() time.Time { return now }

		b.recordFailure()
		require.False(t, b.allow())

		now = now.Add(11 * time.Second)
		assert.True(t, b.allow(), "first call after cooldown probes")
		assert.False(t, b.allow(), "second call waits for the probe's outcome")

		b.recordSuccess()
		assert.True(t, b.allow())
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		now := time.Now()
		b := newBreaker(1, 10*time.Second)
		b.now = func() time.Time { return now }

		b.recordFailure()
		now = now.Add(11 * time.Second)
		require.True(t, b.allow())
		b.recordFailure()
		assert.False(t, b.allow())
	})
}
