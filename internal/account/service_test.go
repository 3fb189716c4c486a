package account

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuer-agent/internal/account/store"
	"issuer-agent/internal/vault"
	"issuer-agent/pkg/sentinel"
)

const testPassword = "correct horse battery staple"

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	tokens := NewTokenService("test-signing-key", time.Hour)
	svc := NewService(mem, tokens, testPassword, slog.New(slog.DiscardHandler))
	return svc, mem
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Create(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.Account.Address)
	assert.True(t, res.Account.Active)

	got, err := svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, got.ID)
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Create(context.Background(), "acme")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), res.Account.ID))

	_, err = svc.Authenticate(context.Background(), res.Token)
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestCreate_MnemonicEncryptedAtRest(t *testing.T) {
	svc, mem := newTestService(t)

	res, err := svc.Create(context.Background(), "acme")
	require.NoError(t, err)

	stored, err := mem.FindByID(context.Background(), res.Account.ID)
	require.NoError(t, err)

	// The stored envelope decrypts with the service password, and the
	// recovered mnemonic derives exactly the account's address.
	mnemonic, err := vault.Decrypt(stored.Mnemonic, testPassword)
	require.NoError(t, err)
	acc, err := vault.DeriveSigningIdentity(mnemonic)
	require.NoError(t, err)
	assert.Equal(t, res.Account.Address, acc.Address)

	_, err = vault.Decrypt(stored.Mnemonic, "wrong password")
	assert.ErrorIs(t, err, vault.ErrDecryptionFailed)
}

func TestCreate_TokenNotRecoverable(t *testing.T) {
	svc, mem := newTestService(t)

	res, err := svc.Create(context.Background(), "acme")
	require.NoError(t, err)

	stored, err := mem.FindByID(context.Background(), res.Account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, res.Token, stored.TokenHash)
	assert.Equal(t, HashToken(res.Token), stored.TokenHash)
}

func TestStartSession(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Create(context.Background(), "acme")
	require.NoError(t, err)

	session, err := svc.StartSession(context.Background(), res.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, session)

	_, err = svc.StartSession(context.Background(), "bogus")
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService("key", time.Hour)
	acc := &Account{ID: uuid.New(), Address: "addr-1"}

	signed, err := tokens.GenerateSessionToken(acc)
	require.NoError(t, err)

	claims, err := tokens.ValidateSessionToken(signed)
	require.NoError(t, err)
	assert.Equal(t, acc.ID.String(), claims.AccountID)
	assert.Equal(t, "addr-1", claims.Address)
}

func TestTokenService_Expired(t *testing.T) {
	tokens := NewTokenService("key", -time.Minute)
	acc := &Account{ID: uuid.New(), Address: "addr-1"}

	signed, err := tokens.GenerateSessionToken(acc)
	require.NoError(t, err)

	_, err = tokens.ValidateSessionToken(signed)
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestTokenService_WrongKey(t *testing.T) {
	acc := &Account{ID: uuid.New(), Address: "addr-1"}

	signed, err := NewTokenService("key-a", time.Hour).GenerateSessionToken(acc)
	require.NoError(t, err)

	_, err = NewTokenService("key-b", time.Hour).ValidateSessionToken(signed)
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}
