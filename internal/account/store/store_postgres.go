package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"issuer-agent/internal/account"
	"issuer-agent/internal/store/pg"
	"issuer-agent/internal/vault"
	"issuer-agent/pkg/sentinel"
)

// Postgres persists accounts. The token hash column is unique; the mnemonic
// is stored as its encrypted envelope, never in the clear.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Save(ctx context.Context, a account.Account) error {
	mnemonic, err := json.Marshal(a.Mnemonic)
	if err != nil {
		return fmt.Errorf("encode mnemonic envelope: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, token_hash, active, mnemonic, address, did_document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Name, a.TokenHash, a.Active, mnemonic, a.Address, nullableJSON(a.DIDDocument), a.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("account token: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, name, token_hash, active, mnemonic, address, did_document, created_at
		FROM accounts WHERE id = $1`, id))
}

func (s *Postgres) FindByTokenHash(ctx context.Context, tokenHash string) (*account.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, name, token_hash, active, mnemonic, address, did_document, created_at
		FROM accounts WHERE token_hash = $1`, tokenHash))
}

func (s *Postgres) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*account.Account, error) {
	var (
		a        account.Account
		mnemonic []byte
		didDoc   sql.Null[[]byte]
	)
	err := row.Scan(&a.ID, &a.Name, &a.TokenHash, &a.Active, &mnemonic, &a.Address, &didDoc, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	var envelope vault.EncryptedSecret
	if err := json.Unmarshal(mnemonic, &envelope); err != nil {
		return nil, fmt.Errorf("decode mnemonic envelope: %w", err)
	}
	a.Mnemonic = envelope
	if didDoc.Valid {
		a.DIDDocument = didDoc.V
	}
	return &a, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
