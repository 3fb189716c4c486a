package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"issuer-agent/internal/credential"
	"issuer-agent/internal/store/pg"
	"issuer-agent/pkg/sentinel"
)

// Postgres persists credentials with uniqueness enforced by the schema:
// one row per entry id, one revision row per (entry id, digest).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Save(ctx context.Context, c credential.Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (id, entry_id, digest, registry_id, holder_did, issuer_address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		c.ID, c.EntryID, c.Digest, c.RegistryID, c.HolderDID, c.IssuerAddress, c.Status, c.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("credential entry %s: %w", c.EntryID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credential_revisions (entry_id, digest, anchored_at)
		VALUES ($1, $2, $3)`,
		c.EntryID, c.Digest, c.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("revision %s of entry %s: %w", c.Digest, c.EntryID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert revision: %w", err)
	}

	return tx.Commit()
}

func (s *Postgres) UpdateDigest(ctx context.Context, entryID, digest string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credential_revisions (entry_id, digest)
		VALUES ($1, $2)`,
		entryID, digest,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("revision %s of entry %s: %w", digest, entryID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert revision: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE credentials SET digest = $2, updated_at = now()
		WHERE entry_id = $1`,
		entryID, digest,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}

	return tx.Commit()
}

func (s *Postgres) UpdateStatus(ctx context.Context, entryID string, status credential.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials SET status = $2, updated_at = now()
		WHERE entry_id = $1`,
		entryID, status,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByEntryID(ctx context.Context, entryID string) (*credential.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entry_id, digest, registry_id, holder_did, issuer_address, status, created_at, updated_at
		FROM credentials WHERE entry_id = $1`,
		entryID,
	)
	return scanCredential(row)
}

func (s *Postgres) ListByRegistry(ctx context.Context, registryID string) ([]credential.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, digest, registry_id, holder_did, issuer_address, status, created_at, updated_at
		FROM credentials WHERE registry_id = $1
		ORDER BY created_at`,
		registryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []credential.Credential
	for rows.Next() {
		var c credential.Credential
		if err := rows.Scan(&c.ID, &c.EntryID, &c.Digest, &c.RegistryID, &c.HolderDID, &c.IssuerAddress, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCredential(row *sql.Row) (*credential.Credential, error) {
	var c credential.Credential
	err := row.Scan(&c.ID, &c.EntryID, &c.Digest, &c.RegistryID, &c.HolderDID, &c.IssuerAddress, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &c, nil
}
