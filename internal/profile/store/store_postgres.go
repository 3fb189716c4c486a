package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"issuer-agent/internal/profile"
	"issuer-agent/internal/store/pg"
	"issuer-agent/internal/vault"
	"issuer-agent/pkg/sentinel"
)

// Postgres persists profiles in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Save(ctx context.Context, p profile.Profile) error {
	mnemonic, err := json.Marshal(p.Mnemonic)
	if err != nil {
		return fmt.Errorf("encode mnemonic envelope: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, profile_id, address, public_key, mnemonic, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ProfileID, p.Address, p.PublicKey, mnemonic, p.CreatedAt,
	)
	if pg.IsUniqueViolation(err) {
		return fmt.Errorf("profile %s: %w", p.ProfileID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByAddress(ctx context.Context, address string) (*profile.Profile, error) {
	return s.findOne(ctx,
		`SELECT id, profile_id, address, public_key, mnemonic, created_at
		 FROM profiles WHERE address = $1`, address)
}

func (s *Postgres) FindByProfileID(ctx context.Context, profileID string) (*profile.Profile, error) {
	return s.findOne(ctx,
		`SELECT id, profile_id, address, public_key, mnemonic, created_at
		 FROM profiles WHERE profile_id = $1`, profileID)
}

func (s *Postgres) findOne(ctx context.Context, query string, arg any) (*profile.Profile, error) {
	var (
		p        profile.Profile
		mnemonic []byte
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&p.ID, &p.ProfileID, &p.Address, &p.PublicKey, &mnemonic, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	var env vault.EncryptedSecret
	if err := json.Unmarshal(mnemonic, &env); err != nil {
		return nil, fmt.Errorf("decode mnemonic envelope: %w", err)
	}
	p.Mnemonic = env
	return &p, nil
}
