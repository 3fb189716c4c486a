package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"issuer-agent/internal/registry"
	"issuer-agent/internal/store/pg"
	"issuer-agent/pkg/sentinel"
)

// Postgres persists registries in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Save(ctx context.Context, r registry.Registry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registries (id, registry_id, schema, address, profile_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.RegistryID, []byte(r.Schema), r.Address, r.ProfileID, r.CreatedAt,
	)
	if pg.IsUniqueViolation(err) {
		return fmt.Errorf("registry %s: %w", r.RegistryID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert registry: %w", err)
	}
	return nil
}

func (s *Postgres) FindByRegistryID(ctx context.Context, registryID string) (*registry.Registry, error) {
	var r registry.Registry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, registry_id, schema, address, profile_id, created_at
		 FROM registries WHERE registry_id = $1`, registryID).
		Scan(&r.ID, &r.RegistryID, &r.Schema, &r.Address, &r.ProfileID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registry: %w", err)
	}
	return &r, nil
}

func (s *Postgres) ListByAddress(ctx context.Context, address string) ([]registry.Registry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, registry_id, schema, address, profile_id, created_at
		 FROM registries WHERE address = $1 ORDER BY created_at`, address)
	if err != nil {
		return nil, fmt.Errorf("list registries: %w", err)
	}
	defer rows.Close()

	var out []registry.Registry
	for rows.Next() {
		var r registry.Registry
		if err := rows.Scan(&r.ID, &r.RegistryID, &r.Schema, &r.Address, &r.ProfileID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registry: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
