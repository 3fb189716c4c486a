package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres persists the trail. Append-only; nothing updates or deletes rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, action, kind, resource_id, signer, tx_hash, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.Timestamp, ev.Action, ev.Kind, ev.ResourceID, ev.Signer, ev.TxHash, ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListByKind(ctx context.Context, kind string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, action, kind, resource_id, signer, tx_hash, detail
		FROM audit_events WHERE kind = $1
		ORDER BY ts DESC LIMIT $2`,
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Timestamp, &ev.Action, &ev.Kind, &ev.ResourceID, &ev.Signer, &ev.TxHash, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
