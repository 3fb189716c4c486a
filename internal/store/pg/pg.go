// Package pg holds shared helpers for the PostgreSQL-backed stores.
package pg

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is the backing store rejecting a
// duplicate key. Idempotency is enforced by unique indexes, never by
// check-then-insert in application code; this is how stores read the verdict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
