package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/jwalitptl/hospital-api/internal/repository"
)

const uniqueViolation = pq.ErrorCode("23505")

// Constraint names from schema.sql.
const (
	constraintAccountEmail = "accounts_email_key"
	constraintActiveSlot   = "appointments_active_slot_idx"
)

// translate maps driver errors onto repository sentinels and wraps the rest.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case constraintActiveSlot:
			return repository.ErrSlotTaken
		case constraintAccountEmail:
			return repository.ErrDuplicateEmail
		default:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
		}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
