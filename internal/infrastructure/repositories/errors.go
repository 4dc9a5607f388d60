package repositories

import (
	"errors"
	"fmt"

	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// wrapWriteError maps unique violations to ports.ErrConflict so services can run their single retry.
func wrapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("failed to %s: %w: %s", op, ports.ErrConflict, pqErr.Constraint)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
