package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// VoterRepository stores voters and their cached primary email fields.
type VoterRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewVoterRepository creates a new voter repository
func NewVoterRepository(database *db.Database, logger *logrus.Logger) ports.VoterRepository {
	return &VoterRepository{
		db:     database,
		logger: logger,
	}
}

// GetByID retrieves a voter by ID
func (r *VoterRepository) GetByID(ctx context.Context, id uuid.UUID) (*voter.Voter, error) {
	var v voter.Voter
	query := `
		SELECT id, first_name, last_name, email, primary_email_id, email_ownership_is_verified, created_at, updated_at
		FROM voters
		WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &v, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"voter_id": id}).Debug("db: voter not found by ID")
			}
			return nil, fmt.Errorf("%w: %s", voter.ErrVoterNotFound, id)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"voter_id": id}).WithError(err).Error("db: failed to get voter by ID")
		}
		return nil, fmt.Errorf("failed to get voter by ID: %w", err)
	}

	return &v, nil
}

// Update writes the voter's name and cached email fields.
func (r *VoterRepository) Update(ctx context.Context, v *voter.Voter) error {
	query := `
		UPDATE voters
		SET first_name = $2, last_name = $3, email = $4, primary_email_id = $5,
			email_ownership_is_verified = $6, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query,
		v.ID, v.FirstName, v.LastName, v.Email, v.PrimaryEmailID, v.EmailOwnershipIsVerified)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"voter_id": v.ID}).WithError(err).Warn("db: failed to update voter")
		}
		return wrapWriteError("update voter", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", voter.ErrVoterNotFound, v.ID)
	}

	return nil
}

// ClearCachedEmail removes references to the email from every voter except the given one.
func (r *VoterRepository) ClearCachedEmail(ctx context.Context, emailID uuid.UUID, normalized string, except uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE voters
		SET email = NULL, primary_email_id = NULL, email_ownership_is_verified = FALSE, updated_at = NOW()
		WHERE id <> $3 AND (primary_email_id = $1 OR LOWER(email) = LOWER($2))
		RETURNING id`

	var ids []uuid.UUID
	if err := r.db.DB.SelectContext(ctx, &ids, query, emailID, normalized, except); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email_id": emailID}).WithError(err).Error("db: failed to clear cached email")
		}
		return nil, fmt.Errorf("failed to clear cached email: %w", err)
	}
	if r.logger != nil && len(ids) > 0 {
		r.logger.WithFields(logrus.Fields{"email_id": emailID, "voters": len(ids)}).Info("db: cleared cached email on other voters")
	}
	return ids, nil
}

var _ ports.VoterRepository = (*VoterRepository)(nil)
