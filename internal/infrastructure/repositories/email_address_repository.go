package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const emailColumns = `id, voter_id, normalized_email_address, email_ownership_is_verified, secret_key,
	subscription_secret_key, email_permanent_bounce, created_at, updated_at`

// EmailAddressRepository implements ports.EmailAddressRepository on postgres.
// Every list is ordered by created_at, id so "first" is stable across calls.
type EmailAddressRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewEmailAddressRepository(database *db.Database, logger *logrus.Logger) ports.EmailAddressRepository {
	return &EmailAddressRepository{db: database, logger: logger}
}

func (r *EmailAddressRepository) Create(ctx context.Context, e *email.EmailAddress) error {
	query := `
		INSERT INTO email_addresses (id, voter_id, normalized_email_address, email_ownership_is_verified,
			secret_key, subscription_secret_key, email_permanent_bounce, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.DB.ExecContext(ctx, query,
		e.ID, e.VoterID, e.NormalizedEmailAddress, e.EmailOwnershipIsVerified,
		e.SecretKey, e.SubscriptionSecretKey, e.EmailPermanentBounce, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email_id": e.ID, "voter_id": e.VoterID}).WithError(err).Error("db: failed to create email")
		}
		return wrapWriteError("create email", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"email_id": e.ID, "voter_id": e.VoterID}).Info("db: email created")
	}
	return nil
}

func (r *EmailAddressRepository) getOne(ctx context.Context, where string, arg any) (*email.EmailAddress, error) {
	var e email.EmailAddress
	query := `SELECT ` + emailColumns + ` FROM email_addresses WHERE ` + where
	if err := r.db.DB.GetContext(ctx, &e, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, email.ErrEmailNotFound
		}
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to get email")
		}
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &e, nil
}

func (r *EmailAddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*email.EmailAddress, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *EmailAddressRepository) GetBySecretKey(ctx context.Context, secretKey string) (*email.EmailAddress, error) {
	if secretKey == "" {
		return nil, email.ErrMissingSecretKey
	}
	return r.getOne(ctx, "secret_key = $1", secretKey)
}

func (r *EmailAddressRepository) list(ctx context.Context, where string, args ...any) ([]*email.EmailAddress, error) {
	query := `SELECT ` + emailColumns + ` FROM email_addresses WHERE ` + where + ` ORDER BY created_at, id`
	var out []*email.EmailAddress
	if err := r.db.DB.SelectContext(ctx, &out, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list emails")
		}
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return out, nil
}

func (r *EmailAddressRepository) ListByVoter(ctx context.Context, voterID uuid.UUID) ([]*email.EmailAddress, error) {
	return r.list(ctx, "voter_id = $1", voterID)
}

func (r *EmailAddressRepository) ListByText(ctx context.Context, normalized string) ([]*email.EmailAddress, error) {
	return r.list(ctx, "LOWER(normalized_email_address) = LOWER($1)", normalized)
}

func (r *EmailAddressRepository) ListVerifiedByTexts(ctx context.Context, texts []string) ([]*email.EmailAddress, error) {
	if len(texts) == 0 {
		return []*email.EmailAddress{}, nil
	}
	return r.list(ctx, "email_ownership_is_verified AND LOWER(normalized_email_address) = ANY($1)", pq.Array(texts))
}

func (r *EmailAddressRepository) Update(ctx context.Context, e *email.EmailAddress) error {
	query := `
		UPDATE email_addresses
		SET voter_id = $2, normalized_email_address = $3, email_ownership_is_verified = $4, secret_key = $5,
			subscription_secret_key = $6, email_permanent_bounce = $7, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query,
		e.ID, e.VoterID, e.NormalizedEmailAddress, e.EmailOwnershipIsVerified,
		e.SecretKey, e.SubscriptionSecretKey, e.EmailPermanentBounce)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email_id": e.ID}).WithError(err).Warn("db: failed to update email")
		}
		return wrapWriteError("update email", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return email.ErrEmailNotFound
	}
	return nil
}

func (r *EmailAddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM email_addresses WHERE id = $1`, id)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email_id": id}).WithError(err).Error("db: failed to delete email")
		}
		return fmt.Errorf("failed to delete email: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return email.ErrEmailNotFound
	}
	return nil
}

var _ ports.EmailAddressRepository = (*EmailAddressRepository)(nil)
