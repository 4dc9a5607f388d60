package repositories

import (
	"context"
	"fmt"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type ContactEmailRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewContactEmailRepository(database *db.Database, logger *logrus.Logger) ports.ContactEmailRepository {
	return &ContactEmailRepository{db: database, logger: logger}
}

func (r *ContactEmailRepository) ListByImporter(ctx context.Context, importerID uuid.UUID) ([]*email.VoterContactEmail, error) {
	query := `
		SELECT id, importer_voter_id, email_address_text, display_name, is_invalid, voter_id, created_at
		FROM voter_contact_emails
		WHERE importer_voter_id = $1
		ORDER BY created_at, id`

	var out []*email.VoterContactEmail
	if err := r.db.DB.SelectContext(ctx, &out, query, importerID); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"importer_voter_id": importerID}).WithError(err).Error("db: failed to list contacts")
		}
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return out, nil
}

func (r *ContactEmailRepository) ListAugmented(ctx context.Context, texts []string) ([]*email.ContactEmailAugmented, error) {
	if len(texts) == 0 {
		return []*email.ContactEmailAugmented{}, nil
	}
	query := `
		SELECT email_address_text, checked_against_verifier, date_last_checked, is_invalid
		FROM contact_email_augmented
		WHERE email_address_text = ANY($1)
		ORDER BY email_address_text`

	var out []*email.ContactEmailAugmented
	if err := r.db.DB.SelectContext(ctx, &out, query, pq.Array(texts)); err != nil {
		return nil, fmt.Errorf("failed to list augmented contacts: %w", err)
	}
	return out, nil
}

func (r *ContactEmailRepository) EnsureAugmented(ctx context.Context, texts []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO contact_email_augmented (email_address_text)
		SELECT DISTINCT unnest($1::text[])
		ON CONFLICT (email_address_text) DO NOTHING`

	result, err := r.db.DB.ExecContext(ctx, query, pq.Array(texts))
	if err != nil {
		return 0, fmt.Errorf("failed to create augmented contacts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (r *ContactEmailRepository) SaveAugmented(ctx context.Context, a *email.ContactEmailAugmented) error {
	query := `
		INSERT INTO contact_email_augmented (email_address_text, checked_against_verifier, date_last_checked, is_invalid)
		VALUES (:email_address_text, :checked_against_verifier, :date_last_checked, :is_invalid)
		ON CONFLICT (email_address_text) DO UPDATE
		SET checked_against_verifier = EXCLUDED.checked_against_verifier,
			date_last_checked = EXCLUDED.date_last_checked,
			is_invalid = EXCLUDED.is_invalid`

	if _, err := r.db.DB.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("failed to save augmented contact: %w", err)
	}
	return nil
}

func (r *ContactEmailRepository) SetContactsInvalid(ctx context.Context, text string, invalid bool) (int64, error) {
	query := `UPDATE voter_contact_emails SET is_invalid = $2 WHERE LOWER(email_address_text) = LOWER($1)`
	result, err := r.db.DB.ExecContext(ctx, query, text, invalid)
	if err != nil {
		return 0, fmt.Errorf("failed to flag contacts: %w", err)
	}
	return result.RowsAffected()
}

func (r *ContactEmailRepository) LinkContactsToVoter(ctx context.Context, text string, voterID uuid.UUID) (int64, error) {
	query := `
		UPDATE voter_contact_emails
		SET voter_id = $2
		WHERE LOWER(email_address_text) = LOWER($1) AND (voter_id IS NULL OR voter_id <> $2)`

	result, err := r.db.DB.ExecContext(ctx, query, text, voterID)
	if err != nil {
		return 0, fmt.Errorf("failed to link contacts: %w", err)
	}
	return result.RowsAffected()
}

var _ ports.ContactEmailRepository = (*ContactEmailRepository)(nil)
