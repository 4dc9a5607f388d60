package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/sirupsen/logrus"
)

type DeviceLinkRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewDeviceLinkRepository(database *db.Database, logger *logrus.Logger) ports.DeviceLinkRepository {
	return &DeviceLinkRepository{db: database, logger: logger}
}

func (r *DeviceLinkRepository) GetByDeviceID(ctx context.Context, deviceID string) (*voter.DeviceLink, error) {
	var link voter.DeviceLink
	query := `
		SELECT device_id, voter_id, email_secret_key, secret_code, secret_code_created_at,
			   secret_code_failed_attempts, created_at
		FROM voter_device_links
		WHERE device_id = $1`

	if err := r.db.DB.GetContext(ctx, &link, query, deviceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: no voter for device", voter.ErrVoterNotFound)
		}
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to get device link")
		}
		return nil, fmt.Errorf("failed to get device link: %w", err)
	}
	return &link, nil
}

func (r *DeviceLinkRepository) Update(ctx context.Context, link *voter.DeviceLink) error {
	query := `
		UPDATE voter_device_links
		SET email_secret_key = $2, secret_code = $3, secret_code_created_at = $4, secret_code_failed_attempts = $5
		WHERE device_id = $1`

	result, err := r.db.DB.ExecContext(ctx, query,
		link.DeviceID, link.EmailSecretKey, link.SecretCode, link.SecretCodeCreatedAt, link.SecretCodeFailedAttempts)
	if err != nil {
		return wrapWriteError("update device link", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: device link missing", voter.ErrVoterNotFound)
	}
	return nil
}

// ClearEmailSecretKey detaches the key from whichever device holds it.
func (r *DeviceLinkRepository) ClearEmailSecretKey(ctx context.Context, secretKey string) error {
	query := `UPDATE voter_device_links SET email_secret_key = NULL WHERE email_secret_key = $1`
	if _, err := r.db.DB.ExecContext(ctx, query, secretKey); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to clear email secret key")
		}
		return fmt.Errorf("failed to clear email secret key: %w", err)
	}
	return nil
}

var _ ports.DeviceLinkRepository = (*DeviceLinkRepository)(nil)
