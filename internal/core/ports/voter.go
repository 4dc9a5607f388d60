package ports

import (
	"context"

	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/google/uuid"
)

// VoterRepository defines the voter data operations the email subsystem needs.
type VoterRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*voter.Voter, error)
	// Update persists the cached email fields. Returns ErrConflict on a uniqueness violation.
	Update(ctx context.Context, v *voter.Voter) error
	// ClearCachedEmail drops references to the address from every voter other than except and
	// returns the ids of the voters it touched.
	ClearCachedEmail(ctx context.Context, emailID uuid.UUID, normalized string, except uuid.UUID) ([]uuid.UUID, error)
}

// DeviceLinkRepository resolves device ids to voters and stores per-device secrets.
type DeviceLinkRepository interface {
	GetByDeviceID(ctx context.Context, deviceID string) (*voter.DeviceLink, error)
	// Update returns ErrConflict when the email secret key is already held by another device.
	Update(ctx context.Context, link *voter.DeviceLink) error
	ClearEmailSecretKey(ctx context.Context, secretKey string) error
}
