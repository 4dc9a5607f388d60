package voter

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidDeviceID is returned when a device id is blank or malformed.
var ErrInvalidDeviceID = errors.New("invalid voter device id")

// ErrVoterNotFound is returned when no voter matches a lookup.
var ErrVoterNotFound = errors.New("voter not found")

// Voter holds the denormalized primary-email cache fields alongside identity data.
type Voter struct {
	ID                       uuid.UUID  `json:"id" db:"id"`
	FirstName                string     `json:"first_name" db:"first_name"`
	LastName                 string     `json:"last_name" db:"last_name"`
	Email                    *string    `json:"email" db:"email"`
	PrimaryEmailID           *uuid.UUID `json:"primary_email_id" db:"primary_email_id"`
	EmailOwnershipIsVerified bool       `json:"email_ownership_is_verified" db:"email_ownership_is_verified"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

// HasPrimaryEmail reports whether any cached primary field is populated.
func (v *Voter) HasPrimaryEmail() bool {
	return v.PrimaryEmailID != nil || (v.Email != nil && *v.Email != "")
}

// CachedEmail returns the cached primary email text or "".
func (v *Voter) CachedEmail() string {
	if v.Email == nil {
		return ""
	}
	return *v.Email
}

// SetPrimaryEmail points both cache fields at the given address.
func (v *Voter) SetPrimaryEmail(id uuid.UUID, normalized string) {
	v.PrimaryEmailID = &id
	v.Email = &normalized
}

// ClearPrimaryEmail empties the cache fields and drops the verified flag.
func (v *Voter) ClearPrimaryEmail() {
	v.PrimaryEmailID = nil
	v.Email = nil
	v.EmailOwnershipIsVerified = false
}

// FullName joins first and last name.
func (v *Voter) FullName() string {
	return strings.TrimSpace(v.FirstName + " " + v.LastName)
}

// DeviceLink maps a device (session) id to the voter signed in on it.
// SecretCodeFailedAttempts is maintained by whoever redeems sign-in codes; this module only reads it.
type DeviceLink struct {
	DeviceID                 string     `json:"device_id" db:"device_id"`
	VoterID                  uuid.UUID  `json:"voter_id" db:"voter_id"`
	EmailSecretKey           *string    `json:"-" db:"email_secret_key"`
	SecretCode               *string    `json:"-" db:"secret_code"`
	SecretCodeCreatedAt      *time.Time `json:"-" db:"secret_code_created_at"`
	SecretCodeFailedAttempts int        `json:"-" db:"secret_code_failed_attempts"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
}

const maxDeviceIDLength = 255

// ValidateDeviceID rejects blank or oversized device ids.
func ValidateDeviceID(deviceID string) error {
	trimmed := strings.TrimSpace(deviceID)
	if trimmed == "" || len(trimmed) > maxDeviceIDLength {
		return ErrInvalidDeviceID
	}
	return nil
}
