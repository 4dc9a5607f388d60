package email

import (
	"time"

	"github.com/google/uuid"
)

// ContactEmailAugmented caches what the verification API said about an address.
type ContactEmailAugmented struct {
	EmailAddressText       string     `json:"email_address_text" db:"email_address_text"`
	CheckedAgainstVerifier bool       `json:"checked_against_verifier" db:"checked_against_verifier"`
	DateLastChecked        *time.Time `json:"date_last_checked" db:"date_last_checked"`
	IsInvalid              bool       `json:"is_invalid" db:"is_invalid"`
}

// CheckedSince reports whether the entry was verified at or after cutoff.
func (c *ContactEmailAugmented) CheckedSince(cutoff time.Time) bool {
	return c.CheckedAgainstVerifier && c.DateLastChecked != nil && !c.DateLastChecked.Before(cutoff)
}

// VoterContactEmail is an address imported into a voter's contact list.
type VoterContactEmail struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ImporterVoterID  uuid.UUID  `json:"importer_voter_id" db:"importer_voter_id"`
	EmailAddressText string     `json:"email_address_text" db:"email_address_text"`
	DisplayName      string     `json:"display_name" db:"display_name"`
	IsInvalid        bool       `json:"is_invalid" db:"is_invalid"`
	VoterID          *uuid.UUID `json:"voter_id" db:"voter_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
