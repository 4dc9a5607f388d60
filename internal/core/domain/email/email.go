package email

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrEmailNotFound       = errors.New("email address not found")
	ErrMissingSecretKey    = errors.New("email secret key missing")
	ErrPartialMigration    = errors.New("partial email migration")
	ErrPartialDelete       = errors.New("partial email delete")
	ErrOwnedByAnotherVoter = errors.New("email address verified by another voter")
)

var (
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	emailFindPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// EmailAddress is one address owned (verified or not) by a voter.
type EmailAddress struct {
	ID                       uuid.UUID `json:"id" db:"id"`
	VoterID                  uuid.UUID `json:"voter_id" db:"voter_id"`
	NormalizedEmailAddress   string    `json:"normalized_email_address" db:"normalized_email_address"`
	EmailOwnershipIsVerified bool      `json:"email_ownership_is_verified" db:"email_ownership_is_verified"`
	SecretKey                *string   `json:"-" db:"secret_key"`
	SubscriptionSecretKey    *string   `json:"-" db:"subscription_secret_key"`
	EmailPermanentBounce     bool      `json:"email_permanent_bounce" db:"email_permanent_bounce"`
	CreatedAt                time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time `json:"updated_at" db:"updated_at"`
}

// Secret returns the secret key or "".
func (e *EmailAddress) Secret() string {
	if e.SecretKey == nil {
		return ""
	}
	return *e.SecretKey
}

// SubscriptionSecret returns the subscription secret key or "".
func (e *EmailAddress) SubscriptionSecret() string {
	if e.SubscriptionSecretKey == nil {
		return ""
	}
	return *e.SubscriptionSecretKey
}

// SameAddress compares normalized texts case-insensitively.
func (e *EmailAddress) SameAddress(text string) bool {
	return text != "" && strings.EqualFold(e.NormalizedEmailAddress, strings.TrimSpace(text))
}

// AugmentedEmailAddress is the per-address view returned to callers.
type AugmentedEmailAddress struct {
	NormalizedEmailAddress   string    `json:"normalized_email_address"`
	PrimaryEmailAddress      bool      `json:"primary_email_address"`
	EmailPermanentBounce     bool      `json:"email_permanent_bounce"`
	EmailOwnershipIsVerified bool      `json:"email_ownership_is_verified"`
	VoterID                  uuid.UUID `json:"voter_we_vote_id"`
	EmailID                  uuid.UUID `json:"email_we_vote_id"`
}

// Normalize trims and lower-cases an address.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsValid reports whether text looks like a deliverable address.
func IsValid(text string) bool {
	return emailPattern.MatchString(strings.TrimSpace(text))
}

// ExtractAddresses pulls every address-shaped token out of free text, normalized and de-duplicated
// in order of first appearance.
func ExtractAddresses(text string) []string {
	matches := emailFindPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		n := Normalize(strings.Trim(m, "."))
		if _, dup := seen[n]; dup || !IsValid(n) {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
