package audit

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records an operator action that changed voter email state.
type AuditLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	VoterID    *uuid.UUID `json:"voter_id" db:"voter_id"`
	Action     string     `json:"action" db:"action"`
	Resource   string     `json:"resource" db:"resource"`
	ResourceID *uuid.UUID `json:"resource_id" db:"resource_id"`
	Details    any        `json:"details" db:"details"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	UserAgent  string     `json:"user_agent" db:"user_agent"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
}

type AuditAction string

const (
	ActionMoveEmails          AuditAction = "move_emails"
	ActionDeleteEmails        AuditAction = "delete_emails"
	ActionHealPrimary         AuditAction = "heal_primary"
	ActionVerificationRun     AuditAction = "verification_run"
	ActionContactAugmentation AuditAction = "contact_augmentation"
)

type AuditResource string

const (
	ResourceVoter       AuditResource = "voter"
	ResourceContactList AuditResource = "contact_list"
)

// CreateAuditLogRequest represents the request to create an audit log entry
type CreateAuditLogRequest struct {
	VoterID    *uuid.UUID    `json:"voter_id,omitempty"`
	Action     AuditAction   `json:"action"`
	Resource   AuditResource `json:"resource"`
	ResourceID *uuid.UUID    `json:"resource_id,omitempty"`
	Details    any           `json:"details,omitempty"`
	IPAddress  string        `json:"ip_address"`
	UserAgent  string        `json:"user_agent"`
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	VoterID   *uuid.UUID   `json:"voter_id,omitempty"`
	Action    *AuditAction `json:"action,omitempty"`
	StartTime *time.Time   `json:"start_time,omitempty"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Limit     int          `json:"limit"`
	Offset    int          `json:"offset"`
}
