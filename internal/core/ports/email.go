package ports

import (
	"context"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/google/uuid"
)

// EmailAddressRepository defines email address persistence.
// List methods return records ordered by created_at, then id.
type EmailAddressRepository interface {
	Create(ctx context.Context, e *email.EmailAddress) error
	GetByID(ctx context.Context, id uuid.UUID) (*email.EmailAddress, error)
	GetBySecretKey(ctx context.Context, secretKey string) (*email.EmailAddress, error)
	ListByVoter(ctx context.Context, voterID uuid.UUID) ([]*email.EmailAddress, error)
	ListByText(ctx context.Context, normalized string) ([]*email.EmailAddress, error)
	ListVerifiedByTexts(ctx context.Context, texts []string) ([]*email.EmailAddress, error)
	Update(ctx context.Context, e *email.EmailAddress) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OutboundTarget names one voter-id column on the outbound tables.
type OutboundTarget int

const (
	DescriptionSender OutboundTarget = iota
	DescriptionRecipient
	ScheduledSender
	ScheduledRecipient
)

func (t OutboundTarget) String() string {
	switch t {
	case DescriptionSender:
		return "description_sender"
	case DescriptionRecipient:
		return "description_recipient"
	case ScheduledSender:
		return "scheduled_sender"
	default:
		return "scheduled_recipient"
	}
}

// OutboundTargets lists every column repointed when a voter's emails move.
var OutboundTargets = []OutboundTarget{DescriptionSender, DescriptionRecipient, ScheduledSender, ScheduledRecipient}

// OutboundRepository persists outbound descriptions and scheduled emails.
type OutboundRepository interface {
	CreateDescription(ctx context.Context, d *email.OutboundDescription) error
	CreateScheduled(ctx context.Context, s *email.Scheduled) error
	UpdateScheduledStatus(ctx context.Context, id uuid.UUID, status email.SendStatus, sentAt *time.Time) error
	ListScheduledBySender(ctx context.Context, senderID uuid.UUID, status email.SendStatus) ([]*email.Scheduled, error)
	// ReassignVoter bulk-updates one voter-id column and returns the affected row count.
	ReassignVoter(ctx context.Context, target OutboundTarget, from, to uuid.UUID) (int64, error)
}

// ContactEmailRepository covers imported contacts and the verification cache.
type ContactEmailRepository interface {
	ListByImporter(ctx context.Context, importerID uuid.UUID) ([]*email.VoterContactEmail, error)
	ListAugmented(ctx context.Context, texts []string) ([]*email.ContactEmailAugmented, error)
	// EnsureAugmented inserts missing cache rows and returns how many were created.
	EnsureAugmented(ctx context.Context, texts []string) (int, error)
	SaveAugmented(ctx context.Context, a *email.ContactEmailAugmented) error
	// SetContactsInvalid matches email text case-insensitively.
	SetContactsInvalid(ctx context.Context, text string, invalid bool) (int64, error)
	LinkContactsToVoter(ctx context.Context, text string, voterID uuid.UUID) (int64, error)
}

// TemplateRenderer merges template variables into subject, text and HTML bodies.
type TemplateRenderer interface {
	Render(kind email.TemplateKind, variablesJSON string) (*email.RenderedEmail, error)
}

// EmailDelivery hands a scheduled email to the delivery provider.
type EmailDelivery interface {
	SendScheduledEmail(ctx context.Context, s *email.Scheduled) (bool, error)
}
