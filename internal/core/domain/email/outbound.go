package email

import (
	"time"

	"github.com/google/uuid"
)

// TemplateKind selects the template used to render an outbound email.
type TemplateKind string

const (
	TemplateGeneric            TemplateKind = "GENERIC_EMAIL_TEMPLATE"
	TemplateVerifyEmailAddress TemplateKind = "VERIFY_EMAIL_ADDRESS_TEMPLATE"
	TemplateLinkToSignIn       TemplateKind = "LINK_TO_SIGN_IN_TEMPLATE"
	TemplateSignInCode         TemplateKind = "SIGN_IN_CODE_EMAIL_TEMPLATE"
)

func (k TemplateKind) String() string {
	return string(k)
}

func (k TemplateKind) IsValid() bool {
	switch k {
	case TemplateGeneric, TemplateVerifyEmailAddress, TemplateLinkToSignIn, TemplateSignInCode:
		return true
	default:
		return false
	}
}

// SendStatus tracks delivery of a scheduled email.
type SendStatus string

const (
	SendStatusToBeProcessed          SendStatus = "to_be_processed"
	SendStatusSent                   SendStatus = "sent"
	SendStatusFailed                 SendStatus = "failed"
	SendStatusWaitingForVerification SendStatus = "waiting_for_verification"
)

// OutboundDescription records what is to be sent, before rendering.
type OutboundDescription struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	SenderVoterID     uuid.UUID    `json:"sender_voter_id" db:"sender_voter_id"`
	SenderEmail       string       `json:"sender_email" db:"sender_email"`
	SenderName        string       `json:"sender_name" db:"sender_name"`
	RecipientVoterID  uuid.UUID    `json:"recipient_voter_id" db:"recipient_voter_id"`
	RecipientEmailID  uuid.UUID    `json:"recipient_email_id" db:"recipient_email_id"`
	RecipientEmail    string       `json:"recipient_email" db:"recipient_email"`
	TemplateKind      TemplateKind `json:"template_kind" db:"template_kind"`
	TemplateVariables string       `json:"template_variables" db:"template_variables"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}

// Scheduled is a rendered email waiting for (or done with) delivery.
type Scheduled struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	OutboundDescriptionID uuid.UUID  `json:"outbound_description_id" db:"outbound_description_id"`
	SenderVoterID         uuid.UUID  `json:"sender_voter_id" db:"sender_voter_id"`
	SenderEmail           string     `json:"sender_email" db:"sender_email"`
	SenderName            string     `json:"sender_name" db:"sender_name"`
	RecipientVoterID      uuid.UUID  `json:"recipient_voter_id" db:"recipient_voter_id"`
	RecipientEmailID      uuid.UUID  `json:"recipient_email_id" db:"recipient_email_id"`
	RecipientEmail        string     `json:"recipient_email" db:"recipient_email"`
	Subject               string     `json:"subject" db:"subject"`
	MessageText           string     `json:"message_text" db:"message_text"`
	MessageHTML           string     `json:"message_html" db:"message_html"`
	SendStatus            SendStatus `json:"send_status" db:"send_status"`
	ScheduledAt           time.Time  `json:"scheduled_at" db:"scheduled_at"`
	SentAt                *time.Time `json:"sent_at" db:"sent_at"`
}

// RenderedEmail is the output of the template merge step.
type RenderedEmail struct {
	Subject string
	Text    string
	HTML    string
}
