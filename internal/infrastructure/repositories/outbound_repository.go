package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// reassignQueries holds one fixed statement per voter-id column.
var reassignQueries = map[ports.OutboundTarget]string{
	ports.DescriptionSender:    `UPDATE email_outbound_descriptions SET sender_voter_id = $2 WHERE sender_voter_id = $1`,
	ports.DescriptionRecipient: `UPDATE email_outbound_descriptions SET recipient_voter_id = $2 WHERE recipient_voter_id = $1`,
	ports.ScheduledSender:      `UPDATE email_scheduled SET sender_voter_id = $2 WHERE sender_voter_id = $1`,
	ports.ScheduledRecipient:   `UPDATE email_scheduled SET recipient_voter_id = $2 WHERE recipient_voter_id = $1`,
}

type OutboundRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewOutboundRepository(database *db.Database, logger *logrus.Logger) ports.OutboundRepository {
	return &OutboundRepository{db: database, logger: logger}
}

func (r *OutboundRepository) CreateDescription(ctx context.Context, d *email.OutboundDescription) error {
	query := `
		INSERT INTO email_outbound_descriptions (id, sender_voter_id, sender_email, sender_name, recipient_voter_id,
			recipient_email_id, recipient_email, template_kind, template_variables, created_at)
		VALUES (:id, :sender_voter_id, :sender_email, :sender_name, :recipient_voter_id,
			:recipient_email_id, :recipient_email, :template_kind, :template_variables, :created_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, d); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"description_id": d.ID}).WithError(err).Error("db: failed to create outbound description")
		}
		return fmt.Errorf("failed to create outbound description: %w", err)
	}
	return nil
}

func (r *OutboundRepository) CreateScheduled(ctx context.Context, s *email.Scheduled) error {
	query := `
		INSERT INTO email_scheduled (id, outbound_description_id, sender_voter_id, sender_email, sender_name,
			recipient_voter_id, recipient_email_id, recipient_email, subject, message_text, message_html,
			send_status, scheduled_at, sent_at)
		VALUES (:id, :outbound_description_id, :sender_voter_id, :sender_email, :sender_name,
			:recipient_voter_id, :recipient_email_id, :recipient_email, :subject, :message_text, :message_html,
			:send_status, :scheduled_at, :sent_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, s); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"scheduled_id": s.ID}).WithError(err).Error("db: failed to create scheduled email")
		}
		return fmt.Errorf("failed to create scheduled email: %w", err)
	}
	return nil
}

func (r *OutboundRepository) UpdateScheduledStatus(ctx context.Context, id uuid.UUID, status email.SendStatus, sentAt *time.Time) error {
	query := `UPDATE email_scheduled SET send_status = $2, sent_at = COALESCE($3, sent_at) WHERE id = $1`
	result, err := r.db.DB.ExecContext(ctx, query, id, status, sentAt)
	if err != nil {
		return fmt.Errorf("failed to update scheduled email status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("scheduled email %s not found", id)
	}
	return nil
}

func (r *OutboundRepository) ListScheduledBySender(ctx context.Context, senderID uuid.UUID, status email.SendStatus) ([]*email.Scheduled, error) {
	query := `
		SELECT id, outbound_description_id, sender_voter_id, sender_email, sender_name, recipient_voter_id,
			   recipient_email_id, recipient_email, subject, message_text, message_html, send_status,
			   scheduled_at, sent_at
		FROM email_scheduled
		WHERE sender_voter_id = $1 AND send_status = $2
		ORDER BY scheduled_at, id`

	var out []*email.Scheduled
	if err := r.db.DB.SelectContext(ctx, &out, query, senderID, status); err != nil {
		return nil, fmt.Errorf("failed to list scheduled emails: %w", err)
	}
	return out, nil
}

func (r *OutboundRepository) ReassignVoter(ctx context.Context, target ports.OutboundTarget, from, to uuid.UUID) (int64, error) {
	query, ok := reassignQueries[target]
	if !ok {
		return 0, fmt.Errorf("unknown outbound target %d", target)
	}
	result, err := r.db.DB.ExecContext(ctx, query, from, to)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"target": target.String(), "from_voter_id": from}).WithError(err).Error("db: failed to reassign outbound rows")
		}
		return 0, fmt.Errorf("failed to reassign %s: %w", target, err)
	}
	return result.RowsAffected()
}

var _ ports.OutboundRepository = (*OutboundRepository)(nil)
