package email

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/metrics"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const sendEndpoint = "/v3/mail/send"

// DeliveryConfig holds SendGrid mail-send settings.
type DeliveryConfig struct {
	APIKey  string
	Host    string
	Timeout time.Duration
}

// SendGridDelivery sends scheduled emails through SendGrid and records the outcome on the row.
type SendGridDelivery struct {
	config   DeliveryConfig
	client   *rest.Client
	outbound ports.OutboundRepository
	logger   *logrus.Logger
	now      func() time.Time
}

func NewSendGridDelivery(cfg *DeliveryConfig, outbound ports.OutboundRepository, logger *logrus.Logger) ports.EmailDelivery {
	c := DeliveryConfig{Host: "https://api.sendgrid.com", Timeout: 10 * time.Second}
	if cfg != nil {
		c.APIKey = cfg.APIKey
		if cfg.Host != "" {
			c.Host = cfg.Host
		}
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
	}
	return &SendGridDelivery{
		config:   c,
		client:   &rest.Client{HTTPClient: &http.Client{Timeout: c.Timeout}},
		outbound: outbound,
		logger:   logger,
		now:      time.Now,
	}
}

// SendScheduledEmail sends s unless it is already sent or held, then stores sent or failed.
func (d *SendGridDelivery) SendScheduledEmail(ctx context.Context, s *email.Scheduled) (bool, error) {
	if s.SendStatus == email.SendStatusSent || s.SendStatus == email.SendStatusWaitingForVerification {
		return false, nil
	}

	from := mail.NewEmail(s.SenderName, s.SenderEmail)
	to := mail.NewEmail("", s.RecipientEmail)
	message := mail.NewSingleEmail(from, s.Subject, to, s.MessageText, s.MessageHTML)

	req := sendgrid.GetRequest(d.config.APIKey, sendEndpoint, d.config.Host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(message)

	resp, err := d.client.SendWithContext(ctx, req)
	if err == nil && resp.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"scheduled_id": s.ID, "to": s.RecipientEmail}).WithError(err).Error("Failed to send email")
		}
		s.SendStatus = email.SendStatusFailed
		if uerr := d.outbound.UpdateScheduledStatus(ctx, s.ID, email.SendStatusFailed, nil); uerr != nil && d.logger != nil {
			d.logger.WithFields(logrus.Fields{"scheduled_id": s.ID}).WithError(uerr).Error("failed to mark scheduled email failed")
		}
		return false, fmt.Errorf("failed to send email: %w", err)
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	sentAt := d.now()
	s.SendStatus = email.SendStatusSent
	s.SentAt = &sentAt
	if err := d.outbound.UpdateScheduledStatus(ctx, s.ID, email.SendStatusSent, &sentAt); err != nil {
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"scheduled_id": s.ID}).WithError(err).Error("failed to mark scheduled email sent")
		}
		return true, fmt.Errorf("email sent but status not saved: %w", err)
	}
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{"scheduled_id": s.ID, "to": s.RecipientEmail, "status_code": resp.StatusCode}).Info("Email sent successfully")
	}
	return true, nil
}

var _ ports.EmailDelivery = (*SendGridDelivery)(nil)
