package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	subjectVerifyEmail  = "Please verify your email"
	subjectLinkToSignIn = "Sign in link you requested"
	subjectSignInCode   = "Your Sign in Code"

	emailOpenPath = "/apis/v1/emailOpen?email_key=1234"
)

// DispatchConfig holds sender identity and the URLs embedded in outbound emails.
type DispatchConfig struct {
	SenderEmail   string
	SenderName    string
	WebAppRootURL string
	ServerRootURL string
	CordovaScheme string
}

type EmailDispatchService struct {
	emails   ports.EmailAddressRepository
	outbound ports.OutboundRepository
	renderer ports.TemplateRenderer
	delivery ports.EmailDelivery
	config   DispatchConfig
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEmailDispatchService(emails ports.EmailAddressRepository, outbound ports.OutboundRepository, renderer ports.TemplateRenderer, delivery ports.EmailDelivery, cfg *DispatchConfig, logger *logrus.Logger) ports.EmailDispatchService {
	c := DispatchConfig{
		SenderEmail:   "info@WeVote.US",
		SenderName:    "We Vote",
		WebAppRootURL: "https://wevote.us",
		ServerRootURL: "https://api.wevoteusa.org",
		CordovaScheme: "wevotetwitterscheme://",
	}
	if cfg != nil {
		if cfg.SenderEmail != "" {
			c.SenderEmail = cfg.SenderEmail
		}
		if cfg.SenderName != "" {
			c.SenderName = cfg.SenderName
		}
		if cfg.WebAppRootURL != "" {
			c.WebAppRootURL = cfg.WebAppRootURL
		}
		if cfg.ServerRootURL != "" {
			c.ServerRootURL = cfg.ServerRootURL
		}
		if cfg.CordovaScheme != "" {
			c.CordovaScheme = cfg.CordovaScheme
		}
	}
	return &EmailDispatchService{
		emails:   emails,
		outbound: outbound,
		renderer: renderer,
		delivery: delivery,
		config:   c,
		logger:   orDiscard(logger),
		now:      time.Now,
	}
}

// templateVariables is serialized into the outbound description. Field order is fixed so the
// JSON is identical for identical inputs.
type templateVariables struct {
	Subject                 string `json:"subject"`
	SenderName              string `json:"sender_name"`
	RecipientVoterEmail     string `json:"recipient_voter_email"`
	WeVoteURL               string `json:"we_vote_url"`
	VerifyEmailLink         string `json:"verify_email_link,omitempty"`
	LinkToSignIn            string `json:"link_to_sign_in,omitempty"`
	SecretNumericalCode     string `json:"secret_numerical_code,omitempty"`
	RecipientUnsubscribeURL string `json:"recipient_unsubscribe_url"`
	EmailOpenURL            string `json:"email_open_url"`
}

func (s *EmailDispatchService) ScheduleWithDescription(ctx context.Context, d *email.OutboundDescription, status email.SendStatus) *email.ScheduleResult {
	res := &email.ScheduleResult{}
	if d == nil {
		res.Status = "SCHEDULE_EMAIL_MISSING_DESCRIPTION"
		return res
	}
	kind := d.TemplateKind
	if !kind.IsValid() {
		kind = email.TemplateGeneric
	}
	if status == "" {
		status = email.SendStatusToBeProcessed
	}

	rendered, err := s.renderer.Render(kind, d.TemplateVariables)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"template": kind.String(), "description_id": d.ID}).WithError(err).Error("failed to render email template")
		res.Status = "SCHEDULE_EMAIL_TEMPLATE_RENDER_FAILED"
		return res
	}

	scheduled := &email.Scheduled{
		ID:                    uuid.New(),
		OutboundDescriptionID: d.ID,
		SenderVoterID:         d.SenderVoterID,
		SenderEmail:           d.SenderEmail,
		SenderName:            d.SenderName,
		RecipientVoterID:      d.RecipientVoterID,
		RecipientEmailID:      d.RecipientEmailID,
		RecipientEmail:        d.RecipientEmail,
		Subject:               rendered.Subject,
		MessageText:           rendered.Text,
		MessageHTML:           rendered.HTML,
		SendStatus:            status,
		ScheduledAt:           s.now(),
	}
	if err := s.outbound.CreateScheduled(ctx, scheduled); err != nil {
		s.logger.WithFields(logrus.Fields{"description_id": d.ID}).WithError(err).Error("failed to save scheduled email")
		res.Status = "UNABLE_TO_SAVE_EMAIL_SCHEDULED"
		return res
	}

	res.Status = "EMAIL_SCHEDULED"
	res.Success = true
	res.Saved = true
	res.ScheduledID = scheduled.ID
	res.Scheduled = scheduled
	return res
}

// ensureKeys fills in missing secret and subscription keys on the recipient email record.
// Each key is generated at most once per call.
func (s *EmailDispatchService) ensureKeys(ctx context.Context, req *ports.VerificationEmailRequest, needSecret bool) (string, string, error) {
	secret, subscription := req.SecretKey, req.SubscriptionSecretKey
	if (secret != "" || !needSecret) && subscription != "" {
		return secret, subscription, nil
	}
	rec, err := s.emails.GetByID(ctx, req.RecipientEmailID)
	if err != nil {
		return secret, subscription, fmt.Errorf("failed to load recipient email: %w", err)
	}
	changed := false
	if needSecret && secret == "" {
		if secret = rec.Secret(); secret == "" {
			if secret, err = generateSecretKey(); err != nil {
				return "", subscription, err
			}
			rec.SecretKey = &secret
			changed = true
		}
	}
	if subscription == "" {
		if subscription = rec.SubscriptionSecret(); subscription == "" {
			if subscription, err = generateSecretKey(); err != nil {
				return secret, "", err
			}
			rec.SubscriptionSecretKey = &subscription
			changed = true
		}
	}
	if changed {
		if err := s.emails.Update(ctx, rec); err != nil {
			return "", "", fmt.Errorf("failed to save recipient email keys: %w", err)
		}
	}
	return secret, subscription, nil
}

func (s *EmailDispatchService) webAppRoot(requested string) string {
	root := strings.TrimRight(strings.TrimSpace(requested), "/")
	if root == "" {
		root = strings.TrimRight(s.config.WebAppRootURL, "/")
	}
	return root
}

func (s *EmailDispatchService) baseVariables(req *ports.VerificationEmailRequest, subject, subscriptionKey string) templateVariables {
	root := s.webAppRoot(req.WebAppRootURL)
	return templateVariables{
		Subject:                 subject,
		SenderName:              s.config.SenderName,
		RecipientVoterEmail:     req.RecipientEmail,
		WeVoteURL:               root,
		RecipientUnsubscribeURL: root + "/settings/notifications/esk/" + subscriptionKey,
		EmailOpenURL:            strings.TrimRight(s.config.ServerRootURL, "/") + emailOpenPath,
	}
}

// deliver creates the description, schedules it, and sends it when the schedule was saved.
func (s *EmailDispatchService) deliver(ctx context.Context, prefix string, req *ports.VerificationEmailRequest, kind email.TemplateKind, vars templateVariables, trail *email.StatusTrail) *email.DispatchResult {
	res := &email.DispatchResult{}
	payload, err := json.Marshal(vars)
	if err != nil {
		trail.Add("%s_TEMPLATE_VARIABLES_NOT_ENCODED", prefix)
		res.Status = trail.String()
		return res
	}

	description := &email.OutboundDescription{
		ID:                uuid.New(),
		SenderVoterID:     req.SenderVoterID,
		SenderEmail:       s.config.SenderEmail,
		SenderName:        s.config.SenderName,
		RecipientVoterID:  req.RecipientVoterID,
		RecipientEmailID:  req.RecipientEmailID,
		RecipientEmail:    req.RecipientEmail,
		TemplateKind:      kind,
		TemplateVariables: string(payload),
		CreatedAt:         s.now(),
	}
	if err := s.outbound.CreateDescription(ctx, description); err != nil {
		s.logger.WithFields(logrus.Fields{"recipient_email_id": req.RecipientEmailID}).WithError(err).Error("failed to save outbound description")
		trail.Add("%s_UNABLE_TO_SAVE_OUTBOUND_DESCRIPTION", prefix)
		res.Status = trail.String()
		return res
	}

	scheduled := s.ScheduleWithDescription(ctx, description, email.SendStatusToBeProcessed)
	trail.Append(scheduled.Status)
	if !scheduled.Saved {
		res.Status = trail.String()
		return res
	}
	res.Scheduled = true
	res.ScheduledID = scheduled.ScheduledID
	res.Success = true

	sent, err := s.delivery.SendScheduledEmail(ctx, scheduled.Scheduled)
	switch {
	case sent && err != nil:
		trail.Add("%s_SENT", prefix)
		trail.Add("%s_SENT_STATUS_NOT_SAVED", prefix)
		s.logger.WithFields(logrus.Fields{"scheduled_id": scheduled.ScheduledID}).WithError(err).Warn("scheduled email sent but status not saved")
	case sent:
		trail.Add("%s_SENT", prefix)
	case err != nil:
		trail.Add("%s_SEND_FAILED", prefix)
		s.logger.WithFields(logrus.Fields{"scheduled_id": scheduled.ScheduledID}).WithError(err).Warn("failed to send scheduled email")
	}
	res.Sent = sent
	res.Status = trail.String()
	return res
}

func (s *EmailDispatchService) SendVerificationEmail(ctx context.Context, req *ports.VerificationEmailRequest) *email.DispatchResult {
	const prefix = "VERIFICATION_EMAIL"
	var trail email.StatusTrail
	secret, subscription, err := s.ensureKeys(ctx, req, true)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"email_id": req.RecipientEmailID}).WithError(err).Warn("failed to ensure email secret key")
	}
	if secret == "" {
		return &email.DispatchResult{Status: prefix + "_MISSING_EMAIL_SECRET_KEY"}
	}
	vars := s.baseVariables(req, subjectVerifyEmail, subscription)
	vars.VerifyEmailLink = s.webAppRoot(req.WebAppRootURL) + "/verify_email/" + secret
	return s.deliver(ctx, prefix, req, email.TemplateVerifyEmailAddress, vars, &trail)
}

func (s *EmailDispatchService) SendLinkToSignIn(ctx context.Context, req *ports.SignInLinkRequest) *email.DispatchResult {
	const prefix = "LINK_TO_SIGN_IN"
	var trail email.StatusTrail
	secret, subscription, err := s.ensureKeys(ctx, &req.VerificationEmailRequest, true)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"email_id": req.RecipientEmailID}).WithError(err).Warn("failed to ensure email secret key")
	}
	if secret == "" {
		return &email.DispatchResult{Status: prefix + "_MISSING_EMAIL_SECRET_KEY"}
	}
	vars := s.baseVariables(&req.VerificationEmailRequest, subjectLinkToSignIn, subscription)
	if req.IsCordova {
		vars.LinkToSignIn = s.config.CordovaScheme + "sign_in_email/" + secret
	} else {
		vars.LinkToSignIn = s.webAppRoot(req.WebAppRootURL) + "/sign_in_email/" + secret
	}
	return s.deliver(ctx, prefix, &req.VerificationEmailRequest, email.TemplateLinkToSignIn, vars, &trail)
}

func (s *EmailDispatchService) SendSignInCode(ctx context.Context, req *ports.SignInCodeRequest) *email.DispatchResult {
	const prefix = "SIGN_IN_CODE"
	var trail email.StatusTrail
	if strings.TrimSpace(req.SecretCode) == "" {
		return &email.DispatchResult{Status: prefix + "_MISSING_EMAIL_SECRET_NUMERICAL_CODE"}
	}
	_, subscription, err := s.ensureKeys(ctx, &req.VerificationEmailRequest, false)
	if err != nil {
		trail.Add("%s_SUBSCRIPTION_KEY_NOT_SAVED", prefix)
		s.logger.WithFields(logrus.Fields{"email_id": req.RecipientEmailID}).WithError(err).Warn("failed to ensure subscription key")
	}
	vars := s.baseVariables(&req.VerificationEmailRequest, subjectSignInCode, subscription)
	vars.SecretNumericalCode = req.SecretCode
	return s.deliver(ctx, prefix, &req.VerificationEmailRequest, email.TemplateSignInCode, vars, &trail)
}

func (s *EmailDispatchService) SendHeldEmails(ctx context.Context, senderID uuid.UUID) *email.DispatchResult {
	var trail email.StatusTrail
	res := &email.DispatchResult{}
	held, err := s.outbound.ListScheduledBySender(ctx, senderID, email.SendStatusWaitingForVerification)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"sender_voter_id": senderID}).WithError(err).Error("failed to list held emails")
		res.Status = "HELD_EMAILS_LIST_FAILED"
		return res
	}
	sent := 0
	for _, scheduled := range held {
		if err := s.outbound.UpdateScheduledStatus(ctx, scheduled.ID, email.SendStatusToBeProcessed, nil); err != nil {
			trail.Add("HELD_EMAIL_NOT_RELEASED")
			continue
		}
		scheduled.SendStatus = email.SendStatusToBeProcessed
		ok, err := s.delivery.SendScheduledEmail(ctx, scheduled)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"scheduled_id": scheduled.ID}).WithError(err).Warn("failed to send held email")
		}
		if ok {
			sent++
		}
	}
	trail.Add("HELD_EMAILS_SENT_%d_OF_%d", sent, len(held))
	res.Success = true
	res.Sent = sent > 0
	res.Status = trail.String()
	return res
}

var _ ports.EmailDispatchService = (*EmailDispatchService)(nil)
