package services

import (
	"context"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// maxAuditPage caps one page of audit results.
const maxAuditPage = 500

type AuditService struct {
	repo   ports.AuditRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewAuditService(repo ports.AuditRepository, logger *logrus.Logger) ports.AuditService {
	return &AuditService{
		repo:   repo,
		logger: orDiscard(logger),
		now:    time.Now,
	}
}

func (s *AuditService) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) error {
	entry := &audit.AuditLog{
		VoterID:    req.VoterID,
		Action:     string(req.Action),
		Resource:   string(req.Resource),
		ResourceID: req.ResourceID,
		Details:    req.Details,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Timestamp:  s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.WithFields(logrus.Fields{"voter_id": req.VoterID, "action": req.Action, "resource": req.Resource}).WithError(err).Error("failed to persist audit log")
		return err
	}
	s.logger.WithFields(logrus.Fields{"voter_id": req.VoterID, "action": req.Action, "resource_id": req.ResourceID}).Debug("audit log persisted")
	return nil
}

// GetAuditLogs returns one page of matching entries, newest first, with the total match count.
func (s *AuditService) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	if filter == nil {
		filter = &audit.AuditLogFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > maxAuditPage {
		filter.Limit = maxAuditPage
	}
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

var _ ports.AuditService = (*AuditService)(nil)
