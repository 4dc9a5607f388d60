package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avatarctic/voter-email/go/internal/application/services"
	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/httpserver/helpers"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// runEmailVerification checks the voter's imported contacts against the validation API.
func (s *Server) runEmailVerification(c echo.Context) error {
	voterID, err := helpers.PathUUID(c, "id")
	if err != nil {
		return err
	}
	res, err := s.verification.AugmentContactsWithVerification(c.Request().Context(), voterID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"voter_id": voterID}).WithError(err).Error("email verification run failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "email verification run failed")
	}
	s.logAdminAction(c, audit.ActionVerificationRun, audit.ResourceContactList, voterID, res)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) runContactAugmentation(c echo.Context) error {
	voterID, err := helpers.PathUUID(c, "id")
	if err != nil {
		return err
	}
	res, err := s.augmentation.AugmentContactsWithVoterData(c.Request().Context(), voterID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"voter_id": voterID}).WithError(err).Error("contact augmentation failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "contact augmentation failed")
	}
	s.logAdminAction(c, audit.ActionContactAugmentation, audit.ResourceContactList, voterID, res)
	return c.JSON(http.StatusOK, res)
}

// moveEmails moves every email of voter :id to the voter named by to_voter_id.
func (s *Server) moveEmails(c echo.Context) error {
	fromID, err := helpers.PathUUID(c, "id")
	if err != nil {
		return err
	}
	toID, err := helpers.UUIDParam(c, "to_voter_id")
	if err != nil {
		return err
	}
	res, err := s.reconciler.MoveAddressesToVoter(c.Request().Context(), fromID, toID)
	if err != nil && !errors.Is(err, email.ErrPartialMigration) {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"from_voter_id": fromID, "to_voter_id": toID}).WithError(err).Error("move emails failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "move emails failed")
	}
	s.logAdminAction(c, audit.ActionMoveEmails, audit.ResourceVoter, fromID, res)
	code := http.StatusOK
	if !res.Success {
		code = http.StatusConflict
	}
	return c.JSON(code, res)
}

func (s *Server) getAPIUsage(c echo.Context) error {
	kind := helpers.Param(c, "kind")
	if kind == "" {
		kind = services.UsageKindEmailVerification
	}
	at := time.Now()
	if day := helpers.Param(c, "date"); day != "" {
		parsed, err := time.Parse("2006-01-02", day)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		at = parsed
	}
	total, err := s.apiUsage.Total(c.Request().Context(), kind, at)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "usage counter unavailable")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"kind":  kind,
		"date":  at.UTC().Format("2006-01-02"),
		"total": total,
	})
}

// logAdminAction records an admin call in the audit trail. The audit service logs its own failures.
func (s *Server) logAdminAction(c echo.Context, action audit.AuditAction, resource audit.AuditResource, voterID uuid.UUID, details any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.LogAction(c.Request().Context(), &audit.CreateAuditLogRequest{
		VoterID:   &voterID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
}

func (s *Server) listAuditLogs(c echo.Context) error {
	if s.auditSvc == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit log unavailable")
	}
	filter := &audit.AuditLogFilter{}
	voterID, err := helpers.UUIDParam(c, "voter_id")
	if err != nil {
		return err
	}
	if voterID != uuid.Nil {
		filter.VoterID = &voterID
	}
	if a := helpers.Param(c, "action"); a != "" {
		action := audit.AuditAction(a)
		filter.Action = &action
	}
	filter.Limit, _ = strconv.Atoi(helpers.Param(c, "limit"))
	filter.Offset, _ = strconv.Atoi(helpers.Param(c, "offset"))

	logs, total, err := s.auditSvc.GetAuditLogs(c.Request().Context(), filter)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("failed to list audit logs")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit logs")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
	})
}
