package services_test

import (
	"context"
	"errors"
	"testing"

	impl "github.com/avatarctic/voter-email/go/internal/application/services"
	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type auditRepoStub struct {
	created  []*audit.AuditLog
	filter   *audit.AuditLogFilter
	createFn func(log *audit.AuditLog) error
	countErr error
}

func (r *auditRepoStub) Create(ctx context.Context, log *audit.AuditLog) error {
	if r.createFn != nil {
		return r.createFn(log)
	}
	r.created = append(r.created, log)
	return nil
}

func (r *auditRepoStub) List(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error) {
	r.filter = filter
	return r.created, nil
}

func (r *auditRepoStub) Count(ctx context.Context, filter *audit.AuditLogFilter) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return len(r.created), nil
}

func TestAuditService_LogAction(t *testing.T) {
	repo := &auditRepoStub{}
	svc := impl.NewAuditService(repo, nil)
	voterID := uuid.New()

	err := svc.LogAction(context.Background(), &audit.CreateAuditLogRequest{
		VoterID:   &voterID,
		Action:    audit.ActionDeleteEmails,
		Resource:  audit.ResourceVoter,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.Equal(t, "delete_emails", repo.created[0].Action)
	require.Equal(t, "voter", repo.created[0].Resource)
	require.False(t, repo.created[0].Timestamp.IsZero())
}

func TestAuditService_LogActionError(t *testing.T) {
	repo := &auditRepoStub{createFn: func(log *audit.AuditLog) error { return errors.New("db down") }}
	svc := impl.NewAuditService(repo, nil)
	require.Error(t, svc.LogAction(context.Background(), &audit.CreateAuditLogRequest{Action: audit.ActionMoveEmails}))
}

func TestAuditService_GetAuditLogsCapsPage(t *testing.T) {
	repo := &auditRepoStub{created: []*audit.AuditLog{{Action: "move_emails"}}}
	svc := impl.NewAuditService(repo, nil)

	logs, total, err := svc.GetAuditLogs(context.Background(), &audit.AuditLogFilter{Limit: 10000})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, 1, total)
	require.Equal(t, 500, repo.filter.Limit)

	_, _, err = svc.GetAuditLogs(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 500, repo.filter.Limit)

	repo.countErr = errors.New("boom")
	_, _, err = svc.GetAuditLogs(context.Background(), nil)
	require.Error(t, err)
}
