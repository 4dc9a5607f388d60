package repositories_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_Create(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewAuditRepository(database, nil)
	voterID := uuid.New()

	mock.ExpectExec("INSERT INTO email_audit_logs").
		WithArgs(sqlmock.AnyArg(), &voterID, "move_emails", "voter", nil, []byte(`{"moved":2}`), "10.0.0.1", "curl", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &audit.AuditLog{
		VoterID:   &voterID,
		Action:    string(audit.ActionMoveEmails),
		Resource:  string(audit.ResourceVoter),
		Details:   map[string]int{"moved": 2},
		IPAddress: "10.0.0.1",
		UserAgent: "curl",
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.False(t, entry.Timestamp.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListFiltersByVoter(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewAuditRepository(database, nil)
	voterID, id := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM email_audit_logs WHERE voter_id = $1 ORDER BY timestamp DESC, id LIMIT $2")).
		WithArgs(voterID, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "voter_id", "action", "resource", "resource_id", "details", "ip_address", "user_agent", "timestamp"}).
			AddRow(id.String(), voterID.String(), "delete_emails", "voter", nil, `{"deleted":3}`, "", "", now))

	logs, err := repo.List(context.Background(), &audit.AuditLogFilter{VoterID: &voterID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, id, logs[0].ID)
	require.Equal(t, voterID, *logs[0].VoterID)
	require.Nil(t, logs[0].ResourceID)
	require.Equal(t, map[string]any{"deleted": float64(3)}, logs[0].Details)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Count(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewAuditRepository(database, nil)
	action := audit.ActionVerificationRun

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM email_audit_logs WHERE action = $1")).
		WithArgs("verification_run").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.Count(context.Background(), &audit.AuditLogFilter{Action: &action, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
