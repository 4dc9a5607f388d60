package repositories_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*db.Database, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return &db.Database{DB: sqlx.NewDb(raw, "postgres")}, mock
}

var emailRowColumns = []string{
	"id", "voter_id", "normalized_email_address", "email_ownership_is_verified", "secret_key",
	"subscription_secret_key", "email_permanent_bounce", "created_at", "updated_at",
}

func TestVoterRepository_GetByIDNotFound(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewVoterRepository(database, nil)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, first_name").WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), id)
	require.ErrorIs(t, err, voter.ErrVoterNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoterRepository_GetByID(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewVoterRepository(database, nil)
	id, primary := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT id, first_name").WithArgs(id).WillReturnRows(
		sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "primary_email_id", "email_ownership_is_verified", "created_at", "updated_at"}).
			AddRow(id.String(), "Ada", "Lovelace", "ada@example.com", primary.String(), true, now, now))

	v, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", v.CachedEmail())
	require.Equal(t, primary, *v.PrimaryEmailID)
	require.Equal(t, "Ada Lovelace", v.FullName())
}

func TestVoterRepository_UpdateMapsUniqueViolation(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewVoterRepository(database, nil)

	mock.ExpectExec("UPDATE voters").WillReturnError(&pq.Error{Code: "23505", Constraint: "voters_primary_email_id_key"})

	err := repo.Update(context.Background(), &voter.Voter{ID: uuid.New()})
	require.ErrorIs(t, err, ports.ErrConflict)
}

func TestVoterRepository_UpdateMissingVoter(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewVoterRepository(database, nil)

	mock.ExpectExec("UPDATE voters").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &voter.Voter{ID: uuid.New()})
	require.ErrorIs(t, err, voter.ErrVoterNotFound)
}

func TestVoterRepository_ClearCachedEmailReturnsTouchedVoters(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewVoterRepository(database, nil)
	emailID, except := uuid.New(), uuid.New()
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("UPDATE voters").WithArgs(emailID, "x@example.com", except).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(a.String()).AddRow(b.String()))

	ids, err := repo.ClearCachedEmail(context.Background(), emailID, "x@example.com", except)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{a, b}, ids)
}

func TestEmailAddressRepository_ListByVoterIsOrdered(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewEmailAddressRepository(database, nil)
	voterID := uuid.New()
	first, second := uuid.New(), uuid.New()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE voter_id = $1 ORDER BY created_at, id")).WithArgs(voterID).WillReturnRows(
		sqlmock.NewRows(emailRowColumns).
			AddRow(first.String(), voterID.String(), "a@example.com", true, "k1", nil, false, t0, t0).
			AddRow(second.String(), voterID.String(), "b@example.com", false, nil, nil, false, t0.Add(time.Minute), t0))

	list, err := repo.ListByVoter(context.Background(), voterID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first, list[0].ID)
	require.Equal(t, "k1", list[0].Secret())
	require.Empty(t, list[1].Secret())
}

func TestEmailAddressRepository_GetBySecretKey(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewEmailAddressRepository(database, nil)

	_, err := repo.GetBySecretKey(context.Background(), "")
	require.ErrorIs(t, err, email.ErrMissingSecretKey)

	mock.ExpectQuery("WHERE secret_key = \\$1").WithArgs("nope").WillReturnRows(sqlmock.NewRows(emailRowColumns))
	_, err = repo.GetBySecretKey(context.Background(), "nope")
	require.ErrorIs(t, err, email.ErrEmailNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailAddressRepository_ListVerifiedByTextsEmpty(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewEmailAddressRepository(database, nil)

	list, err := repo.ListVerifiedByTexts(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailAddressRepository_DeleteMissing(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewEmailAddressRepository(database, nil)

	mock.ExpectExec("DELETE FROM email_addresses").WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), email.ErrEmailNotFound)
}

func TestDeviceLinkRepository_UpdateConflict(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewDeviceLinkRepository(database, nil)
	key := "secret"

	mock.ExpectExec("UPDATE voter_device_links").WillReturnError(&pq.Error{Code: "23505"})
	err := repo.Update(context.Background(), &voter.DeviceLink{DeviceID: "d1", VoterID: uuid.New(), EmailSecretKey: &key})
	require.ErrorIs(t, err, ports.ErrConflict)
}

func TestOutboundRepository_ReassignVoter(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewOutboundRepository(database, nil)
	from, to := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE email_scheduled SET sender_voter_id").WithArgs(from, to).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ReassignVoter(context.Background(), ports.ScheduledSender, from, to)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestContactEmailRepository_EnsureAugmented(t *testing.T) {
	database, mock := setupTestDB(t)
	repo := repositories.NewContactEmailRepository(database, nil)

	mock.ExpectExec("INSERT INTO contact_email_augmented").WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.EnsureAugmented(context.Background(), []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
