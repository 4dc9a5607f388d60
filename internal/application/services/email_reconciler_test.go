package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	impl "github.com/avatarctic/voter-email/go/internal/application/services"
	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	tmocks "github.com/avatarctic/voter-email/go/test/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newAddress(voterID uuid.UUID, text string, verified bool, minute int) *email.EmailAddress {
	return &email.EmailAddress{
		ID:                       uuid.New(),
		VoterID:                  voterID,
		NormalizedEmailAddress:   text,
		EmailOwnershipIsVerified: verified,
		CreatedAt:                baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func newReconciler(voters *tmocks.VoterRepositoryMock, emails *tmocks.EmailAddressRepositoryMock, outbound *tmocks.OutboundRepositoryMock) ports.EmailReconciler {
	if outbound == nil {
		outbound = &tmocks.OutboundRepositoryMock{}
	}
	return impl.NewEmailReconciler(voters, emails, outbound, nil)
}

func TestHealPrimaryEmail_PromotesFirstVerified(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	unverified := newAddress(v.ID, "a@example.com", false, 0)
	verified := newAddress(v.ID, "b@example.com", true, 1)
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{unverified, verified}, v)
	require.True(t, res.Success)
	require.Equal(t, email.HealApplied, res.Outcome)
	require.Equal(t, verified.ID, res.Primary.ID)

	stored := voters.Get(v.ID)
	require.Equal(t, verified.ID, *stored.PrimaryEmailID)
	require.Equal(t, "b@example.com", stored.CachedEmail())
	require.True(t, stored.EmailOwnershipIsVerified)
}

func TestHealPrimaryEmail_Idempotent(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	first := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{a}, v)
	require.Equal(t, email.HealApplied, first.Outcome)
	calls := voters.UpdateCalls

	second := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{a}, v)
	require.True(t, second.Success)
	require.Equal(t, email.HealUnchanged, second.Outcome)
	require.Equal(t, calls, voters.UpdateCalls)
	require.Contains(t, second.Status, "PRIMARY_EMAIL_CACHE_CURRENT")
}

func TestHealPrimaryEmail_NoVerifiedLeavesVoterAlone(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{newAddress(v.ID, "a@example.com", false, 0)}, v)
	require.True(t, res.Success)
	require.Nil(t, res.Primary)
	require.Zero(t, voters.UpdateCalls)
}

func TestHealPrimaryEmail_MissingVoter(t *testing.T) {
	r := newReconciler(tmocks.NewVoterRepositoryMock(), tmocks.NewEmailAddressRepositoryMock(), nil)
	res := r.HealPrimaryEmail(context.Background(), nil, nil)
	require.False(t, res.Success)
}

func TestHealPrimaryEmail_ConflictClearsOthersAndRetriesOnce(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	other := &voter.Voter{ID: uuid.New()}
	other.SetPrimaryEmail(a.ID, a.NormalizedEmailAddress)
	voters := tmocks.NewVoterRepositoryMock(v, other)

	attempts := 0
	voters.UpdateFn = func(ctx context.Context, u *voter.Voter) error {
		attempts++
		if attempts == 1 {
			return ports.ErrConflict
		}
		voters.Voters[u.ID] = u
		return nil
	}
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{a}, v)
	require.True(t, res.Success)
	require.Equal(t, email.HealConflictResolved, res.Outcome)
	require.Equal(t, 2, attempts)
	require.False(t, voters.Get(other.ID).HasPrimaryEmail())
	require.Contains(t, res.Status, "SAVED_UPDATED_EMAIL_VALUES2")
}

func TestHealPrimaryEmail_RetryFailureIsReported(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	voters := tmocks.NewVoterRepositoryMock(v)
	voters.UpdateFn = func(ctx context.Context, u *voter.Voter) error { return ports.ErrConflict }
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{a}, v)
	require.False(t, res.Success)
	require.Equal(t, email.HealFailed, res.Outcome)
	require.Equal(t, 2, voters.UpdateCalls)
}

func TestHealPrimaryEmail_DropsShadowRecords(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	primary := newAddress(v.ID, "a@example.com", true, 0)
	shadow := newAddress(v.ID, "a@example.com", false, 1)
	other := newAddress(v.ID, "b@example.com", false, 2)
	v.SetPrimaryEmail(primary.ID, primary.NormalizedEmailAddress)
	r := newReconciler(tmocks.NewVoterRepositoryMock(v), tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{primary, shadow, other}, v)
	require.Len(t, res.Addresses, 2)
	require.Equal(t, primary.ID, res.Addresses[0].ID)
	require.Equal(t, other.ID, res.Addresses[1].ID)
}

func TestAugmentAddressList_MarksPrimary(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", false, 0)
	b := newAddress(v.ID, "b@example.com", true, 1)
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.AugmentAddressList(context.Background(), []*email.EmailAddress{a, b}, v)
	require.True(t, res.Success)
	require.Len(t, res.Addresses, 2)
	require.False(t, res.Addresses[0].PrimaryEmailAddress)
	require.True(t, res.Addresses[1].PrimaryEmailAddress)
	require.Equal(t, b.ID, *voters.Get(v.ID).PrimaryEmailID)
}

func TestAugmentAddressList_RepairsStaleCache(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	stale := uuid.New()
	v.PrimaryEmailID = &stale
	text := "a@example.com"
	v.Email = &text
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.AugmentAddressList(context.Background(), []*email.EmailAddress{a}, v)
	require.Equal(t, email.HealApplied, res.Outcome)
	require.Equal(t, a.ID, *voters.Get(v.ID).PrimaryEmailID)
}

func TestAugmentAddressList_RepairsMissingPrimaryID(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	text := "a@example.com"
	v.Email = &text
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	res := r.AugmentAddressList(context.Background(), []*email.EmailAddress{a}, v)
	require.True(t, res.Success)
	require.Equal(t, email.HealApplied, res.Outcome)
	require.True(t, res.Addresses[0].PrimaryEmailAddress)
	require.Equal(t, 1, voters.UpdateCalls)
	require.NotNil(t, voters.Get(v.ID).PrimaryEmailID)
	require.Equal(t, a.ID, *voters.Get(v.ID).PrimaryEmailID)
}

func TestPrimaryCache_CaseOnlyDifferenceIsCurrent(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	v.SetPrimaryEmail(a.ID, "A@Example.com")
	voters := tmocks.NewVoterRepositoryMock(v)
	r := newReconciler(voters, tmocks.NewEmailAddressRepositoryMock(), nil)

	healed := r.HealPrimaryEmail(context.Background(), []*email.EmailAddress{a}, v)
	require.Equal(t, email.HealUnchanged, healed.Outcome)
	require.Contains(t, healed.Status, "PRIMARY_EMAIL_CACHE_CURRENT")

	augmented := r.AugmentAddressList(context.Background(), []*email.EmailAddress{a}, v)
	require.Equal(t, email.HealUnchanged, augmented.Outcome)
	require.Zero(t, voters.UpdateCalls)
}

func TestDeduplicateOnSave_KeepsFirstVerified(t *testing.T) {
	voterID := uuid.New()
	a := newAddress(voterID, "x@example.com", true, 0)
	b := newAddress(voterID, "x@example.com", true, 1)
	c := newAddress(voterID, "x@example.com", false, 2)
	emails := tmocks.NewEmailAddressRepositoryMock(a, b, c)
	r := newReconciler(tmocks.NewVoterRepositoryMock(), emails, nil)

	res := r.DeduplicateOnSave(context.Background(), []*email.EmailAddress{a, b, c})
	require.True(t, res.Success)
	require.Len(t, res.Kept, 1)
	require.Equal(t, a.ID, res.Kept[0].ID)
	require.Equal(t, 2, res.Deleted)
	require.Equal(t, 1, emails.Len())
	require.NotNil(t, emails.Get(a.ID))
}

func TestDeduplicateOnSave_KeepsOldestWhenNoneVerified(t *testing.T) {
	voterID := uuid.New()
	a := newAddress(voterID, "x@example.com", false, 0)
	b := newAddress(voterID, "X@example.com", false, 1)
	emails := tmocks.NewEmailAddressRepositoryMock(a, b)
	r := newReconciler(tmocks.NewVoterRepositoryMock(), emails, nil)

	res := r.DeduplicateOnSave(context.Background(), []*email.EmailAddress{a, b})
	require.Equal(t, a.ID, res.Kept[0].ID)
	require.Equal(t, 1, res.Deleted)
}

func TestDeduplicateOnSave_CountsFailedDeletes(t *testing.T) {
	voterID := uuid.New()
	a := newAddress(voterID, "x@example.com", true, 0)
	b := newAddress(voterID, "x@example.com", false, 1)
	emails := tmocks.NewEmailAddressRepositoryMock(a, b)
	emails.DeleteFn = func(ctx context.Context, id uuid.UUID) error { return errors.New("db down") }
	r := newReconciler(tmocks.NewVoterRepositoryMock(), emails, nil)

	res := r.DeduplicateOnSave(context.Background(), []*email.EmailAddress{a, b})
	require.False(t, res.Success)
	require.Equal(t, 1, res.NotDeleted)
	require.Contains(t, res.Status, "DUPLICATE_EMAILS_NOT_DELETED_1")
}

func TestMoveAddressesToVoter_RejectsSameOrMissingIDs(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	v.SetPrimaryEmail(a.ID, a.NormalizedEmailAddress)
	voters := tmocks.NewVoterRepositoryMock(v)
	emails := tmocks.NewEmailAddressRepositoryMock(a)
	emails.UpdateFn = func(ctx context.Context, e *email.EmailAddress) error {
		t.Fatalf("unexpected email update for %s", e.ID)
		return nil
	}
	outbound := &tmocks.OutboundRepositoryMock{}
	r := newReconciler(voters, emails, outbound)

	res, err := r.MoveAddressesToVoter(context.Background(), v.ID, v.ID)
	require.ErrorIs(t, err, email.ErrPartialMigration)
	require.False(t, res.Success)

	for _, ids := range [][2]uuid.UUID{{uuid.Nil, v.ID}, {v.ID, uuid.Nil}} {
		res, err = r.MoveAddressesToVoter(context.Background(), ids[0], ids[1])
		require.ErrorIs(t, err, email.ErrPartialMigration)
		require.False(t, res.Success)
	}

	require.Zero(t, voters.UpdateCalls)
	require.Empty(t, emails.DeleteCalls)
	require.Equal(t, 1, emails.Len())
	require.Equal(t, v.ID, emails.Get(a.ID).VoterID)
	require.Empty(t, outbound.Reassigned)
	require.Equal(t, a.ID, *voters.Get(v.ID).PrimaryEmailID)
}

func TestMoveAddressesToVoter_PartialFailureKeepsMoving(t *testing.T) {
	from := &voter.Voter{ID: uuid.New()}
	to := &voter.Voter{ID: uuid.New()}
	a := newAddress(from.ID, "a@example.com", true, 0)
	b := newAddress(from.ID, "b@example.com", false, 1)
	c := newAddress(from.ID, "c@example.com", false, 2)
	voters := tmocks.NewVoterRepositoryMock(from, to)
	emails := tmocks.NewEmailAddressRepositoryMock(a, b, c)
	emails.UpdateFn = func(ctx context.Context, e *email.EmailAddress) error {
		if e.ID == b.ID {
			return errors.New("row locked")
		}
		cp := *e
		emails.Emails[e.ID] = &cp
		return nil
	}
	outbound := &tmocks.OutboundRepositoryMock{}
	r := newReconciler(voters, emails, outbound)

	res, err := r.MoveAddressesToVoter(context.Background(), from.ID, to.ID)
	require.ErrorIs(t, err, email.ErrPartialMigration)
	require.False(t, res.Success)
	require.Equal(t, 2, res.Moved)
	require.Equal(t, 1, res.NotMoved)
	require.Contains(t, res.Status, "EMAILS_MOVED_2_NOT_MOVED_1")

	require.Equal(t, to.ID, emails.Get(a.ID).VoterID)
	require.Equal(t, from.ID, emails.Get(b.ID).VoterID)
	require.Equal(t, to.ID, emails.Get(c.ID).VoterID)
	require.Len(t, outbound.Reassigned, len(ports.OutboundTargets))
	for _, target := range ports.OutboundTargets {
		require.Equal(t, 1, outbound.Reassigned[target], target.String())
	}
}

func TestMoveAddressesToVoter_MovesAndHeals(t *testing.T) {
	from := &voter.Voter{ID: uuid.New()}
	to := &voter.Voter{ID: uuid.New()}
	a := newAddress(from.ID, "a@example.com", true, 0)
	b := newAddress(from.ID, "b@example.com", false, 1)
	from.SetPrimaryEmail(a.ID, a.NormalizedEmailAddress)
	voters := tmocks.NewVoterRepositoryMock(from, to)
	emails := tmocks.NewEmailAddressRepositoryMock(a, b)
	outbound := &tmocks.OutboundRepositoryMock{}
	r := newReconciler(voters, emails, outbound)

	res, err := r.MoveAddressesToVoter(context.Background(), from.ID, to.ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 2, res.Moved)
	require.Equal(t, to.ID, emails.Get(a.ID).VoterID)
	require.Equal(t, to.ID, emails.Get(b.ID).VoterID)
	require.False(t, voters.Get(from.ID).HasPrimaryEmail())
	require.Equal(t, a.ID, *voters.Get(to.ID).PrimaryEmailID)
	require.Len(t, outbound.Reassigned, len(ports.OutboundTargets))
}

func TestDeleteAddressesForVoter_ClearsCache(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", true, 0)
	v.SetPrimaryEmail(a.ID, a.NormalizedEmailAddress)
	voters := tmocks.NewVoterRepositoryMock(v)
	emails := tmocks.NewEmailAddressRepositoryMock(a, newAddress(v.ID, "b@example.com", false, 1))
	r := newReconciler(voters, emails, nil)

	res, err := r.DeleteAddressesForVoter(context.Background(), v.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Deleted)
	require.Zero(t, emails.Len())
	require.False(t, voters.Get(v.ID).HasPrimaryEmail())
}

func TestDeleteAddressesForVoter_PartialFailure(t *testing.T) {
	v := &voter.Voter{ID: uuid.New()}
	a := newAddress(v.ID, "a@example.com", false, 0)
	emails := tmocks.NewEmailAddressRepositoryMock(a)
	emails.DeleteFn = func(ctx context.Context, id uuid.UUID) error { return errors.New("locked") }
	r := newReconciler(tmocks.NewVoterRepositoryMock(v), emails, nil)

	res, err := r.DeleteAddressesForVoter(context.Background(), v.ID, v)
	require.ErrorIs(t, err, email.ErrPartialDelete)
	require.Equal(t, 1, res.NotDeleted)
}
