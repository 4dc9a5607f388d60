package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EmailReconciler struct {
	voters   ports.VoterRepository
	emails   ports.EmailAddressRepository
	outbound ports.OutboundRepository
	logger   *logrus.Logger
}

func NewEmailReconciler(voters ports.VoterRepository, emails ports.EmailAddressRepository, outbound ports.OutboundRepository, logger *logrus.Logger) ports.EmailReconciler {
	return &EmailReconciler{
		voters:   voters,
		emails:   emails,
		outbound: outbound,
		logger:   orDiscard(logger),
	}
}

// findPrimary returns the first address, in list order, that the voter's cache points at.
func findPrimary(addresses []*email.EmailAddress, v *voter.Voter) *email.EmailAddress {
	for _, a := range addresses {
		if a == nil {
			continue
		}
		if v.PrimaryEmailID != nil && *v.PrimaryEmailID == a.ID {
			return a
		}
		if a.SameAddress(v.CachedEmail()) {
			return a
		}
	}
	return nil
}

func firstVerified(addresses []*email.EmailAddress) *email.EmailAddress {
	for _, a := range addresses {
		if a != nil && a.EmailOwnershipIsVerified {
			return a
		}
	}
	return nil
}

// cacheMatches is true when both cache fields point at a. Text compares case-insensitively.
func cacheMatches(v *voter.Voter, a *email.EmailAddress) bool {
	return v.PrimaryEmailID != nil && *v.PrimaryEmailID == a.ID && strings.EqualFold(v.CachedEmail(), a.NormalizedEmailAddress)
}

// withoutShadows drops records that share the primary's address but are not the primary.
func withoutShadows(addresses []*email.EmailAddress, primary *email.EmailAddress) []*email.EmailAddress {
	out := make([]*email.EmailAddress, 0, len(addresses))
	for _, a := range addresses {
		if a == nil {
			continue
		}
		if a.ID != primary.ID && strings.EqualFold(a.NormalizedEmailAddress, primary.NormalizedEmailAddress) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// savePrimary writes the voter's cache fields from primary. A failed save clears every other
// voter's reference to the address, forces the verified flag and retries exactly once.
func (s *EmailReconciler) savePrimary(ctx context.Context, v *voter.Voter, primary *email.EmailAddress, trail *email.StatusTrail) email.HealOutcome {
	v.SetPrimaryEmail(primary.ID, primary.NormalizedEmailAddress)
	err := s.voters.Update(ctx, v)
	if err == nil {
		trail.Add("SAVED_UPDATED_EMAIL_VALUES")
		return email.HealApplied
	}
	trail.Add("UNABLE_TO_SAVE_UPDATED_EMAIL_VALUES")
	s.logger.WithFields(logrus.Fields{"voter_id": v.ID, "email_id": primary.ID}).WithError(err).Warn("primary email save failed, clearing other voters")

	cleared, clearErr := s.voters.ClearCachedEmail(ctx, primary.ID, primary.NormalizedEmailAddress, v.ID)
	if clearErr != nil {
		trail.Add("UNABLE_TO_CLEAR_OTHER_VOTER_EMAIL_CACHE")
		s.logger.WithFields(logrus.Fields{"email_id": primary.ID}).WithError(clearErr).Error("failed to clear cached email on other voters")
	} else if len(cleared) > 0 {
		trail.Add("CLEARED_EMAIL_CACHE_ON_%d_OTHER_VOTERS", len(cleared))
	}

	v.SetPrimaryEmail(primary.ID, primary.NormalizedEmailAddress)
	v.EmailOwnershipIsVerified = true
	if err := s.voters.Update(ctx, v); err != nil {
		trail.Add("UNABLE_TO_SAVE_UPDATED_EMAIL_VALUES2")
		s.logger.WithFields(logrus.Fields{"voter_id": v.ID, "email_id": primary.ID}).WithError(err).Error("primary email save retry failed")
		return email.HealFailed
	}
	trail.Add("SAVED_UPDATED_EMAIL_VALUES2")
	return email.HealConflictResolved
}

func (s *EmailReconciler) HealPrimaryEmail(ctx context.Context, addresses []*email.EmailAddress, v *voter.Voter) *email.HealResult {
	var trail email.StatusTrail
	res := &email.HealResult{Success: true, Outcome: email.HealUnchanged, Addresses: addresses}
	if v == nil {
		trail.Add("HEAL_PRIMARY_EMAIL_VOTER_MISSING")
		res.Status = trail.String()
		res.Success = false
		return res
	}

	primary := findPrimary(addresses, v)
	switch {
	case primary != nil && cacheMatches(v, primary):
		trail.Add("PRIMARY_EMAIL_CACHE_CURRENT")
	case primary != nil:
		res.Outcome = s.savePrimary(ctx, v, primary, &trail)
	default:
		primary = firstVerified(addresses)
		if primary == nil {
			trail.Add("NO_VERIFIED_EMAIL_TO_PROMOTE")
			break
		}
		v.EmailOwnershipIsVerified = true
		res.Outcome = s.savePrimary(ctx, v, primary, &trail)
		if res.Outcome != email.HealFailed {
			trail.Add("VERIFIED_EMAIL_PROMOTED_TO_PRIMARY")
		}
	}

	if primary != nil {
		res.Primary = primary
		res.Addresses = withoutShadows(addresses, primary)
	}
	res.Success = res.Outcome != email.HealFailed
	res.Status = trail.String()
	return res
}

func (s *EmailReconciler) AugmentAddressList(ctx context.Context, addresses []*email.EmailAddress, v *voter.Voter) *email.AugmentListResult {
	var trail email.StatusTrail
	res := &email.AugmentListResult{Success: true, Outcome: email.HealUnchanged}
	if v == nil {
		trail.Add("AUGMENT_EMAIL_LIST_VOTER_MISSING")
		res.Status = trail.String()
		res.Success = false
		return res
	}

	primary := findPrimary(addresses, v)
	if primary != nil {
		if !cacheMatches(v, primary) {
			res.Outcome = s.savePrimary(ctx, v, primary, &trail)
		}
	} else if primary = firstVerified(addresses); primary != nil {
		v.EmailOwnershipIsVerified = true
		res.Outcome = s.savePrimary(ctx, v, primary, &trail)
	}

	res.Addresses = make([]*email.AugmentedEmailAddress, 0, len(addresses))
	for _, a := range addresses {
		if a == nil {
			continue
		}
		res.Addresses = append(res.Addresses, &email.AugmentedEmailAddress{
			NormalizedEmailAddress:   a.NormalizedEmailAddress,
			PrimaryEmailAddress:      primary != nil && a.ID == primary.ID,
			EmailPermanentBounce:     a.EmailPermanentBounce,
			EmailOwnershipIsVerified: a.EmailOwnershipIsVerified,
			VoterID:                  a.VoterID,
			EmailID:                  a.ID,
		})
	}
	res.Success = res.Outcome != email.HealFailed
	res.Status = trail.String()
	return res
}

func (s *EmailReconciler) DeduplicateOnSave(ctx context.Context, addresses []*email.EmailAddress) *email.DedupResult {
	var trail email.StatusTrail
	res := &email.DedupResult{}

	order := make([]string, 0, len(addresses))
	groups := make(map[string][]*email.EmailAddress)
	for _, a := range addresses {
		if a == nil {
			continue
		}
		key := email.Normalize(a.NormalizedEmailAddress)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a)
	}

	for _, key := range order {
		group := groups[key]
		keeper := firstVerified(group)
		if keeper == nil {
			keeper = group[0]
		}
		res.Kept = append(res.Kept, keeper)
		for _, a := range group {
			if a == keeper {
				continue
			}
			if err := s.emails.Delete(ctx, a.ID); err != nil {
				res.NotDeleted++
				s.logger.WithFields(logrus.Fields{"email_id": a.ID}).WithError(err).Warn("failed to delete duplicate email")
				continue
			}
			res.Deleted++
		}
	}

	if res.Deleted > 0 {
		trail.Add("DUPLICATE_EMAILS_DELETED_%d", res.Deleted)
	}
	if res.NotDeleted > 0 {
		trail.Add("DUPLICATE_EMAILS_NOT_DELETED_%d", res.NotDeleted)
	}
	res.Success = res.NotDeleted == 0
	res.Status = trail.String()
	return res
}

func (s *EmailReconciler) MergeDuplicateEmails(ctx context.Context, voterID uuid.UUID) (*email.DedupResult, error) {
	addresses, err := s.emails.ListByVoter(ctx, voterID)
	if err != nil {
		return &email.DedupResult{Status: "MERGE_DUPLICATE_EMAILS_LIST_FAILED"}, fmt.Errorf("failed to list emails for voter %s: %w", voterID, err)
	}
	return s.DeduplicateOnSave(ctx, addresses), nil
}

func (s *EmailReconciler) MoveAddressesToVoter(ctx context.Context, fromID, toID uuid.UUID) (*email.MoveResult, error) {
	var trail email.StatusTrail
	res := &email.MoveResult{FromID: fromID, ToID: toID}
	if fromID == uuid.Nil || toID == uuid.Nil {
		res.Status = "MOVE_EMAILS_MISSING_FROM_OR_TO_VOTER_ID"
		return res, fmt.Errorf("%w: missing from or to voter id", email.ErrPartialMigration)
	}
	if fromID == toID {
		res.Status = "MOVE_EMAILS_FROM_AND_TO_VOTER_IDS_IDENTICAL"
		return res, fmt.Errorf("%w: from and to voter ids are identical", email.ErrPartialMigration)
	}

	addresses, err := s.emails.ListByVoter(ctx, fromID)
	if err != nil {
		res.Status = "MOVE_EMAILS_LIST_FAILED"
		return res, fmt.Errorf("failed to list emails for voter %s: %w", fromID, err)
	}

	failed := false
	for _, a := range addresses {
		a.VoterID = toID
		if err := s.emails.Update(ctx, a); err != nil {
			res.NotMoved++
			s.logger.WithFields(logrus.Fields{"email_id": a.ID, "to_voter_id": toID}).WithError(err).Warn("failed to move email")
			continue
		}
		res.Moved++
	}
	trail.Add("EMAILS_MOVED_%d_NOT_MOVED_%d", res.Moved, res.NotMoved)

	merged, err := s.MergeDuplicateEmails(ctx, toID)
	trail.Append(merged.Status)
	if err != nil || !merged.Success {
		failed = true
	}

	if to, err := s.voters.GetByID(ctx, toID); err != nil {
		trail.Add("MOVE_EMAILS_TO_VOTER_NOT_FOUND")
		failed = true
	} else if toAddresses, err := s.emails.ListByVoter(ctx, toID); err != nil {
		trail.Add("MOVE_EMAILS_TO_VOTER_LIST_FAILED")
		failed = true
	} else {
		healed := s.HealPrimaryEmail(ctx, toAddresses, to)
		trail.Append(healed.Status)
		failed = failed || !healed.Success
	}

	if from, err := s.voters.GetByID(ctx, fromID); err != nil {
		trail.Add("MOVE_EMAILS_FROM_VOTER_NOT_FOUND")
	} else if from.HasPrimaryEmail() {
		from.ClearPrimaryEmail()
		if err := s.voters.Update(ctx, from); err != nil {
			trail.Add("UNABLE_TO_CLEAR_FROM_VOTER_EMAIL")
			s.logger.WithFields(logrus.Fields{"voter_id": fromID}).WithError(err).Error("failed to clear moved voter email cache")
			failed = true
		} else {
			trail.Add("FROM_VOTER_EMAIL_CLEARED")
		}
	}

	for _, target := range ports.OutboundTargets {
		n, err := s.outbound.ReassignVoter(ctx, target, fromID, toID)
		if err != nil {
			trail.Add("UNABLE_TO_REASSIGN_%s", strings.ToUpper(target.String()))
			s.logger.WithFields(logrus.Fields{"target": target.String(), "from_voter_id": fromID}).WithError(err).Error("failed to reassign outbound emails")
			failed = true
			continue
		}
		if n > 0 {
			trail.Add("REASSIGNED_%s_%d", strings.ToUpper(target.String()), n)
		}
	}

	res.Success = !failed && res.NotMoved == 0
	res.Status = trail.String()
	if !res.Success {
		return res, fmt.Errorf("%w: moved %d, not moved %d", email.ErrPartialMigration, res.Moved, res.NotMoved)
	}
	return res, nil
}

func (s *EmailReconciler) DeleteAddressesForVoter(ctx context.Context, voterID uuid.UUID, v *voter.Voter) (*email.DeleteResult, error) {
	var trail email.StatusTrail
	res := &email.DeleteResult{}
	if voterID == uuid.Nil {
		res.Status = "DELETE_EMAILS_MISSING_VOTER_ID"
		return res, fmt.Errorf("%w: missing voter id", email.ErrPartialDelete)
	}

	addresses, err := s.emails.ListByVoter(ctx, voterID)
	if err != nil {
		res.Status = "DELETE_EMAILS_LIST_FAILED"
		return res, fmt.Errorf("failed to list emails for voter %s: %w", voterID, err)
	}

	deletedIDs := make(map[uuid.UUID]struct{}, len(addresses))
	deletedTexts := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		if err := s.emails.Delete(ctx, a.ID); err != nil {
			res.NotDeleted++
			s.logger.WithFields(logrus.Fields{"email_id": a.ID}).WithError(err).Warn("failed to delete email")
			continue
		}
		res.Deleted++
		deletedIDs[a.ID] = struct{}{}
		deletedTexts[email.Normalize(a.NormalizedEmailAddress)] = struct{}{}
	}
	trail.Add("EMAILS_DELETED_%d_NOT_DELETED_%d", res.Deleted, res.NotDeleted)

	clearFailed := false
	if v == nil {
		if loaded, err := s.voters.GetByID(ctx, voterID); err == nil {
			v = loaded
		}
	}
	if v != nil && v.HasPrimaryEmail() {
		idGone := false
		if v.PrimaryEmailID != nil {
			_, idGone = deletedIDs[*v.PrimaryEmailID]
		}
		_, textGone := deletedTexts[email.Normalize(v.CachedEmail())]
		if idGone || textGone {
			v.ClearPrimaryEmail()
			if err := s.voters.Update(ctx, v); err != nil {
				trail.Add("UNABLE_TO_CLEAR_VOTER_EMAIL_CACHE")
				s.logger.WithFields(logrus.Fields{"voter_id": voterID}).WithError(err).Error("failed to clear voter email cache")
				clearFailed = true
			} else {
				trail.Add("VOTER_EMAIL_CACHE_CLEARED")
			}
		}
	}

	res.Success = res.NotDeleted == 0 && !clearFailed
	res.Status = trail.String()
	if !res.Success {
		return res, fmt.Errorf("%w: deleted %d, not deleted %d", email.ErrPartialDelete, res.Deleted, res.NotDeleted)
	}
	return res, nil
}

var _ ports.EmailReconciler = (*EmailReconciler)(nil)
