package services

import (
	"context"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func ownedBy(addresses []*email.EmailAddress, voterID uuid.UUID) []*email.EmailAddress {
	out := make([]*email.EmailAddress, 0, len(addresses))
	for _, a := range addresses {
		if a != nil && a.VoterID == voterID {
			out = append(out, a)
		}
	}
	return out
}

// saveTarget resolves the address text from either the request text or the email id.
func (s *VoterEmailService) saveTarget(ctx context.Context, req *email.SaveRequest, v *voter.Voter) (string, string) {
	text := email.Normalize(req.EmailText)
	if text == "" && req.EmailID != uuid.Nil {
		rec, err := s.emails.GetByID(ctx, req.EmailID)
		if err != nil || rec.VoterID != v.ID {
			return "", "EMAIL_WE_VOTE_ID_NOT_FOUND_FOR_VOTER"
		}
		text = rec.NormalizedEmailAddress
	}
	if text == "" {
		return "", "MISSING_EMAIL_TEXT_OR_EMAIL_WE_VOTE_ID"
	}
	return text, ""
}

func (s *VoterEmailService) SaveEmailAddress(ctx context.Context, req *email.SaveRequest) *email.SaveResult {
	var trail email.StatusTrail
	res := &email.SaveResult{Addresses: []*email.AugmentedEmailAddress{}}
	if req == nil {
		res.Status = "SAVE_EMAIL_MISSING_REQUEST"
		return res
	}
	res.DeviceID = req.DeviceID
	res.EmailText = req.EmailText
	res.EmailID = req.EmailID

	link, v, status := s.resolveVoter(ctx, req.DeviceID)
	if v == nil {
		res.Status = status
		return res
	}
	text, status := s.saveTarget(ctx, req, v)
	if text == "" {
		res.Status = status
		return res
	}
	if !email.IsValid(text) {
		res.EmailAddressNotValid = true
		res.Status = "EMAIL_ADDRESS_NOT_VALID"
		return res
	}
	res.EmailText = text

	sameText, err := s.emails.ListByText(ctx, text)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"voter_id": v.ID}).WithError(err).Error("failed to look up email text")
		res.Status = "EMAIL_ADDRESS_LOOKUP_FAILED"
		return res
	}

	wantsCode := req.SendSignInCode || req.ResendVerificationCode
	failed := false

	if owner := firstVerified(sameText); owner != nil && owner.VoterID != v.ID {
		res.AlreadyOwnedByOtherVoter = true
		res.EmailAddressFound = true
		trail.Add("EMAIL_ALREADY_OWNED_BY_OTHER_VOTER")
		if !req.SendLinkToSignIn && !wantsCode {
			res.Success = true
			res.Status = trail.String()
			return res
		}
		res.EmailID = owner.ID
		failed = !s.sendSignIn(ctx, req, link, v, owner, res, &trail)
		s.refreshList(ctx, v, res, &trail)
		res.Success = !failed
		res.Status = trail.String()
		return res
	}

	var current *email.EmailAddress
	if mine := ownedBy(sameText, v.ID); len(mine) > 0 {
		dedup := s.reconciler.DeduplicateOnSave(ctx, mine)
		trail.Append(dedup.Status)
		if len(dedup.Kept) > 0 {
			current = dedup.Kept[0]
			res.EmailAddressFound = true
			res.EmailID = current.ID
			res.AlreadyOwnedByThisVoter = current.EmailOwnershipIsVerified
		}
	}

	switch {
	case req.Delete:
		if current == nil {
			trail.Add("EMAIL_NOT_FOUND_TO_DELETE")
			break
		}
		failed = !s.deleteOwnEmail(ctx, v, current, &trail)
		res.EmailAddressDeleted = !failed
		s.refreshList(ctx, v, res, &trail)
		res.Success = !failed
		res.Status = trail.String()
		return res
	case req.MakePrimary:
		if current == nil {
			trail.Add("EMAIL_NOT_FOUND_TO_MAKE_PRIMARY")
			break
		}
		if !current.EmailOwnershipIsVerified {
			trail.Add("EMAIL_MUST_BE_VERIFIED_TO_BECOME_PRIMARY")
			break
		}
		res.EmailAddressSavedAsPrimary = s.makePrimary(ctx, v, current, &trail)
		failed = !res.EmailAddressSavedAsPrimary
	}

	if current == nil && !req.Delete {
		created, err := s.createEmail(ctx, v.ID, text)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"voter_id": v.ID}).WithError(err).Error("failed to create email address")
			trail.Add("UNABLE_TO_CREATE_NEW_EMAIL")
			res.Status = trail.String()
			return res
		}
		trail.Add("NEW_EMAIL_CREATED")
		current = created
		res.EmailAddressCreated = true
		res.EmailID = created.ID
	}

	if current != nil {
		switch {
		case req.SendLinkToSignIn && !res.AlreadyOwnedByThisVoter, wantsCode:
			if !s.sendSignIn(ctx, req, link, v, current, res, &trail) {
				failed = true
			}
		case !current.EmailOwnershipIsVerified && (res.EmailAddressCreated || req.ResendVerificationEmail):
			sent := s.dispatch.SendVerificationEmail(ctx, s.flowRequest(req, v, current))
			trail.Append(sent.Status)
			res.VerificationEmailSent = sent.Scheduled
			failed = failed || !sent.Success
		}
	}

	s.refreshList(ctx, v, res, &trail)
	res.Success = !failed
	res.Status = trail.String()
	return res
}

func (s *VoterEmailService) createEmail(ctx context.Context, voterID uuid.UUID, text string) (*email.EmailAddress, error) {
	secret, err := generateSecretKey()
	if err != nil {
		return nil, err
	}
	subscription, err := generateSecretKey()
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec := &email.EmailAddress{
		ID:                     uuid.New(),
		VoterID:                voterID,
		NormalizedEmailAddress: text,
		SecretKey:              &secret,
		SubscriptionSecretKey:  &subscription,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.emails.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *VoterEmailService) flowRequest(req *email.SaveRequest, v *voter.Voter, rec *email.EmailAddress) *ports.VerificationEmailRequest {
	return &ports.VerificationEmailRequest{
		SenderVoterID:         v.ID,
		RecipientVoterID:      rec.VoterID,
		RecipientEmailID:      rec.ID,
		RecipientEmail:        rec.NormalizedEmailAddress,
		SecretKey:             rec.Secret(),
		SubscriptionSecretKey: rec.SubscriptionSecret(),
		WebAppRootURL:         req.WebAppRootURL,
	}
}

// sendSignIn sends the sign-in link and/or code for rec. It returns false when a requested email
// could not be scheduled.
func (s *VoterEmailService) sendSignIn(ctx context.Context, req *email.SaveRequest, link *voter.DeviceLink, v *voter.Voter, rec *email.EmailAddress, res *email.SaveResult, trail *email.StatusTrail) bool {
	if rec.Secret() == "" {
		secret, err := generateSecretKey()
		if err != nil {
			trail.Add("EMAIL_SECRET_KEY_NOT_GENERATED")
			return false
		}
		rec.SecretKey = &secret
		if err := s.emails.Update(ctx, rec); err != nil {
			s.logger.WithFields(logrus.Fields{"email_id": rec.ID}).WithError(err).Warn("failed to save email secret key")
			trail.Add("EMAIL_SECRET_KEY_NOT_SAVED")
			return false
		}
	}
	flow := s.flowRequest(req, v, rec)
	ok := true

	if req.SendLinkToSignIn {
		sent := s.dispatch.SendLinkToSignIn(ctx, &ports.SignInLinkRequest{VerificationEmailRequest: *flow, IsCordova: req.IsCordova})
		trail.Append(sent.Status)
		res.LinkToSignInEmailSent = sent.Scheduled
		ok = ok && sent.Success
	}

	if req.SendSignInCode || req.ResendVerificationCode {
		code, locked, err := s.secretCodeUpToDate(ctx, link)
		switch {
		case locked:
			res.SecretCodeSystemLocked = true
			trail.Add("SECRET_CODE_SYSTEM_LOCKED_FOR_THIS_VOTER_DEVICE_ID")
		case err != nil:
			s.logger.WithFields(logrus.Fields{"device_id": link.DeviceID}).WithError(err).Warn("failed to refresh device secret code")
			trail.Add("SECRET_CODE_NOT_SAVED")
			ok = false
		default:
			s.storeDeviceSecretKey(ctx, link, flow.SecretKey, trail)
			sent := s.dispatch.SendSignInCode(ctx, &ports.SignInCodeRequest{VerificationEmailRequest: *flow, SecretCode: code})
			trail.Append(sent.Status)
			res.SignInCodeEmailSent = sent.Scheduled
			ok = ok && sent.Success
		}
	}
	return ok
}

// deleteOwnEmail removes rec, drops the voter's cache when it pointed at rec and promotes the next
// verified address, if any.
func (s *VoterEmailService) deleteOwnEmail(ctx context.Context, v *voter.Voter, rec *email.EmailAddress, trail *email.StatusTrail) bool {
	wasPrimary := (v.PrimaryEmailID != nil && *v.PrimaryEmailID == rec.ID) || rec.SameAddress(v.CachedEmail())
	if wasPrimary {
		v.ClearPrimaryEmail()
		if err := s.voters.Update(ctx, v); err != nil {
			s.logger.WithFields(logrus.Fields{"voter_id": v.ID}).WithError(err).Error("failed to clear primary email before delete")
			trail.Add("UNABLE_TO_REMOVE_PRIMARY_EMAIL_FROM_VOTER")
			return false
		}
		trail.Add("PRIMARY_EMAIL_REMOVED_FROM_VOTER")
	}
	if err := s.emails.Delete(ctx, rec.ID); err != nil {
		s.logger.WithFields(logrus.Fields{"email_id": rec.ID}).WithError(err).Error("failed to delete email")
		trail.Add("UNABLE_TO_DELETE_EMAIL_ADDRESS")
		return false
	}
	trail.Add("EMAIL_ADDRESS_DELETED")

	if wasPrimary {
		remaining, err := s.emails.ListByVoter(ctx, v.ID)
		if err != nil {
			trail.Add("EMAIL_ADDRESS_LIST_RETRIEVE_FAILED")
			return true
		}
		healed := s.reconciler.HealPrimaryEmail(ctx, remaining, v)
		trail.Append(healed.Status)
	}
	return true
}

// makePrimary points the voter cache at rec. A conflicting reference held by another voter is
// cleared and the save retried once.
func (s *VoterEmailService) makePrimary(ctx context.Context, v *voter.Voter, rec *email.EmailAddress, trail *email.StatusTrail) bool {
	v.SetPrimaryEmail(rec.ID, rec.NormalizedEmailAddress)
	v.EmailOwnershipIsVerified = true
	if err := s.voters.Update(ctx, v); err == nil {
		trail.Add("EMAIL_SAVED_AS_PRIMARY")
		return true
	}
	trail.Add("UNABLE_TO_SAVE_PRIMARY_EMAIL")
	if _, err := s.voters.ClearCachedEmail(ctx, rec.ID, rec.NormalizedEmailAddress, v.ID); err != nil {
		s.logger.WithFields(logrus.Fields{"email_id": rec.ID}).WithError(err).Warn("failed to clear cached email on other voters")
	}
	if err := s.voters.Update(ctx, v); err != nil {
		s.logger.WithFields(logrus.Fields{"voter_id": v.ID, "email_id": rec.ID}).WithError(err).Error("failed to save primary email")
		trail.Add("UNABLE_TO_SAVE_PRIMARY_EMAIL2")
		return false
	}
	trail.Add("EMAIL_SAVED_AS_PRIMARY2")
	return true
}

func (s *VoterEmailService) refreshList(ctx context.Context, v *voter.Voter, res *email.SaveResult, trail *email.StatusTrail) {
	addresses, err := s.emails.ListByVoter(ctx, v.ID)
	if err != nil {
		trail.Add("EMAIL_ADDRESS_LIST_RETRIEVE_FAILED")
		return
	}
	augmented := s.reconciler.AugmentAddressList(ctx, addresses, v)
	trail.Append(augmented.Status)
	res.ListFound = len(augmented.Addresses) > 0
	res.Addresses = augmented.Addresses
}
