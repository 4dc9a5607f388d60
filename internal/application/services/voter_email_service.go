package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// DeviceCodeConfig controls the six digit sign-in codes kept on device links.
type DeviceCodeConfig struct {
	Lifetime          time.Duration
	MaxFailedAttempts int
}

type VoterEmailService struct {
	devices    ports.DeviceLinkRepository
	voters     ports.VoterRepository
	emails     ports.EmailAddressRepository
	reconciler ports.EmailReconciler
	dispatch   ports.EmailDispatchService
	codes      DeviceCodeConfig
	logger     *logrus.Logger
	now        func() time.Time
}

func NewVoterEmailService(devices ports.DeviceLinkRepository, voters ports.VoterRepository, emails ports.EmailAddressRepository, reconciler ports.EmailReconciler, dispatch ports.EmailDispatchService, codes *DeviceCodeConfig, logger *logrus.Logger) ports.VoterEmailService {
	c := DeviceCodeConfig{Lifetime: time.Hour, MaxFailedAttempts: 5}
	if codes != nil {
		if codes.Lifetime > 0 {
			c.Lifetime = codes.Lifetime
		}
		if codes.MaxFailedAttempts > 0 {
			c.MaxFailedAttempts = codes.MaxFailedAttempts
		}
	}
	return &VoterEmailService{
		devices:    devices,
		voters:     voters,
		emails:     emails,
		reconciler: reconciler,
		dispatch:   dispatch,
		codes:      c,
		logger:     orDiscard(logger),
		now:        time.Now,
	}
}

// resolveVoter validates the device id and loads the signed-in voter. On failure the
// returned status code explains why.
func (s *VoterEmailService) resolveVoter(ctx context.Context, deviceID string) (*voter.DeviceLink, *voter.Voter, string) {
	if err := voter.ValidateDeviceID(deviceID); err != nil {
		return nil, nil, "VALID_VOTER_DEVICE_ID_MISSING"
	}
	link, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"device_id": deviceID}).WithError(err).Debug("device link not found")
		return nil, nil, "VOTER_NOT_FOUND_FROM_VOTER_DEVICE_ID"
	}
	v, err := s.voters.GetByID(ctx, link.VoterID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"voter_id": link.VoterID}).WithError(err).Debug("voter not found for device")
		return link, nil, "VOTER_NOT_FOUND_FROM_VOTER_DEVICE_ID"
	}
	return link, v, ""
}

func (s *VoterEmailService) RetrieveEmailAddresses(ctx context.Context, deviceID string) *email.RetrieveResult {
	var trail email.StatusTrail
	res := &email.RetrieveResult{DeviceID: deviceID, Addresses: []*email.AugmentedEmailAddress{}}
	_, v, status := s.resolveVoter(ctx, deviceID)
	if v == nil {
		res.Status = status
		return res
	}

	merged, err := s.reconciler.MergeDuplicateEmails(ctx, v.ID)
	trail.Append(merged.Status)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"voter_id": v.ID}).WithError(err).Warn("failed to merge duplicate emails")
	}

	addresses, err := s.emails.ListByVoter(ctx, v.ID)
	if err != nil {
		trail.Add("EMAIL_ADDRESS_LIST_RETRIEVE_FAILED")
		s.logger.WithFields(logrus.Fields{"voter_id": v.ID}).WithError(err).Error("failed to list voter emails")
		res.Status = trail.String()
		return res
	}
	res.Success = true
	if len(addresses) > 0 {
		res.ListFound = true
		healed := s.reconciler.HealPrimaryEmail(ctx, addresses, v)
		trail.Append(healed.Status)
		augmented := s.reconciler.AugmentAddressList(ctx, healed.Addresses, v)
		trail.Append(augmented.Status)
		res.Addresses = augmented.Addresses
	}
	res.Status = trail.String()
	return res
}

func (s *VoterEmailService) SignInWithSecretKey(ctx context.Context, deviceID, secretKey string) *email.SignInResult {
	res := &email.SignInResult{DeviceID: deviceID}
	if err := voter.ValidateDeviceID(deviceID); err != nil {
		res.Status = "VALID_VOTER_DEVICE_ID_MISSING"
		return res
	}
	if strings.TrimSpace(secretKey) == "" {
		res.Status = "VOTER_EMAIL_ADDRESS_SIGN_IN_MISSING_SECRET_KEY"
		return res
	}
	_, v, status := s.resolveVoter(ctx, deviceID)
	if v == nil {
		res.Status = status
		return res
	}

	rec, err := s.emails.GetBySecretKey(ctx, secretKey)
	if err != nil {
		res.Status = "EMAIL_NOT_FOUND_FROM_SECRET_KEY"
		return res
	}
	res.Status = "EMAIL_FOUND_FROM_SECRET_KEY"
	res.Success = true
	res.EmailAddressFound = true
	res.EmailOwnershipIsVerified = rec.EmailOwnershipIsVerified
	res.SecretKeyBelongsToVoter = rec.VoterID == v.ID
	res.OwnerVoterID = rec.VoterID
	res.EmailID = rec.ID
	return res
}

// recordOwnership makes a freshly verified address the owner's primary unless the owner already has one.
func (s *VoterEmailService) recordOwnership(ctx context.Context, owner *voter.Voter, rec *email.EmailAddress, trail *email.StatusTrail) bool {
	addresses, err := s.emails.ListByVoter(ctx, owner.ID)
	if err != nil {
		trail.Add("VOTER_OWNERSHIP_LIST_FAILED")
		return false
	}
	healed := s.reconciler.HealPrimaryEmail(ctx, addresses, owner)
	trail.Append(healed.Status)
	return healed.Success && healed.Primary != nil && healed.Primary.ID == rec.ID
}

func (s *VoterEmailService) VerifyEmailWithSecretKey(ctx context.Context, deviceID, secretKey string) *email.VerifyResult {
	var trail email.StatusTrail
	res := &email.VerifyResult{DeviceID: deviceID}
	if err := voter.ValidateDeviceID(deviceID); err != nil {
		res.Status = "VALID_VOTER_DEVICE_ID_MISSING"
		return res
	}
	if strings.TrimSpace(secretKey) == "" {
		res.Status = "VOTER_EMAIL_ADDRESS_VERIFY_MISSING_SECRET_KEY"
		return res
	}
	_, v, status := s.resolveVoter(ctx, deviceID)
	if v == nil {
		res.Status = status
		return res
	}

	rec, err := s.emails.GetBySecretKey(ctx, secretKey)
	if err != nil {
		res.Status = "EMAIL_NOT_FOUND_FROM_SECRET_KEY"
		return res
	}
	res.EmailAddressFound = true
	trail.Add("EMAIL_ADDRESS_FOUND_FROM_VERIFY")

	if !rec.EmailOwnershipIsVerified {
		rec.EmailOwnershipIsVerified = true
		if err := s.emails.Update(ctx, rec); err != nil {
			rec.EmailOwnershipIsVerified = false
			trail.Add("UNABLE_TO_MARK_EMAIL_VERIFIED")
			s.logger.WithFields(logrus.Fields{"email_id": rec.ID}).WithError(err).Warn("failed to mark email verified")
		} else {
			trail.Add("EMAIL_OWNERSHIP_VERIFIED")
		}
	}
	res.EmailOwnershipIsVerified = rec.EmailOwnershipIsVerified
	res.SecretKeyBelongsToVoter = rec.VoterID == v.ID

	owner := v
	if !res.SecretKeyBelongsToVoter {
		if owner, err = s.voters.GetByID(ctx, rec.VoterID); err != nil {
			trail.Add("EMAIL_OWNER_VOTER_NOT_FOUND")
			owner = nil
		}
	}
	if owner != nil && rec.EmailOwnershipIsVerified {
		if s.recordOwnership(ctx, owner, rec, &trail) {
			trail.Add("VOTER_OWNERSHIP_SAVED")
		}
		if owner.FullName() != "" {
			held := s.dispatch.SendHeldEmails(ctx, owner.ID)
			trail.Append(held.Status)
		} else {
			trail.Add("CANNOT_SEND_SCHEDULED_EMAILS_WITHOUT_NAME")
		}
	}

	res.Success = true
	res.Status = trail.String()
	return res
}

// secretCodeUpToDate returns the device's sign-in code, minting a new one when absent or expired.
func (s *VoterEmailService) secretCodeUpToDate(ctx context.Context, link *voter.DeviceLink) (string, bool, error) {
	if link.SecretCodeFailedAttempts >= s.codes.MaxFailedAttempts {
		return "", true, nil
	}
	now := s.now()
	if link.SecretCode != nil && *link.SecretCode != "" && link.SecretCodeCreatedAt != nil && now.Sub(*link.SecretCodeCreatedAt) < s.codes.Lifetime {
		return *link.SecretCode, false, nil
	}
	code, err := generateSecretCode()
	if err != nil {
		return "", false, err
	}
	link.SecretCode = &code
	link.SecretCodeCreatedAt = &now
	if err := s.devices.Update(ctx, link); err != nil {
		return "", false, fmt.Errorf("failed to save secret code: %w", err)
	}
	return code, false, nil
}

// storeDeviceSecretKey ties the email secret key to the device so a later code entry can find the email.
// A key held by another device is released first.
func (s *VoterEmailService) storeDeviceSecretKey(ctx context.Context, link *voter.DeviceLink, key string, trail *email.StatusTrail) {
	link.EmailSecretKey = &key
	err := s.devices.Update(ctx, link)
	if errors.Is(err, ports.ErrConflict) {
		trail.Add("COULD_NOT_UPDATE_VOTER_DEVICE_LINK_WITH_SECRET_KEY")
		if clearErr := s.devices.ClearEmailSecretKey(ctx, key); clearErr != nil {
			s.logger.WithError(clearErr).Warn("failed to clear email secret key from other devices")
		}
		err = s.devices.Update(ctx, link)
	}
	if err != nil {
		trail.Add("VOTER_DEVICE_LINK_NOT_UPDATED_WITH_EMAIL_SECRET_KEY")
		s.logger.WithFields(logrus.Fields{"device_id": link.DeviceID}).WithError(err).Warn("failed to store email secret key on device")
		return
	}
	trail.Add("UPDATED_VOTER_DEVICE_LINK_WITH_SECRET_KEY")
}

var _ ports.VoterEmailService = (*VoterEmailService)(nil)
