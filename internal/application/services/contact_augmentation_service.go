package services

import (
	"context"
	"fmt"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContactAugmentationService links imported contacts to voters who verified the same address.
type ContactAugmentationService struct {
	contacts ports.ContactEmailRepository
	emails   ports.EmailAddressRepository
	logger   *logrus.Logger
}

func NewContactAugmentationService(contacts ports.ContactEmailRepository, emails ports.EmailAddressRepository, logger *logrus.Logger) ports.ContactAugmentationService {
	return &ContactAugmentationService{contacts: contacts, emails: emails, logger: orDiscard(logger)}
}

func (s *ContactAugmentationService) AugmentContactsWithVoterData(ctx context.Context, importerID uuid.UUID) (*email.ContactAugmentResult, error) {
	var trail email.StatusTrail
	res := &email.ContactAugmentResult{}

	contacts, err := s.contacts.ListByImporter(ctx, importerID)
	if err != nil {
		res.Status = "VOTER_CONTACT_EMAILS_LIST_FAILED"
		return res, fmt.Errorf("failed to list contacts for voter %s: %w", importerID, err)
	}
	texts := distinctTexts(contacts)
	if len(texts) == 0 {
		res.Status = "NO_CONTACT_EMAILS_TO_AUGMENT"
		res.Success = true
		return res, nil
	}

	created, err := s.contacts.EnsureAugmented(ctx, texts)
	if err != nil {
		trail.Add("UNABLE_TO_CREATE_CONTACT_EMAIL_AUGMENTED")
		s.logger.WithFields(logrus.Fields{"importer_voter_id": importerID}).WithError(err).Warn("failed to seed verification cache")
	}
	res.AugmentedAdded = created

	owners, err := s.emails.ListVerifiedByTexts(ctx, texts)
	if err != nil {
		res.Status = trail.String()
		return res, fmt.Errorf("failed to list verified owners: %w", err)
	}
	failed := false
	for _, owner := range owners {
		n, err := s.contacts.LinkContactsToVoter(ctx, owner.NormalizedEmailAddress, owner.VoterID)
		if err != nil {
			failed = true
			s.logger.WithFields(logrus.Fields{"email": owner.NormalizedEmailAddress, "voter_id": owner.VoterID}).WithError(err).Warn("failed to link contacts to voter")
			continue
		}
		res.ContactsLinked += int(n)
	}
	if failed {
		trail.Add("SOME_CONTACTS_NOT_LINKED")
	}
	trail.Add("CONTACT_EMAIL_AUGMENTED_ADDED_%d_CONTACTS_LINKED_%d", res.AugmentedAdded, res.ContactsLinked)
	res.Success = !failed
	res.Status = trail.String()
	return res, nil
}

var _ ports.ContactAugmentationService = (*ContactAugmentationService)(nil)
