package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// UsageKindEmailVerification is the usage counter key for validation API calls.
const UsageKindEmailVerification = "EmailVerificationAPI"

// VerificationConfig groups the batch verifier limits.
type VerificationConfig struct {
	BlockSize       int
	Workers         int
	MaxLoops        int
	MaxFailedBlocks int
	Cooldown        time.Duration
}

type EmailVerificationService struct {
	verifier ports.EmailVerifier
	contacts ports.ContactEmailRepository
	usage    ports.APIUsageCounter
	config   VerificationConfig
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEmailVerificationService(verifier ports.EmailVerifier, contacts ports.ContactEmailRepository, usage ports.APIUsageCounter, cfg *VerificationConfig, logger *logrus.Logger) ports.EmailVerificationService {
	c := VerificationConfig{
		BlockSize:       35,
		Workers:         7,
		MaxLoops:        60,
		MaxFailedBlocks: 3,
		Cooldown:        365 * 24 * time.Hour,
	}
	if cfg != nil {
		if cfg.BlockSize > 0 {
			c.BlockSize = cfg.BlockSize
		}
		if cfg.Workers > 0 {
			c.Workers = cfg.Workers
		}
		if cfg.MaxLoops > 0 {
			c.MaxLoops = cfg.MaxLoops
		}
		if cfg.MaxFailedBlocks > 0 {
			c.MaxFailedBlocks = cfg.MaxFailedBlocks
		}
		if cfg.Cooldown > 0 {
			c.Cooldown = cfg.Cooldown
		}
	}
	return &EmailVerificationService{
		verifier: verifier,
		contacts: contacts,
		usage:    usage,
		config:   c,
		logger:   orDiscard(logger),
		now:      time.Now,
	}
}

func (s *EmailVerificationService) verifyOne(ctx context.Context, address string) (result email.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = email.TransientError(fmt.Errorf("verification panicked: %v", r))
		}
	}()
	return s.verifier.Verify(ctx, address)
}

// VerifyBlock checks every address concurrently on at most Workers goroutines and waits for all of them.
// A block succeeds when at least one request produced a definitive answer.
func (s *EmailVerificationService) VerifyBlock(ctx context.Context, addresses []string) *email.BlockResult {
	res := &email.BlockResult{Results: make(map[string]email.VerificationResult, len(addresses))}
	var trail email.StatusTrail
	if len(addresses) == 0 {
		res.Status = "VERIFY_BLOCK_NO_EMAILS"
		return res
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.config.Workers)
	seen := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		key := email.Normalize(address)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		g.Go(func() error {
			result := s.verifyOne(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			res.Results[key] = result
			res.Sent++
			if result.Kind == email.VerificationTransientError {
				trail.Add("VERIFY_FAILED:%s", key)
				s.logger.WithFields(logrus.Fields{"email": key}).WithError(result.Err).Warn("email verification request failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	answered := 0
	for _, r := range res.Results {
		if r.Kind != email.VerificationTransientError {
			answered++
		}
	}
	res.Success = answered > 0
	if !res.Success {
		trail.Add("VERIFY_BLOCK_FAILED")
	}
	res.Status = trail.String()
	return res
}

func distinctTexts(contacts []*email.VoterContactEmail) []string {
	seen := make(map[string]struct{}, len(contacts))
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		text := email.Normalize(c.EmailAddressText)
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}
	sort.Strings(out)
	return out
}

func (s *EmailVerificationService) recordUsage(ctx context.Context, count int) {
	if s.usage == nil || count == 0 {
		return
	}
	if _, err := s.usage.Record(ctx, UsageKindEmailVerification, count); err != nil {
		s.logger.WithFields(logrus.Fields{"kind": UsageKindEmailVerification, "count": count}).WithError(err).Warn("failed to record api usage")
	}
}

func (s *EmailVerificationService) applyResults(ctx context.Context, block []string, blk *email.BlockResult, res *email.VerificationRunResult, trail *email.StatusTrail) {
	for _, text := range block {
		r, ok := blk.Results[text]
		if !ok || r.Kind != email.VerificationFound {
			continue
		}
		checkedAt := s.now()
		entry := &email.ContactEmailAugmented{
			EmailAddressText:       text,
			CheckedAgainstVerifier: true,
			DateLastChecked:        &checkedAt,
			IsInvalid:              r.IsInvalid(),
		}
		if err := s.contacts.SaveAugmented(ctx, entry); err != nil {
			trail.Add("UNABLE_TO_SAVE_CONTACT_EMAIL_AUGMENTED")
			s.logger.WithFields(logrus.Fields{"email": text}).WithError(err).Error("failed to save verification result")
			continue
		}
		if _, err := s.contacts.SetContactsInvalid(ctx, text, entry.IsInvalid); err != nil {
			trail.Add("UNABLE_TO_UPDATE_VOTER_CONTACT_EMAILS")
			s.logger.WithFields(logrus.Fields{"email": text}).WithError(err).Error("failed to update contact invalid flag")
		}
		res.Checked++
		if entry.IsInvalid {
			res.Invalid++
		}
	}
}

// AugmentContactsWithVerification verifies the importer's contact addresses that were not checked
// within the cooldown, block by block. A failed block is retried from the front of the queue;
// MaxFailedBlocks consecutive failures end the run with progress kept.
func (s *EmailVerificationService) AugmentContactsWithVerification(ctx context.Context, importerID uuid.UUID) (*email.VerificationRunResult, error) {
	var trail email.StatusTrail
	res := &email.VerificationRunResult{}

	contacts, err := s.contacts.ListByImporter(ctx, importerID)
	if err != nil {
		res.Status = "VOTER_CONTACT_EMAILS_LIST_FAILED"
		return res, fmt.Errorf("failed to list contacts for voter %s: %w", importerID, err)
	}
	texts := distinctTexts(contacts)
	if len(texts) == 0 {
		res.Status = "NO_CONTACT_EMAILS_TO_VERIFY"
		res.Success = true
		return res, nil
	}

	augmented, err := s.contacts.ListAugmented(ctx, texts)
	if err != nil {
		res.Status = "CONTACT_EMAIL_AUGMENTED_LIST_FAILED"
		return res, fmt.Errorf("failed to list verification cache: %w", err)
	}
	cutoff := s.now().Add(-s.config.Cooldown)
	recent := make(map[string]struct{}, len(augmented))
	for _, a := range augmented {
		if a.CheckedSince(cutoff) {
			recent[email.Normalize(a.EmailAddressText)] = struct{}{}
		}
	}
	remaining := make([]string, 0, len(texts))
	for _, t := range texts {
		if _, ok := recent[t]; !ok {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) == 0 {
		res.Status = "ALL_CONTACT_EMAILS_RECENTLY_VERIFIED"
		res.Success = true
		return res, nil
	}

	consecutiveFailures := 0
	for loops := 0; len(remaining) > 0 && loops < s.config.MaxLoops; loops++ {
		if err := ctx.Err(); err != nil {
			trail.Add("VERIFICATION_RUN_CANCELLED")
			break
		}
		n := min(s.config.BlockSize, len(remaining))
		block := remaining[:n]
		blk := s.VerifyBlock(ctx, block)
		res.BlocksIssued++
		res.APICalls += blk.Sent
		s.recordUsage(ctx, blk.Sent)

		if !blk.Success {
			consecutiveFailures++
			trail.Add("VERIFY_BLOCK_FAILED_%d", consecutiveFailures)
			if consecutiveFailures >= s.config.MaxFailedBlocks {
				trail.Add("VERIFICATION_API_FAILED_%d_TIMES", consecutiveFailures)
				res.Aborted = true
				break
			}
			continue
		}
		consecutiveFailures = 0
		remaining = remaining[n:]
		s.applyResults(ctx, block, blk, res, &trail)
	}

	if len(remaining) > 0 && !res.Aborted {
		trail.Add("VERIFICATION_RUN_STOPPED_WITH_%d_REMAINING", len(remaining))
	}
	trail.Add("CONTACT_EMAILS_CHECKED_%d_INVALID_%d", res.Checked, res.Invalid)
	res.Success = !res.Aborted
	res.PartialSuccess = len(remaining) > 0
	res.Status = trail.String()

	s.logger.WithFields(logrus.Fields{
		"importer_voter_id": importerID,
		"blocks":            res.BlocksIssued,
		"api_calls":         res.APICalls,
		"checked":           res.Checked,
		"aborted":           res.Aborted,
	}).Info("contact email verification run finished")
	return res, nil
}

var _ ports.EmailVerificationService = (*EmailVerificationService)(nil)
