package ports

import (
	"context"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/google/uuid"
)

// EmailReconciler keeps voter email records and the voter's cached primary fields consistent.
type EmailReconciler interface {
	HealPrimaryEmail(ctx context.Context, addresses []*email.EmailAddress, v *voter.Voter) *email.HealResult
	AugmentAddressList(ctx context.Context, addresses []*email.EmailAddress, v *voter.Voter) *email.AugmentListResult
	DeduplicateOnSave(ctx context.Context, addresses []*email.EmailAddress) *email.DedupResult
	MergeDuplicateEmails(ctx context.Context, voterID uuid.UUID) (*email.DedupResult, error)
	MoveAddressesToVoter(ctx context.Context, fromID, toID uuid.UUID) (*email.MoveResult, error)
	DeleteAddressesForVoter(ctx context.Context, voterID uuid.UUID, v *voter.Voter) (*email.DeleteResult, error)
}

// EmailVerificationService checks contact addresses against the validation API.
type EmailVerificationService interface {
	VerifyBlock(ctx context.Context, addresses []string) *email.BlockResult
	AugmentContactsWithVerification(ctx context.Context, importerID uuid.UUID) (*email.VerificationRunResult, error)
}

// ContactAugmentationService links imported contacts to known voters.
type ContactAugmentationService interface {
	AugmentContactsWithVoterData(ctx context.Context, importerID uuid.UUID) (*email.ContactAugmentResult, error)
}

// VerificationEmailRequest describes one recipient of a templated flow email.
type VerificationEmailRequest struct {
	SenderVoterID         uuid.UUID
	RecipientVoterID      uuid.UUID
	RecipientEmailID      uuid.UUID
	RecipientEmail        string
	SecretKey             string
	SubscriptionSecretKey string
	WebAppRootURL         string
}

// SignInLinkRequest adds the cordova switch to a flow email.
type SignInLinkRequest struct {
	VerificationEmailRequest
	IsCordova bool
}

// SignInCodeRequest carries a numeric code instead of a link.
type SignInCodeRequest struct {
	VerificationEmailRequest
	SecretCode string
}

// EmailDispatchService renders, schedules and sends templated emails.
type EmailDispatchService interface {
	ScheduleWithDescription(ctx context.Context, d *email.OutboundDescription, status email.SendStatus) *email.ScheduleResult
	SendVerificationEmail(ctx context.Context, req *VerificationEmailRequest) *email.DispatchResult
	SendLinkToSignIn(ctx context.Context, req *SignInLinkRequest) *email.DispatchResult
	SendSignInCode(ctx context.Context, req *SignInCodeRequest) *email.DispatchResult
	// SendHeldEmails releases emails from sender that were waiting for the sender to verify an address.
	SendHeldEmails(ctx context.Context, senderID uuid.UUID) *email.DispatchResult
}

// VoterEmailService is the public surface consumed by the HTTP layer.
type VoterEmailService interface {
	RetrieveEmailAddresses(ctx context.Context, deviceID string) *email.RetrieveResult
	SignInWithSecretKey(ctx context.Context, deviceID, secretKey string) *email.SignInResult
	VerifyEmailWithSecretKey(ctx context.Context, deviceID, secretKey string) *email.VerifyResult
	SaveEmailAddress(ctx context.Context, req *email.SaveRequest) *email.SaveResult
}
