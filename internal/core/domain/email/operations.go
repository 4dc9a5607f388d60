package email

import "github.com/google/uuid"

// RetrieveResult is returned by RetrieveEmailAddresses.
type RetrieveResult struct {
	Status    string                   `json:"status"`
	Success   bool                     `json:"success"`
	DeviceID  string                   `json:"voter_device_id"`
	ListFound bool                     `json:"email_address_list_found"`
	Addresses []*AugmentedEmailAddress `json:"email_address_list"`
}

// SignInResult is returned by SignInWithSecretKey.
type SignInResult struct {
	Status                   string    `json:"status"`
	Success                  bool      `json:"success"`
	DeviceID                 string    `json:"voter_device_id"`
	EmailAddressFound        bool      `json:"email_address_found"`
	EmailOwnershipIsVerified bool      `json:"email_ownership_is_verified"`
	SecretKeyBelongsToVoter  bool      `json:"email_secret_key_belongs_to_this_voter"`
	OwnerVoterID             uuid.UUID `json:"voter_we_vote_id_from_secret_key"`
	EmailID                  uuid.UUID `json:"email_address_we_vote_id"`
}

// VerifyResult is returned by VerifyEmailWithSecretKey.
type VerifyResult struct {
	Status                   string `json:"status"`
	Success                  bool   `json:"success"`
	DeviceID                 string `json:"voter_device_id"`
	EmailAddressFound        bool   `json:"email_address_found"`
	EmailOwnershipIsVerified bool   `json:"email_ownership_is_verified"`
	SecretKeyBelongsToVoter  bool   `json:"email_secret_key_belongs_to_this_voter"`
}

// SaveRequest carries every switch the save operation accepts.
type SaveRequest struct {
	DeviceID                string
	EmailText               string
	EmailID                 uuid.UUID
	SendLinkToSignIn        bool
	SendSignInCode          bool
	ResendVerificationEmail bool
	ResendVerificationCode  bool
	MakePrimary             bool
	Delete                  bool
	IsCordova               bool
	WebAppRootURL           string
}

// SaveResult is returned by SaveEmailAddress.
type SaveResult struct {
	Status                     string                   `json:"status"`
	Success                    bool                     `json:"success"`
	DeviceID                   string                   `json:"voter_device_id"`
	EmailText                  string                   `json:"text_for_email_address"`
	EmailID                    uuid.UUID                `json:"email_we_vote_id"`
	EmailAddressFound          bool                     `json:"email_address_found"`
	EmailAddressNotValid       bool                     `json:"email_address_not_valid"`
	EmailAddressCreated        bool                     `json:"email_address_created"`
	EmailAddressDeleted        bool                     `json:"email_address_deleted"`
	EmailAddressSavedAsPrimary bool                     `json:"email_address_saved_as_primary"`
	AlreadyOwnedByOtherVoter   bool                     `json:"email_address_already_owned_by_other_voter"`
	AlreadyOwnedByThisVoter    bool                     `json:"email_address_already_owned_by_this_voter"`
	VerificationEmailSent      bool                     `json:"verification_email_sent"`
	LinkToSignInEmailSent      bool                     `json:"link_to_sign_in_email_sent"`
	SignInCodeEmailSent        bool                     `json:"sign_in_code_email_sent"`
	SecretCodeSystemLocked     bool                     `json:"secret_code_system_locked_for_this_voter_device_id"`
	ListFound                  bool                     `json:"email_address_list_found"`
	Addresses                  []*AugmentedEmailAddress `json:"email_address_list"`
}
