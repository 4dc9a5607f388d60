package email

import "github.com/google/uuid"

// HealOutcome reports what saving the voter's cached primary fields did.
type HealOutcome int

const (
	// HealUnchanged means the cache already matched and nothing was written.
	HealUnchanged HealOutcome = iota
	// HealApplied means the first save succeeded.
	HealApplied
	// HealConflictResolved means the first save failed, other voters' references were cleared,
	// and the single retry succeeded.
	HealConflictResolved
	// HealFailed means the retry failed too.
	HealFailed
)

func (o HealOutcome) String() string {
	switch o {
	case HealApplied:
		return "applied"
	case HealConflictResolved:
		return "conflict_resolved"
	case HealFailed:
		return "failed"
	default:
		return "unchanged"
	}
}

// HealResult is returned by HealPrimaryEmail.
type HealResult struct {
	Status    string
	Success   bool
	Outcome   HealOutcome
	Primary   *EmailAddress
	Addresses []*EmailAddress
}

// AugmentListResult is returned by AugmentAddressList.
type AugmentListResult struct {
	Status    string
	Success   bool
	Outcome   HealOutcome
	Addresses []*AugmentedEmailAddress
}

// DedupResult is returned by DeduplicateOnSave.
type DedupResult struct {
	Status     string
	Success    bool
	Kept       []*EmailAddress
	Deleted    int
	NotDeleted int
}

// MoveResult is returned by MoveAddressesToVoter.
type MoveResult struct {
	Status   string
	Success  bool
	FromID   uuid.UUID
	ToID     uuid.UUID
	Moved    int
	NotMoved int
}

// DeleteResult is returned by DeleteAddressesForVoter.
type DeleteResult struct {
	Status     string
	Success    bool
	Deleted    int
	NotDeleted int
}

// BlockResult is one batch of verification requests.
type BlockResult struct {
	Status  string
	Success bool
	Sent    int
	Results map[string]VerificationResult
}

// VerificationRunResult summarizes a contact-list verification run.
type VerificationRunResult struct {
	Status         string
	Success        bool
	PartialSuccess bool
	Aborted        bool
	BlocksIssued   int
	APICalls       int
	Checked        int
	Invalid        int
}

// ContactAugmentResult summarizes linking contacts to known voters.
type ContactAugmentResult struct {
	Status         string
	Success        bool
	AugmentedAdded int
	ContactsLinked int
}

// ScheduleResult is returned by ScheduleWithDescription.
type ScheduleResult struct {
	Status      string
	Success     bool
	Saved       bool
	ScheduledID uuid.UUID
	Scheduled   *Scheduled
}

// DispatchResult is returned by the three send flows.
type DispatchResult struct {
	Status      string
	Success     bool
	Scheduled   bool
	Sent        bool
	ScheduledID uuid.UUID
}
