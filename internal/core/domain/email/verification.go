package email

// VerificationKind tags the variant held by a VerificationResult.
type VerificationKind int

const (
	VerificationNotFound VerificationKind = iota
	VerificationFound
	VerificationTransientError
)

func (k VerificationKind) String() string {
	switch k {
	case VerificationFound:
		return "found"
	case VerificationTransientError:
		return "transient_error"
	default:
		return "not_found"
	}
}

// VerdictInvalid is the verdict string the validation API uses for undeliverable addresses.
const VerdictInvalid = "Invalid"

// VerificationResult is Found(verdict), NotFound, or TransientError(err).
type VerificationResult struct {
	Kind    VerificationKind
	Verdict string
	Err     error
}

func Found(verdict string) VerificationResult {
	return VerificationResult{Kind: VerificationFound, Verdict: verdict}
}

func NotFound() VerificationResult {
	return VerificationResult{Kind: VerificationNotFound}
}

func TransientError(err error) VerificationResult {
	return VerificationResult{Kind: VerificationTransientError, Err: err}
}

// IsInvalid is true only for a found result whose verdict is "Invalid".
func (r VerificationResult) IsInvalid() bool {
	return r.Kind == VerificationFound && r.Verdict == VerdictInvalid
}
