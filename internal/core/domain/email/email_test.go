package email_test

import (
	"errors"
	"testing"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAndIsValid(t *testing.T) {
	require.Equal(t, "ada@example.com", email.Normalize("  Ada@Example.COM "))
	require.True(t, email.IsValid(" ada@example.com "))
	require.False(t, email.IsValid("ada@example"))
	require.False(t, email.IsValid("not an email"))
	require.False(t, email.IsValid(""))
}

func TestExtractAddresses(t *testing.T) {
	got := email.ExtractAddresses("Write to Ada@Example.com, or bob@test.org. Also ada@example.com again")
	require.Equal(t, []string{"ada@example.com", "bob@test.org"}, got)
	require.Empty(t, email.ExtractAddresses("nothing here"))
}

func TestEmailAddress_SameAddress(t *testing.T) {
	e := &email.EmailAddress{NormalizedEmailAddress: "ada@example.com"}
	require.True(t, e.SameAddress(" ADA@example.com"))
	require.False(t, e.SameAddress(""))
	require.False(t, e.SameAddress("bob@example.com"))
	require.Empty(t, e.Secret())
	key := "k"
	e.SecretKey = &key
	require.Equal(t, "k", e.Secret())
}

func TestStatusTrail(t *testing.T) {
	var trail email.StatusTrail
	trail.Add("FIRST")
	trail.Add("")
	trail.Add("COUNT_%d", 3)
	trail.Append("  NESTED_A NESTED_B ")
	trail.Append("")
	require.Equal(t, "FIRST COUNT_3 NESTED_A NESTED_B", trail.String())
	require.True(t, trail.Contains("NESTED_B"))
	require.True(t, trail.Contains("COUNT_3"))
	require.False(t, trail.Contains("NESTED"))
}

func TestVerificationResult(t *testing.T) {
	require.True(t, email.Found(email.VerdictInvalid).IsInvalid())
	require.False(t, email.Found("Valid").IsInvalid())
	require.False(t, email.NotFound().IsInvalid())

	res := email.TransientError(errors.New("boom"))
	require.Equal(t, email.VerificationTransientError, res.Kind)
	require.False(t, res.IsInvalid())
	require.Equal(t, "transient_error", res.Kind.String())
}

func TestContactEmailAugmented_CheckedSince(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	checked := now.Add(-24 * time.Hour)
	c := &email.ContactEmailAugmented{CheckedAgainstVerifier: true, DateLastChecked: &checked}
	require.True(t, c.CheckedSince(now.Add(-365*24*time.Hour)))
	require.False(t, c.CheckedSince(now))
	require.False(t, (&email.ContactEmailAugmented{CheckedAgainstVerifier: true}).CheckedSince(now))
}

func TestTemplateKind_IsValid(t *testing.T) {
	require.True(t, email.TemplateSignInCode.IsValid())
	require.False(t, email.TemplateKind("OTHER").IsValid())
	require.Equal(t, "conflict_resolved", email.HealConflictResolved.String())
}
