package email_test

import (
	"testing"

	domain "github.com/avatarctic/voter-email/go/internal/core/domain/email"
	infraemail "github.com/avatarctic/voter-email/go/internal/infrastructure/email"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderer_RendersEveryKind(t *testing.T) {
	r, err := infraemail.NewTemplateRenderer()
	require.NoError(t, err)

	kinds := []domain.TemplateKind{domain.TemplateGeneric, domain.TemplateVerifyEmailAddress, domain.TemplateLinkToSignIn, domain.TemplateSignInCode}
	for _, kind := range kinds {
		out, err := r.Render(kind, `{"subject":"Hello","recipient_voter_email":"a@example.com","sender_name":"We Vote"}`)
		require.NoError(t, err, kind)
		require.Equal(t, "Hello", out.Subject)
		require.NotEmpty(t, out.Text)
		require.NotEmpty(t, out.HTML)
	}
}

func TestTemplateRenderer_VerifyLinkAppears(t *testing.T) {
	r, err := infraemail.NewTemplateRenderer()
	require.NoError(t, err)

	out, err := r.Render(domain.TemplateVerifyEmailAddress, `{"subject":"Please verify your email","verify_email_link":"https://wevote.us/verify_email/abc"}`)
	require.NoError(t, err)
	require.Contains(t, out.Text, "https://wevote.us/verify_email/abc")
	require.Contains(t, out.HTML, "https://wevote.us/verify_email/abc")
	require.Contains(t, out.Text, "We Vote")
}

func TestTemplateRenderer_SignInCode(t *testing.T) {
	r, err := infraemail.NewTemplateRenderer()
	require.NoError(t, err)

	out, err := r.Render(domain.TemplateSignInCode, `{"subject":"Your Sign in Code","secret_numerical_code":"012345"}`)
	require.NoError(t, err)
	require.Contains(t, out.Text, "012345")
}

func TestTemplateRenderer_BadInput(t *testing.T) {
	r, err := infraemail.NewTemplateRenderer()
	require.NoError(t, err)

	_, err = r.Render(domain.TemplateGeneric, `{not json`)
	require.Error(t, err)
	_, err = r.Render("UNKNOWN", `{}`)
	require.Error(t, err)
}
