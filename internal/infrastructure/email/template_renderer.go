package email

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
)

//go:embed templates
var templateFS embed.FS

// templateFiles maps each kind to the base name of its .html.tmpl/.txt.tmpl pair.
var templateFiles = map[email.TemplateKind]string{
	email.TemplateGeneric:            "generic",
	email.TemplateVerifyEmailAddress: "verify_email_address",
	email.TemplateLinkToSignIn:       "link_to_sign_in",
	email.TemplateSignInCode:         "sign_in_code",
}

type templatePair struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// TemplateRenderer renders the embedded email templates with sprig helpers.
type TemplateRenderer struct {
	templates map[email.TemplateKind]templatePair
}

func NewTemplateRenderer() (ports.TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[email.TemplateKind]templatePair, len(templateFiles))}
	for kind, base := range templateFiles {
		html, err := htmltemplate.New(base+".html.tmpl").
			Funcs(sprig.FuncMap()).
			Option("missingkey=zero").
			ParseFS(templateFS, "templates/"+base+".html.tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", base, err)
		}
		text, err := texttemplate.New(base+".txt.tmpl").
			Funcs(sprig.TxtFuncMap()).
			Option("missingkey=zero").
			ParseFS(templateFS, "templates/"+base+".txt.tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", base, err)
		}
		r.templates[kind] = templatePair{html: html, text: text}
	}
	return r, nil
}

// Render decodes the JSON variables and fills the kind's templates. The subject comes from the
// "subject" variable.
func (r *TemplateRenderer) Render(kind email.TemplateKind, variablesJSON string) (*email.RenderedEmail, error) {
	pair, ok := r.templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown template kind %q", kind)
	}
	vars := map[string]any{}
	if strings.TrimSpace(variablesJSON) != "" {
		if err := json.Unmarshal([]byte(variablesJSON), &vars); err != nil {
			return nil, fmt.Errorf("failed to decode template variables: %w", err)
		}
	}

	var html, text bytes.Buffer
	if err := pair.html.Execute(&html, vars); err != nil {
		return nil, fmt.Errorf("failed to execute html template %s: %w", kind, err)
	}
	if err := pair.text.Execute(&text, vars); err != nil {
		return nil, fmt.Errorf("failed to execute text template %s: %w", kind, err)
	}

	subject, _ := vars["subject"].(string)
	return &email.RenderedEmail{
		Subject: strings.TrimSpace(subject),
		Text:    strings.TrimSpace(text.String()),
		HTML:    strings.TrimSpace(html.String()),
	}, nil
}

var _ ports.TemplateRenderer = (*TemplateRenderer)(nil)
