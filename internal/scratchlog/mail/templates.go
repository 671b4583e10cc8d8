package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[Template]string{
	TemplateActivation:    "Complete your registration",
	TemplatePasswordReset: "Reset your password",
	TemplateEmailChange:   "Confirm your new email address",
	TemplateDeactivated:   "Your account has been deactivated",
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render produces the subject and HTML body for a template.
func Render(tpl Template, data map[string]any) (subject, body string, err error) {
	subject, ok := subjects[tpl]
	if !ok {
		return "", "", fmt.Errorf("mail: unknown template %q", tpl)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(tpl)+".html", data); err != nil {
		return "", "", fmt.Errorf("mail: rendering %q: %w", tpl, err)
	}
	return subject, buf.String(), nil
}
