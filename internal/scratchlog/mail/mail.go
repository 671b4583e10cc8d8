// Package mail delivers the notification emails that accompany token
// issuance. Sending is best-effort; callers own the retry policy.
package mail

import "context"

// Template identifies one of the embedded notification templates.
type Template string

const (
	// TemplateActivation carries the registration confirmation link.
	TemplateActivation Template = "activation"
	// TemplatePasswordReset carries the password reset link.
	TemplatePasswordReset Template = "password_reset"
	// TemplateEmailChange carries the email change confirmation link and is
	// sent to the pending new address.
	TemplateEmailChange Template = "email_change"
	// TemplateDeactivated informs the user their account was deactivated and
	// carries the reactivation link.
	TemplateDeactivated Template = "deactivated"
)

// Mailer sends a templated message to a single recipient. Implementations
// must honor ctx cancellation as the per-attempt timeout.
type Mailer interface {
	Send(ctx context.Context, to string, tpl Template, data map[string]any) error
}
