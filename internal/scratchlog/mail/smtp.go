package mail

import (
	"context"

	gomail "gopkg.in/gomail.v2"
)

// SMTPMailer sends mail through an SMTP relay using gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send renders the template and delivers it. gomail has no context support,
// so the dial-and-send runs in a goroutine and the call returns with the
// context error on cancellation; an abandoned attempt finishes (or fails) in
// the background.
func (m *SMTPMailer) Send(ctx context.Context, to string, tpl Template, data map[string]any) error {
	subject, body, err := Render(tpl, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
