package busmonitor

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
)

// Notifier is the transport actually pushing an alert out. the smtp
// implementation is the only real one, tests substitute a recorder.
type Notifier interface {
	Send(ctx context.Context, cfg Config, to, subject, body string) error
}

// resolves where an alert goes: explicit per-route override, then the
// configured default recipient, then the sender mailing itself.
func resolveRecipient(cfg Config, override string) string {
	if override != "" {
		return override
	}
	if cfg.NotificationEmail != "" {
		return cfg.NotificationEmail
	}
	return cfg.SenderEmail
}

type SMTPNotifier struct {
	// bounds a single delivery, a wedged smtp conversation must not
	// stall the rest of the scan teardown
	Timeout time.Duration
}

func NewSMTPNotifier() SMTPNotifier {
	return SMTPNotifier{Timeout: time.Second * 30}
}

func (n SMTPNotifier) Send(ctx context.Context, cfg Config, to, subject, body string) error {
	if !cfg.HasCredentials() {
		return fmt.Errorf("email credentials are not configured")
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Bus Watch <%s>", cfg.SenderEmail)
	mail.To = []string{resolveRecipient(cfg, to)}
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	auth := smtp.PlainAuth("", cfg.SenderEmail, cfg.SenderPassword, cfg.SMTPHost)

	done := make(chan error, 1)
	go func() {
		err := mail.Send(addr, auth)
		if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
			err = mail.Send(addr, nil)
		}
		done <- err
	}()

	timeout := n.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out sending email to %s", mail.To[0])
	case <-ctx.Done():
		return ctx.Err()
	}
}
