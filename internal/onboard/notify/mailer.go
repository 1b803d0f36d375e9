// Package notify delivers invitations to their email contacts over SMTP.
package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/shiftlane/onboard/internal/onboard/domain"
)

// SMTPConfig carries the dialer settings. An empty Host disables mailing.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// JoinBaseURL is the public URL invitation links hang off, e.g.
	// "https://app.example.com/join".
	JoinBaseURL string
}

// Mailer sends invitation emails. It satisfies service.InviteMailer.
type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendInvitation mails the invitation code and share link to the invitee.
// Callers treat failure as non-fatal; the invitation exists either way and
// the code can still be shared out of band.
func (m *Mailer) SendInvitation(ctx context.Context, email string, inv domain.Invitation) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "You have been invited")
	msg.SetBody("text/html", m.renderBody(inv))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}
	return nil
}

func (m *Mailer) renderBody(inv domain.Invitation) string {
	link := fmt.Sprintf("%s/link/%s", m.cfg.JoinBaseURL, inv.Token)
	body := fmt.Sprintf(
		`<p>You have been invited to join as <b>%s</b>.</p>
<p>Your invitation code is <b>%s</b>, valid until %s.</p>
<p>Or follow this link: <a href="%s">%s</a></p>`,
		inv.Role,
		inv.Code,
		inv.ExpiresAt.Format("2 Jan 2006 15:04 MST"),
		link,
		link,
	)
	if inv.Message != "" {
		body += fmt.Sprintf("<p>%s</p>", inv.Message)
	}
	return body
}
