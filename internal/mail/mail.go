// Package mail dispatches transactional notifications. Every send is
// best-effort with a single attempt: callers log failures and move on, a
// failed send never rolls back the state change that triggered it.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/config"
)

// Message is a plain-text transactional mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message to the outbound transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers via a configured SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}

// Welcome builds the post-registration greeting.
func Welcome(to, name, company string) Message {
	return Message{
		To:      to,
		Subject: "Welcome to Optima IDP",
		Body: fmt.Sprintf("Hi %s,\n\nYour Optima IDP account for %s has been created."+
			"\nYou can now sign in and start building your development plan.\n", name, company),
	}
}

// PendingApproval builds the greeting for accounts awaiting admin approval.
func PendingApproval(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Your Optima IDP registration is pending approval",
		Body: fmt.Sprintf("Hi %s,\n\nYour manager account has been created and is waiting"+
			" for an administrator to approve it. We will let you know once you can sign in.\n", name),
	}
}

// PasswordReset builds the reset-link mail. The raw token appears only here.
func PasswordReset(to, name, resetURL string) Message {
	return Message{
		To:      to,
		Subject: "Reset your Optima IDP password",
		Body: fmt.Sprintf("Hi %s,\n\nA password reset was requested for your account."+
			"\nThe link below is valid for one hour:\n\n%s\n\nIf you did not request this, ignore this mail.\n", name, resetURL),
	}
}
