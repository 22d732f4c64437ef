// Package mailer delivers transactional email for the newsletter flow.
//
// The Sender interface is the delivery boundary: SESSender is the
// production implementation, LogSender stands in when no mail credentials
// are configured. VerificationMailer sits on top and renders the
// verification email body before handing it to a Sender.
package mailer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cosmoexplorer/backend/internal/config"
	"github.com/cosmoexplorer/backend/internal/pkg/logger"
)

// Message is a single outbound email.
type Message struct {
	To        string
	FromEmail string
	FromName  string
	Subject   string
	HTML      string
}

// Sender delivers a single message, or fails.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// VerificationMailer renders and sends the double opt-in verification
// email. It implements subscription.Mailer.
type VerificationMailer struct {
	sender  Sender
	from    string
	name    string
	timeout time.Duration
}

// NewVerificationMailer creates a verification mailer on top of a Sender.
func NewVerificationMailer(sender Sender, cfg config.MailConfig) *VerificationMailer {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VerificationMailer{
		sender:  sender,
		from:    cfg.FromEmail,
		name:    cfg.FromName,
		timeout: timeout,
	}
}

// SendVerification renders the verification email and delivers it. The
// delivery is bounded by the configured mail timeout; a timeout counts as
// a delivery failure.
func (m *VerificationMailer) SendVerification(ctx context.Context, email, verificationLink, unsubscribeLink string) error {
	html, err := RenderVerificationEmail(verificationLink, unsubscribeLink)
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg := &Message{
		To:        email,
		FromEmail: m.from,
		FromName:  m.name,
		Subject:   "Verify your subscription to Cosmo Explorer",
		HTML:      html,
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver verification email: %w", err)
	}
	return nil
}

// LogSender logs outbound mail instead of delivering it. Used in
// development where the subscribe response already carries the
// verification link.
type LogSender struct{}

// Send logs the message envelope. It never fails.
func (LogSender) Send(_ context.Context, msg *Message) error {
	log.Printf("[mail] would send %q to %s", msg.Subject, logger.RedactEmail(msg.To))
	return nil
}
