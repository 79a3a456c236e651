// Package notify delivers owner and requester emails.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/qrgate/internal/core"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrNoRecipient is returned when a message has no To address
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Compile-time interface check.
var _ core.Notifier = (*SMTPSender)(nil)

// dialer is the subset of gomail.Dialer used by SMTPSender
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends each message over a fresh SMTP connection.
// Port 465 uses implicit TLS, other ports upgrade with STARTTLS when offered.
type SMTPSender struct {
	from   string
	dialer dialer
	log    *zap.Logger
}

// NewSMTPSender creates a sender authenticating as username with an application password.
func NewSMTPSender(host string, port int, username, password, from string, log *zap.Logger) *SMTPSender {
	d := gomail.NewDialer(host, port, username, password)
	d.SSL = port == 465
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPSender{from: from, dialer: d, log: log}
}

// Send delivers msg once. Errors are returned to the caller and never retried.
func (s *SMTPSender) Send(ctx context.Context, msg core.Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.log.Error("smtp delivery failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return fmt.Errorf("smtp send: %w", err)
	}

	s.log.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
