package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"salepoint/internal/config"

	"go.uber.org/zap"
)

// SMTPEmail sends plain-text mail through the configured SMTP relay.
type SMTPEmail struct {
	cfg    config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

// NewSMTPEmail creates the email channel from config
func NewSMTPEmail(cfg config.EmailConfig, logger *zap.Logger) *SMTPEmail {
	return &SMTPEmail{cfg: cfg, send: smtp.SendMail, logger: logger}
}

func (e *SMTPEmail) SendEmail(ctx context.Context, subject, body string, to []string) error {
	if !e.cfg.Enabled {
		return fmt.Errorf("%w: email", ErrChannelDisabled)
	}
	if e.cfg.Sender == "" || e.cfg.SMTPHost == "" {
		return fmt.Errorf("%w: email", ErrChannelNotConfigured)
	}

	if len(to) == 0 {
		to = e.cfg.Recipients
	}
	if len(to) == 0 {
		return fmt.Errorf("%w: email has no recipients", ErrChannelNotConfigured)
	}

	msg := strings.Join([]string{
		"From: " + e.cfg.Sender,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.SMTPHost)

	if err := e.send(addr, auth, e.cfg.Sender, to, []byte(msg)); err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}

	e.logger.Debug("Email sent", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}
