package notify

import (
	"context"
	"errors"
)

var (
	ErrChannelDisabled      = errors.New("notification channel disabled")
	ErrChannelNotConfigured = errors.New("notification channel missing credentials")
	ErrUnknownChannel       = errors.New("unknown notification channel")
)

// SMSSender delivers a short message to one phone number
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// EmailSender delivers a message to the configured recipients, or to an
// explicit recipient list when one is given.
type EmailSender interface {
	SendEmail(ctx context.Context, subject, body string, to []string) error
}
