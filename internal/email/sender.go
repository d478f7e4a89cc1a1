// Package email delivers campaign receipts and other transactional mail.
package email

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("email: no recipient")

// Message is one outgoing email. HTML is optional; when set the message is
// sent as multipart/alternative with Text as the fallback part.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the settings for NewSMTPSender. An empty Host means mail
// is not configured.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSender returns an SMTP sender when cfg names a host and a logging
// no-op sender otherwise.
func NewSender(cfg SMTPConfig, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		logger.Info("SMTP not configured; receipts will be logged, not mailed")
		return NewNoopSender(logger)
	}
	return NewSMTPSender(cfg)
}
