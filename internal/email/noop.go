package email

import (
	"context"

	"go.uber.org/zap"
)

// NoopSender logs emails instead of delivering them.
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a NoopSender backed by the given logger.
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// Send logs the envelope and returns nil. Bodies are not logged; receipts
// carry contact details.
func (n *NoopSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	n.logger.Info("email not sent (noop sender)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Bool("html", msg.HTML != ""),
	)
	return nil
}
