package logmail

import (
	"context"

	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// LogSender logs outgoing email instead of delivering it. Used in
// development and as the default when no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new logging sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the email and reports success
func (s *LogSender) Send(ctx context.Context, email *core.OutboundEmail) error {
	s.logger.Info("Email delivery skipped (log provider)",
		zap.String("to", email.To),
		zap.String("from", email.From),
		zap.String("subject", email.Subject),
		zap.Int("text_bytes", len(email.TextBody)),
		zap.Int("html_bytes", len(email.HTMLBody)))
	return nil
}
