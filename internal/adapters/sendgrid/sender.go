package sendgrid

import (
	"context"
	"fmt"

	"github.com/phishschool/backend/internal/core"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridSender delivers email through the SendGrid v3 API
type SendGridSender struct {
	client   *sendgrid.Client
	fromName string
	logger   *zap.Logger
}

// NewSendGridSender creates a new SendGrid sender
func NewSendGridSender(apiKey string, fromName string, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		logger:   logger,
	}
}

// Send delivers the rendered email via the SendGrid API
func (s *SendGridSender) Send(ctx context.Context, email *core.OutboundEmail) error {
	from := mail.NewEmail(s.fromName, email.From)
	to := mail.NewEmail("", email.To)
	message := mail.NewSingleEmail(from, email.Subject, to, email.TextBody, email.HTMLBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid rejected email with status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Debug("Email sent via SendGrid",
		zap.String("to", email.To),
		zap.Int("status_code", resp.StatusCode))
	return nil
}
