package factory

import (
	"fmt"

	"github.com/phishschool/backend/internal/adapters/logmail"
	"github.com/phishschool/backend/internal/adapters/sendgrid"
	"github.com/phishschool/backend/internal/adapters/smtpout"
	"github.com/phishschool/backend/internal/config"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

const senderDisplayName = "Security Training"

// SenderFactory creates outbound email senders
type SenderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSenderFactory creates a new sender factory
func NewSenderFactory(cfg *config.Config, logger *zap.Logger) *SenderFactory {
	return &SenderFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSender creates an email sender based on the configuration
func (f *SenderFactory) CreateSender() (core.EmailSender, error) {
	switch provider := f.cfg.GetEmail().Provider; provider {
	case "sendgrid":
		c := f.cfg.GetSendGrid()
		if c.APIKey == "" {
			return nil, fmt.Errorf("sendgrid.api_key is required for the sendgrid provider")
		}
		return sendgrid.NewSendGridSender(c.APIKey, senderDisplayName, f.logger), nil
	case "smtp":
		c := f.cfg.GetSMTP()
		if c.Addr == "" {
			return nil, fmt.Errorf("smtp.addr is required for the smtp provider")
		}
		return smtpout.NewSMTPSender(c.Addr, c.Username, c.Password, senderDisplayName, f.logger), nil
	case "log":
		return logmail.NewLogSender(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", provider)
	}
}

// FromEmail returns the configured sender address for the active provider
func (f *SenderFactory) FromEmail() string {
	switch f.cfg.GetEmail().Provider {
	case "sendgrid":
		return f.cfg.GetSendGrid().FromEmail
	case "smtp":
		return f.cfg.GetSMTP().FromEmail
	default:
		return "training@example.com"
	}
}
