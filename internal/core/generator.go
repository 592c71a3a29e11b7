package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Generator wraps the LLM client with validation and a bounded retry
// policy for training-message generation.
type Generator struct {
	llmClient   LLMClient
	logger      *zap.Logger
	maxAttempts int
}

// NewGenerator creates a new Generator. maxAttempts values below 1 are
// coerced to 3.
func NewGenerator(llmClient LLMClient, logger *zap.Logger, maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Generator{
		llmClient:   llmClient,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Generate produces a validated training message. Each attempt that
// yields malformed or incomplete output is retried up to the configured
// attempt budget; exhausting the budget returns an ErrLLMBackend error.
func (g *Generator) Generate(ctx context.Context, req *GenerationRequest) (*GeneratedMessage, error) {
	if req.Difficulty == "" {
		req.Difficulty = DifficultyMedium
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		msg, err := g.llmClient.GenerateMessage(ctx, req)
		if err != nil {
			lastErr = err
			g.logger.Warn("Generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		normalize(msg)
		if err := validate(req, msg); err != nil {
			lastErr = err
			g.logger.Warn("Generated message failed validation",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		msg.MessageType = req.MessageType
		msg.ContentType = req.ContentType
		msg.Difficulty = req.Difficulty
		msg.Theme = req.Theme
		return msg, nil
	}

	return nil, fmt.Errorf("%w: generation failed after %d attempts: %v", ErrLLMBackend, g.maxAttempts, lastErr)
}

// normalize folds "null"-string and empty-string values to absent.
func normalize(msg *GeneratedMessage) {
	for _, f := range []*string{
		&msg.Subject, &msg.Sender, &msg.Recipient, &msg.Body,
		&msg.PhoneNumber, &msg.ContactName, &msg.Message, &msg.Explanation,
	} {
		if strings.TrimSpace(*f) == "null" {
			*f = ""
		}
	}

	cleaned := msg.Indicators[:0]
	for _, ind := range msg.Indicators {
		if s := strings.TrimSpace(ind); s != "" && s != "null" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		msg.Indicators = nil
	} else {
		msg.Indicators = cleaned
	}
}

// validate enforces the per-message-type required fields and the
// indicator contract: phishing content must name indicators, legitimate
// content must not.
func validate(req *GenerationRequest, msg *GeneratedMessage) error {
	var required map[string]string
	if req.MessageType == MessageTypeEmail {
		required = map[string]string{
			"subject":   msg.Subject,
			"sender":    msg.Sender,
			"recipient": msg.Recipient,
			"body":      msg.Body,
		}
	} else {
		required = map[string]string{
			"phone_number": msg.PhoneNumber,
			"contact_name": msg.ContactName,
			"message":      msg.Message,
		}
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	if req.ContentType == ContentTypePhishing && len(msg.Indicators) == 0 {
		return fmt.Errorf("phishing message has no phishing_indicators")
	}
	if req.ContentType == ContentTypeLegitimate {
		msg.Indicators = nil
	}

	return nil
}
