package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by stores when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrLLMBackend marks failures of the generation/scoring backend
	// (malformed JSON, schema mismatch, empty rationale, exhausted
	// retries). Handlers map it to 502.
	ErrLLMBackend = errors.New("llm backend failure")

	// ErrUnsupportedImage is returned by LLM clients that cannot score
	// image payloads
	ErrUnsupportedImage = errors.New("image scoring not supported by provider")
)

// LLMClient defines the interface for the generation/scoring backend.
// GenerateMessage performs a single attempt; retry policy lives in the
// Generator service.
type LLMClient interface {
	// GenerateMessage produces one candidate training message
	GenerateMessage(ctx context.Context, req *GenerationRequest) (*GeneratedMessage, error)

	// ScoreText scores a condensed email summary for phishing likelihood
	ScoreText(ctx context.Context, summary string) (*ScoreResult, error)

	// ScoreImage scores an image payload, transcribing visible text first
	ScoreImage(ctx context.Context, prompt string, image *ImagePayload) (*ScoreResult, error)
}

// EmailSender delivers a rendered email through the configured provider
type EmailSender interface {
	Send(ctx context.Context, email *OutboundEmail) error
}

// Store is the persistence boundary for campaigns, campaign emails and
// user preferences. All durable mutable state lives behind it.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, c *Campaign, emails []*CampaignEmail) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error)
	ListCampaignsByUser(ctx context.Context, userID string) ([]*Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status CampaignStatus) error
	DeleteCampaign(ctx context.Context, id uuid.UUID) error
	GetCampaignStats(ctx context.Context, id uuid.UUID) (*CampaignStats, error)

	// Campaign emails
	ListCampaignEmails(ctx context.Context, campaignID uuid.UUID) ([]*CampaignEmail, error)
	ListDueCampaignEmails(ctx context.Context, now time.Time) ([]*CampaignEmail, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	GetEmailByTrackingID(ctx context.Context, trackingID string) (*CampaignEmail, error)
	// MarkEmailClicked stamps clicked_at once, and only for an email
	// whose sent_at is already set. It returns true when the stamp was
	// applied, false when the click was an idempotent repeat.
	MarkEmailClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error)

	// User preferences
	GetUser(ctx context.Context, userID string) (*UserPrefs, error)
	UpsertUser(ctx context.Context, u *UserPrefs) error
	SetOptIn(ctx context.Context, userID string, optedIn bool, freq Frequency) error
	ListOptedInUsers(ctx context.Context) ([]*UserPrefs, error)
	SetLastSentAt(ctx context.Context, userID string, t time.Time) error
	IncrementPhished(ctx context.Context, userID string) error
	RecordLearnAttempt(ctx context.Context, userID string, correct bool) error

	Close() error
}
