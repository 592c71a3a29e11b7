package core

import (
	"time"

	"github.com/google/uuid"
)

// MessageType selects the kind of training message to generate
type MessageType string

const (
	MessageTypeEmail MessageType = "email"
	MessageTypeSMS   MessageType = "sms"
)

// ContentType distinguishes simulated phishing from legitimate content
type ContentType string

const (
	ContentTypePhishing   ContentType = "phishing"
	ContentTypeLegitimate ContentType = "legitimate"
)

// Difficulty controls how subtle the phishing cues are
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Frequency is the cadence of recurring training sends
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Interval returns the send spacing for a frequency. Unrecognized
// frequencies fall back to weekly.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// ValidMessageType reports whether s names a known message type
func ValidMessageType(s string) bool {
	return s == string(MessageTypeEmail) || s == string(MessageTypeSMS)
}

// ValidContentType reports whether s names a known content type
func ValidContentType(s string) bool {
	return s == string(ContentTypePhishing) || s == string(ContentTypeLegitimate)
}

// ValidDifficulty reports whether s names a known difficulty
func ValidDifficulty(s string) bool {
	return s == string(DifficultyEasy) || s == string(DifficultyMedium) || s == string(DifficultyHard)
}

// ValidFrequency reports whether s names a known frequency
func ValidFrequency(s string) bool {
	return s == string(FrequencyDaily) || s == string(FrequencyWeekly) || s == string(FrequencyMonthly)
}

// GenerationRequest describes the training message to generate
type GenerationRequest struct {
	MessageType  MessageType
	ContentType  ContentType
	Difficulty   Difficulty
	Theme        string
	CustomPrompt string
}

// GeneratedMessage is the structured result of a generation call. Email
// and SMS fields are mutually exclusive depending on MessageType.
type GeneratedMessage struct {
	MessageType MessageType `json:"message_type"`
	ContentType ContentType `json:"content_type"`
	Difficulty  Difficulty  `json:"difficulty"`
	Theme       string      `json:"theme,omitempty"`

	// Email fields
	Subject   string `json:"subject,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Body      string `json:"body,omitempty"`

	// SMS fields
	PhoneNumber string `json:"phone_number,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Message     string `json:"message,omitempty"`

	// Common fields
	Indicators  []string `json:"phishing_indicators,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// ScoreResult is the outcome of a phishing-likelihood scoring call
type ScoreResult struct {
	Score      int       `json:"score"`
	Rationale  string    `json:"rationale"`
	ModelUsed  string    `json:"model_used,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// ImagePayload carries raw image bytes for visual scoring
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// Campaign is a configured series of simulated training emails for one user
type Campaign struct {
	ID           uuid.UUID      `json:"id"`
	UserID       string         `json:"user_id"`
	Name         string         `json:"name"`
	Status       CampaignStatus `json:"status"`
	Frequency    Frequency      `json:"email_frequency"`
	Difficulty   Difficulty     `json:"difficulty_level"`
	Themes       []string       `json:"preferred_themes"`
	EmailCount   int            `json:"email_count"`
	DurationDays int            `json:"duration_days"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CampaignEmail is one scheduled training email belonging to a campaign.
// SentAt and ClickedAt are stamped at most once each; ClickedAt is only
// ever set after SentAt.
type CampaignEmail struct {
	ID                uuid.UUID   `json:"id"`
	CampaignID        uuid.UUID   `json:"campaign_id"`
	EmailType         ContentType `json:"email_type"`
	Subject           string      `json:"subject"`
	SenderEmail       string      `json:"sender_email"`
	RecipientEmail    string      `json:"recipient_email"`
	Body              string      `json:"body"`
	Indicators        []string    `json:"phishing_indicators,omitempty"`
	Explanation       string      `json:"explanation,omitempty"`
	ScheduledSendTime time.Time   `json:"scheduled_send_time"`
	SentAt            *time.Time  `json:"sent_at,omitempty"`
	ClickedAt         *time.Time  `json:"clicked_at,omitempty"`
	TrackingID        string      `json:"click_tracking_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// UserPrefs holds a user's training preferences and running counters
type UserPrefs struct {
	UserID        string     `json:"user_id"`
	Email         string     `json:"email"`
	OptedIn       bool       `json:"opted_in"`
	Frequency     Frequency  `json:"frequency"`
	Difficulty    Difficulty `json:"difficulty_level"`
	Themes        []string   `json:"preferred_themes"`
	LastSentAt    *time.Time `json:"last_sent_at,omitempty"`
	PhishedCount  int        `json:"phished_count"`
	CorrectCount  int        `json:"correct_count"`
	LearnAttempts int        `json:"learn_attempts"`
	LearnCorrect  int        `json:"learn_correct"`
}

// CampaignStats aggregates send/click progress for one campaign
type CampaignStats struct {
	TotalEmails     int `json:"total_emails"`
	EmailsSent      int `json:"emails_sent"`
	EmailsClicked   int `json:"emails_clicked"`
	PhishingEmails  int `json:"phishing_emails"`
	PhishingClicked int `json:"phishing_clicked"`
}

// OutboundEmail is a fully rendered email handed to the sender adapter
type OutboundEmail struct {
	To         string
	From       string
	Subject    string
	HTMLBody   string
	TextBody   string
	TrackingID string
}

// SweepResult reports the outcome of a due-email dispatch sweep
type SweepResult struct {
	UsersConsidered int `json:"considered"`
	UsersDue        int `json:"due"`
	EmailsSent      int `json:"sent"`
	EmailsFailed    int `json:"failed"`
}

// ClickOutcome tells the tracking handler where to send the clicker
type ClickOutcome struct {
	RedirectURL string
	Known       bool
}

// TrackingStats is the read-only view of a tracked email
type TrackingStats struct {
	TrackingID string      `json:"tracking_id"`
	CampaignID uuid.UUID   `json:"campaign_id"`
	EmailID    uuid.UUID   `json:"email_id"`
	EmailType  ContentType `json:"email_type"`
	SentAt     *time.Time  `json:"sent_at,omitempty"`
	ClickedAt  *time.Time  `json:"clicked_at,omitempty"`
	ClickCount int         `json:"click_count"`
}
