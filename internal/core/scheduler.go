package core

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// phishRatio is the per-email probability of drawing phishing content
// when planning a campaign or a recurring send.
const phishRatio = 0.7

// Campaigns owns the campaign lifecycle: slot planning at creation,
// status transitions, deletion and stats. Recurring preference-driven
// sends are computed by DueSince/IsUserDue and dispatched elsewhere.
type Campaigns struct {
	store     Store
	generator *Generator
	logger    *zap.Logger
	randFloat func() float64
	now       func() time.Time
}

// NewCampaigns creates the campaign service
func NewCampaigns(store Store, generator *Generator, logger *zap.Logger) *Campaigns {
	return &Campaigns{
		store:     store,
		generator: generator,
		logger:    logger,
		randFloat: rand.Float64,
		now:       time.Now,
	}
}

// PlanSendTimes computes count evenly spaced future send timestamps
// starting from start, spaced by the frequency interval.
func PlanSendTimes(start time.Time, count int, freq Frequency) []time.Time {
	interval := freq.Interval()
	times := make([]time.Time, 0, count)
	for i := 1; i <= count; i++ {
		times = append(times, start.Add(time.Duration(i)*interval))
	}
	return times
}

// IsUserDue reports whether a user is due a recurring training send:
// never sent to, or the frequency interval has fully elapsed.
func IsUserDue(u *UserPrefs, now time.Time) bool {
	if u.LastSentAt == nil {
		return true
	}
	return now.Sub(*u.LastSentAt) >= u.Frequency.Interval()
}

// CreateParams are the caller-supplied campaign settings
type CreateParams struct {
	UserID       string
	Name         string
	Frequency    Frequency
	Difficulty   Difficulty
	Themes       []string
	EmailCount   int
	DurationDays int
}

// Create persists a campaign along with one CampaignEmail per planned
// slot. Content is generated independently per slot with a 70% chance
// of phishing; a slot whose generation fails falls back to a static
// template so campaign creation does not abort midway.
func (c *Campaigns) Create(ctx context.Context, recipientEmail string, p CreateParams) (*Campaign, error) {
	now := c.now()
	campaign := &Campaign{
		ID:           uuid.New(),
		UserID:       p.UserID,
		Name:         p.Name,
		Status:       CampaignStatusActive,
		Frequency:    p.Frequency,
		Difficulty:   p.Difficulty,
		Themes:       p.Themes,
		EmailCount:   p.EmailCount,
		DurationDays: p.DurationDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	slots := PlanSendTimes(now, p.EmailCount, p.Frequency)
	emails := make([]*CampaignEmail, 0, len(slots))
	for i, slot := range slots {
		contentType := ContentTypeLegitimate
		if c.randFloat() < phishRatio {
			contentType = ContentTypePhishing
		}

		theme := ""
		if len(p.Themes) > 0 {
			theme = p.Themes[i%len(p.Themes)]
		}

		msg, err := c.generator.Generate(ctx, &GenerationRequest{
			MessageType: MessageTypeEmail,
			ContentType: contentType,
			Difficulty:  p.Difficulty,
			Theme:       theme,
		})
		if err != nil {
			c.logger.Warn("Falling back to static template for campaign slot",
				zap.String("campaign_id", campaign.ID.String()),
				zap.Int("slot", i),
				zap.Error(err))
			msg = FallbackMessage(contentType)
		}

		emails = append(emails, &CampaignEmail{
			ID:                uuid.New(),
			CampaignID:        campaign.ID,
			EmailType:         contentType,
			Subject:           msg.Subject,
			SenderEmail:       msg.Sender,
			RecipientEmail:    recipientEmail,
			Body:              msg.Body,
			Indicators:        msg.Indicators,
			Explanation:       msg.Explanation,
			ScheduledSendTime: slot,
			TrackingID:        uuid.NewString(),
			CreatedAt:         now,
		})
	}

	if err := c.store.CreateCampaign(ctx, campaign, emails); err != nil {
		return nil, fmt.Errorf("failed to persist campaign: %w", err)
	}

	c.logger.Info("Campaign created",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("user_id", p.UserID),
		zap.Int("emails", len(emails)))
	return campaign, nil
}

// Get returns one campaign
func (c *Campaigns) Get(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return c.store.GetCampaign(ctx, id)
}

// ListByUser returns all campaigns owned by a user
func (c *Campaigns) ListByUser(ctx context.Context, userID string) ([]*Campaign, error) {
	return c.store.ListCampaignsByUser(ctx, userID)
}

// Emails returns the campaign's scheduled emails
func (c *Campaigns) Emails(ctx context.Context, id uuid.UUID) ([]*CampaignEmail, error) {
	if _, err := c.store.GetCampaign(ctx, id); err != nil {
		return nil, err
	}
	return c.store.ListCampaignEmails(ctx, id)
}

// Pause transitions an active campaign to paused
func (c *Campaigns) Pause(ctx context.Context, id uuid.UUID) error {
	return c.store.UpdateCampaignStatus(ctx, id, CampaignStatusPaused)
}

// Resume transitions a paused campaign back to active
func (c *Campaigns) Resume(ctx context.Context, id uuid.UUID) error {
	return c.store.UpdateCampaignStatus(ctx, id, CampaignStatusActive)
}

// Complete marks a campaign completed
func (c *Campaigns) Complete(ctx context.Context, id uuid.UUID) error {
	return c.store.UpdateCampaignStatus(ctx, id, CampaignStatusCompleted)
}

// Delete removes a campaign and all of its emails
func (c *Campaigns) Delete(ctx context.Context, id uuid.UUID) error {
	return c.store.DeleteCampaign(ctx, id)
}

// Stats returns aggregate send/click counts for a campaign
func (c *Campaigns) Stats(ctx context.Context, id uuid.UUID) (*CampaignStats, error) {
	return c.store.GetCampaignStats(ctx, id)
}

// FallbackMessage is the static template used when the generation
// backend is unavailable.
func FallbackMessage(contentType ContentType) *GeneratedMessage {
	if contentType == ContentTypeLegitimate {
		return &GeneratedMessage{
			MessageType: MessageTypeEmail,
			ContentType: contentType,
			Subject:     "Your monthly account statement is ready",
			Sender:      "statements@examplebank.com",
			Recipient:   "customer@example.com",
			Body: "Your statement for the past month is now available in your online banking portal.\n\n" +
				"Log in through your usual bookmark or the official app to review it.",
			Explanation: "A routine notification with no urgency and no embedded credential request.",
		}
	}
	return &GeneratedMessage{
		MessageType: MessageTypeEmail,
		ContentType: ContentTypePhishing,
		Subject:     "Urgent: Verify Your Account",
		Sender:      "noreply@phishschool.com",
		Recipient:   "customer@example.com",
		Body: "We detected unusual activity. Click the link to verify your identity immediately.\n\n" +
			"Failure to act may result in account suspension.",
		Indicators: []string{
			"Urgent language",
			"Threat of account suspension",
			"Request to click a link",
		},
		Explanation: "Uses urgency and threats to coerce action.",
	}
}
