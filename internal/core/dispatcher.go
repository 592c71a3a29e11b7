package core

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher renders and sends training emails: the scheduled campaign
// slots that have come due, the preference-driven recurring sends, and
// the on-demand single sends. Send failures are swallowed into boolean
// results plus a log line so a sweep continues past individual
// failures.
type Dispatcher struct {
	store     Store
	generator *Generator
	sender    EmailSender
	renderer  *Renderer
	logger    *zap.Logger
	fromEmail string
	randFloat func() float64
	now       func() time.Time
}

// NewDispatcher creates the dispatch service. fromEmail is the
// provider's verified sender address, used when a generated sender is
// unusable.
func NewDispatcher(store Store, generator *Generator, sender EmailSender, renderer *Renderer, logger *zap.Logger, fromEmail string) *Dispatcher {
	return &Dispatcher{
		store:     store,
		generator: generator,
		sender:    sender,
		renderer:  renderer,
		logger:    logger,
		fromEmail: fromEmail,
		randFloat: rand.Float64,
		now:       time.Now,
	}
}

// send delivers one rendered email, reporting success as a boolean.
func (d *Dispatcher) send(ctx context.Context, e *CampaignEmail, recipient string) bool {
	out := &OutboundEmail{
		To:         recipient,
		From:       d.fromEmail,
		Subject:    e.Subject,
		HTMLBody:   d.renderer.RenderHTML(e),
		TextBody:   d.renderer.RenderText(e),
		TrackingID: e.TrackingID,
	}
	if err := d.sender.Send(ctx, out); err != nil {
		d.logger.Error("Failed to send email",
			zap.String("recipient", recipient),
			zap.String("subject", e.Subject),
			zap.Error(err))
		return false
	}
	return true
}

// SendDue performs one dispatch sweep: scheduled campaign emails whose
// send time has arrived, then opted-in users due a recurring send. It
// is triggered by an external caller (cron hitting the endpoint); it is
// the caller's responsibility not to double-invoke within one interval.
func (d *Dispatcher) SendDue(ctx context.Context) *SweepResult {
	result := &SweepResult{}
	now := d.now()

	due, err := d.store.ListDueCampaignEmails(ctx, now)
	if err != nil {
		d.logger.Error("Failed to list due campaign emails", zap.Error(err))
	}
	touched := map[uuid.UUID]bool{}
	for _, e := range due {
		if !d.send(ctx, e, e.RecipientEmail) {
			result.EmailsFailed++
			continue
		}
		if err := d.store.MarkEmailSent(ctx, e.ID, now); err != nil {
			d.logger.Error("Failed to mark email sent",
				zap.String("email_id", e.ID.String()),
				zap.Error(err))
		}
		result.EmailsSent++
		touched[e.CampaignID] = true
	}
	for campaignID := range touched {
		d.completeIfFinished(ctx, campaignID)
	}

	users, err := d.store.ListOptedInUsers(ctx)
	if err != nil {
		d.logger.Error("Failed to list opted-in users", zap.Error(err))
		return result
	}
	result.UsersConsidered = len(users)

	for _, u := range users {
		if !IsUserDue(u, now) {
			continue
		}
		result.UsersDue++
		if u.Email == "" {
			result.EmailsFailed++
			continue
		}

		contentType := ContentTypeLegitimate
		if d.randFloat() < phishRatio {
			contentType = ContentTypePhishing
		}
		msg, err := d.generator.Generate(ctx, &GenerationRequest{
			MessageType: MessageTypeEmail,
			ContentType: contentType,
			Difficulty:  d.userDifficulty(u),
		})
		if err != nil {
			d.logger.Warn("Generation failed for recurring send, using fallback",
				zap.String("user_id", u.UserID),
				zap.Error(err))
			msg = FallbackMessage(contentType)
		}

		email := d.emailFromMessage(msg, contentType, u.Email)
		if !d.send(ctx, email, u.Email) {
			result.EmailsFailed++
			continue
		}
		result.EmailsSent++
		if err := d.store.SetLastSentAt(ctx, u.UserID, now); err != nil {
			d.logger.Error("Failed to update last_sent_at",
				zap.String("user_id", u.UserID),
				zap.Error(err))
		}
	}

	d.logger.Info("Dispatch sweep completed",
		zap.Int("considered", result.UsersConsidered),
		zap.Int("due", result.UsersDue),
		zap.Int("sent", result.EmailsSent),
		zap.Int("failed", result.EmailsFailed))
	return result
}

// completeIfFinished marks a campaign completed once its last planned
// email has gone out.
func (d *Dispatcher) completeIfFinished(ctx context.Context, campaignID uuid.UUID) {
	emails, err := d.store.ListCampaignEmails(ctx, campaignID)
	if err != nil {
		d.logger.Error("Failed to list campaign emails",
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err))
		return
	}
	for _, e := range emails {
		if e.SentAt == nil {
			return
		}
	}
	if err := d.store.UpdateCampaignStatus(ctx, campaignID, CampaignStatusCompleted); err != nil {
		d.logger.Error("Failed to mark campaign completed",
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err))
		return
	}
	d.logger.Info("Campaign completed", zap.String("campaign_id", campaignID.String()))
}

// SendPhishingNow generates and immediately sends one phishing email to
// a user. The boolean reports delivery; ErrNotFound means the recipient
// is unknown.
func (d *Dispatcher) SendPhishingNow(ctx context.Context, userID string, difficulty Difficulty, theme string) (bool, error) {
	u, err := d.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.Email == "" {
		return false, ErrNotFound
	}
	if difficulty == "" {
		difficulty = DifficultyMedium
	}

	msg, err := d.generator.Generate(ctx, &GenerationRequest{
		MessageType: MessageTypeEmail,
		ContentType: ContentTypePhishing,
		Difficulty:  difficulty,
		Theme:       theme,
	})
	if err != nil {
		d.logger.Warn("Generation failed for send-now, using fallback",
			zap.String("user_id", userID),
			zap.Error(err))
		msg = FallbackMessage(ContentTypePhishing)
	}

	email := d.emailFromMessage(msg, ContentTypePhishing, u.Email)
	ok := d.send(ctx, email, u.Email)
	if ok {
		d.logger.Info("Phishing email sent",
			zap.String("user_id", userID),
			zap.String("recipient", u.Email))
	}
	return ok, nil
}

// SendTest sends a static verification email to confirm the provider
// integration works.
func (d *Dispatcher) SendTest(ctx context.Context, recipient string) bool {
	email := &CampaignEmail{
		ID:             uuid.New(),
		EmailType:      ContentTypePhishing,
		Subject:        "Test Email from PhishSchool",
		SenderEmail:    d.fromEmail,
		RecipientEmail: recipient,
		Body:           "This is a test email to verify the email provider integration is working correctly.",
		Indicators:     []string{"Suspicious sender", "Urgent language"},
		Explanation:    "This is a test email for verification purposes.",
		TrackingID:     "test-tracking-123",
	}
	return d.send(ctx, email, recipient)
}

func (d *Dispatcher) userDifficulty(u *UserPrefs) Difficulty {
	if u.Difficulty != "" {
		return u.Difficulty
	}
	return DifficultyMedium
}

// emailFromMessage shapes a transient generated message into the
// CampaignEmail form the renderer expects. Recurring and on-demand
// sends are not persisted, so the record carries no tracking token.
func (d *Dispatcher) emailFromMessage(msg *GeneratedMessage, contentType ContentType, recipient string) *CampaignEmail {
	sender := msg.Sender
	if sender == "" {
		sender = d.fromEmail
	}
	subject := msg.Subject
	if subject == "" {
		subject = "Security Training"
	}
	body := msg.Body
	if body == "" {
		body = "This is a training email."
	}
	return &CampaignEmail{
		ID:             uuid.New(),
		EmailType:      contentType,
		Subject:        subject,
		SenderEmail:    sender,
		RecipientEmail: recipient,
		Body:           body,
		Indicators:     msg.Indicators,
		Explanation:    msg.Explanation,
	}
}
