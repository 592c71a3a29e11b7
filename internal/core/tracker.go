package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Tracker resolves click-tracking tokens, stamps click times, and
// builds the redirect targets for clicked links.
type Tracker struct {
	store       Store
	logger      *zap.Logger
	frontendURL string
	now         func() time.Time
}

// NewTracker creates the tracking service. frontendURL is the base of
// the training frontend that hosts the warning/continue/error pages.
func NewTracker(store Store, logger *zap.Logger, frontendURL string) *Tracker {
	return &Tracker{
		store:       store,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// HandleClick records a click for a token and decides the redirect.
// Unknown tokens yield the generic error page. Repeat clicks are
// idempotent no-ops: the first stamp stands.
func (t *Tracker) HandleClick(ctx context.Context, trackingID string) *ClickOutcome {
	email, err := t.store.GetEmailByTrackingID(ctx, trackingID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			t.logger.Error("Tracking lookup failed",
				zap.String("tracking_id", trackingID),
				zap.Error(err))
		}
		return &ClickOutcome{
			RedirectURL: t.frontendURL + "/error?message=" + url.QueryEscape("Invalid tracking link"),
		}
	}

	stamped, err := t.store.MarkEmailClicked(ctx, email.ID, t.now())
	if err != nil {
		t.logger.Error("Failed to record click",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
	} else if stamped {
		t.logger.Info("Email click recorded",
			zap.String("tracking_id", trackingID),
			zap.String("campaign_id", email.CampaignID.String()),
			zap.String("email_type", string(email.EmailType)))
	}

	if email.EmailType == ContentTypePhishing {
		return &ClickOutcome{
			Known: true,
			RedirectURL: fmt.Sprintf("%s/phishing-warning?campaign_id=%s&email_id=%s&tracking_id=%s",
				t.frontendURL, email.CampaignID, email.ID, url.QueryEscape(trackingID)),
		}
	}
	return &ClickOutcome{
		Known: true,
		RedirectURL: fmt.Sprintf("%s/legitimate-content?campaign_id=%s&email_id=%s",
			t.frontendURL, email.CampaignID, email.ID),
	}
}

// Stats returns the read-only tracking view for a token.
func (t *Tracker) Stats(ctx context.Context, trackingID string) (*TrackingStats, error) {
	email, err := t.store.GetEmailByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	clicks := 0
	if email.ClickedAt != nil {
		clicks = 1
	}
	return &TrackingStats{
		TrackingID: trackingID,
		CampaignID: email.CampaignID,
		EmailID:    email.ID,
		EmailType:  email.EmailType,
		SentAt:     email.SentAt,
		ClickedAt:  email.ClickedAt,
		ClickCount: clicks,
	}, nil
}

// ReportPhished bumps the phished counter of the user owning the
// campaign behind a token. Called when a recipient self-reports.
func (t *Tracker) ReportPhished(ctx context.Context, trackingID string) error {
	email, err := t.store.GetEmailByTrackingID(ctx, trackingID)
	if err != nil {
		return err
	}
	campaign, err := t.store.GetCampaign(ctx, email.CampaignID)
	if err != nil {
		return err
	}
	return t.store.IncrementPhished(ctx, campaign.UserID)
}
