package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phishschool/backend/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zap.NewNop())
}

func seedCampaign(t *testing.T, s *MemoryStore, userID string, emailCount int) (*core.Campaign, []*core.CampaignEmail) {
	t.Helper()
	now := time.Now()
	campaign := &core.Campaign{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "test campaign",
		Status:     core.CampaignStatusActive,
		Frequency:  core.FrequencyWeekly,
		EmailCount: emailCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	emails := make([]*core.CampaignEmail, 0, emailCount)
	for i := 0; i < emailCount; i++ {
		emails = append(emails, &core.CampaignEmail{
			ID:                uuid.New(),
			CampaignID:        campaign.ID,
			EmailType:         core.ContentTypePhishing,
			Subject:           "subject",
			SenderEmail:       "spoof@bad.example",
			RecipientEmail:    "trainee@example.com",
			Body:              "body",
			ScheduledSendTime: now.Add(time.Duration(i+1) * 7 * 24 * time.Hour),
			TrackingID:        uuid.NewString(),
			CreatedAt:         now,
		})
	}
	require.NoError(t, s.CreateCampaign(context.Background(), campaign, emails))
	return campaign, emails
}

func TestCreateAndGetCampaign(t *testing.T) {
	s := newTestStore()
	campaign, emails := seedCampaign(t, s, "u1", 5)

	got, err := s.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign.Name, got.Name)

	list, err := s.ListCampaignEmails(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i].ScheduledSendTime.After(list[i-1].ScheduledSendTime))
	}
	assert.Equal(t, emails[0].ID, list[0].ID)
}

func TestGetCampaignNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.GetCampaign(context.Background(), uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteCampaignCascades(t *testing.T) {
	s := newTestStore()
	campaign, emails := seedCampaign(t, s, "u1", 3)

	require.NoError(t, s.DeleteCampaign(context.Background(), campaign.ID))

	_, err := s.GetCampaign(context.Background(), campaign.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Emails and tracking tokens go with the campaign
	for _, e := range emails {
		_, err := s.GetEmailByTrackingID(context.Background(), e.TrackingID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	}
}

func TestListDueCampaignEmails(t *testing.T) {
	s := newTestStore()
	campaign, emails := seedCampaign(t, s, "u1", 3)

	// Nothing is due before the first slot
	due, err := s.ListDueCampaignEmails(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	// After the second slot, two emails are due
	due, err = s.ListDueCampaignEmails(context.Background(), emails[1].ScheduledSendTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, due, 2)

	// Paused campaigns are skipped
	require.NoError(t, s.UpdateCampaignStatus(context.Background(), campaign.ID, core.CampaignStatusPaused))
	due, err = s.ListDueCampaignEmails(context.Background(), emails[1].ScheduledSendTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	// Sent emails are no longer due
	require.NoError(t, s.UpdateCampaignStatus(context.Background(), campaign.ID, core.CampaignStatusActive))
	require.NoError(t, s.MarkEmailSent(context.Background(), emails[0].ID, time.Now()))
	due, err = s.ListDueCampaignEmails(context.Background(), emails[1].ScheduledSendTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestMarkEmailClickedIdempotent(t *testing.T) {
	s := newTestStore()
	_, emails := seedCampaign(t, s, "u1", 1)
	id := emails[0].ID

	// A click on an unsent email is not stamped
	stamped, err := s.MarkEmailClicked(context.Background(), id, time.Now())
	require.NoError(t, err)
	assert.False(t, stamped)

	require.NoError(t, s.MarkEmailSent(context.Background(), id, time.Now()))

	stamped, err = s.MarkEmailClicked(context.Background(), id, time.Now())
	require.NoError(t, err)
	assert.True(t, stamped)

	// Repeat click is a no-op
	stamped, err = s.MarkEmailClicked(context.Background(), id, time.Now())
	require.NoError(t, err)
	assert.False(t, stamped)
}

func TestCampaignStats(t *testing.T) {
	s := newTestStore()
	campaign, emails := seedCampaign(t, s, "u1", 4)

	require.NoError(t, s.MarkEmailSent(context.Background(), emails[0].ID, time.Now()))
	require.NoError(t, s.MarkEmailSent(context.Background(), emails[1].ID, time.Now()))
	_, err := s.MarkEmailClicked(context.Background(), emails[0].ID, time.Now())
	require.NoError(t, err)

	stats, err := s.GetCampaignStats(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalEmails)
	assert.Equal(t, 2, stats.EmailsSent)
	assert.Equal(t, 1, stats.EmailsClicked)
	assert.Equal(t, 4, stats.PhishingEmails)
	assert.Equal(t, 1, stats.PhishingClicked)
}

func TestUserPrefsLifecycle(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.SetOptIn(ctx, "u1", true, core.FrequencyDaily))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.OptedIn)
	assert.Equal(t, core.FrequencyDaily, u.Frequency)

	users, err := s.ListOptedInUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.SetOptIn(ctx, "u1", false, ""))
	users, err = s.ListOptedInUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, s.IncrementPhished(ctx, "u1"))
	require.NoError(t, s.RecordLearnAttempt(ctx, "u1", true))
	require.NoError(t, s.RecordLearnAttempt(ctx, "u1", false))

	u, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.PhishedCount)
	assert.Equal(t, 2, u.LearnAttempts)
	assert.Equal(t, 1, u.LearnCorrect)
}

func TestListCampaignsByUserOrder(t *testing.T) {
	s := newTestStore()
	seedCampaign(t, s, "u1", 1)
	seedCampaign(t, s, "u1", 1)
	seedCampaign(t, s, "u2", 1)

	list, err := s.ListCampaignsByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
