package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore embeds the Store interface so individual tests only
// implement the methods they exercise.
type fakeStore struct {
	Store
	createdCampaign *Campaign
	createdEmails   []*CampaignEmail
}

func (s *fakeStore) CreateCampaign(ctx context.Context, c *Campaign, emails []*CampaignEmail) error {
	s.createdCampaign = c
	s.createdEmails = emails
	return nil
}

func TestFrequencyInterval(t *testing.T) {
	assert.Equal(t, 24*time.Hour, FrequencyDaily.Interval())
	assert.Equal(t, 7*24*time.Hour, FrequencyWeekly.Interval())
	assert.Equal(t, 30*24*time.Hour, FrequencyMonthly.Interval())
	// Unrecognized cadence falls back to weekly
	assert.Equal(t, 7*24*time.Hour, Frequency("fortnightly").Interval())
}

func TestPlanSendTimes(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	slots := PlanSendTimes(start, 5, FrequencyWeekly)

	require.Len(t, slots, 5)
	for i, slot := range slots {
		// All slots strictly in the future, spaced by the interval
		assert.True(t, slot.After(start))
		assert.Equal(t, start.Add(time.Duration(i+1)*7*24*time.Hour), slot)
		if i > 0 {
			assert.Equal(t, 7*24*time.Hour, slot.Sub(slots[i-1]))
		}
	}
}

func TestIsUserDue(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("never sent is due", func(t *testing.T) {
		u := &UserPrefs{Frequency: FrequencyWeekly}
		assert.True(t, IsUserDue(u, now))
	})

	t.Run("exactly one interval elapsed is due", func(t *testing.T) {
		last := now.Add(-7 * 24 * time.Hour)
		u := &UserPrefs{Frequency: FrequencyWeekly, LastSentAt: &last}
		assert.True(t, IsUserDue(u, now))
	})

	t.Run("just under one interval is not due", func(t *testing.T) {
		last := now.Add(-(6*24 + 23) * time.Hour)
		u := &UserPrefs{Frequency: FrequencyWeekly, LastSentAt: &last}
		assert.False(t, IsUserDue(u, now))
	})

	t.Run("daily cadence", func(t *testing.T) {
		last := now.Add(-25 * time.Hour)
		u := &UserPrefs{Frequency: FrequencyDaily, LastSentAt: &last}
		assert.True(t, IsUserDue(u, now))
	})
}

func TestCampaignCreatePlansEmails(t *testing.T) {
	store := &fakeStore{}
	llm := &fakeLLMClient{
		generateFunc: func(ctx context.Context, req *GenerationRequest) (*GeneratedMessage, error) {
			msg := validEmailMessage()
			if req.ContentType == ContentTypeLegitimate {
				msg.Indicators = nil
			}
			return msg, nil
		},
	}
	c := NewCampaigns(store, NewGenerator(llm, zap.NewNop(), 3), zap.NewNop())

	created := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return created }
	// Force a deterministic phishing draw
	draws := []float64{0.1, 0.9, 0.5, 0.69, 0.71}
	c.randFloat = func() float64 {
		d := draws[0]
		draws = draws[1:]
		return d
	}

	campaign, err := c.Create(context.Background(), "trainee@example.com", CreateParams{
		UserID:       "user-1",
		Name:         "Q2 awareness",
		Frequency:    FrequencyWeekly,
		Difficulty:   DifficultyMedium,
		Themes:       []string{"banking", "delivery"},
		EmailCount:   5,
		DurationDays: 35,
	})

	require.NoError(t, err)
	require.NotNil(t, store.createdCampaign)
	require.Len(t, store.createdEmails, 5)
	assert.Equal(t, CampaignStatusActive, campaign.Status)

	// Slots strictly increasing, spaced by the weekly interval
	for i, e := range store.createdEmails {
		assert.Equal(t, campaign.ID, e.CampaignID)
		assert.Equal(t, "trainee@example.com", e.RecipientEmail)
		assert.NotEmpty(t, e.TrackingID)
		assert.Equal(t, created.Add(time.Duration(i+1)*7*24*time.Hour), e.ScheduledSendTime)
	}

	// Draws below 0.7 are phishing, at or above are legitimate
	wantTypes := []ContentType{
		ContentTypePhishing, ContentTypeLegitimate, ContentTypePhishing,
		ContentTypePhishing, ContentTypeLegitimate,
	}
	for i, e := range store.createdEmails {
		assert.Equal(t, wantTypes[i], e.EmailType, "slot %d", i)
	}

	// Distinct tracking tokens per email
	seen := map[string]bool{}
	for _, e := range store.createdEmails {
		assert.False(t, seen[e.TrackingID])
		seen[e.TrackingID] = true
	}
}

func TestCampaignCreateFallsBackOnGenerationFailure(t *testing.T) {
	store := &fakeStore{}
	llm := &fakeLLMClient{
		generateFunc: func(ctx context.Context, req *GenerationRequest) (*GeneratedMessage, error) {
			return nil, assert.AnError
		},
	}
	c := NewCampaigns(store, NewGenerator(llm, zap.NewNop(), 3), zap.NewNop())
	c.randFloat = func() float64 { return 0.0 }

	_, err := c.Create(context.Background(), "trainee@example.com", CreateParams{
		UserID:     "user-1",
		Frequency:  FrequencyDaily,
		EmailCount: 2,
	})

	require.NoError(t, err)
	require.Len(t, store.createdEmails, 2)
	for _, e := range store.createdEmails {
		assert.Equal(t, "Urgent: Verify Your Account", e.Subject)
		assert.NotEmpty(t, e.Indicators)
	}
}
