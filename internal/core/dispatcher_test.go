package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSender scripts delivery outcomes
type fakeSender struct {
	err  error
	sent []*OutboundEmail
}

func (s *fakeSender) Send(ctx context.Context, email *OutboundEmail) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

// dispatchStore covers the store methods a dispatch sweep touches
type dispatchStore struct {
	Store
	due        []*CampaignEmail
	emails     map[uuid.UUID][]*CampaignEmail
	users      []*UserPrefs
	sentIDs    []uuid.UUID
	lastSentAt map[string]time.Time
	statuses   map[uuid.UUID]CampaignStatus
}

func (s *dispatchStore) ListDueCampaignEmails(ctx context.Context, now time.Time) ([]*CampaignEmail, error) {
	return s.due, nil
}

func (s *dispatchStore) ListCampaignEmails(ctx context.Context, campaignID uuid.UUID) ([]*CampaignEmail, error) {
	return s.emails[campaignID], nil
}

func (s *dispatchStore) ListOptedInUsers(ctx context.Context) ([]*UserPrefs, error) {
	return s.users, nil
}

func (s *dispatchStore) MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	s.sentIDs = append(s.sentIDs, id)
	for _, emails := range s.emails {
		for _, e := range emails {
			if e.ID == id {
				e.SentAt = &sentAt
			}
		}
	}
	return nil
}

func (s *dispatchStore) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status CampaignStatus) error {
	if s.statuses == nil {
		s.statuses = map[uuid.UUID]CampaignStatus{}
	}
	s.statuses[id] = status
	return nil
}

func (s *dispatchStore) SetLastSentAt(ctx context.Context, userID string, t time.Time) error {
	if s.lastSentAt == nil {
		s.lastSentAt = map[string]time.Time{}
	}
	s.lastSentAt[userID] = t
	return nil
}

func (s *dispatchStore) GetUser(ctx context.Context, userID string) (*UserPrefs, error) {
	for _, u := range s.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func newTestDispatcher(store Store, sender EmailSender) *Dispatcher {
	llm := &fakeLLMClient{
		generateFunc: func(ctx context.Context, req *GenerationRequest) (*GeneratedMessage, error) {
			msg := validEmailMessage()
			if req.ContentType == ContentTypeLegitimate {
				msg.Indicators = nil
			}
			return msg, nil
		},
	}
	return NewDispatcher(store, NewGenerator(llm, zap.NewNop(), 3), sender,
		newTestRenderer(), zap.NewNop(), "noreply@phishschool.example")
}

func TestSendTestSuccess(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(&dispatchStore{}, sender)

	ok := d.SendTest(context.Background(), "dev@example.com")

	assert.True(t, ok)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "dev@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "Test Email")
}

func TestSendFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider rejected message")}
	d := newTestDispatcher(&dispatchStore{}, sender)

	// A provider failure reports false; it never propagates as an error
	ok := d.SendTest(context.Background(), "dev@example.com")
	assert.False(t, ok)
}

func TestSendDueCampaignEmails(t *testing.T) {
	campaignID := uuid.New()
	email := &CampaignEmail{
		ID:                uuid.New(),
		CampaignID:        campaignID,
		EmailType:         ContentTypePhishing,
		Subject:           "Verify now",
		SenderEmail:       "spoof@bad.example",
		RecipientEmail:    "trainee@example.com",
		Body:              "Click {https://bad.example/x}",
		TrackingID:        uuid.NewString(),
		ScheduledSendTime: time.Now().Add(-time.Hour),
	}
	store := &dispatchStore{
		due:    []*CampaignEmail{email},
		emails: map[uuid.UUID][]*CampaignEmail{campaignID: {email}},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)

	result := d.SendDue(context.Background())

	assert.Equal(t, 1, result.EmailsSent)
	assert.Equal(t, 0, result.EmailsFailed)
	require.Len(t, store.sentIDs, 1)
	assert.Equal(t, store.due[0].ID, store.sentIDs[0])
}

func TestSendDueCompletesFinishedCampaign(t *testing.T) {
	campaignID := uuid.New()
	last := &CampaignEmail{
		ID:                uuid.New(),
		CampaignID:        campaignID,
		EmailType:         ContentTypePhishing,
		Subject:           "Final reminder",
		RecipientEmail:    "trainee@example.com",
		TrackingID:        uuid.NewString(),
		ScheduledSendTime: time.Now().Add(-time.Hour),
	}
	already := &CampaignEmail{
		ID:         uuid.New(),
		CampaignID: campaignID,
		EmailType:  ContentTypeLegitimate,
		SentAt:     timePtr(time.Now().Add(-48 * time.Hour)),
	}
	store := &dispatchStore{
		due:    []*CampaignEmail{last},
		emails: map[uuid.UUID][]*CampaignEmail{campaignID: {already, last}},
	}
	d := newTestDispatcher(store, &fakeSender{})

	d.SendDue(context.Background())

	assert.Equal(t, CampaignStatusCompleted, store.statuses[campaignID])
}

func TestSendDueLeavesUnfinishedCampaignActive(t *testing.T) {
	campaignID := uuid.New()
	first := &CampaignEmail{
		ID:                uuid.New(),
		CampaignID:        campaignID,
		EmailType:         ContentTypePhishing,
		RecipientEmail:    "trainee@example.com",
		TrackingID:        uuid.NewString(),
		ScheduledSendTime: time.Now().Add(-time.Hour),
	}
	pending := &CampaignEmail{
		ID:                uuid.New(),
		CampaignID:        campaignID,
		EmailType:         ContentTypePhishing,
		ScheduledSendTime: time.Now().Add(7 * 24 * time.Hour),
	}
	store := &dispatchStore{
		due:    []*CampaignEmail{first},
		emails: map[uuid.UUID][]*CampaignEmail{campaignID: {first, pending}},
	}
	d := newTestDispatcher(store, &fakeSender{})

	d.SendDue(context.Background())

	assert.NotContains(t, store.statuses, campaignID)
}

func TestSendDueRecurringUsers(t *testing.T) {
	lastWeek := time.Now().Add(-8 * 24 * time.Hour)
	store := &dispatchStore{
		users: []*UserPrefs{
			{UserID: "due-user", Email: "due@example.com", OptedIn: true, Frequency: FrequencyWeekly, LastSentAt: &lastWeek},
			{UserID: "fresh-user", Email: "fresh@example.com", OptedIn: true, Frequency: FrequencyWeekly, LastSentAt: timePtr(time.Now().Add(-time.Hour))},
		},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)
	d.randFloat = func() float64 { return 0.5 }

	result := d.SendDue(context.Background())

	assert.Equal(t, 2, result.UsersConsidered)
	assert.Equal(t, 1, result.UsersDue)
	assert.Equal(t, 1, result.EmailsSent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "due@example.com", sender.sent[0].To)
	assert.Contains(t, store.lastSentAt, "due-user")
	assert.NotContains(t, store.lastSentAt, "fresh-user")
}

func TestSendDueCountsFailures(t *testing.T) {
	store := &dispatchStore{
		users: []*UserPrefs{
			{UserID: "u1", Email: "u1@example.com", OptedIn: true, Frequency: FrequencyWeekly},
		},
	}
	sender := &fakeSender{err: errors.New("smtp timeout")}
	d := newTestDispatcher(store, sender)
	d.randFloat = func() float64 { return 0.5 }

	result := d.SendDue(context.Background())

	assert.Equal(t, 1, result.UsersDue)
	assert.Equal(t, 0, result.EmailsSent)
	assert.Equal(t, 1, result.EmailsFailed)
	assert.Empty(t, store.lastSentAt)
}

func TestSendPhishingNowUnknownUser(t *testing.T) {
	d := newTestDispatcher(&dispatchStore{}, &fakeSender{})

	_, err := d.SendPhishingNow(context.Background(), "ghost", DifficultyEasy, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendPhishingNowDelivers(t *testing.T) {
	store := &dispatchStore{
		users: []*UserPrefs{{UserID: "u1", Email: "u1@example.com", OptedIn: true}},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)

	ok, err := d.SendPhishingNow(context.Background(), "u1", "", "delivery")

	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "u1@example.com", sender.sent[0].To)
}

func timePtr(t time.Time) *time.Time { return &t }
