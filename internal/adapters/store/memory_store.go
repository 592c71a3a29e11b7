package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Used in tests and for local development without a database.
type MemoryStore struct {
	campaigns map[uuid.UUID]*core.Campaign
	emails    map[uuid.UUID]*core.CampaignEmail
	tracking  map[string]uuid.UUID
	users     map[string]*core.UserPrefs
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[uuid.UUID]*core.Campaign),
		emails:    make(map[uuid.UUID]*core.CampaignEmail),
		tracking:  make(map[string]uuid.UUID),
		users:     make(map[string]*core.UserPrefs),
		logger:    logger,
	}
}

// CreateCampaign stores a campaign together with its scheduled emails
func (s *MemoryStore) CreateCampaign(ctx context.Context, c *core.Campaign, emails []*core.CampaignEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign := *c
	s.campaigns[c.ID] = &campaign
	for _, e := range emails {
		email := *e
		s.emails[e.ID] = &email
		if e.TrackingID != "" {
			s.tracking[e.TrackingID] = e.ID
		}
	}
	return nil
}

// GetCampaign retrieves a campaign by ID
func (s *MemoryStore) GetCampaign(ctx context.Context, id uuid.UUID) (*core.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	campaign := *c
	return &campaign, nil
}

// ListCampaignsByUser retrieves all campaigns owned by a user, newest first
func (s *MemoryStore) ListCampaignsByUser(ctx context.Context, userID string) ([]*core.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.Campaign
	for _, c := range s.campaigns {
		if c.UserID == userID {
			campaign := *c
			result = append(result, &campaign)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateCampaignStatus changes the status of an existing campaign
func (s *MemoryStore) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status core.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return core.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

// DeleteCampaign removes a campaign and all of its emails
func (s *MemoryStore) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.campaigns, id)
	for emailID, e := range s.emails {
		if e.CampaignID == id {
			if e.TrackingID != "" {
				delete(s.tracking, e.TrackingID)
			}
			delete(s.emails, emailID)
		}
	}
	return nil
}

// GetCampaignStats aggregates send and click counts for one campaign
func (s *MemoryStore) GetCampaignStats(ctx context.Context, id uuid.UUID) (*core.CampaignStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.campaigns[id]; !ok {
		return nil, core.ErrNotFound
	}

	stats := &core.CampaignStats{}
	for _, e := range s.emails {
		if e.CampaignID != id {
			continue
		}
		stats.TotalEmails++
		if e.SentAt != nil {
			stats.EmailsSent++
		}
		if e.ClickedAt != nil {
			stats.EmailsClicked++
		}
		if e.EmailType == core.ContentTypePhishing {
			stats.PhishingEmails++
			if e.ClickedAt != nil {
				stats.PhishingClicked++
			}
		}
	}
	return stats, nil
}

// ListCampaignEmails retrieves all emails of a campaign ordered by send time
func (s *MemoryStore) ListCampaignEmails(ctx context.Context, campaignID uuid.UUID) ([]*core.CampaignEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.campaigns[campaignID]; !ok {
		return nil, core.ErrNotFound
	}

	var result []*core.CampaignEmail
	for _, e := range s.emails {
		if e.CampaignID == campaignID {
			email := *e
			result = append(result, &email)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledSendTime.Before(result[j].ScheduledSendTime)
	})
	return result, nil
}

// ListDueCampaignEmails retrieves unsent emails of active campaigns whose
// scheduled send time has passed
func (s *MemoryStore) ListDueCampaignEmails(ctx context.Context, now time.Time) ([]*core.CampaignEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.CampaignEmail
	for _, e := range s.emails {
		if e.SentAt != nil || e.ScheduledSendTime.After(now) {
			continue
		}
		c, ok := s.campaigns[e.CampaignID]
		if !ok || c.Status != core.CampaignStatusActive {
			continue
		}
		email := *e
		result = append(result, &email)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledSendTime.Before(result[j].ScheduledSendTime)
	})
	return result, nil
}

// MarkEmailSent stamps the send time of an email
func (s *MemoryStore) MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return core.ErrNotFound
	}
	t := sentAt
	e.SentAt = &t
	return nil
}

// GetEmailByTrackingID retrieves an email by its opaque tracking token
func (s *MemoryStore) GetEmailByTrackingID(ctx context.Context, trackingID string) (*core.CampaignEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tracking[trackingID]
	if !ok {
		return nil, core.ErrNotFound
	}
	e, ok := s.emails[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	email := *e
	return &email, nil
}

// MarkEmailClicked stamps the click time once. Repeat clicks and clicks
// on unsent emails are no-ops reported as false.
func (s *MemoryStore) MarkEmailClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return false, core.ErrNotFound
	}
	if e.ClickedAt != nil || e.SentAt == nil {
		return false, nil
	}
	t := clickedAt
	e.ClickedAt = &t
	return true, nil
}

// GetUser retrieves a user's training preferences
func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*core.UserPrefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	user := *u
	return &user, nil
}

// UpsertUser stores or replaces a user's training preferences
func (s *MemoryStore) UpsertUser(ctx context.Context, u *core.UserPrefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := *u
	s.users[u.UserID] = &user
	return nil
}

// SetOptIn flips a user's opt-in flag, creating the record if needed
func (s *MemoryStore) SetOptIn(ctx context.Context, userID string, optedIn bool, freq core.Frequency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &core.UserPrefs{UserID: userID}
		s.users[userID] = u
	}
	u.OptedIn = optedIn
	if freq != "" {
		u.Frequency = freq
	}
	return nil
}

// ListOptedInUsers retrieves all users currently opted into training
func (s *MemoryStore) ListOptedInUsers(ctx context.Context) ([]*core.UserPrefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.UserPrefs
	for _, u := range s.users {
		if u.OptedIn {
			user := *u
			result = append(result, &user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// SetLastSentAt stamps the time of the user's most recent training email
func (s *MemoryStore) SetLastSentAt(ctx context.Context, userID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	ts := t
	u.LastSentAt = &ts
	return nil
}

// IncrementPhished bumps the user's fell-for-it counter
func (s *MemoryStore) IncrementPhished(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &core.UserPrefs{UserID: userID}
		s.users[userID] = u
	}
	u.PhishedCount++
	return nil
}

// RecordLearnAttempt records one answer in the learning module
func (s *MemoryStore) RecordLearnAttempt(ctx context.Context, userID string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &core.UserPrefs{UserID: userID}
		s.users[userID] = u
	}
	u.LearnAttempts++
	if correct {
		u.LearnCorrect++
	}
	return nil
}

// Close releases resources held by the store
func (s *MemoryStore) Close() error {
	return nil
}
