package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// PostgresStore is a PostgreSQL implementation of the Store interface
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	email_frequency TEXT NOT NULL,
	difficulty_level TEXT NOT NULL,
	preferred_themes TEXT[] NOT NULL DEFAULT '{}',
	email_count INTEGER NOT NULL,
	duration_days INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS campaign_emails (
	id UUID PRIMARY KEY,
	campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	email_type TEXT NOT NULL,
	subject TEXT NOT NULL,
	sender_email TEXT NOT NULL,
	recipient_email TEXT NOT NULL,
	body TEXT NOT NULL,
	phishing_indicators TEXT[] NOT NULL DEFAULT '{}',
	explanation TEXT NOT NULL DEFAULT '',
	scheduled_send_time TIMESTAMPTZ NOT NULL,
	sent_at TIMESTAMPTZ,
	clicked_at TIMESTAMPTZ,
	click_tracking_id TEXT UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_campaign ON campaign_emails(campaign_id);
CREATE INDEX IF NOT EXISTS idx_emails_due ON campaign_emails(scheduled_send_time) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS user_prefs (
	user_id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	opted_in BOOLEAN NOT NULL DEFAULT FALSE,
	frequency TEXT NOT NULL DEFAULT 'weekly',
	difficulty_level TEXT NOT NULL DEFAULT 'medium',
	preferred_themes TEXT[] NOT NULL DEFAULT '{}',
	last_sent_at TIMESTAMPTZ,
	phished_count INTEGER NOT NULL DEFAULT 0,
	correct_count INTEGER NOT NULL DEFAULT 0,
	learn_attempts INTEGER NOT NULL DEFAULT 0,
	learn_correct INTEGER NOT NULL DEFAULT 0
);
`

// NewPostgresStore connects to PostgreSQL and ensures the schema exists
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// CreateCampaign inserts a campaign and its emails in one transaction
func (s *PostgresStore) CreateCampaign(ctx context.Context, c *core.Campaign, emails []*core.CampaignEmail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaigns (id, user_id, name, status, email_frequency, difficulty_level,
			preferred_themes, email_count, duration_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.UserID, c.Name, string(c.Status), string(c.Frequency), string(c.Difficulty),
		pq.Array(c.Themes), c.EmailCount, c.DurationDays, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	for _, e := range emails {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO campaign_emails (id, campaign_id, email_type, subject, sender_email,
				recipient_email, body, phishing_indicators, explanation, scheduled_send_time,
				sent_at, clicked_at, click_tracking_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, e.ID, e.CampaignID, string(e.EmailType), e.Subject, e.SenderEmail,
			e.RecipientEmail, e.Body, pq.Array(e.Indicators), e.Explanation,
			e.ScheduledSendTime, e.SentAt, e.ClickedAt, e.TrackingID, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert campaign email: %w", err)
		}
	}

	return tx.Commit()
}

func scanPGCampaign(row interface{ Scan(...interface{}) error }) (*core.Campaign, error) {
	var c core.Campaign
	var status, freq, diff string
	var themes pq.StringArray
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &status, &freq, &diff,
		&themes, &c.EmailCount, &c.DurationDays, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = core.CampaignStatus(status)
	c.Frequency = core.Frequency(freq)
	c.Difficulty = core.Difficulty(diff)
	c.Themes = themes
	return &c, nil
}

// GetCampaign retrieves a campaign by ID
func (s *PostgresStore) GetCampaign(ctx context.Context, id uuid.UUID) (*core.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanPGCampaign(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}
	return c, nil
}

// ListCampaignsByUser retrieves all campaigns owned by a user, newest first
func (s *PostgresStore) ListCampaignsByUser(ctx context.Context, userID string) ([]*core.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var result []*core.Campaign
	for rows.Next() {
		c, err := scanPGCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateCampaignStatus changes the status of an existing campaign
func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status core.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteCampaign removes a campaign; its emails go with it via the
// foreign key cascade
func (s *PostgresStore) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GetCampaignStats aggregates send and click counts for one campaign
func (s *PostgresStore) GetCampaignStats(ctx context.Context, id uuid.UUID) (*core.CampaignStats, error) {
	if _, err := s.GetCampaign(ctx, id); err != nil {
		return nil, err
	}

	stats := &core.CampaignStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(sent_at),
			COUNT(clicked_at),
			COALESCE(SUM(CASE WHEN email_type = 'phishing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN email_type = 'phishing' AND clicked_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM campaign_emails WHERE campaign_id = $1
	`, id).Scan(&stats.TotalEmails, &stats.EmailsSent, &stats.EmailsClicked,
		&stats.PhishingEmails, &stats.PhishingClicked)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign stats: %w", err)
	}
	return stats, nil
}

func scanPGEmail(row interface{ Scan(...interface{}) error }) (*core.CampaignEmail, error) {
	var e core.CampaignEmail
	var emailType string
	var indicators pq.StringArray
	var trackingID sql.NullString
	err := row.Scan(&e.ID, &e.CampaignID, &emailType, &e.Subject, &e.SenderEmail, &e.RecipientEmail,
		&e.Body, &indicators, &e.Explanation, &e.ScheduledSendTime, &e.SentAt, &e.ClickedAt,
		&trackingID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.EmailType = core.ContentType(emailType)
	e.Indicators = indicators
	e.TrackingID = trackingID.String
	return &e, nil
}

// ListCampaignEmails retrieves all emails of a campaign ordered by send time
func (s *PostgresStore) ListCampaignEmails(ctx context.Context, campaignID uuid.UUID) ([]*core.CampaignEmail, error) {
	if _, err := s.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+emailColumns+` FROM campaign_emails WHERE campaign_id = $1 ORDER BY scheduled_send_time`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign emails: %w", err)
	}
	defer rows.Close()

	var result []*core.CampaignEmail
	for rows.Next() {
		e, err := scanPGEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign email: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ListDueCampaignEmails retrieves unsent emails of active campaigns whose
// scheduled send time has passed
func (s *PostgresStore) ListDueCampaignEmails(ctx context.Context, now time.Time) ([]*core.CampaignEmail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.campaign_id, e.email_type, e.subject, e.sender_email, e.recipient_email,
			e.body, e.phishing_indicators, e.explanation, e.scheduled_send_time, e.sent_at,
			e.clicked_at, e.click_tracking_id, e.created_at
		FROM campaign_emails e
		JOIN campaigns c ON c.id = e.campaign_id
		WHERE e.sent_at IS NULL AND e.scheduled_send_time <= $1 AND c.status = 'active'
		ORDER BY e.scheduled_send_time
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due emails: %w", err)
	}
	defer rows.Close()

	var result []*core.CampaignEmail
	for rows.Next() {
		e, err := scanPGEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due email: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// MarkEmailSent stamps the send time of an email
func (s *PostgresStore) MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaign_emails SET sent_at = $1 WHERE id = $2`, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GetEmailByTrackingID retrieves an email by its opaque tracking token
func (s *PostgresStore) GetEmailByTrackingID(ctx context.Context, trackingID string) (*core.CampaignEmail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM campaign_emails WHERE click_tracking_id = $1`, trackingID)
	e, err := scanPGEmail(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email by tracking ID: %w", err)
	}
	return e, nil
}

// MarkEmailClicked stamps the click time once. The guarded update makes
// repeat clicks and clicks on unsent emails no-ops reported as false.
func (s *PostgresStore) MarkEmailClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign_emails SET clicked_at = $1
		WHERE id = $2 AND clicked_at IS NULL AND sent_at IS NOT NULL
	`, clickedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark email clicked: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanPGUser(row interface{ Scan(...interface{}) error }) (*core.UserPrefs, error) {
	var u core.UserPrefs
	var freq, diff string
	var themes pq.StringArray
	err := row.Scan(&u.UserID, &u.Email, &u.OptedIn, &freq, &diff, &themes,
		&u.LastSentAt, &u.PhishedCount, &u.CorrectCount, &u.LearnAttempts, &u.LearnCorrect)
	if err != nil {
		return nil, err
	}
	u.Frequency = core.Frequency(freq)
	u.Difficulty = core.Difficulty(diff)
	u.Themes = themes
	return &u, nil
}

// GetUser retrieves a user's training preferences
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*core.UserPrefs, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user_prefs WHERE user_id = $1`, userID)
	u, err := scanPGUser(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// UpsertUser stores or replaces a user's training preferences
func (s *PostgresStore) UpsertUser(ctx context.Context, u *core.UserPrefs) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, email, opted_in, frequency, difficulty_level,
			preferred_themes, last_sent_at, phished_count, correct_count, learn_attempts, learn_correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			opted_in = EXCLUDED.opted_in,
			frequency = EXCLUDED.frequency,
			difficulty_level = EXCLUDED.difficulty_level,
			preferred_themes = EXCLUDED.preferred_themes
	`, u.UserID, u.Email, u.OptedIn, string(u.Frequency), string(u.Difficulty),
		pq.Array(u.Themes), u.LastSentAt, u.PhishedCount, u.CorrectCount,
		u.LearnAttempts, u.LearnCorrect)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetOptIn flips a user's opt-in flag, creating the record if needed
func (s *PostgresStore) SetOptIn(ctx context.Context, userID string, optedIn bool, freq core.Frequency) error {
	if freq == "" {
		freq = core.FrequencyWeekly
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, opted_in, frequency)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			opted_in = EXCLUDED.opted_in,
			frequency = EXCLUDED.frequency
	`, userID, optedIn, string(freq))
	if err != nil {
		return fmt.Errorf("failed to set opt-in: %w", err)
	}
	return nil
}

// ListOptedInUsers retrieves all users currently opted into training
func (s *PostgresStore) ListOptedInUsers(ctx context.Context) ([]*core.UserPrefs, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM user_prefs WHERE opted_in ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query opted-in users: %w", err)
	}
	defer rows.Close()

	var result []*core.UserPrefs
	for rows.Next() {
		u, err := scanPGUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// SetLastSentAt stamps the time of the user's most recent training email
func (s *PostgresStore) SetLastSentAt(ctx context.Context, userID string, t time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_prefs SET last_sent_at = $1 WHERE user_id = $2`, t, userID)
	if err != nil {
		return fmt.Errorf("failed to set last sent time: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// IncrementPhished bumps the user's fell-for-it counter
func (s *PostgresStore) IncrementPhished(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, phished_count) VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET phished_count = user_prefs.phished_count + 1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to increment phished count: %w", err)
	}
	return nil
}

// RecordLearnAttempt records one answer in the learning module
func (s *PostgresStore) RecordLearnAttempt(ctx context.Context, userID string, correct bool) error {
	inc := 0
	if correct {
		inc = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, learn_attempts, learn_correct) VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			learn_attempts = user_prefs.learn_attempts + 1,
			learn_correct = user_prefs.learn_correct + $2
	`, userID, inc)
	if err != nil {
		return fmt.Errorf("failed to record learn attempt: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
