package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the Store interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	email_frequency TEXT NOT NULL,
	difficulty_level TEXT NOT NULL,
	preferred_themes TEXT NOT NULL DEFAULT '[]',
	email_count INTEGER NOT NULL,
	duration_days INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS campaign_emails (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	email_type TEXT NOT NULL,
	subject TEXT NOT NULL,
	sender_email TEXT NOT NULL,
	recipient_email TEXT NOT NULL,
	body TEXT NOT NULL,
	phishing_indicators TEXT NOT NULL DEFAULT '[]',
	explanation TEXT NOT NULL DEFAULT '',
	scheduled_send_time TIMESTAMP NOT NULL,
	sent_at TIMESTAMP,
	clicked_at TIMESTAMP,
	click_tracking_id TEXT UNIQUE,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_campaign ON campaign_emails(campaign_id);
CREATE INDEX IF NOT EXISTS idx_emails_due ON campaign_emails(scheduled_send_time) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS user_prefs (
	user_id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	opted_in BOOLEAN NOT NULL DEFAULT 0,
	frequency TEXT NOT NULL DEFAULT 'weekly',
	difficulty_level TEXT NOT NULL DEFAULT 'medium',
	preferred_themes TEXT NOT NULL DEFAULT '[]',
	last_sent_at TIMESTAMP,
	phished_count INTEGER NOT NULL DEFAULT 0,
	correct_count INTEGER NOT NULL DEFAULT 0,
	learn_attempts INTEGER NOT NULL DEFAULT 0,
	learn_correct INTEGER NOT NULL DEFAULT 0
);
`

// NewSQLiteStore opens or creates the SQLite database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(raw), &ss); err != nil {
		return nil
	}
	return ss
}

// CreateCampaign inserts a campaign and its emails in one transaction
func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *core.Campaign, emails []*core.CampaignEmail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaigns (id, user_id, name, status, email_frequency, difficulty_level,
			preferred_themes, email_count, duration_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID.String(), c.UserID, c.Name, string(c.Status), string(c.Frequency), string(c.Difficulty),
		marshalStrings(c.Themes), c.EmailCount, c.DurationDays, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	for _, e := range emails {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO campaign_emails (id, campaign_id, email_type, subject, sender_email,
				recipient_email, body, phishing_indicators, explanation, scheduled_send_time,
				sent_at, clicked_at, click_tracking_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID.String(), e.CampaignID.String(), string(e.EmailType), e.Subject, e.SenderEmail,
			e.RecipientEmail, e.Body, marshalStrings(e.Indicators), e.Explanation,
			e.ScheduledSendTime, e.SentAt, e.ClickedAt, e.TrackingID, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert campaign email: %w", err)
		}
	}

	return tx.Commit()
}

func scanCampaign(row interface{ Scan(...interface{}) error }) (*core.Campaign, error) {
	var c core.Campaign
	var id, status, freq, diff, themes string
	err := row.Scan(&id, &c.UserID, &c.Name, &status, &freq, &diff,
		&themes, &c.EmailCount, &c.DurationDays, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign ID in store: %w", err)
	}
	c.Status = core.CampaignStatus(status)
	c.Frequency = core.Frequency(freq)
	c.Difficulty = core.Difficulty(diff)
	c.Themes = unmarshalStrings(themes)
	return &c, nil
}

const campaignColumns = `id, user_id, name, status, email_frequency, difficulty_level,
	preferred_themes, email_count, duration_days, created_at, updated_at`

// GetCampaign retrieves a campaign by ID
func (s *SQLiteStore) GetCampaign(ctx context.Context, id uuid.UUID) (*core.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id.String())
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}
	return c, nil
}

// ListCampaignsByUser retrieves all campaigns owned by a user, newest first
func (s *SQLiteStore) ListCampaignsByUser(ctx context.Context, userID string) ([]*core.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var result []*core.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateCampaignStatus changes the status of an existing campaign
func (s *SQLiteStore) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status core.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id.String())
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

// DeleteCampaign removes a campaign and all of its emails
func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM campaign_emails WHERE campaign_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete campaign emails: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id.String())
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
	return tx.Commit()
}

// GetCampaignStats aggregates send and click counts for one campaign
func (s *SQLiteStore) GetCampaignStats(ctx context.Context, id uuid.UUID) (*core.CampaignStats, error) {
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
		FROM campaign_emails WHERE campaign_id = ?
	`, id.String()).Scan(&stats.TotalEmails, &stats.EmailsSent, &stats.EmailsClicked,
		&stats.PhishingEmails, &stats.PhishingClicked)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign stats: %w", err)
	}
	return stats, nil
}

const emailColumns = `id, campaign_id, email_type, subject, sender_email, recipient_email,
	body, phishing_indicators, explanation, scheduled_send_time, sent_at, clicked_at,
	click_tracking_id, created_at`

func scanEmail(row interface{ Scan(...interface{}) error }) (*core.CampaignEmail, error) {
	var e core.CampaignEmail
	var id, campaignID, emailType, indicators string
	var trackingID sql.NullString
	err := row.Scan(&id, &campaignID, &emailType, &e.Subject, &e.SenderEmail, &e.RecipientEmail,
		&e.Body, &indicators, &e.Explanation, &e.ScheduledSendTime, &e.SentAt, &e.ClickedAt,
		&trackingID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid email ID in store: %w", err)
	}
	e.CampaignID, err = uuid.Parse(campaignID)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign ID in store: %w", err)
	}
	e.EmailType = core.ContentType(emailType)
	e.Indicators = unmarshalStrings(indicators)
	e.TrackingID = trackingID.String
	return &e, nil
}

// ListCampaignEmails retrieves all emails of a campaign ordered by send time
func (s *SQLiteStore) ListCampaignEmails(ctx context.Context, campaignID uuid.UUID) ([]*core.CampaignEmail, error) {
	if _, err := s.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+emailColumns+` FROM campaign_emails WHERE campaign_id = ? ORDER BY scheduled_send_time`,
		campaignID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign emails: %w", err)
	}
	defer rows.Close()

	var result []*core.CampaignEmail
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign email: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ListDueCampaignEmails retrieves unsent emails of active campaigns whose
// scheduled send time has passed
func (s *SQLiteStore) ListDueCampaignEmails(ctx context.Context, now time.Time) ([]*core.CampaignEmail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.campaign_id, e.email_type, e.subject, e.sender_email, e.recipient_email,
			e.body, e.phishing_indicators, e.explanation, e.scheduled_send_time, e.sent_at,
			e.clicked_at, e.click_tracking_id, e.created_at
		FROM campaign_emails e
		JOIN campaigns c ON c.id = e.campaign_id
		WHERE e.sent_at IS NULL AND e.scheduled_send_time <= ? AND c.status = 'active'
		ORDER BY e.scheduled_send_time
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due emails: %w", err)
	}
	defer rows.Close()

	var result []*core.CampaignEmail
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due email: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// MarkEmailSent stamps the send time of an email
func (s *SQLiteStore) MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaign_emails SET sent_at = ? WHERE id = ?`, sentAt, id.String())
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
func (s *SQLiteStore) GetEmailByTrackingID(ctx context.Context, trackingID string) (*core.CampaignEmail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM campaign_emails WHERE click_tracking_id = ?`, trackingID)
	e, err := scanEmail(row)
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
func (s *SQLiteStore) MarkEmailClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign_emails SET clicked_at = ?
		WHERE id = ? AND clicked_at IS NULL AND sent_at IS NOT NULL
	`, clickedAt, id.String())
	if err != nil {
		return false, fmt.Errorf("failed to mark email clicked: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanUser(row interface{ Scan(...interface{}) error }) (*core.UserPrefs, error) {
	var u core.UserPrefs
	var freq, diff, themes string
	err := row.Scan(&u.UserID, &u.Email, &u.OptedIn, &freq, &diff, &themes,
		&u.LastSentAt, &u.PhishedCount, &u.CorrectCount, &u.LearnAttempts, &u.LearnCorrect)
	if err != nil {
		return nil, err
	}
	u.Frequency = core.Frequency(freq)
	u.Difficulty = core.Difficulty(diff)
	u.Themes = unmarshalStrings(themes)
	return &u, nil
}

const userColumns = `user_id, email, opted_in, frequency, difficulty_level, preferred_themes,
	last_sent_at, phished_count, correct_count, learn_attempts, learn_correct`

// GetUser retrieves a user's training preferences
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*core.UserPrefs, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user_prefs WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// UpsertUser stores or replaces a user's training preferences
func (s *SQLiteStore) UpsertUser(ctx context.Context, u *core.UserPrefs) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, email, opted_in, frequency, difficulty_level,
			preferred_themes, last_sent_at, phished_count, correct_count, learn_attempts, learn_correct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			opted_in = excluded.opted_in,
			frequency = excluded.frequency,
			difficulty_level = excluded.difficulty_level,
			preferred_themes = excluded.preferred_themes
	`, u.UserID, u.Email, u.OptedIn, string(u.Frequency), string(u.Difficulty),
		marshalStrings(u.Themes), u.LastSentAt, u.PhishedCount, u.CorrectCount,
		u.LearnAttempts, u.LearnCorrect)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetOptIn flips a user's opt-in flag, creating the record if needed
func (s *SQLiteStore) SetOptIn(ctx context.Context, userID string, optedIn bool, freq core.Frequency) error {
	if freq == "" {
		freq = core.FrequencyWeekly
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, opted_in, frequency)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			opted_in = excluded.opted_in,
			frequency = excluded.frequency
	`, userID, optedIn, string(freq))
	if err != nil {
		return fmt.Errorf("failed to set opt-in: %w", err)
	}
	return nil
}

// ListOptedInUsers retrieves all users currently opted into training
func (s *SQLiteStore) ListOptedInUsers(ctx context.Context) ([]*core.UserPrefs, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM user_prefs WHERE opted_in = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query opted-in users: %w", err)
	}
	defer rows.Close()

	var result []*core.UserPrefs
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// SetLastSentAt stamps the time of the user's most recent training email
func (s *SQLiteStore) SetLastSentAt(ctx context.Context, userID string, t time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_prefs SET last_sent_at = ? WHERE user_id = ?`, t, userID)
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
func (s *SQLiteStore) IncrementPhished(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, phished_count) VALUES (?, 1)
		ON CONFLICT(user_id) DO UPDATE SET phished_count = phished_count + 1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to increment phished count: %w", err)
	}
	return nil
}

// RecordLearnAttempt records one answer in the learning module
func (s *SQLiteStore) RecordLearnAttempt(ctx context.Context, userID string, correct bool) error {
	inc := 0
	if correct {
		inc = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_prefs (user_id, learn_attempts, learn_correct) VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			learn_attempts = learn_attempts + 1,
			learn_correct = learn_correct + ?
	`, userID, inc, inc)
	if err != nil {
		return fmt.Errorf("failed to record learn attempt: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
