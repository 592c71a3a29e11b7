package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phishschool/backend/internal/adapters/logmail"
	"github.com/phishschool/backend/internal/adapters/store"
	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLLMClient struct {
	generateFunc  func(ctx context.Context, req *core.GenerationRequest) (*core.GeneratedMessage, error)
	scoreTextFunc func(ctx context.Context, summary string) (*core.ScoreResult, error)
}

func (f *fakeLLMClient) GenerateMessage(ctx context.Context, req *core.GenerationRequest) (*core.GeneratedMessage, error) {
	if f.generateFunc != nil {
		return f.generateFunc(ctx, req)
	}
	return &core.GeneratedMessage{
		Subject:    "Verify your account",
		Sender:     "security@paypa1-support.com",
		Recipient:  "trainee@example.com",
		Body:       "Your account has been locked. Click {https://paypa1-support.com/verify} to restore access.",
		Indicators: []string{"misspelled domain", "urgency", "suspicious link"},
	}, nil
}

func (f *fakeLLMClient) ScoreText(ctx context.Context, summary string) (*core.ScoreResult, error) {
	if f.scoreTextFunc != nil {
		return f.scoreTextFunc(ctx, summary)
	}
	return &core.ScoreResult{Score: 87, Rationale: "urgent language and lookalike domain"}, nil
}

func (f *fakeLLMClient) ScoreImage(ctx context.Context, prompt string, image *core.ImagePayload) (*core.ScoreResult, error) {
	return &core.ScoreResult{Score: 60, Rationale: "screenshot shows a credential form"}, nil
}

type testHarness struct {
	router http.Handler
	store  *store.MemoryStore
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	logger := zap.NewNop()
	llm := &fakeLLMClient{}
	mem := store.NewMemoryStore(logger)

	generator := core.NewGenerator(llm, logger, 3)
	scorer := core.NewScorer(llm, logger)
	campaigns := core.NewCampaigns(mem, generator, logger)
	renderer := core.NewRenderer("http://localhost:8080", "http://localhost:5173/you-got-phished")
	dispatcher := core.NewDispatcher(mem, generator, logmail.NewLogSender(logger), renderer, logger, "noreply@phishschool.example")
	tracker := core.NewTracker(mem, logger, "http://localhost:5173")
	textProc := utils.NewTextProcessor(logger)

	h := NewHandlers(generator, scorer, campaigns, dispatcher, tracker, mem, textProc, 2000, logger)
	return &testHarness{router: NewRouter(h), store: mem}
}

func (th *testHarness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	th.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealth(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestRoutesMountedUnderAPIPrefix(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateMessage(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodPost, "/generate/message", map[string]interface{}{
		"message_type": "email",
		"content_type": "phishing",
		"difficulty":   "easy",
		"theme":        "banking",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var msg core.GeneratedMessage
	decodeJSON(t, rec, &msg)
	assert.Equal(t, "Verify your account", msg.Subject)
	assert.Equal(t, core.ContentTypePhishing, msg.ContentType)
	assert.NotEmpty(t, msg.Indicators)
}

func TestGenerateMessageRejectsInvalidEnums(t *testing.T) {
	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad message type", map[string]interface{}{"message_type": "fax", "content_type": "phishing"}},
		{"bad content type", map[string]interface{}{"message_type": "email", "content_type": "spam"}},
		{"bad difficulty", map[string]interface{}{"message_type": "email", "content_type": "phishing", "difficulty": "impossible"}},
	}
	th := newTestHarness(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := th.do(t, http.MethodPost, "/generate/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			decodeJSON(t, rec, &body)
			assert.Contains(t, body["detail"], "invalid")
		})
	}
}

func TestGenerateMessageBackendFailureMapsTo502(t *testing.T) {
	logger := zap.NewNop()
	llm := &fakeLLMClient{
		generateFunc: func(ctx context.Context, req *core.GenerationRequest) (*core.GeneratedMessage, error) {
			return nil, assert.AnError
		},
	}
	mem := store.NewMemoryStore(logger)
	generator := core.NewGenerator(llm, logger, 1)
	scorer := core.NewScorer(llm, logger)
	campaigns := core.NewCampaigns(mem, generator, logger)
	renderer := core.NewRenderer("http://localhost:8080", "http://localhost:5173/you-got-phished")
	dispatcher := core.NewDispatcher(mem, generator, logmail.NewLogSender(logger), renderer, logger, "noreply@phishschool.example")
	tracker := core.NewTracker(mem, logger, "http://localhost:5173")
	h := NewHandlers(generator, scorer, campaigns, dispatcher, tracker, mem, utils.NewTextProcessor(logger), 2000, logger)
	th := &testHarness{router: NewRouter(h), store: mem}

	rec := th.do(t, http.MethodPost, "/generate/message", map[string]interface{}{
		"message_type": "email",
		"content_type": "phishing",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCampaignLifecycle(t *testing.T) {
	th := newTestHarness(t)

	rec := th.do(t, http.MethodPost, "/campaigns/create", map[string]interface{}{
		"user_id":         "u1",
		"name":            "Q3 awareness",
		"target_email":    "trainee@example.com",
		"email_frequency": "weekly",
		"email_count":     3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var campaign core.Campaign
	decodeJSON(t, rec, &campaign)
	assert.Equal(t, "u1", campaign.UserID)
	assert.Equal(t, core.CampaignStatusActive, campaign.Status)

	rec = th.do(t, http.MethodGet, "/campaigns/user/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []core.Campaign
	decodeJSON(t, rec, &list)
	assert.Len(t, list, 1)

	rec = th.do(t, http.MethodGet, "/campaigns/"+campaign.ID.String()+"/emails", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var emails []core.CampaignEmail
	decodeJSON(t, rec, &emails)
	assert.Len(t, emails, 3)

	rec = th.do(t, http.MethodPut, "/campaigns/"+campaign.ID.String()+"/pause", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = th.do(t, http.MethodPut, "/campaigns/"+campaign.ID.String()+"/resume", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = th.do(t, http.MethodPut, "/campaigns/"+campaign.ID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	decodeJSON(t, rec, &status)
	assert.Equal(t, "completed", status["status"])

	rec = th.do(t, http.MethodGet, "/campaigns/"+campaign.ID.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats core.CampaignStats
	decodeJSON(t, rec, &stats)
	assert.Equal(t, 3, stats.TotalEmails)

	rec = th.do(t, http.MethodDelete, "/campaigns/"+campaign.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = th.do(t, http.MethodGet, "/campaigns/"+campaign.ID.String()+"/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCampaignWithoutRecipient(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodPost, "/campaigns/create", map[string]interface{}{
		"user_id":     "ghost",
		"email_count": 2,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Contains(t, body["detail"], "no email address known")
}

func TestCampaignInvalidID(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodDelete, "/campaigns/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func seedTrackedEmail(t *testing.T, mem *store.MemoryStore, emailType core.ContentType, sent bool) *core.CampaignEmail {
	t.Helper()
	now := time.Now()
	campaign := &core.Campaign{
		ID:        uuid.New(),
		UserID:    "u1",
		Status:    core.CampaignStatusActive,
		Frequency: core.FrequencyWeekly,
		CreatedAt: now,
		UpdatedAt: now,
	}
	email := &core.CampaignEmail{
		ID:                uuid.New(),
		CampaignID:        campaign.ID,
		EmailType:         emailType,
		Subject:           "subject",
		RecipientEmail:    "trainee@example.com",
		ScheduledSendTime: now,
		TrackingID:        uuid.NewString(),
		CreatedAt:         now,
	}
	require.NoError(t, mem.CreateCampaign(context.Background(), campaign, []*core.CampaignEmail{email}))
	if sent {
		require.NoError(t, mem.MarkEmailSent(context.Background(), email.ID, now))
	}
	return email
}

func TestTrackClickRedirects(t *testing.T) {
	th := newTestHarness(t)
	email := seedTrackedEmail(t, th.store, core.ContentTypePhishing, true)

	rec := th.do(t, http.MethodGet, "/track/"+email.TrackingID, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "/phishing-warning")
	assert.Contains(t, loc, "tracking_id="+email.TrackingID)

	got, err := th.store.GetEmailByTrackingID(context.Background(), email.TrackingID)
	require.NoError(t, err)
	assert.NotNil(t, got.ClickedAt)
}

func TestTrackClickUnknownToken(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodGet, "/track/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173/error?message=Invalid+tracking+link", rec.Header().Get("Location"))
}

func TestTrackStats(t *testing.T) {
	th := newTestHarness(t)
	email := seedTrackedEmail(t, th.store, core.ContentTypeLegitimate, true)

	rec := th.do(t, http.MethodGet, "/track/stats/"+email.TrackingID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats core.TrackingStats
	decodeJSON(t, rec, &stats)
	assert.Equal(t, email.TrackingID, stats.TrackingID)
}

func TestUploadEMLScoresMessage(t *testing.T) {
	th := newTestHarness(t)

	eml := "From: security@paypa1-support.com\r\n" +
		"To: trainee@example.com\r\n" +
		"Subject: Account locked\r\n" +
		"\r\n" +
		"Verify your account immediately.\r\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "suspicious.eml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(eml))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/eml", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	th.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Filename  string            `json:"filename"`
		Score     int               `json:"score"`
		Rationale string            `json:"rationale"`
		Metadata  map[string]string `json:"metadata"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "suspicious.eml", resp.Filename)
	assert.Equal(t, 87, resp.Score)
	assert.Equal(t, "Account locked", resp.Metadata["subject"])
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	th := newTestHarness(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("just some text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/eml", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	th.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.True(t, strings.Contains(body["detail"], "accepted formats"), body["detail"])
}

func TestOptInAndSendPhishingNow(t *testing.T) {
	th := newTestHarness(t)

	rec := th.do(t, http.MethodPost, "/training/opt-in", map[string]interface{}{
		"user_id":   "u1",
		"email":     "trainee@example.com",
		"frequency": "weekly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = th.do(t, http.MethodPost, "/email/send-phishing-now", map[string]interface{}{
		"user_id": "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = th.do(t, http.MethodPost, "/email/send-phishing-now", map[string]interface{}{
		"user_id": "nobody",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendPhishingNowRequiresUserID(t *testing.T) {
	th := newTestHarness(t)
	rec := th.do(t, http.MethodPost, "/email/send-phishing-now", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLearnAttempt(t *testing.T) {
	th := newTestHarness(t)

	rec := th.do(t, http.MethodPost, "/training/learn-attempt", map[string]interface{}{
		"user_id": "u1",
		"correct": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = th.do(t, http.MethodPost, "/training/learn-attempt", map[string]interface{}{
		"user_id": "u1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
