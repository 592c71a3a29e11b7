package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phishschool/backend/internal/core"
)

type createCampaignRequest struct {
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	TargetEmail  string   `json:"target_email"`
	Frequency    string   `json:"email_frequency"`
	Difficulty   string   `json:"difficulty_level"`
	Themes       []string `json:"preferred_themes"`
	EmailCount   int      `json:"email_count"`
	DurationDays int      `json:"duration_days"`
}

// CreateCampaign handles POST /campaigns/create
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Frequency != "" && !core.ValidFrequency(req.Frequency) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid email_frequency %q: must be daily, weekly or monthly", req.Frequency))
		return
	}
	if req.Difficulty != "" && !core.ValidDifficulty(req.Difficulty) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid difficulty_level %q: must be easy, medium or hard", req.Difficulty))
		return
	}
	if req.EmailCount <= 0 {
		writeError(w, http.StatusBadRequest, "email_count must be positive")
		return
	}

	recipient := req.TargetEmail
	if recipient == "" {
		user, err := h.store.GetUser(r.Context(), req.UserID)
		if err != nil || user.Email == "" {
			writeError(w, http.StatusNotFound, "no email address known for user "+req.UserID)
			return
		}
		recipient = user.Email
	}

	campaign, err := h.campaigns.Create(r.Context(), recipient, core.CreateParams{
		UserID:       req.UserID,
		Name:         req.Name,
		Frequency:    core.Frequency(req.Frequency),
		Difficulty:   core.Difficulty(req.Difficulty),
		Themes:       req.Themes,
		EmailCount:   req.EmailCount,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func campaignID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign ID: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// ListUserCampaigns handles GET /campaigns/user/{user_id}
func (h *Handlers) ListUserCampaigns(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	campaigns, err := h.campaigns.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []*core.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// ListCampaignEmails handles GET /campaigns/{id}/emails
func (h *Handlers) ListCampaignEmails(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	emails, err := h.campaigns.Emails(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if emails == nil {
		emails = []*core.CampaignEmail{}
	}
	writeJSON(w, http.StatusOK, emails)
}

// PauseCampaign handles PUT /campaigns/{id}/pause
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.campaigns.Pause, "paused")
}

// ResumeCampaign handles PUT /campaigns/{id}/resume
func (h *Handlers) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.campaigns.Resume, "active")
}

// CompleteCampaign handles PUT /campaigns/{id}/complete
func (h *Handlers) CompleteCampaign(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.campaigns.Complete, "completed")
}

func (h *Handlers) setStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error, status string) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id.String(),
		"status": status,
	})
}

// DeleteCampaign handles DELETE /campaigns/{id}
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := h.campaigns.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "deleted": "true"})
}

// CampaignStats handles GET /campaigns/{id}/stats
func (h *Handlers) CampaignStats(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	stats, err := h.campaigns.Stats(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
