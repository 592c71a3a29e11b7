package httpapi

import (
	"fmt"
	"net/http"

	"github.com/phishschool/backend/internal/core"
)

type optInRequest struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Frequency string `json:"frequency"`
}

// OptIn handles POST /training/opt-in
func (h *Handlers) OptIn(w http.ResponseWriter, r *http.Request) {
	var req optInRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Frequency != "" && !core.ValidFrequency(req.Frequency) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid frequency %q: must be daily, weekly or monthly", req.Frequency))
		return
	}

	if err := h.store.SetOptIn(r.Context(), req.UserID, true, core.Frequency(req.Frequency)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if req.Email != "" {
		user, err := h.store.GetUser(r.Context(), req.UserID)
		if err == nil {
			user.Email = req.Email
			if err := h.store.UpsertUser(r.Context(), user); err != nil {
				h.writeServiceError(w, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  req.UserID,
		"opted_in": true,
	})
}

type optOutRequest struct {
	UserID string `json:"user_id"`
}

// OptOut handles POST /training/opt-out
func (h *Handlers) OptOut(w http.ResponseWriter, r *http.Request) {
	var req optOutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.store.SetOptIn(r.Context(), req.UserID, false, ""); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  req.UserID,
		"opted_in": false,
	})
}

type learnAttemptRequest struct {
	UserID  string `json:"user_id"`
	Correct *bool  `json:"correct"`
}

// LearnAttempt handles POST /training/learn-attempt: records one answer
// in the learning module and returns the user's running counters
func (h *Handlers) LearnAttempt(w http.ResponseWriter, r *http.Request) {
	var req learnAttemptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Correct == nil {
		writeError(w, http.StatusBadRequest, "correct is required")
		return
	}

	if err := h.store.RecordLearnAttempt(r.Context(), req.UserID, *req.Correct); err != nil {
		h.writeServiceError(w, err)
		return
	}
	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        user.UserID,
		"learn_attempts": user.LearnAttempts,
		"learn_correct":  user.LearnCorrect,
	})
}
