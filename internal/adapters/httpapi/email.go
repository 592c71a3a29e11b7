package httpapi

import (
	"fmt"
	"net/http"

	"github.com/phishschool/backend/internal/core"
)

type sendPhishingNowRequest struct {
	UserID     string `json:"user_id"`
	Difficulty string `json:"difficulty"`
	Theme      string `json:"theme"`
}

// SendPhishingNow handles POST /email/send-phishing-now
func (h *Handlers) SendPhishingNow(w http.ResponseWriter, r *http.Request) {
	var req sendPhishingNowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	difficulty := core.Difficulty(req.Difficulty)
	if req.Difficulty != "" && !core.ValidDifficulty(req.Difficulty) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid difficulty %q: must be easy, medium or hard", req.Difficulty))
		return
	}

	sent, err := h.dispatcher.SendPhishingNow(r.Context(), req.UserID, difficulty, req.Theme)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": req.UserID,
		"sent":    sent,
	})
}

// SendEmails handles POST /email/send-emails: runs one dispatch sweep
// over due campaign emails and due opted-in users
func (h *Handlers) SendEmails(w http.ResponseWriter, r *http.Request) {
	result := h.dispatcher.SendDue(r.Context())
	writeJSON(w, http.StatusOK, result)
}

type sendTestEmailRequest struct {
	Recipient string `json:"recipient"`
}

// SendTestEmail handles POST /email/send-test-email
func (h *Handlers) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req sendTestEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	sent := h.dispatcher.SendTest(r.Context(), req.Recipient)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipient": req.Recipient,
		"sent":      sent,
	})
}
