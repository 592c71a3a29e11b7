package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// TrackClick handles GET /track/{tracking_id}: records the click and
// redirects the browser to the appropriate frontend page
func (h *Handlers) TrackClick(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "tracking_id")
	outcome := h.tracker.HandleClick(r.Context(), trackingID)
	http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
}

// TrackStats handles GET /track/stats/{tracking_id}
func (h *Handlers) TrackStats(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "tracking_id")
	stats, err := h.tracker.Stats(r.Context(), trackingID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type phishReportRequest struct {
	TrackingID string `json:"tracking_id"`
}

// PhishReport handles POST /track/phish-report: bumps the owning
// user's phished counter for a tracked email
func (h *Handlers) PhishReport(w http.ResponseWriter, r *http.Request) {
	var req phishReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TrackingID == "" {
		writeError(w, http.StatusBadRequest, "tracking_id is required")
		return
	}

	if err := h.tracker.ReportPhished(r.Context(), req.TrackingID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"tracking_id": req.TrackingID,
		"recorded":    "true",
	})
}
