package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/utils"
	"go.uber.org/zap"
)

// Handlers carries the services behind the HTTP surface
type Handlers struct {
	generator    *core.Generator
	scorer       *core.Scorer
	campaigns    *core.Campaigns
	dispatcher   *core.Dispatcher
	tracker      *core.Tracker
	store        core.Store
	textProc     *utils.TextProcessor
	maxBodyChars int
	logger       *zap.Logger
}

// NewHandlers creates the HTTP handler set
func NewHandlers(
	generator *core.Generator,
	scorer *core.Scorer,
	campaigns *core.Campaigns,
	dispatcher *core.Dispatcher,
	tracker *core.Tracker,
	store core.Store,
	textProc *utils.TextProcessor,
	maxBodyChars int,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		generator:    generator,
		scorer:       scorer,
		campaigns:    campaigns,
		dispatcher:   dispatcher,
		tracker:      tracker,
		store:        store,
		textProc:     textProc,
		maxBodyChars: maxBodyChars,
		logger:       logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeServiceError maps core errors onto the HTTP taxonomy: not-found
// to 404, LLM backend failures to 502, everything else to 500 with the
// error text in the body.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrLLMBackend), errors.Is(err, core.ErrUnsupportedImage):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// Root answers the service banner on / and /api
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "phishschool-backend",
		"status":  "ok",
	})
}

// Health answers liveness probes
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
