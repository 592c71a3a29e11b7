package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP routing table. All routes are served both
// at the root and under the /api prefix so the frontend can use either.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	mountRoutes(r, h)
	r.Route("/api", func(api chi.Router) {
		mountRoutes(api, h)
	})
	return r
}

func mountRoutes(r chi.Router, h *Handlers) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/generate", func(r chi.Router) {
		r.Get("/", h.GenerateInfo)
		r.Post("/message", h.GenerateMessage)
		r.Post("/random", h.GenerateRandom)
		r.Get("/sample-phishing", h.SamplePhishing)
		r.Get("/sample-legitimate", h.SampleLegitimate)
	})

	r.Route("/uploads", func(r chi.Router) {
		r.Get("/", h.UploadsInfo)
		r.Post("/eml", h.UploadEML)
	})

	r.Route("/email", func(r chi.Router) {
		r.Post("/send-phishing-now", h.SendPhishingNow)
		r.Post("/send-emails", h.SendEmails)
		r.Post("/send-test-email", h.SendTestEmail)
	})

	r.Route("/track", func(r chi.Router) {
		r.Get("/{tracking_id}", h.TrackClick)
		r.Get("/stats/{tracking_id}", h.TrackStats)
		r.Post("/phish-report", h.PhishReport)
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/create", h.CreateCampaign)
		r.Get("/user/{user_id}", h.ListUserCampaigns)
		r.Get("/{id}/emails", h.ListCampaignEmails)
		r.Put("/{id}/pause", h.PauseCampaign)
		r.Put("/{id}/resume", h.ResumeCampaign)
		r.Put("/{id}/complete", h.CompleteCampaign)
		r.Delete("/{id}", h.DeleteCampaign)
		r.Get("/{id}/stats", h.CampaignStats)
	})

	r.Route("/training", func(r chi.Router) {
		r.Post("/opt-in", h.OptIn)
		r.Post("/opt-out", h.OptOut)
		r.Post("/learn-attempt", h.LearnAttempt)
	})
}
