package httpapi

import (
	"fmt"
	"math/rand"
	"net/http"

	"github.com/phishschool/backend/internal/core"
)

type generateRequest struct {
	MessageType  string `json:"message_type"`
	ContentType  string `json:"content_type"`
	Difficulty   string `json:"difficulty"`
	Theme        string `json:"theme"`
	CustomPrompt string `json:"custom_prompt"`
}

func (req *generateRequest) validate() (*core.GenerationRequest, error) {
	if !core.ValidMessageType(req.MessageType) {
		return nil, fmt.Errorf("invalid message_type %q: must be email or sms", req.MessageType)
	}
	if !core.ValidContentType(req.ContentType) {
		return nil, fmt.Errorf("invalid content_type %q: must be phishing or legitimate", req.ContentType)
	}
	difficulty := core.DifficultyMedium
	if req.Difficulty != "" {
		if !core.ValidDifficulty(req.Difficulty) {
			return nil, fmt.Errorf("invalid difficulty %q: must be easy, medium or hard", req.Difficulty)
		}
		difficulty = core.Difficulty(req.Difficulty)
	}
	return &core.GenerationRequest{
		MessageType:  core.MessageType(req.MessageType),
		ContentType:  core.ContentType(req.ContentType),
		Difficulty:   difficulty,
		Theme:        req.Theme,
		CustomPrompt: req.CustomPrompt,
	}, nil
}

// GenerateMessage handles POST /generate/message
func (h *Handlers) GenerateMessage(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	genReq, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.generator.Generate(r.Context(), genReq)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// GenerateRandom handles POST /generate/random: random type, content
// and difficulty rolled server-side
func (h *Handlers) GenerateRandom(w http.ResponseWriter, r *http.Request) {
	messageTypes := []core.MessageType{core.MessageTypeEmail, core.MessageTypeSMS}
	contentTypes := []core.ContentType{core.ContentTypePhishing, core.ContentTypeLegitimate}
	difficulties := []core.Difficulty{core.DifficultyEasy, core.DifficultyMedium, core.DifficultyHard}
	themes := []string{"banking", "delivery", "it-support", "social-media", "invoice", "hr"}

	genReq := &core.GenerationRequest{
		MessageType: messageTypes[rand.Intn(len(messageTypes))],
		ContentType: contentTypes[rand.Intn(len(contentTypes))],
		Difficulty:  difficulties[rand.Intn(len(difficulties))],
		Theme:       themes[rand.Intn(len(themes))],
	}

	msg, err := h.generator.Generate(r.Context(), genReq)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// GenerateInfo handles GET /generate/: documents the accepted enums
func (h *Handlers) GenerateInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message_types": []string{"email", "sms"},
		"content_types": []string{"phishing", "legitimate"},
		"difficulties":  []string{"easy", "medium", "hard"},
		"endpoints": []string{
			"POST /generate/message",
			"POST /generate/random",
			"GET /generate/sample-phishing",
			"GET /generate/sample-legitimate",
		},
	})
}

// SamplePhishing handles GET /generate/sample-phishing
func (h *Handlers) SamplePhishing(w http.ResponseWriter, r *http.Request) {
	h.sample(w, r, core.ContentTypePhishing)
}

// SampleLegitimate handles GET /generate/sample-legitimate
func (h *Handlers) SampleLegitimate(w http.ResponseWriter, r *http.Request) {
	h.sample(w, r, core.ContentTypeLegitimate)
}

func (h *Handlers) sample(w http.ResponseWriter, r *http.Request, contentType core.ContentType) {
	msg, err := h.generator.Generate(r.Context(), &core.GenerationRequest{
		MessageType: core.MessageTypeEmail,
		ContentType: contentType,
		Difficulty:  core.DifficultyMedium,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
