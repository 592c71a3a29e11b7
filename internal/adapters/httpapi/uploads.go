package httpapi

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/mailparse"
	"github.com/phishschool/backend/internal/prompt"
)

const maxUploadBytes = 10 << 20 // 10MB

var imageMIMEByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var supportedImageMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

const acceptedFormatsMsg = "unsupported file type: accepted formats are .eml, .png, .jpg, .jpeg, .webp, .gif"

type uploadResponse struct {
	Filename  string            `json:"filename"`
	Score     int               `json:"score"`
	Rationale string            `json:"rationale"`
	Metadata  map[string]string `json:"metadata"`
}

// UploadsInfo handles GET /uploads/
func (h *Handlers) UploadsInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"endpoint":         "POST /uploads/eml",
		"accepted_formats": []string{".eml", ".png", ".jpg", ".jpeg", ".webp", ".gif"},
		"max_size_bytes":   maxUploadBytes,
	})
}

// UploadEML handles POST /uploads/eml: scores an uploaded .eml message
// or screenshot image for phishing likelihood
func (h *Handlers) UploadEML(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusBadRequest, "uploaded file exceeds the size limit")
		return
	}

	filename := header.Filename
	contentType := header.Header.Get("Content-Type")
	ext := strings.ToLower(path.Ext(filename))

	switch {
	case ext == ".eml" || contentType == "message/rfc822":
		h.scoreEML(w, r, filename, data)
	case supportedImageMIME[contentType]:
		h.scoreImage(w, r, filename, contentType, data)
	case imageMIMEByExt[ext] != "":
		h.scoreImage(w, r, filename, imageMIMEByExt[ext], data)
	default:
		writeError(w, http.StatusBadRequest, acceptedFormatsMsg)
	}
}

func (h *Handlers) scoreEML(w http.ResponseWriter, r *http.Request, filename string, data []byte) {
	parsed, err := mailparse.Parse(data, h.textProc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse .eml file: "+err.Error())
		return
	}

	result, err := h.scorer.ScoreText(r.Context(), parsed.Summary(h.textProc, h.maxBodyChars))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &uploadResponse{
		Filename:  filename,
		Score:     result.Score,
		Rationale: result.Rationale,
		Metadata: map[string]string{
			"subject":      parsed.Subject,
			"from":         parsed.From,
			"to":           parsed.To,
			"date":         parsed.Date,
			"body_preview": parsed.BodyPreview(200),
		},
	})
}

func (h *Handlers) scoreImage(w http.ResponseWriter, r *http.Request, filename, mimeType string, data []byte) {
	result, err := h.scorer.ScoreImage(r.Context(), prompt.ImageScoring(filename), &core.ImagePayload{
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &uploadResponse{
		Filename:  filename,
		Score:     result.Score,
		Rationale: result.Rationale,
		Metadata: map[string]string{
			"content_type": mimeType,
			"size_bytes":   strconv.Itoa(len(data)),
		},
	})
}
