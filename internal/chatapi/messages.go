package chatapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

// maxImageBytes caps decoded image payloads (the outer MaxBody
// middleware caps the request as a whole).
const maxImageBytes = 4 << 20 // 4MB

var allowedMediaTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// messageRequest is one inbound user turn.
type messageRequest struct {
	Text           string   `json:"text"`
	ImageB64       string   `json:"image_b64,omitempty"`
	ImageMediaType string   `json:"image_media_type,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
}

func (a *API) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("medtriage.conversation.id", id))

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
		return
	}

	turn := &triage.UserTurn{Text: req.Text}

	if req.Latitude != nil && req.Longitude != nil {
		turn.Location = &triage.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	if req.ImageB64 != "" {
		img, ok := a.spoolImage(w, r, &req)
		if !ok {
			return
		}
		turn.Image = img
	}

	final, err := a.svc.HandleTurn(r.Context(), id, turn)
	if err != nil {
		a.logger.Error(r.Context(), err, "turn handling failed", "conversation_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("medtriage.severity", string(final.Severity)),
		attribute.Bool("medtriage.emergency", final.Emergency),
	)

	writeJSON(w, http.StatusOK, final)
}

// spoolImage validates and spools the inbound image payload. On failure
// it writes the error response and returns ok=false.
func (a *API) spoolImage(w http.ResponseWriter, r *http.Request, req *messageRequest) (*triage.Image, bool) {
	if a.spool == nil {
		http.Error(w, `{"error":"image input is not enabled"}`, http.StatusBadRequest)
		return nil, false
	}
	if _, ok := allowedMediaTypes[req.ImageMediaType]; !ok {
		http.Error(w, `{"error":"unsupported image media type"}`, http.StatusBadRequest)
		return nil, false
	}

	data, err := base64.StdEncoding.DecodeString(req.ImageB64)
	if err != nil {
		http.Error(w, `{"error":"invalid image encoding"}`, http.StatusBadRequest)
		return nil, false
	}
	if len(data) > maxImageBytes {
		http.Error(w, `{"error":"image too large"}`, http.StatusRequestEntityTooLarge)
		return nil, false
	}

	path, err := a.spool.Write(data)
	if err != nil {
		a.logger.Error(r.Context(), err, "image spool failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return nil, false
	}

	return &triage.Image{Path: path, MediaType: req.ImageMediaType}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
