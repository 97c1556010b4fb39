// Package chatapi is the HTTP presentation boundary: one user turn in,
// one final response out.
package chatapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

// TriageService defines the business operations chatapi needs.
type TriageService interface {
	HandleTurn(ctx context.Context, conversationID string, turn *triage.UserTurn) (*triage.FinalResponse, error)
	GetConversation(ctx context.Context, id string) (*triage.Conversation, bool, error)
}

// ImageSpool stores an inbound image payload for the turn's lifetime.
type ImageSpool interface {
	Write(data []byte) (string, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
	spool  ImageSpool
}

// New creates a new API handler. spool may be nil when image input is
// disabled.
func New(logger log.Logger, svc TriageService, spool ImageSpool) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		spool:  spool,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/conversations/{id}/messages", a.handlePostMessage)
		r.Get("/conversations/{id}", a.handleGetConversation)
	})
}

func (a *API) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, ok, err := a.svc.GetConversation(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get conversation", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
