package triage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// fallbackText is the fixed, user-safe message returned for any failed
// turn. The structured error is logged; internals never reach the user.
const fallbackText = "I'm sorry, I wasn't able to process that just now. Please try again in a moment. If this is an emergency, call your local emergency number immediately."

// notifyTimeout bounds the best-effort emergency notification.
const notifyTimeout = 10 * time.Second

// Notifier delivers emergency-turn escalations. Best effort: failures
// are logged, never surfaced to the turn.
type Notifier interface {
	Notify(ctx context.Context, final *FinalResponse) error
}

// ImageReleaser deletes a spooled image payload once its turn is done.
type ImageReleaser interface {
	Release(path string) error
}

// Service is the business boundary for triage conversations. It owns
// conversation state: turns within a conversation run strictly
// sequentially, different conversations run in parallel, and state
// advances only after a turn fully validates.
type Service struct {
	store    Store
	engine   *Engine
	logger   log.Logger
	window   int
	notifier Notifier
	releaser ImageReleaser

	mu    sync.Mutex
	locks map[string]*sync.Mutex // conversation ID -> turn serialization lock
}

// NewService creates a triage service retaining at most window turns
// per conversation. notifier and releaser may be nil.
func NewService(store Store, engine *Engine, logger log.Logger, window int, notifier Notifier, releaser ImageReleaser) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if window <= 0 {
		window = 20
	}
	return &Service{
		store:    store,
		engine:   engine,
		logger:   logger,
		window:   window,
		notifier: notifier,
		releaser: releaser,
		locks:    make(map[string]*sync.Mutex),
	}
}

// HandleTurn runs one full turn for the conversation and returns the
// FinalResponse for the presentation layer. Turn failures are converted
// to the fixed fallback response; the returned error is reserved for
// infrastructure problems (store unavailable, bad input).
func (s *Service) HandleTurn(ctx context.Context, conversationID string, turn *UserTurn) (*FinalResponse, error) {
	// Image payloads are scoped to the turn; release on every exit path.
	if turn != nil && turn.Image != nil && s.releaser != nil {
		img := turn.Image
		defer func() {
			if err := s.releaser.Release(img.Path); err != nil {
				s.logger.Warn(ctx, "image release failed", "path", img.Path, "error", err.Error())
			}
		}()
	}

	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if turn == nil || strings.TrimSpace(turn.Text) == "" {
		return nil, fmt.Errorf("turn text is required")
	}

	unlock := s.lockConversation(conversationID)
	defer unlock()

	conv, ok, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !ok {
		conv = &Conversation{ID: conversationID, CreatedAt: time.Now()}
	}

	turnID := ulid.Make().String()
	L := s.logger.With("conversation_id", conversationID, "turn_id", turnID)

	final, runErr := s.engine.RunTurn(ctx, conversationID, turnID, turn, conv.Turns)
	now := time.Now()

	if runErr != nil {
		// Terminal turn failure: append the failure record so history
		// does not silently lose the turn's existence, but advance
		// nothing else.
		conv.Turns = append(conv.Turns, TurnRecord{
			ID:        turnID,
			Input:     turn.Text,
			Failed:    true,
			CreatedAt: now,
		})
		conv.UpdatedAt = now
		s.trimWindow(conv)
		if err := s.store.Put(ctx, conv); err != nil {
			L.Error(ctx, err, "failed to persist failure record")
		}
		L.Error(ctx, runErr, "turn ended in fallback")
		return s.fallback(conversationID, turnID), nil
	}

	conv.Turns = append(conv.Turns, TurnRecord{
		ID:        turnID,
		Input:     turn.Text,
		Response:  final.Text,
		Severity:  final.Severity,
		CreatedAt: now,
	})
	conv.LastSeverity = final.Severity
	if turn.Location != nil {
		loc := *turn.Location
		conv.LastLocation = &loc
	}
	conv.UpdatedAt = now
	s.trimWindow(conv)

	if err := s.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("persist conversation: %w", err)
	}

	if final.Emergency && s.notifier != nil {
		// fire and forget - the turn does not wait on escalation
		go func(f *FinalResponse) {
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			defer cancel()
			if err := s.notifier.Notify(nctx, f); err != nil {
				s.logger.Warn(nctx, "emergency notification failed", "conversation_id", f.ConversationID, "error", err.Error())
			}
		}(final)
	}

	return final, nil
}

// GetConversation retrieves stored conversation state by ID.
func (s *Service) GetConversation(ctx context.Context, id string) (*Conversation, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) fallback(conversationID, turnID string) *FinalResponse {
	return &FinalResponse{
		ConversationID: conversationID,
		TurnID:         turnID,
		Text:           fallbackText,
		Severity:       SeverityOther,
		Facilities:     []Facility{},
	}
}

// trimWindow enforces the bounded history window, evicting oldest
// turns first.
func (s *Service) trimWindow(conv *Conversation) {
	if len(conv.Turns) > s.window {
		conv.Turns = conv.Turns[len(conv.Turns)-s.window:]
	}
}

// lockConversation serializes turns within one conversation.
func (s *Service) lockConversation(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
