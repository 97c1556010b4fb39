// Package memstore provides an in-memory implementation of
// triage.Store. Suitable for dev/testing and single-node deployments.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

// Store holds conversations in memory, keyed by conversation ID.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*triage.Conversation
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*triage.Conversation),
	}
}

// Get retrieves a conversation by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, false, nil
	}
	return copyConversation(c), true, nil
}

// Put stores a copy of the conversation.
func (s *Store) Put(_ context.Context, c *triage.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = copyConversation(c)
	return nil
}

func copyConversation(c *triage.Conversation) *triage.Conversation {
	cp := *c
	cp.Turns = make([]triage.TurnRecord, len(c.Turns))
	copy(cp.Turns, c.Turns)
	if c.LastLocation != nil {
		loc := *c.LastLocation
		cp.LastLocation = &loc
	}
	return &cp
}
