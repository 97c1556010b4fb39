package triage

import "context"

// Store is the persistence interface for conversation state. The
// service owns the history window policy; implementations persist
// whatever Conversation they are handed.
type Store interface {
	Get(ctx context.Context, id string) (*Conversation, bool, error)
	Put(ctx context.Context, c *Conversation) error
}
