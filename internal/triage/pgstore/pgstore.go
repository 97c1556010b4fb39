// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/medtriage/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists conversation state in PostgreSQL. The full state is
// serialized as one JSONB document per conversation; the window policy
// lives in the service, so rows stay small.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Get retrieves a conversation by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Conversation, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var state []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM conversations WHERE id = $1`, id,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("select conversation: %w", err)
	}

	var conv triage.Conversation
	if err := json.Unmarshal(state, &conv); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("decode conversation state: %w", err)
	}
	return &conv, true, nil
}

// Put upserts a conversation's full state.
func (s *Store) Put(ctx context.Context, c *triage.Conversation) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	state, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode conversation state: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		c.ID, state, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}
