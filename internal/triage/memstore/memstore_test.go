package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

func TestGetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	conv, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok || conv != nil {
		t.Errorf("Get(missing) = %v, %v, want nil, false", conv, ok)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()
	conv := &triage.Conversation{
		ID: "c1",
		Turns: []triage.TurnRecord{
			{ID: "t1", Input: "headache", Severity: triage.SeverityMild, CreatedAt: now},
		},
		LastSeverity: triage.SeverityMild,
		LastLocation: &triage.Location{Latitude: 48.85, Longitude: 2.35},
		CreatedAt:    now,
	}

	if err := s.Put(ctx, conv); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := s.Get(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.LastSeverity != triage.SeverityMild || len(got.Turns) != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestStoredStateIsIsolated(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	conv := &triage.Conversation{
		ID:           "c1",
		Turns:        []triage.TurnRecord{{ID: "t1", Input: "original"}},
		LastLocation: &triage.Location{Latitude: 1, Longitude: 2},
	}
	if err := s.Put(ctx, conv); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	// mutating the caller's copy must not affect stored state
	conv.Turns[0].Input = "mutated"
	conv.LastLocation.Latitude = 99

	got, _, _ := s.Get(ctx, "c1")
	if got.Turns[0].Input != "original" {
		t.Errorf("stored turn input = %q, want isolation from caller mutation", got.Turns[0].Input)
	}
	if got.LastLocation.Latitude != 1 {
		t.Errorf("stored location = %+v, want isolation from caller mutation", got.LastLocation)
	}

	// and mutating what Get returned must not affect the store either
	got.Turns[0].Input = "mutated again"
	got2, _, _ := s.Get(ctx, "c1")
	if got2.Turns[0].Input != "original" {
		t.Errorf("stored turn input = %q after reader mutation", got2.Turns[0].Input)
	}
}
