package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

func TestNotify(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Notify(context.Background(), &triage.FinalResponse{
		ConversationID: "c1",
		TurnID:         "t1",
		Text:           "Call emergency services now.",
		Severity:       triage.SeveritySevere,
		Emergency:      true,
		Facilities:     []triage.Facility{{DisplayName: "City Hospital"}},
	})
	if err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	var msg map[string]any
	if err := json.Unmarshal(gotBody, &msg); err != nil {
		t.Fatalf("webhook body is not JSON: %v", err)
	}
	if _, ok := msg["blocks"]; !ok {
		t.Error("webhook payload missing blocks")
	}
	body := string(gotBody)
	if !strings.Contains(body, "Severe") || !strings.Contains(body, "c1") {
		t.Errorf("payload missing severity or conversation id: %s", body)
	}
}

func TestNotifyNoWebhookIsNoop(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Notify(context.Background(), &triage.FinalResponse{}); err != nil {
		t.Fatalf("Notify with empty URL: %v", err)
	}
}

func TestNotifyWebhookFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Notify(context.Background(), &triage.FinalResponse{}); err == nil {
		t.Fatal("want error on non-2xx webhook response")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate(strings.Repeat("a", 50), 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q", got)
	}
}
