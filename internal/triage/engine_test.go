package triage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedGateway returns canned responses in call order and records
// every request it sees.
type scriptedGateway struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []*GatewayRequest
}

func (g *scriptedGateway) Generate(_ context.Context, req *GatewayRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.requests)
	g.requests = append(g.requests, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("scripted gateway exhausted")
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

const (
	mildVerdict   = `{"Severity": "Mild", "Response": "minor symptoms"}`
	severeVerdict = `{"Severity": "Severe", "Response": "urgent symptoms"}`
	mildReply     = `{"Response": "Rest, hydrate, and monitor your temperature."}`
	severeReply   = `{"Response": "Call emergency services now."}`
)

func newTestEngine(gw Gateway, lookup Lookup) *Engine {
	enricher := NewEnricher(lookup, 5, time.Second, nil)
	return NewEngine(gw, enricher, nil, EngineHooks{})
}

func TestRunTurnMild(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{responses: []string{mildVerdict, mildReply}}
	lookup := &stubLookup{}
	e := newTestEngine(gw, lookup)

	final, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{
		Text:     "slight headache since this morning",
		Location: &Location{Latitude: 48.85, Longitude: 2.35},
	}, nil)
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	if final.Severity != SeverityMild {
		t.Errorf("severity = %q, want Mild", final.Severity)
	}
	if final.Emergency {
		t.Error("mild turn must not set the emergency flag")
	}
	if final.Facilities == nil || len(final.Facilities) != 0 {
		t.Errorf("facilities = %v, want empty non-nil slice", final.Facilities)
	}
	if gw.callCount() != 2 {
		t.Errorf("gateway called %d times, want 2 (classifier + handler)", gw.callCount())
	}
	// mild never triggers enrichment, location or not
	if lookup.callCount() != 0 {
		t.Errorf("lookup called %d times on a mild turn, want 0", lookup.callCount())
	}
}

func TestRunTurnSevereWithLocation(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{responses: []string{severeVerdict, severeReply}}
	lookup := &stubLookup{results: map[FacilityCategory][]Facility{
		CategoryHospital: {{DisplayName: "City Hospital", Category: CategoryHospital}},
	}}
	e := newTestEngine(gw, lookup)

	final, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{
		Text:     "crushing chest pain",
		Location: &Location{Latitude: 48.85, Longitude: 2.35},
	}, nil)
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	if !final.Emergency {
		t.Error("severe turn must set the emergency flag")
	}
	if len(final.Facilities) != 1 {
		t.Fatalf("facilities = %v, want the hospital", final.Facilities)
	}
	if !strings.Contains(final.Text, "Nearby facilities:") ||
		!strings.Contains(final.Text, "City Hospital") {
		t.Errorf("final text missing facility listing:\n%s", final.Text)
	}
	if lookup.callCount() != len(enrichmentCategories) {
		t.Errorf("lookup called %d times, want %d", lookup.callCount(), len(enrichmentCategories))
	}
}

func TestRunTurnSevereWithoutLocation(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{responses: []string{severeVerdict, severeReply}}
	lookup := &stubLookup{}
	e := newTestEngine(gw, lookup)

	final, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{Text: "severe pain"}, nil)
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}
	if !final.Emergency {
		t.Error("severe turn must set the emergency flag even without facilities")
	}
	if lookup.callCount() != 0 {
		t.Errorf("lookup called %d times without coordinates, want 0", lookup.callCount())
	}
}

func TestRunTurnClassifierRetry(t *testing.T) {
	t.Parallel()

	// first classifier call fails at transport, the retry succeeds
	gw := &scriptedGateway{
		errs:      []error{errors.New("connection reset")},
		responses: []string{"", mildVerdict, mildReply},
	}
	e := newTestEngine(gw, nil)

	final, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{Text: "sore throat"}, nil)
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}
	if final.Severity != SeverityMild {
		t.Errorf("severity = %q, want Mild", final.Severity)
	}
	if gw.callCount() != 3 {
		t.Errorf("gateway called %d times, want 3 (failed classify, classify, handle)", gw.callCount())
	}
}

func TestRunTurnClassificationExhausted(t *testing.T) {
	t.Parallel()

	// schema violations burn retry budget the same way transport errors do
	bad := `{"Severity": "Critical", "Response": "??"}`
	gw := &scriptedGateway{responses: []string{bad, bad}}
	e := newTestEngine(gw, nil)

	_, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{Text: "hm"}, nil)
	if !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("error = %v, want ErrClassificationFailed", err)
	}
	if gw.callCount() != ClassifierAttempts {
		t.Errorf("gateway called %d times, want exactly %d", gw.callCount(), ClassifierAttempts)
	}
}

func TestRunTurnHandlerFailure(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{responses: []string{mildVerdict, `{"Response": ""}`}}
	e := newTestEngine(gw, nil)

	_, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{Text: "hm"}, nil)
	if !errors.Is(err, ErrHandlerFailed) {
		t.Fatalf("error = %v, want ErrHandlerFailed", err)
	}
	// no handler retry: one classify, one handle
	if gw.callCount() != 2 {
		t.Errorf("gateway called %d times, want 2", gw.callCount())
	}
}

func TestRunTurnDeterministic(t *testing.T) {
	t.Parallel()

	run := func() *FinalResponse {
		gw := &scriptedGateway{responses: []string{mildVerdict, mildReply}}
		final, err := newTestEngine(gw, nil).RunTurn(context.Background(),
			"c1", "t1", &UserTurn{Text: "slight headache"}, nil)
		if err != nil {
			t.Fatalf("RunTurn error: %v", err)
		}
		return final
	}

	a, b := run(), run()
	if a.Text != b.Text || a.Severity != b.Severity || a.Emergency != b.Emergency {
		t.Errorf("identical inputs produced different responses:\n%+v\n%+v", a, b)
	}
}

func TestRunTurnHooks(t *testing.T) {
	t.Parallel()

	var (
		mu           sync.Mutex
		gatewayCalls int
		completed    []bool
	)
	hooks := EngineHooks{
		OnGatewayCall: func(_ string, _ float64, _ bool) {
			mu.Lock()
			gatewayCalls++
			mu.Unlock()
		},
		OnTurnComplete: func(_ Severity, failed bool, _ float64) {
			mu.Lock()
			completed = append(completed, failed)
			mu.Unlock()
		},
	}

	gw := &scriptedGateway{responses: []string{mildVerdict, mildReply}}
	e := NewEngine(gw, NewEnricher(nil, 5, 0, nil), nil, hooks)

	if _, err := e.RunTurn(context.Background(), "c1", "t1", &UserTurn{Text: "hi"}, nil); err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	gwFail := &scriptedGateway{errs: []error{errors.New("down"), errors.New("down")}}
	e = NewEngine(gwFail, NewEnricher(nil, 5, 0, nil), nil, hooks)
	if _, err := e.RunTurn(context.Background(), "c1", "t2", &UserTurn{Text: "hi"}, nil); err == nil {
		t.Fatal("want error from failing gateway")
	}

	mu.Lock()
	defer mu.Unlock()
	if gatewayCalls != 4 {
		t.Errorf("OnGatewayCall fired %d times, want 4", gatewayCalls)
	}
	if len(completed) != 2 || completed[0] != false || completed[1] != true {
		t.Errorf("OnTurnComplete failed flags = %v, want [false true]", completed)
	}
}
