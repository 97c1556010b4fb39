package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/medtriage/internal/triage")

// Phase is one state of the per-turn state machine. A turn moves
// AwaitingInput -> Sanitizing -> Classifying -> Routing -> Handling
// (-> Enriching) -> Formatting -> Validating -> AwaitingInput. The
// loop back to AwaitingInput denotes next-turn readiness, not
// recursion within a turn.
type Phase string

const (
	PhaseAwaitingInput Phase = "awaiting_input"
	PhaseSanitizing    Phase = "sanitizing"
	PhaseClassifying   Phase = "classifying"
	PhaseRouting       Phase = "routing"
	PhaseHandling      Phase = "handling"
	PhaseEnriching     Phase = "enriching"
	PhaseFormatting    Phase = "formatting"
	PhaseValidating    Phase = "validating"
)

// EngineHooks receives engine lifecycle events (wired to Prometheus by
// Metrics.Hooks). Nil members are skipped.
type EngineHooks struct {
	OnGatewayCall  func(node string, duration float64, failed bool)
	OnEnrichment   func(count int)
	OnTurnComplete func(severity Severity, failed bool, duration float64)
}

// Engine executes one turn to completion: pure orchestration over the
// gateway and enricher, no store access and no conversation mutation.
type Engine struct {
	gateway  Gateway
	enricher *Enricher
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates a triage engine with the given dependencies.
func NewEngine(gateway Gateway, enricher *Enricher, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		gateway:  gateway,
		enricher: enricher,
		logger:   logger,
		hooks:    hooks,
	}
}

// RunTurn processes one user turn against the retained history window
// and returns a validated FinalResponse, or a terminal error wrapping
// ErrClassificationFailed or ErrHandlerFailed. History is read-only;
// advancing conversation state is the service's job.
func (e *Engine) RunTurn(ctx context.Context, conversationID, turnID string, turn *UserTurn, history []TurnRecord) (*FinalResponse, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "triage.turn")
	defer span.End()
	span.SetAttributes(attribute.String("medtriage.conversation.id", conversationID))

	L := e.logger.With("conversation_id", conversationID, "turn_id", turnID)

	fail := func(phase Phase, severity Severity, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		L.Error(ctx, err, "turn failed", "node", string(phase))
		if e.hooks.OnTurnComplete != nil {
			e.hooks.OnTurnComplete(severity, true, time.Since(start).Seconds())
		}
		return err
	}

	in := Sanitize(turn, history)

	verdict, err := e.classify(ctx, in)
	if err != nil {
		return nil, fail(PhaseClassifying, SeverityOther, err)
	}
	span.SetAttributes(attribute.String("medtriage.severity", string(verdict.Severity)))

	path := pathForSeverity(verdict.Severity)
	L.Info(ctx, "routed turn", "severity", string(verdict.Severity), "path", string(path))

	// The handler's gateway call and the facility lookup are
	// independent I/O; issue them concurrently and join before
	// formatting.
	facilityCh := make(chan []Facility, 1)
	if verdict.Severity.NeedsEnrichment() && in.Location != nil {
		go func() {
			facilityCh <- e.enricher.Enrich(ctx, in.Location)
		}()
	} else {
		facilityCh <- nil
	}

	handled, err := e.handle(ctx, path, in)
	if err != nil {
		<-facilityCh
		return nil, fail(PhaseHandling, verdict.Severity, err)
	}

	facilities := <-facilityCh
	if e.hooks.OnEnrichment != nil && verdict.Severity.NeedsEnrichment() {
		e.hooks.OnEnrichment(len(facilities))
	}

	final := FormatResponse(conversationID, turnID, verdict, handled, facilities)

	if err := validateFinal(final); err != nil {
		return nil, fail(PhaseValidating, verdict.Severity, fmt.Errorf("%w: %v", ErrHandlerFailed, err))
	}

	if e.hooks.OnTurnComplete != nil {
		e.hooks.OnTurnComplete(verdict.Severity, false, time.Since(start).Seconds())
	}
	L.Info(ctx, "turn complete",
		"severity", string(verdict.Severity),
		"emergency", final.Emergency,
		"facilities", len(final.Facilities),
		"duration", time.Since(start).Seconds(),
	)
	return final, nil
}

// callGateway times one gateway call and normalizes transport failures
// onto ErrGatewayUnavailable.
func (e *Engine) callGateway(ctx context.Context, node string, req *GatewayRequest) (string, error) {
	start := time.Now()
	raw, err := e.gateway.Generate(ctx, req)
	if e.hooks.OnGatewayCall != nil {
		e.hooks.OnGatewayCall(node, time.Since(start).Seconds(), err != nil)
	}
	if err != nil {
		if !errors.Is(err, ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return "", err
	}
	return raw, nil
}

// validateFinal is the last gate before a response leaves the engine:
// a FinalResponse either passes fully or the turn fails. Partial
// responses are never emitted.
func validateFinal(final *FinalResponse) error {
	if strings.TrimSpace(final.Text) == "" {
		return errors.New("empty final text")
	}
	if !final.Severity.Valid() {
		return fmt.Errorf("invalid final severity %q", final.Severity)
	}
	return scanForbidden(final.Text)
}
