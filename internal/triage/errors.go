package triage

import "errors"

// Failure taxonomy for one turn. Sanitization and enrichment never
// surface errors; everything else maps onto one of these.
var (
	// ErrGatewayUnavailable wraps model gateway transport errors and
	// timeouts.
	ErrGatewayUnavailable = errors.New("model gateway unavailable")

	// ErrSchemaViolation marks model output that fails validation
	// against the expected response schema.
	ErrSchemaViolation = errors.New("response schema violation")

	// ErrClassificationFailed is terminal for the turn: the classifier
	// exhausted its retry budget without a valid verdict.
	ErrClassificationFailed = errors.New("severity classification failed")

	// ErrHandlerFailed is terminal for the turn: the routed severity
	// handler could not produce a valid response. Handlers are not
	// retried.
	ErrHandlerFailed = errors.New("severity handler failed")
)
