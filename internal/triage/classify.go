package triage

import (
	"context"
	"fmt"
)

// ClassifierAttempts bounds gateway calls for one classification. The
// same prompt is reissued on gateway errors and schema violations
// alike; after the budget is spent the turn is terminally failed.
const ClassifierAttempts = 2

// classify runs the severity classifier node: classifier prompt ->
// gateway -> verdict validation, with the bounded retry above.
func (e *Engine) classify(ctx context.Context, in *SanitizedInput) (*Verdict, error) {
	req := &GatewayRequest{
		System:    BuildSystemPrompt(PathClassifier),
		Prompt:    BuildUserPrompt(PathClassifier, in),
		Image:     in.Image,
		MaxTokens: ResponseTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= ClassifierAttempts; attempt++ {
		raw, err := e.callGateway(ctx, "classifier", req)
		if err != nil {
			lastErr = err
			e.logger.Warn(ctx, "classifier gateway call failed", "attempt", attempt, "error", err.Error())
			continue
		}

		verdict, err := ParseVerdict(raw)
		if err != nil {
			lastErr = err
			e.logger.Warn(ctx, "classifier output rejected", "attempt", attempt, "error", err.Error())
			continue
		}
		return verdict, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrClassificationFailed, ClassifierAttempts, lastErr)
}
