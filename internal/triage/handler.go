package triage

import (
	"context"
	"fmt"
)

// handle runs the severity handler node selected by routing. Handlers
// share one shape: compose the path's prompt variant, call the gateway
// once (no retry), validate against the handler schema. Per-variant
// behavior lives in the prompt templates and the schema rules.
func (e *Engine) handle(ctx context.Context, path PromptPath, in *SanitizedInput) (*HandlerResult, error) {
	req := &GatewayRequest{
		System:    BuildSystemPrompt(path),
		Prompt:    BuildUserPrompt(path, in),
		Image:     in.Image,
		MaxTokens: ResponseTokens,
	}

	raw, err := e.callGateway(ctx, string(path), req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandlerFailed, err)
	}

	result, err := ParseHandlerResult(path, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandlerFailed, err)
	}
	return result, nil
}
