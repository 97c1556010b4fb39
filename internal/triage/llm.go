package triage

import "context"

// Default generation budget per gateway call.
const ResponseTokens = 1024

// Gateway is the boundary to the external model inference backend. One
// call per node, no internal retry; the classifier's bounded retry is
// the only retry in the system and lives above this interface.
type Gateway interface {
	Generate(ctx context.Context, req *GatewayRequest) (string, error)
}

// GatewayRequest is a fully composed prompt plus an optional image
// payload reference.
type GatewayRequest struct {
	System    string
	Prompt    string
	Image     *Image
	MaxTokens int
}
