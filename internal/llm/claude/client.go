// Package claude implements the triage.Gateway interface on the Claude
// Messages API.
package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/medtriage/internal/triage"
)

// Client sends composed prompts to the Claude API.
type Client struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// New creates a Claude gateway client. timeout bounds each Generate
// call; the engine holds no retry policy for this boundary.
func New(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

// Generate implements triage.Gateway: one prompt (plus optional image
// payload) in, concatenated text blocks out. Transport errors and
// timeouts are wrapped in triage.ErrGatewayUnavailable.
func (c *Client) Generate(ctx context.Context, req *triage.GatewayRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	blocks, err := buildContent(req)
	if err != nil {
		return "", err
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = triage.ResponseTokens
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("%w: claude: %v", triage.ErrGatewayUnavailable, err)
	}

	return collectText(msg), nil
}

// buildContent converts a gateway request into SDK content blocks. The
// image payload, when present, is read from its turn-scoped spool file
// and embedded base64.
func buildContent(req *triage.GatewayRequest) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(req.Prompt),
	}

	if req.Image != nil {
		data, err := os.ReadFile(req.Image.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: read image payload: %v", triage.ErrGatewayUnavailable, err)
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			req.Image.MediaType,
			base64.StdEncoding.EncodeToString(data),
		))
	}

	return blocks, nil
}

// collectText concatenates the text blocks of a response.
func collectText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
