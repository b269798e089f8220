// Package anthropic provides the Anthropic Messages API model backend.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aescanero/agor/internal/ports"
)

// Client calls the Anthropic Messages API.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClient creates an Anthropic backend for the given model name.
func NewClient(apiKey, model string, maxTokens int) *Client {
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Name identifies this backend in router logs and metrics.
func (c *Client) Name() string {
	return "anthropic"
}

// Complete sends a single-turn user prompt and returns the concatenated
// text blocks of the response.
func (c *Client) Complete(ctx context.Context, prompt string, _ ports.Schema) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic completion: empty response")
	}
	return sb.String(), nil
}
