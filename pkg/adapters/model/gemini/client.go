// Package gemini provides the Google Gemini model backend.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/aescanero/agor/internal/ports"
)

// Client calls the Gemini generateContent API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a Gemini backend for the given model name.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{client: c, model: c.GenerativeModel(model)}, nil
}

// Name identifies this backend in router logs and metrics.
func (c *Client) Name() string {
	return "gemini"
}

// Complete sends a single prompt and returns the first text part of the
// response.
func (c *Client) Complete(ctx context.Context, prompt string, _ ports.Schema) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini completion: empty response")
	}
	return text, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, cand := range r.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
