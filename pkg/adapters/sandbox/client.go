package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/config"
	"github.com/aescanero/agor/internal/ports"
)

// Client implements ports.ExecutionService against a remote HTTP code
// executor. Code is validated by the guard before any network call.
type Client struct {
	url     string
	timeout time.Duration
	guard   *Guard
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a sandbox client from configuration.
func NewClient(cfg config.SandboxConfig, logger *zap.Logger) *Client {
	return &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		guard:   NewGuard(cfg.MaxCodeLength, cfg.AllowedImports),
		http:    &http.Client{},
		logger:  logger,
	}
}

type executeRequest struct {
	Code    string         `json:"code"`
	Context map[string]any `json:"context,omitempty"`
	Timeout int            `json:"timeout_seconds"`
}

type executeResponse struct {
	Stdout    string   `json:"stdout"`
	Stderr    string   `json:"stderr"`
	ExitCode  int      `json:"exit_code"`
	Artifacts []string `json:"artifacts,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Run validates the code and executes it remotely. Policy violations
// map to ports.ErrRejected and deadline expiry to ports.ErrExecTimeout.
func (c *Client) Run(ctx context.Context, code string, contextData map[string]any, timeout time.Duration) (*ports.ExecutionOutput, error) {
	if err := c.guard.ValidateCode(code); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrRejected, err)
	}

	if timeout <= 0 || timeout > c.timeout {
		timeout = c.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(executeRequest{
		Code:    code,
		Context: contextData,
		Timeout: int(timeout.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding execution request: %w", err)
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, c.url+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, ports.ErrExecTimeout
		}
		return nil, fmt.Errorf("calling executor: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading executor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("executor returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out executeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding executor response: %w", err)
	}
	if out.Error != "" {
		c.logger.Warn("execution reported error", zap.String("error", out.Error))
	}

	return &ports.ExecutionOutput{
		Stdout:    out.Stdout,
		Stderr:    out.Stderr,
		ExitCode:  out.ExitCode,
		Artifacts: out.Artifacts,
	}, nil
}
