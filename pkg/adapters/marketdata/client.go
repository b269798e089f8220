// Package marketdata fetches historical time series from an external
// quotes API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/ports"
)

// Client implements ports.DataService over an HTTP time-series API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a market data client against the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type seriesResponse struct {
	Symbol string `json:"symbol"`
	Points []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"points"`
}

// Fetch retrieves the historical series for a symbol and period.
// Missing or empty series map to ports.ErrDataUnavailable.
func (c *Client) Fetch(ctx context.Context, symbol, period string) (*ports.Series, error) {
	endpoint := fmt.Sprintf("%s/v1/history?symbol=%s&period=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building history request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ports.ErrDataUnavailable, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history API returned status %d for %s", resp.StatusCode, symbol)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("reading history response: %w", err)
	}

	var sr seriesResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("decoding history response: %w", err)
	}
	if len(sr.Points) == 0 {
		return nil, fmt.Errorf("%w: empty series for %s", ports.ErrDataUnavailable, symbol)
	}

	series := &ports.Series{Symbol: symbol, Period: period, Points: make([]ports.Point, 0, len(sr.Points))}
	for _, p := range sr.Points {
		ts, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			c.logger.Warn("skipping point with unparsable date",
				zap.String("symbol", symbol), zap.String("date", p.Date))
			continue
		}
		series.Points = append(series.Points, ports.Point{
			Time: ts, Open: p.Open, High: p.High, Low: p.Low, Close: p.Close, Volume: p.Volume,
		})
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("%w: no usable points for %s", ports.ErrDataUnavailable, symbol)
	}
	return series, nil
}
