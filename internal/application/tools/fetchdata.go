package tools

import (
	"context"
	"fmt"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// FetchDataRunner fetches a market time series through the data service.
type FetchDataRunner struct {
	Data          ports.DataService
	DefaultSymbol string
	DefaultPeriod string
}

func (r *FetchDataRunner) Action() domain.ActionType { return domain.ActionFetchData }

func (r *FetchDataRunner) Run(ctx context.Context, step domain.PlanStep, ec *domain.Context) (*Output, error) {
	symbol, _ := step.Params["symbol"].(string)
	if symbol == "" {
		symbol = r.DefaultSymbol
	}
	period, _ := step.Params["period"].(string)
	if period == "" {
		period = r.DefaultPeriod
	}

	series, err := r.Data.Fetch(ctx, symbol, period)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", symbol, period, err)
	}

	return &Output{
		Payload: series,
		Log:     fmt.Sprintf("fetched %d points for %s (%s)", len(series.Points), symbol, period),
	}, nil
}
