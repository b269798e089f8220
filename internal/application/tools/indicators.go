package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// Indicators are the technical indicators derived from an OHLC series:
// simple moving averages over 20 and 50 periods, 14-period RSI, and
// Bollinger bands (SMA20 +/- 2 standard deviations).
type Indicators struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	SMA20         float64 `json:"sma20"`
	SMA50         float64 `json:"sma50"`
	RSI14         float64 `json:"rsi14"`
	BollingerUp   float64 `json:"bollinger_upper"`
	BollingerDown float64 `json:"bollinger_lower"`
}

// IndicatorsRunner derives technical indicators from a series fetched by
// a dependency step.
type IndicatorsRunner struct{}

func (r *IndicatorsRunner) Action() domain.ActionType { return domain.ActionDeriveIndicators }

func (r *IndicatorsRunner) Run(ctx context.Context, step domain.PlanStep, ec *domain.Context) (*Output, error) {
	series := findSeries(step, ec)
	if series == nil {
		return nil, fmt.Errorf("no fetched series available in dependencies of step %s", step.ID)
	}

	ind, err := Derive(series)
	if err != nil {
		return nil, err
	}

	return &Output{
		Payload: ind,
		Log: fmt.Sprintf("derived indicators for %s: price=%.4f sma20=%.4f rsi=%.1f",
			ind.Symbol, ind.CurrentPrice, ind.SMA20, ind.RSI14),
	}, nil
}

// findSeries looks for a series artifact among the step's dependencies,
// falling back to any series in the context.
func findSeries(step domain.PlanStep, ec *domain.Context) *ports.Series {
	for _, dep := range step.DependsOn {
		if r, ok := ec.Results[dep]; ok {
			if s, ok := r.Payload.(*ports.Series); ok {
				return s
			}
		}
	}
	for _, v := range ec.Artifacts {
		if s, ok := v.(*ports.Series); ok {
			return s
		}
	}
	return nil
}

// Derive computes the indicator set over the series' closing prices.
func Derive(series *ports.Series) (*Indicators, error) {
	closes := make([]float64, len(series.Points))
	for i, p := range series.Points {
		closes[i] = p.Close
	}
	if len(closes) < 50 {
		return nil, fmt.Errorf("need at least 50 points for indicators, have %d", len(closes))
	}

	sma20 := sma(closes, 20)
	upper, lower := bollinger(closes, 20)

	return &Indicators{
		Symbol:        series.Symbol,
		CurrentPrice:  closes[len(closes)-1],
		SMA20:         sma20,
		SMA50:         sma(closes, 50),
		RSI14:         rsi(closes, 14),
		BollingerUp:   upper,
		BollingerDown: lower,
	}, nil
}

// sma is the mean of the last n values.
func sma(values []float64, n int) float64 {
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// rsi computes the relative strength index over the last n deltas.
func rsi(values []float64, n int) float64 {
	var gains, losses float64
	for i := len(values) - n; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(n)
	avgLoss := losses / float64(n)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// bollinger computes the bands as SMA20 +/- 2 standard deviations over
// the same window.
func bollinger(values []float64, n int) (upper, lower float64) {
	mean := sma(values, n)
	var variance float64
	for _, v := range values[len(values)-n:] {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(n))
	return mean + 2*std, mean - 2*std
}
