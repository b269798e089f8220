package tools

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

func constantSeries(symbol string, n int, price float64) *ports.Series {
	s := &ports.Series{Symbol: symbol, Period: "5y"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, ports.Point{
			Time:  base.AddDate(0, 0, i),
			Close: price,
		})
	}
	return s
}

func risingSeries(symbol string, n int) *ports.Series {
	s := &ports.Series{Symbol: symbol, Period: "5y"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, ports.Point{
			Time:  base.AddDate(0, 0, i),
			Close: 100 + float64(i),
		})
	}
	return s
}

func TestDeriveConstantPrices(t *testing.T) {
	ind, err := Derive(constantSeries("USDBRL=X", 60, 5.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ind.CurrentPrice != 5.0 {
		t.Errorf("current price: %f", ind.CurrentPrice)
	}
	if ind.SMA20 != 5.0 || ind.SMA50 != 5.0 {
		t.Errorf("moving averages: sma20=%f sma50=%f", ind.SMA20, ind.SMA50)
	}
	// No losses at all: RSI saturates at 100.
	if ind.RSI14 != 100 {
		t.Errorf("rsi: %f", ind.RSI14)
	}
	// Zero variance collapses the bands onto the mean.
	if ind.BollingerUp != 5.0 || ind.BollingerDown != 5.0 {
		t.Errorf("bands: %f / %f", ind.BollingerUp, ind.BollingerDown)
	}
}

func TestDeriveRisingSeries(t *testing.T) {
	ind, err := Derive(risingSeries("USDBRL=X", 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ind.CurrentPrice != 199 {
		t.Errorf("current price: %f", ind.CurrentPrice)
	}
	// Last 20 closes are 180..199, mean 189.5.
	if math.Abs(ind.SMA20-189.5) > 1e-9 {
		t.Errorf("sma20: %f", ind.SMA20)
	}
	// Last 50 closes are 150..199, mean 174.5.
	if math.Abs(ind.SMA50-174.5) > 1e-9 {
		t.Errorf("sma50: %f", ind.SMA50)
	}
	// Strictly rising: no losses, RSI 100.
	if ind.RSI14 != 100 {
		t.Errorf("rsi: %f", ind.RSI14)
	}
	if ind.BollingerUp <= ind.SMA20 || ind.BollingerDown >= ind.SMA20 {
		t.Errorf("bands do not bracket the mean: %f / %f / %f",
			ind.BollingerDown, ind.SMA20, ind.BollingerUp)
	}
	// Bands are symmetric around the mean.
	if math.Abs((ind.BollingerUp-ind.SMA20)-(ind.SMA20-ind.BollingerDown)) > 1e-9 {
		t.Error("bands are not symmetric")
	}
}

func TestDeriveRequiresFiftyPoints(t *testing.T) {
	if _, err := Derive(constantSeries("X", 49, 1.0)); err == nil {
		t.Fatal("expected error for short series")
	}
}

func TestIndicatorsRunnerFindsSeriesInDependencies(t *testing.T) {
	runner := &IndicatorsRunner{}
	ec := domain.NewContext("task")
	ec.Results["fetch"] = &domain.ExecutionResult{
		StepID:  "fetch",
		Status:  domain.ExecSuccess,
		Payload: risingSeries("USDBRL=X", 60),
	}

	step := domain.PlanStep{ID: "ind", Action: domain.ActionDeriveIndicators, DependsOn: []string{"fetch"}}
	out, err := runner.Run(context.Background(), step, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ind, ok := out.Payload.(*Indicators)
	if !ok {
		t.Fatalf("payload type: %T", out.Payload)
	}
	if ind.Symbol != "USDBRL=X" {
		t.Errorf("symbol: %s", ind.Symbol)
	}
	if out.Log == "" {
		t.Error("expected a log summary")
	}
}

func TestIndicatorsRunnerErrorsWithoutSeries(t *testing.T) {
	runner := &IndicatorsRunner{}
	ec := domain.NewContext("task")

	step := domain.PlanStep{ID: "ind", Action: domain.ActionDeriveIndicators}
	if _, err := runner.Run(context.Background(), step, ec); err == nil {
		t.Fatal("expected error when no series is available")
	}
}
