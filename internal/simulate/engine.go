// Package simulate replays historical price series bar-by-bar under
// rule-based strategies and benchmarks the outcome against buy-and-hold
// and a market index.
package simulate

import (
	"fmt"
	"math"

	"github.com/hylle9/ai-stock-analytics/internal/analysis/technical"
	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Config holds the tunable parameters of a simulation run.
type Config struct {
	FastPeriod       int     // fast SMA period (default 50)
	SlowPeriod       int     // slow SMA period (default 200)
	ConfirmBars      int     // conservative confirmation delay in bars (default 5)
	ReentryThreshold float64 // close must exceed SMA-fast by this fraction (default 0.02)
	ReentryWindow    int     // bars after a filtered cross in which re-entry may fire (default 20)
}

// DefaultConfig returns the documented default parameters.
func DefaultConfig() Config {
	return Config{
		FastPeriod:       technical.DefaultFastPeriod,
		SlowPeriod:       technical.DefaultSlowPeriod,
		ConfirmBars:      5,
		ReentryThreshold: 0.02,
		ReentryWindow:    20,
	}
}

// InsufficientHistoryError is returned when a series is too short for the
// longest moving average the strategies require.
type InsufficientHistoryError struct {
	Ticker   string
	Bars     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: %d bars, need %d",
		e.Ticker, e.Bars, e.Required)
}

// Engine runs strategies against price series. It holds only immutable
// configuration, so one engine may serve concurrent runs.
type Engine struct {
	cfg Config
}

// NewEngine creates a simulation engine, filling zero-valued config
// fields with defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = def.FastPeriod
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = def.SlowPeriod
	}
	if cfg.ConfirmBars <= 0 {
		cfg.ConfirmBars = def.ConfirmBars
	}
	if cfg.ReentryThreshold <= 0 {
		cfg.ReentryThreshold = def.ReentryThreshold
	}
	if cfg.ReentryWindow <= 0 {
		cfg.ReentryWindow = def.ReentryWindow
	}
	return &Engine{cfg: cfg}
}

// run is the per-run mutable state. It lives only for the duration of
// one Run call and is discarded afterwards.
type run struct {
	pos    models.Position
	factor float64 // compounded return factor over completed holdings
	trades []models.Trade
	curve  []models.EquityPoint

	pendingCross  int // index of a golden cross awaiting confirmation, -1 if none
	filteredCross int // index of a confirmation-filtered cross, -1 if none
	reentryUsed   bool
}

// Run replays the series under the chosen strategy and returns the
// immutable result. The series must be chronological with no duplicate
// dates; the engine fails fast on violations instead of re-sorting, so
// upstream ingestion bugs surface instead of being masked.
//
// Return accounting compounds only over bars where a position is held;
// flat periods contribute exactly zero (no cash yield is modeled). A
// position still open on the last bar is marked to market at its close.
func (e *Engine) Run(ticker string, bars []models.PriceBar, kind models.StrategyKind) (*models.SimulationResult, error) {
	if len(bars) < e.cfg.SlowPeriod {
		return nil, &InsufficientHistoryError{Ticker: ticker, Bars: len(bars), Required: e.cfg.SlowPeriod}
	}

	states, err := technical.CrossStates(ticker, bars, e.cfg.FastPeriod, e.cfg.SlowPeriod)
	if err != nil {
		return nil, err
	}
	fastSMA := technical.SMA(models.Closes(bars), e.cfg.FastPeriod)

	r := &run{
		factor:        1.0,
		pendingCross:  -1,
		filteredCross: -1,
	}

	start := e.cfg.SlowPeriod - 1
	for i := start; i < len(bars); i++ {
		switch kind {
		case models.Conservative:
			e.stepConservative(r, bars, states, fastSMA, i)
		default:
			e.stepAggressive(r, bars, states, i)
		}

		equity := r.factor
		if r.pos.State == models.Long {
			equity = r.factor * bars[i].Close / r.pos.EntryPrice
		}
		r.curve = append(r.curve, models.EquityPoint{Date: bars[i].Date, Return: equity - 1})
	}

	final := r.factor
	openAtEnd := r.pos.State == models.Long
	if openAtEnd {
		final = r.factor * bars[len(bars)-1].Close / r.pos.EntryPrice
	}

	return &models.SimulationResult{
		Ticker:       ticker,
		Strategy:     kind,
		EligibleFrom: bars[start].Date,
		To:           bars[len(bars)-1].Date,
		EquityCurve:  r.curve,
		Trades:       r.trades,
		FinalReturn:  final - 1,
		OpenAtEnd:    openAtEnd,
	}, nil
}

// stepAggressive enters on the golden-cross event and exits on the death
// cross, with no delay.
func (e *Engine) stepAggressive(r *run, bars []models.PriceBar, states []models.CrossState, i int) {
	switch {
	case r.pos.State == models.Flat && states[i] == models.GoldenCross:
		r.buy(bars[i], "golden cross")
	case r.pos.State == models.Long && states[i] == models.DeathCross:
		r.sell(bars[i], "death cross")
	}
}

// stepConservative requires the golden-cross condition to persist for
// ConfirmBars before entering. A cross whose condition breaks inside the
// confirmation window is "filtered"; if the price then runs past the
// re-entry threshold above the fast SMA within ReentryWindow bars, a
// single delayed entry fires for that cross. Each filtered cross can
// trigger at most one re-entry.
func (e *Engine) stepConservative(r *run, bars []models.PriceBar, states []models.CrossState, fastSMA []float64, i int) {
	if r.pos.State == models.Long {
		if states[i] == models.DeathCross {
			r.sell(bars[i], "death cross")
			r.pendingCross = -1
			r.filteredCross = -1
		}
		return
	}

	// Expire a stale filtered cross.
	if r.filteredCross >= 0 && i-r.filteredCross > e.cfg.ReentryWindow {
		r.filteredCross = -1
	}

	// Delayed re-entry takes priority: a rally past the threshold means
	// the originally filtered move is confirmed by price itself, even if
	// the averages are crossing again on this very bar.
	if r.filteredCross >= 0 && !r.reentryUsed &&
		!math.IsNaN(fastSMA[i]) && bars[i].Close > fastSMA[i]*(1+e.cfg.ReentryThreshold) {
		r.buy(bars[i], "delayed re-entry")
		r.reentryUsed = true
		r.filteredCross = -1
		r.pendingCross = -1
		return
	}

	if states[i] == models.GoldenCross {
		// A fresh cross restarts confirmation and supersedes any
		// filtered predecessor.
		r.pendingCross = i
		r.filteredCross = -1
		r.reentryUsed = false
		return
	}

	if r.pendingCross >= 0 {
		if !states[i].Bullish() {
			// Condition broke inside the confirmation window: the cross
			// is filtered but stays eligible for delayed re-entry.
			r.filteredCross = r.pendingCross
			r.reentryUsed = false
			r.pendingCross = -1
			return
		}
		if i-r.pendingCross == e.cfg.ConfirmBars {
			r.buy(bars[i], "confirmed golden cross")
			r.pendingCross = -1
		}
	}
}

func (r *run) buy(bar models.PriceBar, reason string) {
	r.pos = models.Position{State: models.Long, EntryDate: bar.Date, EntryPrice: bar.Close}
	r.trades = append(r.trades, models.Trade{Action: models.Buy, Date: bar.Date, Price: bar.Close, Reason: reason})
}

func (r *run) sell(bar models.PriceBar, reason string) {
	if r.pos.EntryPrice > 0 {
		r.factor *= bar.Close / r.pos.EntryPrice
	}
	r.pos = models.Position{State: models.Flat}
	r.trades = append(r.trades, models.Trade{Action: models.Sell, Date: bar.Date, Price: bar.Close, Reason: reason})
}
