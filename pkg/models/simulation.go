package models

import "time"

// StrategyKind selects the rule set for a simulation run.
type StrategyKind string

const (
	// Aggressive enters on the golden-cross event and exits on the death
	// cross with no delay.
	Aggressive StrategyKind = "aggressive"
	// Conservative requires the cross to persist through a confirmation
	// window before entering, with delayed re-entry for filtered crosses.
	Conservative StrategyKind = "conservative"
)

// TradeAction is the side of a simulated trade.
type TradeAction string

const (
	Buy  TradeAction = "BUY"
	Sell TradeAction = "SELL"
)

// Trade records one simulated fill at a bar's close.
type Trade struct {
	Action TradeAction `json:"action"`
	Date   time.Time   `json:"date"`
	Price  float64     `json:"price"`
	Reason string      `json:"reason"`
}

// PositionState is the simulation's holding state.
type PositionState int

const (
	Flat PositionState = iota
	Long
)

// Position tracks the open holding of a single simulation run. It is owned
// exclusively by that run, mutated only by the engine's step function, and
// discarded when the run completes.
type Position struct {
	State      PositionState
	EntryDate  time.Time
	EntryPrice float64
}

// EquityPoint is one point on the cumulative-return curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"` // cumulative return since EligibleFrom
}

// SimulationResult is the immutable output of one strategy run.
// FinalReturn compounds only over bars where a position was held; flat
// periods contribute zero (no cash yield is modeled).
type SimulationResult struct {
	Ticker       string        `json:"ticker"`
	Strategy     StrategyKind  `json:"strategy"`
	EligibleFrom time.Time     `json:"eligible_from"` // first bar where the slow SMA is computable
	To           time.Time     `json:"to"`
	EquityCurve  []EquityPoint `json:"equity_curve"`
	Trades       []Trade       `json:"trades"`
	FinalReturn  float64       `json:"final_return"`
	OpenAtEnd    bool          `json:"open_at_end"` // last position marked to market at the final bar
}

// BenchmarkComparison holds strategy, buy-and-hold, and market-index
// returns computed over one identical [start, end] window.
type BenchmarkComparison struct {
	Ticker         string       `json:"ticker"`
	Strategy       StrategyKind `json:"strategy"`
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	StrategyReturn float64      `json:"strategy_return"`
	BuyHoldReturn  float64      `json:"buy_hold_return"`
	MarketReturn   float64      `json:"market_return"`
}

// RiskReport holds historical-simulation risk metrics for a return series.
// VaR and CVaR are loss magnitudes (positive numbers mean losses).
// LowConfidence flags a sample below the minimum size; the metrics are
// still reported rather than suppressed.
type RiskReport struct {
	Ticker        string  `json:"ticker,omitempty"`
	VaR           float64 `json:"var"`
	CVaR          float64 `json:"cvar"`
	Volatility    float64 `json:"volatility"` // annualized
	Confidence    float64 `json:"confidence"`
	Samples       int     `json:"samples"`
	LowConfidence bool    `json:"low_confidence"`
}
