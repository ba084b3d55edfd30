package models

import "time"

// SubSignal is a single raw or pre-scaled signal value with an explicit
// availability flag. Zero is a valid (bearish) value, so "no data" must be
// expressed through Valid=false and never through a zero substitute.
type SubSignal struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Signal constructs an available SubSignal.
func Signal(v float64) SubSignal { return SubSignal{Value: v, Valid: true} }

// NoSignal is the canonical unavailable SubSignal.
var NoSignal = SubSignal{}

// SignalBundle is a point-in-time snapshot of all inputs to the fusion
// engine for one ticker: indicator-derived values plus externally supplied
// sub-scores. A bundle is never mutated after construction; each re-score
// builds a fresh one.
//
// Conventions:
//   - RSI is raw 0–100.
//   - ROCZ, SMADevZ, BandwidthZ are z-scores over the trailing window.
//   - VolumeAnomaly is the ratio of current volume to its trailing average
//     (1.0 = normal, >1.0 = spike); VolumeAccelZ is the z-scored 3-day
//     rate-of-change of volume.
//   - Sentiment is in [-1, 1], Attention in [0, 1].
//   - RelativeReturn is the trailing return delta versus the market index.
//   - PEPercentile is the fundamental valuation percentile in [0, 1].
type SignalBundle struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`

	RSI     SubSignal `json:"rsi"`
	ROCZ    SubSignal `json:"roc_z"`
	SMADevZ SubSignal `json:"sma_dev_z"`

	BandwidthZ SubSignal `json:"bandwidth_z"`

	Sentiment     SubSignal `json:"sentiment"`
	Attention     SubSignal `json:"attention"`
	VolumeAnomaly SubSignal `json:"volume_anomaly"`
	VolumeAccelZ  SubSignal `json:"volume_accel_z"`

	RelativeReturn SubSignal `json:"relative_return"`
	PEPercentile   SubSignal `json:"pe_percentile"`
}

// PressureScore is the composite 0–100 output of the fusion engine.
// 50 is neutral; above 50 indicates bullish pressure, below bearish.
// The breakdown records each bucket's weighted contribution so callers
// (UI, report generators) can explain the displayed number exactly.
type PressureScore struct {
	Ticker    string             `json:"ticker"`
	Value     float64            `json:"value"`
	Breakdown map[string]float64 `json:"component_breakdown"`
	Timestamp time.Time          `json:"timestamp"`
}

// CrossState describes the SMA-fast/SMA-slow relationship at one bar.
// GoldenCross and DeathCross are one-bar events fired only on the bar
// where the relationship flips; Above/Below are the persistent levels.
type CrossState int

const (
	// NoCross means the moving averages are not yet computable at this bar.
	NoCross CrossState = iota
	// GoldenCross fires on the bar where the fast SMA crosses above the slow.
	GoldenCross
	// DeathCross fires on the bar where the fast SMA crosses below the slow.
	DeathCross
	// Above means fast SMA is above slow with no cross on this bar.
	Above
	// Below means fast SMA is below slow with no cross on this bar.
	Below
)

// String returns the human-readable name of the cross state.
func (c CrossState) String() string {
	switch c {
	case GoldenCross:
		return "GOLDEN_CROSS"
	case DeathCross:
		return "DEATH_CROSS"
	case Above:
		return "ABOVE"
	case Below:
		return "BELOW"
	default:
		return "NO_CROSS"
	}
}

// Bullish reports whether the fast SMA is at or above the slow SMA.
func (c CrossState) Bullish() bool { return c == GoldenCross || c == Above }
