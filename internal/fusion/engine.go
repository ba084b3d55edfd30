package fusion

import (
	"fmt"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Profile selects one of the two fixed weighting schemes. The hybrid
// profile is the default; classic is kept as an alternate configuration
// and the two are never blended.
type Profile string

const (
	// ProfileHybrid weights Trend 30%, Volatility 20%, Hybrid Retail 50%
	// (retail = sentiment 50%, volume anomaly 30%, volume acceleration 20%).
	ProfileHybrid Profile = "hybrid"
	// ProfileClassic weights Trend 30%, Volatility 20%, Sentiment 25%,
	// Web Attention 25%.
	ProfileClassic Profile = "classic"
)

// Weights holds the top-level bucket weights and the retail sub-weights.
type Weights struct {
	Trend      float64
	Volatility float64
	Retail     float64

	// Classic-profile buckets replacing Retail.
	Sentiment float64
	Attention float64

	// Retail sub-weights; must sum to 1.0 within the bucket.
	RetailSentiment    float64
	RetailAnomaly      float64
	RetailAcceleration float64
}

// DefaultWeights returns the fixed weighting for the given profile.
func DefaultWeights(p Profile) Weights {
	w := Weights{
		Trend:              0.30,
		Volatility:         0.20,
		RetailSentiment:    0.50,
		RetailAnomaly:      0.30,
		RetailAcceleration: 0.20,
	}
	if p == ProfileClassic {
		w.Sentiment = 0.25
		w.Attention = 0.25
	} else {
		w.Retail = 0.50
	}
	return w
}

// InsufficientSignalError is returned when every bucket is missing its
// constituent signals. Callers must distinguish "no signal" from a
// neutral 50, so the engine refuses to fabricate a score.
type InsufficientSignalError struct {
	Ticker string
	Date   time.Time
}

func (e *InsufficientSignalError) Error() string {
	return fmt.Sprintf("no scorable signals for %s at %s",
		e.Ticker, e.Date.Format("2006-01-02"))
}

// Engine computes pressure scores under one fixed profile. It holds no
// mutable state: identical bundles always yield identical scores, and
// concurrent use needs no locking.
type Engine struct {
	profile Profile
	w       Weights
}

// NewEngine creates a fusion engine for the given profile with its
// default weights.
func NewEngine(p Profile) *Engine {
	if p != ProfileClassic {
		p = ProfileHybrid
	}
	return &Engine{profile: p, w: DefaultWeights(p)}
}

// NewEngineWithWeights creates a fusion engine with explicit weights,
// for configurations that override the documented defaults.
func NewEngineWithWeights(p Profile, w Weights) *Engine {
	return &Engine{profile: p, w: w}
}

// Profile returns the active weighting profile.
func (e *Engine) Profile() Profile { return e.profile }

// bucket is one weighted component of the composite score.
type bucket struct {
	name   string
	weight float64
	score  float64 // in [0, 1]
	valid  bool
}

// ComputePressure fuses the bundle's sub-signals into a 0–100 pressure
// score. Buckets whose constituents are all missing are excluded and the
// remaining bucket weights renormalized to sum to 1.0; a zero sub-score
// is a valid bearish input and is never treated as missing. If every
// bucket is missing the engine fails with *InsufficientSignalError.
func (e *Engine) ComputePressure(b models.SignalBundle) (models.PressureScore, error) {
	var buckets []bucket
	if e.profile == ProfileClassic {
		buckets = e.classicBuckets(b)
	} else {
		buckets = e.hybridBuckets(b)
	}

	totalWeight := 0.0
	for _, bk := range buckets {
		if bk.valid {
			totalWeight += bk.weight
		}
	}
	if totalWeight == 0 {
		return models.PressureScore{}, &InsufficientSignalError{Ticker: b.Ticker, Date: b.Date}
	}

	breakdown := make(map[string]float64, len(buckets))
	value := 0.0
	for _, bk := range buckets {
		if !bk.valid {
			continue
		}
		contribution := (bk.weight / totalWeight) * bk.score * 100
		breakdown[bk.name] = contribution
		value += contribution
	}

	if value < 0 {
		value = 0
	} else if value > 100 {
		value = 100
	}

	return models.PressureScore{
		Ticker:    b.Ticker,
		Value:     value,
		Breakdown: breakdown,
		Timestamp: b.Date,
	}, nil
}

// hybridBuckets assembles Trend / Volatility / Retail.
func (e *Engine) hybridBuckets(b models.SignalBundle) []bucket {
	trend, trendOK := e.trendScore(b)
	vol, volOK := e.volatilityScore(b)
	retail, retailOK := e.retailScore(b)
	return []bucket{
		{name: "trend", weight: e.w.Trend, score: trend, valid: trendOK},
		{name: "volatility", weight: e.w.Volatility, score: vol, valid: volOK},
		{name: "retail", weight: e.w.Retail, score: retail, valid: retailOK},
	}
}

// classicBuckets assembles Trend / Volatility / Sentiment / Attention.
func (e *Engine) classicBuckets(b models.SignalBundle) []bucket {
	trend, trendOK := e.trendScore(b)
	vol, volOK := e.volatilityScore(b)
	return []bucket{
		{name: "trend", weight: e.w.Trend, score: trend, valid: trendOK},
		{name: "volatility", weight: e.w.Volatility, score: vol, valid: volOK},
		{name: "sentiment", weight: e.w.Sentiment,
			score: normalizeSentiment(b.Sentiment.Value), valid: b.Sentiment.Valid},
		{name: "attention", weight: e.w.Attention,
			score: clamp01(b.Attention.Value), valid: b.Attention.Valid},
	}
}

// trendScore averages the available trend constituents: RSI, squashed
// rate-of-change z, squashed SMA-deviation z, and the relative-return
// delta against the market.
func (e *Engine) trendScore(b models.SignalBundle) (float64, bool) {
	return meanValid(
		normalized(b.RSI, normalizeRSI),
		normalized(b.ROCZ, squashZ),
		normalized(b.SMADevZ, squashZ),
		normalized(b.RelativeReturn, normalizeRelative),
	)
}

// volatilityScore expresses Bollinger bandwidth expansion as "energy".
func (e *Engine) volatilityScore(b models.SignalBundle) (float64, bool) {
	return meanValid(normalized(b.BandwidthZ, squashZ))
}

// retailScore fuses the hybrid retail bucket with its fixed sub-weights,
// renormalized over whichever constituents are available.
func (e *Engine) retailScore(b models.SignalBundle) (float64, bool) {
	type part struct {
		s models.SubSignal
		w float64
	}
	parts := []part{
		{normalized(b.Sentiment, normalizeSentiment), e.w.RetailSentiment},
		{normalized(b.VolumeAnomaly, normalizeRatio), e.w.RetailAnomaly},
		{normalized(b.VolumeAccelZ, squashZ), e.w.RetailAcceleration},
	}

	sum, wsum := 0.0, 0.0
	for _, p := range parts {
		if p.s.Valid {
			sum += p.s.Value * p.w
			wsum += p.w
		}
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

// normalized applies fn to an available sub-signal, passing the missing
// flag through untouched.
func normalized(s models.SubSignal, fn func(float64) float64) models.SubSignal {
	if !s.Valid {
		return models.NoSignal
	}
	return models.Signal(fn(s.Value))
}
