// Package risk summarizes downside exposure from historical daily
// returns: value-at-risk, conditional value-at-risk, and annualized
// volatility.
package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// tradingDays is the annualization factor for daily volatility.
const tradingDays = 252

// Config holds the assessment parameters.
type Config struct {
	Confidence float64 // VaR/CVaR confidence level (default 0.95)
	MinSamples int     // below this, reports carry the LowConfidence flag (default 30)
}

// DefaultConfig returns the documented default parameters.
func DefaultConfig() Config {
	return Config{Confidence: 0.95, MinSamples: 30}
}

// InsufficientReturnsError is returned when a series yields too few
// daily returns to assess at all.
type InsufficientReturnsError struct {
	Ticker  string
	Samples int
}

func (e *InsufficientReturnsError) Error() string {
	return fmt.Sprintf("insufficient return samples for %s: %d", e.Ticker, e.Samples)
}

// Assess computes the risk report from a slice of daily returns using
// historical simulation. VaR and CVaR are reported as non-negative loss
// magnitudes; a sample whose tail quantile is a gain reports zero loss.
// Small samples are assessed anyway and flagged LowConfidence rather
// than rejected, so thin but real histories still produce a number.
func Assess(ticker string, returns []float64, cfg Config) (*models.RiskReport, error) {
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		cfg.Confidence = DefaultConfig().Confidence
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	if len(returns) < 2 {
		return nil, &InsufficientReturnsError{Ticker: ticker, Samples: len(returns)}
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	q, tailEnd := quantile(sorted, 1-cfg.Confidence)
	cvar := tailMean(sorted, tailEnd)

	return &models.RiskReport{
		Ticker:        ticker,
		VaR:           lossMagnitude(q),
		CVaR:          lossMagnitude(cvar),
		Volatility:    sampleStddev(returns) * math.Sqrt(tradingDays),
		Confidence:    cfg.Confidence,
		Samples:       len(returns),
		LowConfidence: len(returns) < cfg.MinSamples,
	}, nil
}

// AssessSeries derives daily returns from a price series and assesses
// them.
func AssessSeries(ticker string, bars []models.PriceBar, cfg Config) (*models.RiskReport, error) {
	if err := models.ValidateSeries(ticker, bars); err != nil {
		return nil, err
	}
	return Assess(ticker, models.DailyReturns(bars), cfg)
}

// AssessPortfolio assesses an equal-weight portfolio of several return
// series. Series of different lengths are aligned on their most recent
// samples and truncated to the shortest.
func AssessPortfolio(name string, series [][]float64, cfg Config) (*models.RiskReport, error) {
	if len(series) == 0 {
		return nil, &InsufficientReturnsError{Ticker: name, Samples: 0}
	}
	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) < n {
			n = len(s)
		}
	}
	if n < 2 {
		return nil, &InsufficientReturnsError{Ticker: name, Samples: n}
	}

	combined := make([]float64, n)
	for _, s := range series {
		tail := s[len(s)-n:]
		for i, r := range tail {
			combined[i] += r / float64(len(series))
		}
	}
	return Assess(name, combined, cfg)
}

// quantile returns the linearly interpolated p-quantile of an ascending
// slice, along with the index bounding the lower tail (inclusive).
func quantile(sorted []float64, p float64) (float64, int) {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], len(sorted) - 1
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), lo
}

// tailMean averages sorted[0..end] inclusive.
func tailMean(sorted []float64, end int) float64 {
	sum := 0.0
	for i := 0; i <= end; i++ {
		sum += sorted[i]
	}
	return sum / float64(end+1)
}

// lossMagnitude converts a return quantile into a non-negative loss.
func lossMagnitude(r float64) float64 {
	if r >= 0 {
		return 0
	}
	return -r
}

func sampleStddev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	sq := 0.0
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}
