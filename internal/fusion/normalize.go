// Package fusion combines normalized multi-modal sub-signals into the
// composite 0–100 pressure score.
package fusion

import (
	"math"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// relSensitivity scales the relative-return delta before squashing so
// that a 10-percentage-point outperformance lands near the saturated end.
const relSensitivity = 10

// normalizeRSI maps the raw 0–100 RSI linearly onto [0, 1].
func normalizeRSI(v float64) float64 {
	return clamp01(v / 100)
}

// squashZ maps an unbounded z-score onto [0, 1] through tanh. The squash
// clips pathological outliers without discarding their direction, so a
// single extreme day cannot dominate the composite while still counting
// as strongly bullish or bearish.
func squashZ(z float64) float64 {
	return (math.Tanh(z) + 1) / 2
}

// normalizeSentiment maps a [-1, 1] polarity score onto [0, 1].
func normalizeSentiment(s float64) float64 {
	return clamp01((s + 1) / 2)
}

// normalizeRatio maps a volume ratio (1.0 = normal) onto [0, 1] with the
// neutral ratio at 0.5, using the same squashing treatment as z-scores.
func normalizeRatio(r float64) float64 {
	return (math.Tanh(r-1) + 1) / 2
}

// normalizeRelative squashes a relative-return delta onto [0, 1].
func normalizeRelative(delta float64) float64 {
	return (math.Tanh(delta*relSensitivity) + 1) / 2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// meanValid averages the normalized values of the available sub-signals.
// The second return is false when none are available.
func meanValid(scores ...models.SubSignal) (float64, bool) {
	sum, n := 0.0, 0
	for _, s := range scores {
		if s.Valid {
			sum += s.Value
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
