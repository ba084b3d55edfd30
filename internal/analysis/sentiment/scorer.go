// Package sentiment scores news coverage for a ticker: a keyword-based
// polarity score in [-1, 1] and a web-attention intensity in [0, 1]
// derived from coverage volume. Deterministic and fully offline.
package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "soar": 0.7,
	"upbeat": 0.5, "positive": 0.4, "growth": 0.4, "upgrade": 0.6,
	"outperform": 0.6, "buy": 0.5, "strong": 0.4, "recovery": 0.5,
	"breakout": 0.6, "record high": 0.7, "all-time high": 0.7,
	"beat": 0.5, "exceeds": 0.5, "expansion": 0.4, "profit": 0.3,
	"dividend": 0.4, "accumulate": 0.5, "momentum": 0.4,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"tumble": 0.6, "negative": 0.4, "downgrade": 0.6,
	"underperform": 0.6, "sell": 0.5, "weak": 0.4, "decline": 0.5,
	"loss": 0.4, "selloff": 0.7, "fall": 0.4, "correction": 0.5,
	"default": 0.7, "fraud": 0.8, "scam": 0.8, "investigation": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "concern": 0.3,
}

// attentionSaturation is the article count at which web attention is
// considered fully saturated.
const attentionSaturation = 20

// decayHalfLife halves a headline's weight every 24 hours.
const decayHalfLife = 24.0

// ScoreHeadline returns a polarity score in [-1, 1] for a single piece
// of text, plus a confidence in [0, 1] driven by keyword match count.
// Text with no recognized keywords scores zero at minimal confidence.
func ScoreHeadline(text string) (score float64, confidence float64) {
	lower := strings.ToLower(text)

	bull, bear := 0.0, 0.0
	matches := 0
	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bull += weight
			matches++
		}
	}
	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bear += weight
			matches++
		}
	}

	if matches == 0 || bull+bear == 0 {
		return 0, 0.1
	}
	score = (bull - bear) / (bull + bear)
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)
	return score, confidence
}

// scoreItem scores one headline using title plus summary.
func scoreItem(h models.Headline) (float64, float64) {
	text := h.Title
	if h.Summary != "" {
		text += " " + h.Summary
	}
	return ScoreHeadline(text)
}

// Aggregate fuses a set of headlines into one snapshot as of the given
// time. Each headline's polarity is weighted by its scoring confidence
// and an exponential time decay with a 24-hour half-life, so stale
// coverage fades instead of pinning the score. Attention grows with the
// article count and saturates at attentionSaturation items.
//
// An empty headline set yields a neutral snapshot with zero attention;
// callers translating snapshots into fusion sub-signals must treat that
// case as "no signal", not as neutral polarity.
func Aggregate(ticker string, headlines []models.Headline, asOf time.Time) models.SentimentSnapshot {
	snap := models.SentimentSnapshot{Ticker: ticker, Timestamp: asOf}
	if len(headlines) == 0 {
		return snap
	}

	weightedSum, totalWeight := 0.0, 0.0
	for _, h := range headlines {
		score, conf := scoreItem(h)

		age := asOf.Sub(h.PublishedAt).Hours()
		if age < 0 {
			age = 0
		}
		w := conf * math.Exp(-math.Ln2*age/decayHalfLife)

		weightedSum += score * w
		totalWeight += w
	}
	if totalWeight > 0 {
		snap.Score = weightedSum / totalWeight
	}

	snap.ArticleCount = len(headlines)
	snap.Attention = math.Min(1, float64(len(headlines))/attentionSaturation)
	return snap
}
