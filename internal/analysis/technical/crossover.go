package technical

import (
	"math"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Default moving-average periods for trend crossover detection.
const (
	DefaultFastPeriod = 50
	DefaultSlowPeriod = 200
)

// CrossStates produces one CrossState per bar describing the fast/slow SMA
// relationship. Bars before both SMAs are computable are NoCross. A
// GoldenCross or DeathCross fires only on the single bar where the
// relationship flips; bars that merely hold the level are Above or Below.
// Downstream strategies react once to the event, never repeatedly to the
// level, so the event/level distinction is load-bearing here.
//
// The series must be chronological; violations surface as a *SeriesError
// rather than being repaired in place.
func CrossStates(ticker string, bars []models.PriceBar, fast, slow int) ([]models.CrossState, error) {
	if fast <= 0 {
		fast = DefaultFastPeriod
	}
	if slow <= 0 {
		slow = DefaultSlowPeriod
	}
	if err := models.ValidateSeries(ticker, bars); err != nil {
		return nil, err
	}

	states := make([]models.CrossState, len(bars))
	if len(bars) < slow {
		return states, nil // all NoCross
	}

	closes := models.Closes(bars)
	fastSMA := SMA(closes, fast)
	slowSMA := SMA(closes, slow)

	prevAbove := false
	seeded := false
	for i := slow - 1; i < len(bars); i++ {
		if math.IsNaN(fastSMA[i]) || math.IsNaN(slowSMA[i]) {
			continue
		}
		above := fastSMA[i] > slowSMA[i]
		switch {
		case !seeded:
			// First computable bar carries the level, never an event:
			// there is no prior state to cross from.
			seeded = true
			states[i] = levelState(above)
		case above && !prevAbove:
			states[i] = models.GoldenCross
		case !above && prevAbove:
			states[i] = models.DeathCross
		default:
			states[i] = levelState(above)
		}
		prevAbove = above
	}

	return states, nil
}

func levelState(above bool) models.CrossState {
	if above {
		return models.Above
	}
	return models.Below
}
