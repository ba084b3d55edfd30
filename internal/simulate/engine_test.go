package simulate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

func makeBars(n int, priceFn func(i int) float64) []models.PriceBar {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := 0; i < n; i++ {
		p := priceFn(i)
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   p * 0.998,
			High:   p * 1.004,
			Low:    p * 0.996,
			Close:  p,
			Volume: 100000,
		}
	}
	return bars
}

// flatThenRising is flat at 100 and then compounds 1% per bar. With a
// 50/200 SMA pair the golden cross fires on the first rising bar.
func flatThenRising(crossStart int) func(i int) float64 {
	return func(i int) float64 {
		if i < crossStart {
			return 100
		}
		return 100 * math.Pow(1.01, float64(i-crossStart+1))
	}
}

// whipsawThenRally dips right after the cross so the confirmation window
// filters it, then rallies hard enough for the delayed re-entry. All
// closes before the rally are integers, so the moving averages used in
// the assertions are exact.
func whipsawThenRally(i int) float64 {
	switch {
	case i < 210:
		return 100
	case i == 210:
		return 101
	case i == 211:
		return 97
	case i == 212:
		return 99
	case i == 213:
		return 100
	case i == 214:
		return 103
	default:
		return 103 * math.Pow(1.01, float64(i-214))
	}
}

func TestRun_AggressiveEntersOnCross(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bars := makeBars(300, flatThenRising(210))

	res, err := e.Run("TEST", bars, models.Aggressive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d: %+v", len(res.Trades), res.Trades)
	}
	buy := res.Trades[0]
	if buy.Action != models.Buy {
		t.Fatalf("expected a buy, got %v", buy.Action)
	}
	if !buy.Date.Equal(bars[210].Date) {
		t.Errorf("expected entry on the cross bar %s, got %s", bars[210].Date, buy.Date)
	}
	if buy.Price != bars[210].Close {
		t.Errorf("expected entry at close %f, got %f", bars[210].Close, buy.Price)
	}
	if !res.OpenAtEnd {
		t.Error("position should still be open at series end")
	}

	want := bars[299].Close/bars[210].Close - 1
	if math.Abs(res.FinalReturn-want) > 1e-9 {
		t.Errorf("final return %f, want %f", res.FinalReturn, want)
	}
}

func TestRun_ConservativeDelaysEntry(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bars := makeBars(300, flatThenRising(210))

	res, err := e.Run("TEST", bars, models.Conservative)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d: %+v", len(res.Trades), res.Trades)
	}
	buy := res.Trades[0]
	// Cross at bar 210 plus five confirmation bars means entry at 215.
	if !buy.Date.Equal(bars[215].Date) {
		t.Errorf("expected confirmed entry at bar 215 (%s), got %s", bars[215].Date, buy.Date)
	}

	want := bars[299].Close/bars[215].Close - 1
	if math.Abs(res.FinalReturn-want) > 1e-9 {
		t.Errorf("final return %f, want %f", res.FinalReturn, want)
	}
	// Confirmation costs return versus the aggressive entry in a clean trend.
	agg, err := e.Run("TEST", bars, models.Aggressive)
	if err != nil {
		t.Fatal(err)
	}
	if !(res.FinalReturn < agg.FinalReturn) {
		t.Errorf("conservative (%f) should trail aggressive (%f) in an unbroken uptrend",
			res.FinalReturn, agg.FinalReturn)
	}
}

func TestRun_ConservativeDelayedReentry(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bars := makeBars(260, whipsawThenRally)

	res, err := e.Run("TEST", bars, models.Conservative)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d: %+v", len(res.Trades), res.Trades)
	}
	buy := res.Trades[0]
	if buy.Action != models.Buy {
		t.Fatalf("expected a buy, got %v", buy.Action)
	}
	// The filtered cross at 210 re-arms; the rally bar 214 clears the
	// 2% threshold over an exactly-100 fast SMA (103 > 102).
	if !buy.Date.Equal(bars[214].Date) {
		t.Errorf("expected delayed re-entry at bar 214 (%s), got %s", bars[214].Date, buy.Date)
	}
	if buy.Price != 103 {
		t.Errorf("expected entry at 103, got %f", buy.Price)
	}
	if !res.OpenAtEnd {
		t.Error("position should still be open at series end")
	}
	want := bars[259].Close/103 - 1
	if math.Abs(res.FinalReturn-want) > 1e-9 {
		t.Errorf("final return %f, want %f", res.FinalReturn, want)
	}
}

func TestRun_FilteredCrossWithoutRallyStaysFlat(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bars := makeBars(260, func(i int) float64 {
		switch {
		case i < 210:
			return 100
		case i == 210:
			return 101
		case i == 211:
			return 97
		default:
			return 99
		}
	})

	res, err := e.Run("TEST", bars, models.Conservative)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades without a confirming rally, got %+v", res.Trades)
	}
	if res.FinalReturn != 0 {
		t.Errorf("flat run must return exactly zero, got %f", res.FinalReturn)
	}
	if res.OpenAtEnd {
		t.Error("no position should be open")
	}
}

func TestRun_EquityCurveShape(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bars := makeBars(300, flatThenRising(210))

	res, err := e.Run("TEST", bars, models.Aggressive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.EligibleFrom.Equal(bars[199].Date) {
		t.Errorf("eligibility starts at bar 199 (%s), got %s", bars[199].Date, res.EligibleFrom)
	}
	if len(res.EquityCurve) != 300-199 {
		t.Fatalf("expected %d equity points, got %d", 300-199, len(res.EquityCurve))
	}
	// Flat before entry contributes exactly zero, no drift.
	for _, pt := range res.EquityCurve {
		if pt.Date.Before(bars[210].Date) && pt.Return != 0 {
			t.Fatalf("flat period must be exactly zero, got %f at %s", pt.Return, pt.Date)
		}
	}
	last := res.EquityCurve[len(res.EquityCurve)-1]
	if math.Abs(last.Return-res.FinalReturn) > 1e-12 {
		t.Errorf("last equity point %f must equal final return %f", last.Return, res.FinalReturn)
	}
}

func TestRun_InsufficientHistory(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bars := makeBars(150, func(i int) float64 { return 100 })

	_, err := e.Run("SHORT", bars, models.Aggressive)
	if err == nil {
		t.Fatal("expected error for series shorter than the slow period")
	}
	var ihe *InsufficientHistoryError
	if !errors.As(err, &ihe) {
		t.Fatalf("expected *InsufficientHistoryError, got %T", err)
	}
	if ihe.Ticker != "SHORT" || ihe.Bars != 150 || ihe.Required != 200 {
		t.Errorf("error fields not populated: %+v", ihe)
	}
}

func TestRun_CompoundsAcrossRoundTrips(t *testing.T) {
	// Rise, collapse through a death cross, then rise again: two
	// completed or open holdings whose factors must multiply.
	bars := makeBars(600, func(i int) float64 {
		switch {
		case i < 250:
			return 100 * math.Pow(1.005, float64(i))
		case i < 420:
			return 100 * math.Pow(1.005, 250) * math.Pow(0.99, float64(i-249))
		default:
			return 100 * math.Pow(1.005, 250) * math.Pow(0.99, 170) * math.Pow(1.01, float64(i-419))
		}
	})

	e := NewEngine(DefaultConfig())
	res, err := e.Run("TEST", bars, models.Aggressive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) < 2 {
		t.Fatalf("expected at least one round trip, got %+v", res.Trades)
	}

	// Recompute the compounded factor straight from the trade log.
	factor := 1.0
	var entry float64
	open := false
	for _, tr := range res.Trades {
		switch tr.Action {
		case models.Buy:
			entry = tr.Price
			open = true
		case models.Sell:
			factor *= tr.Price / entry
			open = false
		}
	}
	if open {
		factor *= bars[599].Close / entry
	}
	if open != res.OpenAtEnd {
		t.Errorf("open-at-end mismatch: trades say %v, result says %v", open, res.OpenAtEnd)
	}
	if math.Abs(res.FinalReturn-(factor-1)) > 1e-9 {
		t.Errorf("final return %f disagrees with trade-log compounding %f", res.FinalReturn, factor-1)
	}
}
