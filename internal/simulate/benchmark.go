package simulate

import (
	"fmt"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// MisalignedWindowError is returned when the stock and market series do
// not cover the comparison window with exactly matching trading days.
// Comparing returns over different day sets silently skews the result,
// so the comparator refuses rather than interpolating.
type MisalignedWindowError struct {
	Ticker string
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *MisalignedWindowError) Error() string {
	return fmt.Sprintf("misaligned comparison window for %s [%s, %s]: %s",
		e.Ticker, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Reason)
}

// Compare benchmarks a simulation result against buy-and-hold on the
// same stock and against the market index, all over the identical
// window [EligibleFrom, To]. Both series must contain every trading day
// of the window on the same dates.
func Compare(res *models.SimulationResult, bars, market []models.PriceBar) (*models.BenchmarkComparison, error) {
	stockWin, err := window(res.Ticker, bars, res.EligibleFrom, res.To)
	if err != nil {
		return nil, err
	}
	marketWin, err := window(res.Ticker, market, res.EligibleFrom, res.To)
	if err != nil {
		return nil, err
	}
	if len(stockWin) != len(marketWin) {
		return nil, &MisalignedWindowError{
			Ticker: res.Ticker, Start: res.EligibleFrom, End: res.To,
			Reason: fmt.Sprintf("stock has %d bars, market has %d", len(stockWin), len(marketWin)),
		}
	}
	for i := range stockWin {
		if !stockWin[i].Date.Equal(marketWin[i].Date) {
			return nil, &MisalignedWindowError{
				Ticker: res.Ticker, Start: res.EligibleFrom, End: res.To,
				Reason: fmt.Sprintf("date mismatch at bar %d: stock %s vs market %s",
					i, stockWin[i].Date.Format("2006-01-02"), marketWin[i].Date.Format("2006-01-02")),
			}
		}
	}

	return &models.BenchmarkComparison{
		Ticker:         res.Ticker,
		Strategy:       res.Strategy,
		Start:          res.EligibleFrom,
		End:            res.To,
		StrategyReturn: res.FinalReturn,
		BuyHoldReturn:  holdReturn(stockWin),
		MarketReturn:   holdReturn(marketWin),
	}, nil
}

// RescaleMarket converts a market window into an equity curve whose
// first point is zero, for overlaying against a strategy curve. The
// rescaling is presentational; comparison math never uses it.
func RescaleMarket(win []models.PriceBar) []models.EquityPoint {
	if len(win) == 0 {
		return nil
	}
	base := win[0].Close
	curve := make([]models.EquityPoint, len(win))
	for i, b := range win {
		curve[i] = models.EquityPoint{Date: b.Date, Return: b.Close/base - 1}
	}
	return curve
}

// window extracts the inclusive [start, end] slice of a series, failing
// when either boundary date is absent.
func window(ticker string, bars []models.PriceBar, start, end time.Time) ([]models.PriceBar, error) {
	lo, hi := -1, -1
	for i, b := range bars {
		if b.Date.Equal(start) {
			lo = i
		}
		if b.Date.Equal(end) {
			hi = i
		}
	}
	if lo < 0 || hi < 0 || hi < lo {
		return nil, &MisalignedWindowError{
			Ticker: ticker, Start: start, End: end,
			Reason: "series does not cover the window boundaries",
		}
	}
	return bars[lo : hi+1], nil
}

func holdReturn(win []models.PriceBar) float64 {
	if len(win) < 2 {
		return 0
	}
	return win[len(win)-1].Close/win[0].Close - 1
}
