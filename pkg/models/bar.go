// Package models defines the core data structures shared across the
// pressure-score analytics engine.
package models

import (
	"fmt"
	"time"
)

// PriceBar represents a single daily candlestick bar of price data.
// Bars are immutable once ingested; a series is always chronological
// with exactly one bar per trading day.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SeriesError reports a violated precondition on a time-series input:
// out-of-order or duplicate dates. The engine never re-sorts silently;
// an unsorted series indicates an upstream ingestion bug that must surface.
type SeriesError struct {
	Ticker string
	Index  int
	Date   time.Time
	Reason string
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("bad series for %s at index %d (%s): %s",
		e.Ticker, e.Index, e.Date.Format("2006-01-02"), e.Reason)
}

// ValidateSeries checks that bars are strictly chronological with no
// duplicate dates. Returns a *SeriesError describing the first violation.
func ValidateSeries(ticker string, bars []PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Equal(bars[i-1].Date) {
			return &SeriesError{Ticker: ticker, Index: i, Date: bars[i].Date, Reason: "duplicate date"}
		}
		if bars[i].Date.Before(bars[i-1].Date) {
			return &SeriesError{Ticker: ticker, Index: i, Date: bars[i].Date, Reason: "not chronological"}
		}
	}
	return nil
}

// Closes extracts the closing prices from a bar series.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts the volumes from a bar series as floats.
func Volumes(bars []PriceBar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = float64(b.Volume)
	}
	return vols
}

// DailyReturns computes simple day-over-day returns from closing prices.
// The result has len(bars)-1 entries.
func DailyReturns(bars []PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	returns := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close > 0 {
			returns[i-1] = (bars[i].Close - bars[i-1].Close) / bars[i-1].Close
		}
	}
	return returns
}
