// Package technical implements the indicator computations behind the
// pressure score and the strategy simulator. All functions operate on
// chronological []models.PriceBar or plain float64 series; positions where
// an indicator's trailing window is not yet filled hold NaN so that
// "insufficient data" is never confused with a legitimate zero value.
package technical

import (
	"math"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// SMA calculates the Simple Moving Average for the given period.
// Positions before period-1 hold NaN.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := nanSlice(n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Values are 0–100; positions before the warmup hold NaN.
func RSI(bars []models.PriceBar, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(bars)
	if n < period+1 {
		return nil
	}

	rsi := nanSlice(n)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ROC calculates the rate of change over the given period as a fraction:
// (v[i] - v[i-period]) / v[i-period].
func ROC(data []float64, period int) []float64 {
	n := len(data)
	if n <= period || period <= 0 {
		return nil
	}
	result := nanSlice(n)
	for i := period; i < n; i++ {
		if data[i-period] != 0 {
			result[i] = (data[i] - data[i-period]) / data[i-period]
		}
	}
	return result
}

// BollingerBandwidth calculates (upper-lower)/middle for Bollinger Bands
// with the given period and standard-deviation multiplier. Bandwidth is a
// unitless volatility measure that widens with price dispersion.
func BollingerBandwidth(bars []models.PriceBar, period int, mult float64) []float64 {
	n := len(bars)
	if n < period || period <= 0 {
		return nil
	}
	closes := models.Closes(bars)
	result := nanSlice(n)
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mid := mean(window)
		if mid == 0 {
			continue
		}
		sd := stddevPop(window, mid)
		result[i] = (2 * mult * sd) / mid
	}
	return result
}

// RollingMean calculates the trailing mean over the given window.
func RollingMean(data []float64, window int) []float64 {
	return SMA(data, window)
}

// RollingZScore z-scores each value against its own trailing window
// (the window ends at and includes the current position). Positions with
// an unfilled window, or a degenerate zero-deviation window, hold NaN.
func RollingZScore(data []float64, window int) []float64 {
	n := len(data)
	if n < window || window <= 1 {
		return nil
	}
	result := nanSlice(n)
	for i := window - 1; i < n; i++ {
		w := data[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		m := mean(w)
		sd := stddevPop(w, m)
		if sd > 0 {
			result[i] = (data[i] - m) / sd
		}
	}
	return result
}

// VolumeRatio calculates current volume over its trailing-window average
// (the window excludes the current bar). A value above 1.0 marks a spike.
func VolumeRatio(bars []models.PriceBar, window int) []float64 {
	n := len(bars)
	if n <= window || window <= 0 {
		return nil
	}
	vols := models.Volumes(bars)
	result := nanSlice(n)
	for i := window; i < n; i++ {
		avg := mean(vols[i-window : i])
		if avg > 0 {
			result[i] = vols[i] / avg
		}
	}
	return result
}

// SMADeviation calculates the fractional deviation of the close from its
// own SMA: (close - sma) / sma.
func SMADeviation(bars []models.PriceBar, period int) []float64 {
	closes := models.Closes(bars)
	smaVals := SMA(closes, period)
	if smaVals == nil {
		return nil
	}
	result := nanSlice(len(bars))
	for i := range bars {
		if !math.IsNaN(smaVals[i]) && smaVals[i] != 0 {
			result[i] = (closes[i] - smaVals[i]) / smaVals[i]
		}
	}
	return result
}

// Latest returns the last value of a series, or NaN for an empty one.
func Latest(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return data[len(data)-1]
}

// --- helpers ---

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func hasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddevPop(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)))
}
