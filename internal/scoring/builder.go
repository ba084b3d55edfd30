// Package scoring assembles signal bundles from price history and news
// snapshots and fans pressure scoring out across tickers. The package
// owns nothing mutable across evaluations; every score is computed from
// a fresh bundle.
package scoring

import (
	"math"

	"github.com/hylle9/ai-stock-analytics/internal/analysis/technical"
	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// BuilderConfig holds the indicator windows used when deriving
// sub-signals from a bar series.
type BuilderConfig struct {
	RSIPeriod       int
	ROCPeriod       int
	SMAPeriod       int
	ZWindow         int
	VolumeWindow    int
	VolumeROCPeriod int
	BollPeriod      int
	BollMult        float64
	RelativeWindow  int
}

// DefaultBuilderConfig returns the documented default windows.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		RSIPeriod:       14,
		ROCPeriod:       10,
		SMAPeriod:       20,
		ZWindow:         20,
		VolumeWindow:    20,
		VolumeROCPeriod: 3,
		BollPeriod:      20,
		BollMult:        2,
		RelativeWindow:  20,
	}
}

// Builder derives the latest SignalBundle for a ticker from its bar
// series, an optional market series, and an optional sentiment snapshot.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder creates a bundle builder, filling zero-valued windows with
// defaults.
func NewBuilder(cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.ROCPeriod <= 0 {
		cfg.ROCPeriod = def.ROCPeriod
	}
	if cfg.SMAPeriod <= 0 {
		cfg.SMAPeriod = def.SMAPeriod
	}
	if cfg.ZWindow <= 0 {
		cfg.ZWindow = def.ZWindow
	}
	if cfg.VolumeWindow <= 0 {
		cfg.VolumeWindow = def.VolumeWindow
	}
	if cfg.VolumeROCPeriod <= 0 {
		cfg.VolumeROCPeriod = def.VolumeROCPeriod
	}
	if cfg.BollPeriod <= 0 {
		cfg.BollPeriod = def.BollPeriod
	}
	if cfg.BollMult <= 0 {
		cfg.BollMult = def.BollMult
	}
	if cfg.RelativeWindow <= 0 {
		cfg.RelativeWindow = def.RelativeWindow
	}
	return &Builder{cfg: cfg}
}

// Build derives the as-of-latest-bar bundle. Market and snapshot are
// optional; absent inputs yield invalid sub-signals, never zeroes, so
// the fusion engine can renormalize instead of scoring fabricated data.
func (b *Builder) Build(ticker string, bars []models.PriceBar, market []models.PriceBar, snap *models.SentimentSnapshot) (models.SignalBundle, error) {
	if err := models.ValidateSeries(ticker, bars); err != nil {
		return models.SignalBundle{}, err
	}

	bundle := models.SignalBundle{Ticker: ticker}
	if len(bars) == 0 {
		return bundle, nil
	}
	bundle.Date = bars[len(bars)-1].Date

	closes := models.Closes(bars)
	vols := models.Volumes(bars)

	bundle.RSI = latestSignal(technical.RSI(bars, b.cfg.RSIPeriod))
	bundle.ROCZ = latestSignal(zScored(technical.ROC(closes, b.cfg.ROCPeriod), b.cfg.ZWindow))
	bundle.SMADevZ = latestSignal(zScored(technical.SMADeviation(bars, b.cfg.SMAPeriod), b.cfg.ZWindow))
	bundle.BandwidthZ = latestSignal(zScored(technical.BollingerBandwidth(bars, b.cfg.BollPeriod, b.cfg.BollMult), b.cfg.ZWindow))
	bundle.VolumeAnomaly = latestSignal(technical.VolumeRatio(bars, b.cfg.VolumeWindow))
	bundle.VolumeAccelZ = latestSignal(zScored(technical.ROC(vols, b.cfg.VolumeROCPeriod), b.cfg.ZWindow))
	bundle.RelativeReturn = b.relativeReturn(closes, market)

	if snap != nil && snap.ArticleCount > 0 {
		bundle.Sentiment = models.Signal(snap.Score)
		bundle.Attention = models.Signal(snap.Attention)
	}
	return bundle, nil
}

// relativeReturn is the trailing-window return of the stock minus the
// market's over their own last windows.
func (b *Builder) relativeReturn(closes []float64, market []models.PriceBar) models.SubSignal {
	stock, ok := trailingReturn(closes, b.cfg.RelativeWindow)
	if !ok {
		return models.NoSignal
	}
	mkt, ok := trailingReturn(models.Closes(market), b.cfg.RelativeWindow)
	if !ok {
		return models.NoSignal
	}
	return models.Signal(stock - mkt)
}

func trailingReturn(closes []float64, window int) (float64, bool) {
	n := len(closes)
	if n <= window || closes[n-1-window] <= 0 {
		return 0, false
	}
	return closes[n-1]/closes[n-1-window] - 1, true
}

// zScored z-scores a raw indicator series over the trailing window,
// passing a nil series through.
func zScored(raw []float64, window int) []float64 {
	if raw == nil {
		return nil
	}
	return technical.RollingZScore(raw, window)
}

// latestSignal converts the last value of an indicator series into a
// sub-signal, treating NaN warmup values as unavailable.
func latestSignal(series []float64) models.SubSignal {
	v := technical.Latest(series)
	if math.IsNaN(v) {
		return models.NoSignal
	}
	return models.Signal(v)
}
