package scoring

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hylle9/ai-stock-analytics/internal/analysis/sentiment"
	"github.com/hylle9/ai-stock-analytics/internal/fusion"
	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// BarSource supplies daily bar history for a ticker.
type BarSource interface {
	DailyBars(ctx context.Context, ticker string) ([]models.PriceBar, error)
}

// NewsSource supplies recent headlines for a ticker.
type NewsSource interface {
	Headlines(ctx context.Context, ticker string) ([]models.Headline, error)
}

// Service scores tickers by fetching bars and news, building bundles,
// and running the fusion engine. News and market inputs are optional;
// their absence degrades the bundle instead of failing the score.
type Service struct {
	bars         BarSource
	news         NewsSource // may be nil
	builder      *Builder
	engine       *fusion.Engine
	marketTicker string
	concurrency  int
	now          func() time.Time
}

// NewService wires a scoring service. A nil news source disables the
// sentiment and attention sub-signals; an empty market ticker disables
// the relative-return sub-signal.
func NewService(bars BarSource, news NewsSource, builder *Builder, engine *fusion.Engine, marketTicker string, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		bars:         bars,
		news:         news,
		builder:      builder,
		engine:       engine,
		marketTicker: marketTicker,
		concurrency:  concurrency,
		now:          time.Now,
	}
}

// Result is the outcome of scoring one ticker in a batch. Err is set
// when that ticker failed; the rest of the batch is unaffected.
type Result struct {
	Ticker string
	Score  models.PressureScore
	Bundle models.SignalBundle
	Err    error
}

// ScoreTicker fetches inputs and scores a single ticker.
func (s *Service) ScoreTicker(ctx context.Context, ticker string) (models.PressureScore, models.SignalBundle, error) {
	market, err := s.marketBars(ctx)
	if err != nil {
		return models.PressureScore{}, models.SignalBundle{}, err
	}
	res := s.scoreOne(ctx, ticker, market)
	return res.Score, res.Bundle, res.Err
}

// ScoreAll scores a batch of tickers concurrently. The market series is
// fetched once and shared. Per-ticker failures land in the individual
// Result; only context cancellation aborts the batch.
func (s *Service) ScoreAll(ctx context.Context, tickers []string) ([]Result, error) {
	market, err := s.marketBars(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(tickers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.scoreOne(ctx, ticker, market)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) scoreOne(ctx context.Context, ticker string, market []models.PriceBar) Result {
	res := Result{Ticker: ticker}

	bars, err := s.bars.DailyBars(ctx, ticker)
	if err != nil {
		res.Err = err
		return res
	}

	var snap *models.SentimentSnapshot
	if s.news != nil {
		// News failures degrade the bundle rather than failing the score.
		if headlines, err := s.news.Headlines(ctx, ticker); err == nil {
			agg := sentiment.Aggregate(ticker, headlines, s.now())
			snap = &agg
		}
	}

	bundle, err := s.builder.Build(ticker, bars, market, snap)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bundle = bundle

	score, err := s.engine.ComputePressure(bundle)
	if err != nil {
		res.Err = err
		return res
	}
	res.Score = score
	return res
}

func (s *Service) marketBars(ctx context.Context) ([]models.PriceBar, error) {
	if s.marketTicker == "" {
		return nil, nil
	}
	return s.bars.DailyBars(ctx, s.marketTicker)
}
