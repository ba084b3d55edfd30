package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Resolver walks a primary/fallback chain of sources, returning the
// first series a source can supply. The chain order is the caller's
// priority order.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over the given sources.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// Name returns the data source name.
func (r *Resolver) Name() string { return "resolver" }

// Sources returns the configured chain.
func (r *Resolver) Sources() []Source { return r.sources }

// DailyBars tries each source in order. A source failure of any kind
// falls through to the next; only when the whole chain fails are the
// collected errors returned.
func (r *Resolver) DailyBars(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	if len(r.sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	var errs []error
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := src.DailyBars(ctx, ticker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		return bars, nil
	}
	return nil, errors.Join(errs...)
}
