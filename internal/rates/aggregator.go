package rates

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Aggregator fans a rate request across every configured exchange source
// and folds the answers into one sample set. A venue that errors or times
// out is logged and skipped; the engine never sees a partial failure.
type Aggregator struct {
	sources       []ExchangeSource
	periodsPerDay float64
	fetchTimeout  time.Duration
	log           *zap.Logger
}

func NewAggregator(sources []ExchangeSource, periodsPerDay float64, fetchTimeout time.Duration, log *zap.Logger) *Aggregator {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &Aggregator{
		sources:       sources,
		periodsPerDay: periodsPerDay,
		fetchTimeout:  fetchTimeout,
		log:           log,
	}
}

func (a *Aggregator) FundingRates(ctx context.Context, symbol string) []Sample {
	out := make([]Sample, 0, len(a.sources))
	for _, src := range a.sources {
		fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
		sample, err := src.FundingRate(fetchCtx, symbol)
		cancel()
		if err != nil {
			a.log.Warn("funding fetch failed",
				zap.String("exchange", src.Name()),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		out = append(out, Normalize(sample, a.periodsPerDay))
	}
	return out
}

func (a *Aggregator) Price(ctx context.Context, symbol string) (Quote, bool) {
	for _, src := range a.sources {
		fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
		quote, err := src.Price(fetchCtx, symbol)
		cancel()
		if err != nil {
			a.log.Debug("price fetch failed",
				zap.String("exchange", src.Name()),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		if quote.Price > 0 {
			return quote, true
		}
	}
	return Quote{}, false
}
