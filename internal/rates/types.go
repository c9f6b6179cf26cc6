package rates

import (
	"context"
	"time"
)

// Sample is one funding-rate observation for a symbol on one exchange.
// Samples are produced per scan and never persisted.
type Sample struct {
	Exchange    string
	Symbol      string
	Rate        float64
	NextFunding time.Time
	Interval    time.Duration
	Confidence  float64
}

type Quote struct {
	Price      float64
	Timestamp  time.Time
	Source     string
	Confidence float64
}

// Source is the engine-facing rate and price adapter. FundingRates returns
// an empty slice on total failure, never an error.
type Source interface {
	FundingRates(ctx context.Context, symbol string) []Sample
	Price(ctx context.Context, symbol string) (Quote, bool)
}

// ExchangeSource yields samples for a single venue.
type ExchangeSource interface {
	Name() string
	FundingRate(ctx context.Context, symbol string) (Sample, error)
	Price(ctx context.Context, symbol string) (Quote, error)
}
