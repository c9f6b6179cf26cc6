package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"funding-arb-bot/internal/rates"

	"go.uber.org/zap"
)

// Scanner fans a rate request out across the watch list, one goroutine per
// symbol, each bounded by its own timeout. A symbol whose fetch fails or
// comes back with fewer than two samples is skipped; the rest of the scan
// is unaffected.
type Scanner struct {
	source       rates.Source
	params       Params
	fetchTimeout time.Duration
	log          *zap.Logger
}

func New(source rates.Source, params Params, fetchTimeout time.Duration, log *zap.Logger) *Scanner {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &Scanner{source: source, params: params, fetchTimeout: fetchTimeout, log: log}
}

// Scan returns candidate opportunities above the configured threshold,
// sorted descending by expected return. An empty result is a normal
// negative answer, never an error.
func (s *Scanner) Scan(ctx context.Context, watchList []string) []Opportunity {
	var (
		mu  sync.Mutex
		out []Opportunity
		wg  sync.WaitGroup
	)
	for _, symbol := range watchList {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			samples := s.source.FundingRates(fetchCtx, symbol)
			cancel()
			if len(samples) < 2 {
				s.log.Debug("symbol skipped",
					zap.String("symbol", symbol),
					zap.Int("samples", len(samples)),
				)
				return
			}
			opp, ok := Evaluate(symbol, samples, s.params)
			if !ok {
				return
			}
			mu.Lock()
			out = append(out, opp)
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].ExpectedReturn > out[j].ExpectedReturn })
	return out
}
