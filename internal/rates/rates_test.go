package rates

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNormalizeRescalesInterval(t *testing.T) {
	// Hourly venue rate scaled up to an 8h cycle (3 periods per day).
	sample := Sample{Exchange: "hyperliquid", Symbol: "BTC", Rate: 0.0001, Interval: time.Hour, Confidence: 1}
	out := Normalize(sample, 3)
	if math.Abs(out.Rate-0.0008) > 1e-12 {
		t.Fatalf("expected rate 0.0008, got %v", out.Rate)
	}
	if out.Interval != 8*time.Hour {
		t.Fatalf("expected 8h interval, got %s", out.Interval)
	}
}

func TestNormalizeNoIntervalPassesThrough(t *testing.T) {
	sample := Sample{Exchange: "binance", Symbol: "BTC", Rate: 0.001, Confidence: 1}
	out := Normalize(sample, 3)
	if out.Rate != 0.001 {
		t.Fatalf("expected rate unchanged, got %v", out.Rate)
	}
}

func TestNormalizeMatchingIntervalUnchanged(t *testing.T) {
	sample := Sample{Exchange: "binance", Symbol: "BTC", Rate: 0.001, Interval: 8 * time.Hour, Confidence: 1}
	out := Normalize(sample, 3)
	if out.Rate != 0.001 || out.Interval != 8*time.Hour {
		t.Fatalf("expected sample unchanged, got rate %v interval %s", out.Rate, out.Interval)
	}
}

func TestNormalizeClampsConfidence(t *testing.T) {
	out := Normalize(Sample{Confidence: 1.7}, 3)
	if out.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", out.Confidence)
	}
	out = Normalize(Sample{Confidence: -0.2}, 3)
	if out.Confidence != 0 {
		t.Fatalf("expected confidence clamped to 0, got %v", out.Confidence)
	}
}

func TestParseSample(t *testing.T) {
	payload := map[string]any{
		"coin":            "BTC",
		"fundingRate":     "0.0001",
		"nextFundingTime": float64(1700000000000),
		"confidence":      0.8,
	}
	sample, ok := ParseSample("hyperliquid", "", payload)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if sample.Symbol != "BTC" || sample.Exchange != "hyperliquid" {
		t.Fatalf("unexpected identity: %s %s", sample.Exchange, sample.Symbol)
	}
	if sample.Rate != 0.0001 {
		t.Fatalf("expected rate 0.0001, got %v", sample.Rate)
	}
	if sample.NextFunding.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected next funding %v", sample.NextFunding)
	}
	if sample.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", sample.Confidence)
	}
}

func TestParseSampleMissingRate(t *testing.T) {
	if _, ok := ParseSample("binance", "BTC", map[string]any{"coin": "BTC"}); ok {
		t.Fatalf("expected parse to fail without a rate")
	}
	if _, ok := ParseSample("binance", "", map[string]any{"fundingRate": 0.1}); ok {
		t.Fatalf("expected parse to fail without a symbol")
	}
	if _, ok := ParseSample("binance", "BTC", "not a map"); ok {
		t.Fatalf("expected parse to fail on non-map payload")
	}
}

func TestParseQuote(t *testing.T) {
	quote, ok := ParseQuote("hyperliquid", map[string]any{"markPx": "42000.5"})
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if quote.Price != 42000.5 {
		t.Fatalf("expected price 42000.5, got %v", quote.Price)
	}
	if quote.Source != "hyperliquid" {
		t.Fatalf("expected source hyperliquid, got %s", quote.Source)
	}

	if _, ok := ParseQuote("x", map[string]any{"markPx": "0"}); ok {
		t.Fatalf("expected zero price to fail")
	}
	quote, ok = ParseQuote("x", 100.5)
	if !ok || quote.Price != 100.5 {
		t.Fatalf("expected bare number payload to parse, got %v %v", quote, ok)
	}
}

func TestTimeFromAnyUnits(t *testing.T) {
	// Seconds, milliseconds and nanoseconds should all land on the same
	// instant.
	want := time.Unix(1700000000, 0).UTC()
	cases := []any{
		float64(1700000000),
		float64(1700000000000),
		float64(1700000000000000000),
	}
	for _, v := range cases {
		ts, ok := timeFromAny(v)
		if !ok {
			t.Fatalf("expected parse of %v", v)
		}
		if !ts.Equal(want) {
			t.Fatalf("expected %v, got %v for input %v", want, ts, v)
		}
	}
}

type fakeExchange struct {
	name   string
	sample Sample
	quote  Quote
	err    error
}

func (f *fakeExchange) Name() string { return f.name }

func (f *fakeExchange) FundingRate(ctx context.Context, symbol string) (Sample, error) {
	_ = ctx
	_ = symbol
	if f.err != nil {
		return Sample{}, f.err
	}
	return f.sample, nil
}

func (f *fakeExchange) Price(ctx context.Context, symbol string) (Quote, error) {
	_ = ctx
	_ = symbol
	if f.err != nil {
		return Quote{}, f.err
	}
	return f.quote, nil
}

func TestAggregatorSkipsFailedVenue(t *testing.T) {
	agg := NewAggregator([]ExchangeSource{
		&fakeExchange{name: "binance", sample: Sample{Exchange: "binance", Symbol: "BTC", Rate: 0.001, Confidence: 1}},
		&fakeExchange{name: "bybit", err: errors.New("timeout")},
		&fakeExchange{name: "okx", sample: Sample{Exchange: "okx", Symbol: "BTC", Rate: -0.002, Confidence: 1}},
	}, 3, time.Second, zap.NewNop())

	samples := agg.FundingRates(context.Background(), "BTC")
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Exchange != "binance" || samples[1].Exchange != "okx" {
		t.Fatalf("unexpected venues: %s %s", samples[0].Exchange, samples[1].Exchange)
	}
}

func TestAggregatorPriceFallsThroughVenues(t *testing.T) {
	agg := NewAggregator([]ExchangeSource{
		&fakeExchange{name: "binance", err: errors.New("down")},
		&fakeExchange{name: "okx", quote: Quote{Price: 42000, Source: "okx"}},
	}, 3, time.Second, zap.NewNop())

	quote, ok := agg.Price(context.Background(), "BTC")
	if !ok {
		t.Fatalf("expected a quote")
	}
	if quote.Source != "okx" || quote.Price != 42000 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	empty := NewAggregator(nil, 3, time.Second, zap.NewNop())
	if _, ok := empty.Price(context.Background(), "BTC"); ok {
		t.Fatalf("expected no quote from empty aggregator")
	}
}
