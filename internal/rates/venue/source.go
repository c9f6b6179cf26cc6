package venue

import (
	"context"
	"errors"
	"fmt"

	"funding-arb-bot/internal/rates"
)

// Source adapts a venue info client to the aggregator's per-exchange
// contract.
type Source struct {
	name   string
	client *Client
}

func NewSource(name string, client *Client) *Source {
	return &Source{name: name, client: client}
}

func (s *Source) Name() string { return s.name }

func (s *Source) FundingRate(ctx context.Context, symbol string) (rates.Sample, error) {
	payload, err := s.client.Info(ctx, InfoRequest{Type: "fundingRate", Coin: symbol})
	if err != nil {
		return rates.Sample{}, err
	}
	sample, ok := rates.ParseSample(s.name, symbol, payload)
	if !ok {
		return rates.Sample{}, fmt.Errorf("no funding rate for %s in %s response", symbol, s.name)
	}
	return sample, nil
}

func (s *Source) Price(ctx context.Context, symbol string) (rates.Quote, error) {
	payload, err := s.client.Info(ctx, InfoRequest{Type: "markPrice", Coin: symbol})
	if err != nil {
		return rates.Quote{}, err
	}
	quote, ok := rates.ParseQuote(s.name, payload)
	if !ok {
		return rates.Quote{}, errors.New("no price in response")
	}
	return quote, nil
}
