package dex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client submits signed notional-sized orders to the hedge venue. It
// implements both hedge trader contracts: longs acquire the symbol funded
// by the stable reference asset, shorts open at the requested leverage.
type Client struct {
	baseURL   string
	http      *http.Client
	signer    *Signer
	lastNonce atomic.Uint64
	log       *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, signer *Signer, log *zap.Logger) (*Client, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
		signer: signer,
		log:    log,
	}, nil
}

func (c *Client) OpenLong(ctx context.Context, symbol string, capitalUSD float64) error {
	return c.submit(ctx, OrderWire{
		Symbol:   symbol,
		IsBuy:    true,
		Notional: formatNotional(capitalUSD),
		Leverage: "1",
	})
}

func (c *Client) CloseLong(ctx context.Context, symbol string, capitalUSD float64) error {
	return c.submit(ctx, OrderWire{
		Symbol:     symbol,
		IsBuy:      false,
		Notional:   formatNotional(capitalUSD),
		Leverage:   "1",
		ReduceOnly: true,
	})
}

func (c *Client) OpenShort(ctx context.Context, symbol string, notionalUSD, leverage float64) error {
	return c.submit(ctx, OrderWire{
		Symbol:   symbol,
		IsBuy:    false,
		Notional: formatNotional(notionalUSD),
		Leverage: strconv.FormatFloat(leverage, 'f', -1, 64),
	})
}

func (c *Client) CloseShort(ctx context.Context, symbol string, notionalUSD float64) error {
	return c.submit(ctx, OrderWire{
		Symbol:     symbol,
		IsBuy:      true,
		Notional:   formatNotional(notionalUSD),
		Leverage:   "1",
		ReduceOnly: true,
	})
}

func (c *Client) submit(ctx context.Context, order OrderWire) error {
	if order.Notional == "" || order.Notional == "0" {
		return errors.New("order notional must be > 0")
	}
	action := OrderAction{Type: "order", Orders: []OrderWire{order}, Grouping: "na"}
	nonce := c.nextNonce()
	sig, err := c.signer.SignOrderAction(action, nonce)
	if err != nil {
		return err
	}
	payload := SignedAction{Action: action, Nonce: nonce, Signature: sig}
	resp, err := c.post(ctx, "/exchange", payload)
	if err != nil {
		return err
	}
	return checkResponse(resp)
}

// Nonces are wall-clock millis, bumped monotonically when two orders land
// in the same milli.
func (c *Client) nextNonce() uint64 {
	now := uint64(time.Now().UnixMilli())
	for {
		prev := c.lastNonce.Load()
		next := now
		if prev >= next {
			next = prev + 1
		}
		if c.lastNonce.CompareAndSwap(prev, next) {
			return next
		}
	}
}

func (c *Client) post(ctx context.Context, path string, req any) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(payload))
	}
	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func checkResponse(resp map[string]any) error {
	status, _ := resp["status"].(string)
	if status == "ok" {
		return nil
	}
	if detail, ok := resp["response"].(string); ok && detail != "" {
		return fmt.Errorf("exchange rejected order: %s", detail)
	}
	return fmt.Errorf("exchange rejected order: status %q", status)
}

func formatNotional(usd float64) string {
	if usd <= 0 {
		return "0"
	}
	return strconv.FormatFloat(usd, 'f', 2, 64)
}
