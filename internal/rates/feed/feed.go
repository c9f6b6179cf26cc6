package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"funding-arb-bot/internal/rates"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Feed keeps a streaming funding/price cache for one venue over a
// reconnecting websocket. It doubles as an exchange source for the
// aggregator: reads are served from the cache, so a dead stream shows up
// as a stale-cache miss rather than a blocking call.
type Feed struct {
	exchange       string
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    []interface{}
	samples map[string]rates.Sample
	quotes  map[string]rates.Quote
}

func New(exchange, url string, reconnectDelay, pingInterval time.Duration, log *zap.Logger) *Feed {
	return &Feed{
		exchange:       exchange,
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		samples:        make(map[string]rates.Sample),
		quotes:         make(map[string]rates.Quote),
	}
}

func (f *Feed) Name() string { return f.exchange }

func (f *Feed) FundingRate(ctx context.Context, symbol string) (rates.Sample, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	sample, ok := f.samples[symbol]
	if !ok {
		return rates.Sample{}, errors.New("no funding sample cached")
	}
	return sample, nil
}

func (f *Feed) Price(ctx context.Context, symbol string) (rates.Quote, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[symbol]
	if !ok {
		return rates.Quote{}, errors.New("no quote cached")
	}
	return quote, nil
}

func (f *Feed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return err
	}
	f.conn = conn
	return nil
}

// Watch subscribes to funding and price updates for a symbol. The
// subscription is replayed after every reconnect.
func (f *Feed) Watch(ctx context.Context, symbol string) error {
	sub := map[string]any{
		"method": "subscribe",
		"subscription": map[string]any{
			"type": "activeAssetCtx",
			"coin": symbol,
		},
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("feed not connected")
	}
	return writeJSON(ctx, conn, sub)
}

func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := f.ensureConnected(ctx); err != nil {
			return err
		}
		pingCtx, cancel := context.WithCancel(ctx)
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			f.pingLoop(pingCtx)
		}()
		err := f.readLoop(ctx)
		cancel()
		<-pingDone
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logReadLoopError(err)
			f.resetConn()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.reconnectDelay):
			}
			continue
		}
	}
}

func (f *Feed) ensureConnected(ctx context.Context) error {
	if err := f.Connect(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	conn := f.conn
	subs := append([]interface{}(nil), f.subs...)
	f.mu.Unlock()
	for _, sub := range subs {
		if err := writeJSON(ctx, conn, sub); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) readLoop(ctx context.Context) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("feed not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		f.handleMessage(data)
	}
}

func (f *Feed) handleMessage(data []byte) {
	var msg struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return
	}
	symbol, sample, quote := parseUpdate(f.exchange, payload)
	if symbol == "" {
		return
	}
	f.mu.Lock()
	if sample != nil {
		f.samples[symbol] = *sample
	}
	if quote != nil {
		f.quotes[symbol] = *quote
	}
	f.mu.Unlock()
}

func parseUpdate(exchange string, payload map[string]any) (string, *rates.Sample, *rates.Quote) {
	symbol, _ := payload["coin"].(string)
	if symbol == "" {
		symbol, _ = payload["symbol"].(string)
	}
	if symbol == "" {
		return "", nil, nil
	}
	body := payload
	if nested, ok := payload["ctx"].(map[string]any); ok {
		body = nested
	}
	var samplePtr *rates.Sample
	if sample, ok := rates.ParseSample(exchange, symbol, body); ok {
		sample.NextFunding = sample.NextFunding.UTC()
		samplePtr = &sample
	}
	var quotePtr *rates.Quote
	if quote, ok := rates.ParseQuote(exchange, body); ok {
		quotePtr = &quote
	}
	return symbol, samplePtr, quotePtr
}

func (f *Feed) pingLoop(ctx context.Context) {
	f.mu.Lock()
	conn := f.conn
	interval := f.pingInterval
	f.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeJSON(ctx, conn, pingMessage); err != nil {
				return
			}
		}
	}
}

func (f *Feed) logReadLoopError(err error) {
	if f.log == nil {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		f.log.Info("feed read loop ended", zap.Error(err))
		return
	}
	f.log.Warn("feed read loop ended", zap.Error(err))
}

func (f *Feed) resetConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close(websocket.StatusNormalClosure, "reset")
		f.conn = nil
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

var pingMessage = map[string]any{"method": "ping"}
