package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"funding-arb-bot/internal/alerts"
	"funding-arb-bot/internal/config"
	"funding-arb-bot/internal/engine"
	"funding-arb-bot/internal/hedge"
	"funding-arb-bot/internal/hedge/dex"
	"funding-arb-bot/internal/ledger"
	"funding-arb-bot/internal/metrics"
	"funding-arb-bot/internal/rates"
	"funding-arb-bot/internal/rates/feed"
	"funding-arb-bot/internal/rates/venue"
	"funding-arb-bot/internal/scanner"
	"funding-arb-bot/internal/snapshots"
	"funding-arb-bot/internal/state/sqlite"

	"go.uber.org/zap"
)

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	journal   *sqlite.Journal
	feed      *feed.Feed
	engine    *engine.Engine
	alerts    *alerts.Telegram
	snapshots *snapshots.Writer
	prom      *metrics.Prometheus
	paused    atomic.Bool
}

// New wires the whole bot from config. Any error here is a configuration
// fault and the process should not start.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	journal, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	var sources []rates.ExchangeSource
	for _, venueCfg := range cfg.Rates.Venues {
		client := venue.New(venueCfg.BaseURL, venueCfg.Timeout, log)
		sources = append(sources, venue.NewSource(venueCfg.Name, client))
	}
	var streamFeed *feed.Feed
	if cfg.Feed.Enabled {
		streamFeed = feed.New(cfg.Feed.Exchange, cfg.Feed.URL, cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, log)
		sources = append(sources, streamFeed)
	}
	aggregator := rates.NewAggregator(sources, cfg.Engine.FundingPeriodsPerDay, cfg.Rates.FetchTimeout, log)

	privateKey := strings.TrimSpace(os.Getenv("DEX_PRIVATE_KEY"))
	if privateKey == "" {
		return nil, errors.New("DEX_PRIVATE_KEY is required")
	}
	isMainnet := !strings.Contains(strings.ToLower(cfg.Dex.BaseURL), "testnet")
	signer, err := dex.NewSigner(privateKey, isMainnet)
	if err != nil {
		return nil, err
	}
	if wallet := strings.TrimSpace(os.Getenv("DEX_WALLET_ADDRESS")); wallet != "" {
		if !strings.EqualFold(wallet, signer.Address().Hex()) {
			return nil, fmt.Errorf("wallet address does not match private key: got %s expected %s", wallet, signer.Address().Hex())
		}
	}
	dexClient, err := dex.NewClient(cfg.Dex.BaseURL, cfg.Dex.Timeout, signer, log)
	if err != nil {
		return nil, err
	}
	executor := hedge.NewExecutor(dexClient, dexClient, cfg.Engine.DispatchTimeout, log)

	var prom *metrics.Prometheus
	m := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	writer, err := snapshots.New(cfg.Timescale, log)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	scan := scanner.New(aggregator, scanner.Params{
		MinFundingRate:     cfg.Engine.MinFundingRate,
		PeriodsPerDay:      cfg.Engine.FundingPeriodsPerDay,
		NotionalUSD:        cfg.Engine.NotionalUSD,
		MaxPositionSizeUSD: cfg.Engine.MaxPositionSizeUSD,
	}, cfg.Rates.FetchTimeout, log)

	eng := engine.New(engine.Options{
		Scanner:   scan,
		Source:    aggregator,
		Executor:  executor,
		Ledger:    ledger.New(),
		Journal:   journal,
		Metrics:   m,
		Log:       log,
		WatchList: cfg.Engine.WatchList,
		CloseMode: cfg.Engine.CloseMode,
	})

	return &App{
		cfg:       cfg,
		log:       log,
		journal:   journal,
		feed:      streamFeed,
		engine:    eng,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		snapshots: writer,
		prom:      prom,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.journal.Close()
	defer a.snapshots.Close()

	a.snapshots.Start(ctx)
	a.startFeed(ctx)
	a.startMetrics(ctx)
	if a.alerts.Enabled() && a.cfg.Telegram.OperatorEnabled {
		go a.runOperator(ctx)
	}

	scanTicker := time.NewTicker(a.cfg.Engine.ScanInterval)
	defer scanTicker.Stop()
	pnlTicker := time.NewTicker(a.cfg.Engine.PnlInterval)
	defer pnlTicker.Stop()

	a.log.Info("bot started",
		zap.Strings("watch_list", a.cfg.Engine.WatchList),
		zap.String("close_mode", a.cfg.Engine.CloseMode),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scanTicker.C:
			if a.paused.Load() {
				continue
			}
			a.scanTick(ctx)
		case <-pnlTicker.C:
			a.pnlTick(ctx)
		}
	}
}

// scanTick surfaces opportunities without acting on them: entries stay an
// operator decision through the command surface.
func (a *App) scanTick(ctx context.Context) {
	opportunities := a.engine.Scan(ctx)
	if len(opportunities) == 0 {
		return
	}
	best := opportunities[0]
	a.log.Info("scan found opportunities",
		zap.Int("count", len(opportunities)),
		zap.String("best_symbol", best.Symbol),
		zap.Float64("best_expected_return", best.ExpectedReturn),
	)
	if _, held := a.engine.ActiveBySymbol(best.Symbol); held {
		return
	}
	msg := fmt.Sprintf("Opportunity: %s %.2f%% annualized, risk %s, capital $%.0f",
		best.Symbol, best.ExpectedReturn*100, best.Risk, best.RequiredCapital)
	if err := a.alerts.Send(ctx, msg); err != nil {
		a.log.Warn("alert send failed", zap.Error(err))
	}
}

func (a *App) pnlTick(ctx context.Context) {
	a.engine.PnLTick(ctx)
	now := time.Now().UTC()
	for _, position := range a.engine.ActivePositions() {
		a.snapshots.Enqueue(snapshots.PnlSnapshot{
			Time:             now,
			PositionID:       position.ID,
			Symbol:           position.Symbol,
			Status:           string(position.Status),
			SizeUSD:          position.Size,
			FundingCollected: position.CexFundingCollected,
			NetPnl:           position.NetPnl,
		})
	}
}

func (a *App) startFeed(ctx context.Context) {
	if a.feed == nil {
		return
	}
	if err := a.feed.Connect(ctx); err != nil {
		a.log.Warn("feed connect failed, will retry", zap.Error(err))
	}
	for _, symbol := range a.cfg.Engine.WatchList {
		if err := a.feed.Watch(ctx, symbol); err != nil {
			a.log.Warn("feed subscribe failed, will replay on reconnect",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}
	go func() {
		if err := a.feed.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("feed stopped", zap.Error(err))
		}
	}()
}

func (a *App) startMetrics(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
