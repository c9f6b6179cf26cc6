package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"funding-arb-bot/internal/config"
	"funding-arb-bot/internal/hedge"
	"funding-arb-bot/internal/ledger"
	"funding-arb-bot/internal/metrics"
	"funding-arb-bot/internal/rates"
	"funding-arb-bot/internal/scanner"
	"funding-arb-bot/internal/state"

	"go.uber.org/zap"
)

const hoursPerYear = 24 * 365

// Engine owns the position ledger and is the only writer to it. Public
// operations never return errors: every failure path resolves to a
// boolean or empty result plus a logged diagnostic.
type Engine struct {
	scanner       *scanner.Scanner
	source        rates.Source
	executor      *hedge.Executor
	ledger        *ledger.Ledger
	journal       state.Journal
	metrics       *metrics.Metrics
	log       *zap.Logger
	watchList []string
	closeMode string

	// Serializes the check-then-act window of Open against concurrent
	// Open/Close calls for the same symbol.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type Options struct {
	Scanner       *scanner.Scanner
	Source        rates.Source
	Executor      *hedge.Executor
	Ledger        *ledger.Ledger
	Journal       state.Journal
	Metrics       *metrics.Metrics
	Log       *zap.Logger
	WatchList []string
	CloseMode string
}

func New(opts Options) *Engine {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	closeMode := opts.CloseMode
	if closeMode == "" {
		closeMode = config.CloseModeBookkeeping
	}
	return &Engine{
		scanner:       opts.Scanner,
		source:        opts.Source,
		executor:      opts.Executor,
		ledger:        opts.Ledger,
		journal:       opts.Journal,
		metrics:       m,
		log:       opts.Log,
		watchList: opts.WatchList,
		closeMode: closeMode,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Scan runs the watch list and returns ranked opportunities. Empty means
// nothing cleared the threshold, which is a normal answer.
func (e *Engine) Scan(ctx context.Context) []scanner.Opportunity {
	e.metrics.ScansTotal.Inc()
	opportunities := e.scanner.Scan(ctx, e.watchList)
	for range opportunities {
		e.metrics.OpportunitiesSeen.Inc()
	}
	return opportunities
}

// Open attempts to enter a two-leg position for symbol. It re-scans for
// fresh data, enforces the at-most-one-active invariant, dispatches the
// hedge leg, and commits to the ledger only on a filled hedge. Returns
// true iff the ledger write happened.
func (e *Engine) Open(ctx context.Context, symbol string) bool {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	opportunities := e.scanner.Scan(ctx, []string{symbol})
	if len(opportunities) == 0 {
		e.metrics.OpenRejected.Inc()
		e.log.Info("no opportunity for symbol", zap.String("symbol", symbol))
		return false
	}
	opp := opportunities[0]

	if _, exists := e.ledger.ActiveBySymbol(symbol); exists {
		e.metrics.OpenRejected.Inc()
		e.log.Info("active position already exists", zap.String("symbol", symbol))
		return false
	}

	switch e.executor.Dispatch(ctx, opp.HedgeAction, symbol, opp.RequiredCapital) {
	case hedge.OutcomeFilled:
	case hedge.OutcomeRejected:
		e.metrics.HedgeRejected.Inc()
		return false
	case hedge.OutcomeUnknown:
		// The trade may still have executed remotely. Nothing is written
		// and nothing is retried until the outcome is confirmed by hand.
		e.metrics.HedgeUnknown.Inc()
		e.log.Error("hedge outcome unknown, manual reconciliation required",
			zap.String("symbol", symbol),
			zap.String("action", opp.HedgeAction.String()),
		)
		return false
	}

	entryTime := time.Now().UTC()
	entryPrice := 0.0
	if quote, ok := e.source.Price(ctx, symbol); ok {
		entryPrice = quote.Price
	} else {
		e.log.Warn("entry price unavailable, basis mark disabled for position", zap.String("symbol", symbol))
	}

	position := ledger.Position{
		ID:             fmt.Sprintf("arb_%s_%d", symbol, entryTime.UnixMilli()),
		Symbol:         symbol,
		CexSide:        opp.CexSide,
		DexSide:        opp.DexSide,
		Size:           opp.RequiredCapital,
		EntryTime:      entryTime,
		EntryPrice:     entryPrice,
		ExpectedReturn: opp.ExpectedReturn,
		Status:         ledger.StatusActive,
	}
	if err := e.ledger.Insert(position); err != nil {
		e.log.Error("ledger insert failed after filled hedge",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return false
	}
	e.journalPosition(ctx, position)
	e.metrics.PositionsOpened.Inc()
	e.log.Info("opened position",
		zap.String("id", position.ID),
		zap.String("symbol", symbol),
		zap.String("cex_side", string(opp.CexSide)),
		zap.String("dex_side", string(opp.DexSide)),
		zap.Float64("size_usd", opp.RequiredCapital),
		zap.Float64("expected_return", opp.ExpectedReturn),
	)
	return true
}

// Close transitions a position out of active. In bookkeeping mode it only
// flips status; in unwind mode it dispatches the reverse hedge leg first
// and a rejected or unknown unwind strands the position in closing, which
// is the explicit fault state a later Close can retry from.
func (e *Engine) Close(ctx context.Context, id string) bool {
	position, ok := e.ledger.Get(id)
	if !ok {
		e.log.Info("close requested for unknown position", zap.String("id", id))
		return false
	}
	lock := e.symbolLock(position.Symbol)
	lock.Lock()
	defer lock.Unlock()

	position, ok = e.ledger.Get(id)
	if !ok || position.Status == ledger.StatusClosed {
		return false
	}

	if position.Status == ledger.StatusActive {
		if err := e.ledger.Transition(id, ledger.StatusClosing); err != nil {
			e.log.Warn("close transition failed", zap.String("id", id), zap.Error(err))
			return false
		}
		if current, ok := e.ledger.Get(id); ok {
			e.journalPosition(ctx, current)
		}
	}

	if e.closeMode == config.CloseModeUnwind {
		action := hedge.ActionForSide(position.DexSide)
		switch e.executor.Unwind(ctx, action, position.Symbol, position.Size) {
		case hedge.OutcomeFilled:
		case hedge.OutcomeRejected:
			e.metrics.HedgeRejected.Inc()
			e.log.Warn("unwind rejected, position stays in closing", zap.String("id", id))
			return false
		case hedge.OutcomeUnknown:
			e.metrics.HedgeUnknown.Inc()
			e.log.Error("unwind outcome unknown, position stays in closing", zap.String("id", id))
			return false
		}
	}

	if err := e.ledger.Transition(id, ledger.StatusClosed); err != nil {
		e.log.Warn("close transition failed", zap.String("id", id), zap.Error(err))
		return false
	}
	if current, ok := e.ledger.Get(id); ok {
		e.journalPosition(ctx, current)
	}
	e.metrics.PositionsClosed.Inc()
	e.log.Info("closed position", zap.String("id", id), zap.String("symbol", position.Symbol))
	return true
}

func (e *Engine) ActivePositions() []ledger.Position {
	return e.ledger.Active()
}

func (e *Engine) AllPositions() []ledger.Position {
	return e.ledger.All()
}

func (e *Engine) ActiveBySymbol(symbol string) (ledger.Position, bool) {
	return e.ledger.ActiveBySymbol(symbol)
}

// PnLTick marks every active position to market. A price miss for one
// symbol skips that position only.
func (e *Engine) PnLTick(ctx context.Context) {
	e.metrics.PnlTicks.Inc()
	now := time.Now().UTC()
	for _, position := range e.ledger.Active() {
		quote, ok := e.source.Price(ctx, position.Symbol)
		if !ok {
			e.metrics.PnlSkips.Inc()
			e.log.Warn("price unavailable, skipping pnl update",
				zap.String("id", position.ID),
				zap.String("symbol", position.Symbol),
			)
			continue
		}
		funding, netPnl := e.mark(position, quote.Price, now)
		if err := e.ledger.UpdateMark(position.ID, funding, netPnl); err != nil {
			e.log.Warn("pnl update failed", zap.String("id", position.ID), zap.Error(err))
			continue
		}
		if current, ok := e.ledger.Get(position.ID); ok {
			e.journalPosition(ctx, current)
		}
	}
}

// mark estimates accrued funding from the annualized expected return and
// marks the executed hedge leg against the entry price. The CEX price leg
// is hedged by construction, so only funding and hedge-leg basis move the
// number.
func (e *Engine) mark(position ledger.Position, price float64, now time.Time) (funding, netPnl float64) {
	elapsedYears := now.Sub(position.EntryTime).Hours() / hoursPerYear
	if elapsedYears < 0 {
		elapsedYears = 0
	}
	funding = position.Size * position.ExpectedReturn * elapsedYears

	basis := 0.0
	if position.EntryPrice > 0 && price > 0 {
		move := (price - position.EntryPrice) / position.EntryPrice
		direction := 1.0
		if position.DexSide == ledger.SideShort {
			direction = -1.0
		}
		basis = position.Size * move * direction
	}
	return funding, funding + basis
}

func (e *Engine) journalPosition(ctx context.Context, position ledger.Position) {
	if e.journal == nil {
		return
	}
	rec := state.PositionRecord{
		ID:               position.ID,
		Symbol:           position.Symbol,
		CexSide:          string(position.CexSide),
		DexSide:          string(position.DexSide),
		SizeUSD:          position.Size,
		EntryTime:        position.EntryTime,
		EntryPrice:       position.EntryPrice,
		ExpectedReturn:   position.ExpectedReturn,
		Status:           string(position.Status),
		FundingCollected: position.CexFundingCollected,
		NetPnl:           position.NetPnl,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := e.journal.Upsert(ctx, rec); err != nil {
		e.log.Warn("position journal write failed", zap.String("id", position.ID), zap.Error(err))
	}
}

func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[symbol] = lock
	}
	return lock
}
