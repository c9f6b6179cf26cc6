package hedge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Outcome is the tri-state result of a hedge dispatch. Unknown means the
// call timed out with unconfirmed remote state: the trade may still have
// executed, so the caller must never retry it blindly.
type Outcome int

const (
	OutcomeFilled Outcome = iota
	OutcomeRejected
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFilled:
		return "filled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// The short leg always runs at 1x: it exists to neutralize direction, not
// to add exposure.
const shortLeverage = 1.0

// LongTrader acquires or disposes of the symbol funded by a stable
// reference asset.
type LongTrader interface {
	OpenLong(ctx context.Context, symbol string, capitalUSD float64) error
	CloseLong(ctx context.Context, symbol string, capitalUSD float64) error
}

// ShortTrader opens or closes a leveraged short of the given notional.
type ShortTrader interface {
	OpenShort(ctx context.Context, symbol string, notionalUSD, leverage float64) error
	CloseShort(ctx context.Context, symbol string, notionalUSD float64) error
}

type Executor struct {
	long    LongTrader
	short   ShortTrader
	timeout time.Duration
	log     *zap.Logger
}

func NewExecutor(long LongTrader, short ShortTrader, timeout time.Duration, log *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{long: long, short: short, timeout: timeout, log: log}
}

// Dispatch issues the hedge leg for an open. The call is bounded by the
// executor timeout; once issued it is not cancelable.
func (e *Executor) Dispatch(ctx context.Context, action Action, symbol string, capitalUSD float64) Outcome {
	dispatchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	var err error
	switch action {
	case ActionLongDex:
		err = e.long.OpenLong(dispatchCtx, symbol, capitalUSD)
	case ActionShortDex:
		err = e.short.OpenShort(dispatchCtx, symbol, capitalUSD, shortLeverage)
	}
	return e.classify(err, action, symbol)
}

// Unwind issues the reverse of the original hedge leg.
func (e *Executor) Unwind(ctx context.Context, action Action, symbol string, capitalUSD float64) Outcome {
	unwindCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	var err error
	switch action {
	case ActionLongDex:
		err = e.long.CloseLong(unwindCtx, symbol, capitalUSD)
	case ActionShortDex:
		err = e.short.CloseShort(unwindCtx, symbol, capitalUSD)
	}
	return e.classify(err, action, symbol)
}

func (e *Executor) classify(err error, action Action, symbol string) Outcome {
	if err == nil {
		return OutcomeFilled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.log.Warn("hedge dispatch outcome unknown",
			zap.String("action", action.String()),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return OutcomeUnknown
	}
	e.log.Warn("hedge dispatch rejected",
		zap.String("action", action.String()),
		zap.String("symbol", symbol),
		zap.Error(err),
	)
	return OutcomeRejected
}
