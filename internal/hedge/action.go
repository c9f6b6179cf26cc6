package hedge

import "funding-arb-bot/internal/ledger"

// Action is the closed set of hedge-leg instructions. Dispatch switches on
// it exhaustively; there is no string comparison anywhere downstream.
type Action int

const (
	ActionLongDex Action = iota
	ActionShortDex
)

func (a Action) String() string {
	switch a {
	case ActionLongDex:
		return "long_dex"
	case ActionShortDex:
		return "short_dex"
	default:
		return "unknown"
	}
}

// ActionForSide derives the hedge action from the DEX side of an
// opportunity: a long DEX leg is acquired, a short DEX leg is opened at 1x.
func ActionForSide(dexSide ledger.Side) Action {
	if dexSide == ledger.SideLong {
		return ActionLongDex
	}
	return ActionShortDex
}
