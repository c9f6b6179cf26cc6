package scanner

import (
	"funding-arb-bot/internal/hedge"
	"funding-arb-bot/internal/ledger"
)

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Opportunity is a scored funding differential for one symbol. The CEX leg
// captures funding, the DEX leg hedges direction; DexSide is always the
// opposite of CexSide.
type Opportunity struct {
	Symbol          string
	CexSide         ledger.Side
	DexSide         ledger.Side
	CexFundingRate  float64
	TargetExchange  string
	ExpectedReturn  float64
	Risk            Risk
	RequiredCapital float64
	HedgeAction     hedge.Action
	Confidence      float64
}
