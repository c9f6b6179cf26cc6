package scanner

import (
	"sort"

	"funding-arb-bot/internal/hedge"
	"funding-arb-bot/internal/ledger"
	"funding-arb-bot/internal/rates"
)

const daysPerYear = 365

// Params holds the scoring policy. PeriodsPerDay is the funding
// settlement count the differential is annualized with; venues on other
// cycles are normalized before they reach the evaluator.
type Params struct {
	MinFundingRate     float64
	PeriodsPerDay      float64
	NotionalUSD        float64
	MaxPositionSizeUSD float64
}

// Evaluate scores one symbol's samples. It is pure: no I/O, no clock.
// Fewer than two samples or a differential below the annualized threshold
// is a rejection, not an error.
func Evaluate(symbol string, samples []rates.Sample, params Params) (Opportunity, bool) {
	if len(samples) < 2 {
		return Opportunity{}, false
	}
	sorted := append([]rates.Sample(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rate > sorted[j].Rate })
	highest := sorted[0]
	lowest := sorted[len(sorted)-1]

	differential := highest.Rate - lowest.Rate
	expectedReturn := differential * daysPerYear * params.PeriodsPerDay
	if expectedReturn < params.MinFundingRate {
		return Opportunity{}, false
	}

	// Avoid the venue paying positive funding: short it on the CEX leg.
	cexSide := ledger.SideLong
	if highest.Rate > 0 {
		cexSide = ledger.SideShort
	}
	dexSide := cexSide.Opposite()

	minConfidence := highest.Confidence
	if lowest.Confidence < minConfidence {
		minConfidence = lowest.Confidence
	}

	return Opportunity{
		Symbol:          symbol,
		CexSide:         cexSide,
		DexSide:         dexSide,
		CexFundingRate:  highest.Rate,
		TargetExchange:  highest.Exchange,
		ExpectedReturn:  expectedReturn,
		Risk:            riskBucket(minConfidence),
		RequiredCapital: requiredCapital(params),
		HedgeAction:     hedge.ActionForSide(dexSide),
		Confidence:      minConfidence,
	}, true
}

func riskBucket(confidence float64) Risk {
	switch {
	case confidence > 0.8:
		return RiskLow
	case confidence > 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func requiredCapital(params Params) float64 {
	capital := params.NotionalUSD
	if params.MaxPositionSizeUSD > 0 && params.MaxPositionSizeUSD < capital {
		capital = params.MaxPositionSizeUSD
	}
	return capital
}
