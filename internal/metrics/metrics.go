package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	ScansTotal        Counter
	OpportunitiesSeen Counter
	PositionsOpened   Counter
	PositionsClosed   Counter
	OpenRejected      Counter
	HedgeRejected     Counter
	HedgeUnknown      Counter
	PnlTicks          Counter
	PnlSkips          Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		ScansTotal:        n,
		OpportunitiesSeen: n,
		PositionsOpened:   n,
		PositionsClosed:   n,
		OpenRejected:      n,
		HedgeRejected:     n,
		HedgeUnknown:      n,
		PnlTicks:          n,
		PnlSkips:          n,
	}
}
