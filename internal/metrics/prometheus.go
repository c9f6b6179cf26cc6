package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "funding_arb_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	newCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
	}
	scans := newCounter("scans_total", "Total number of watch-list scans.")
	opportunities := newCounter("opportunities_total", "Total number of opportunities above threshold.")
	opened := newCounter("positions_opened_total", "Total number of positions opened.")
	closed := newCounter("positions_closed_total", "Total number of positions closed.")
	openRejected := newCounter("open_rejected_total", "Total number of open attempts rejected before dispatch.")
	hedgeRejected := newCounter("hedge_rejected_total", "Total number of hedge legs rejected by the venue.")
	hedgeUnknown := newCounter("hedge_unknown_total", "Total number of hedge dispatches with unknown outcome.")
	pnlTicks := newCounter("pnl_ticks_total", "Total number of PnL update passes.")
	pnlSkips := newCounter("pnl_skips_total", "Total number of positions skipped during a PnL pass.")

	registry.MustRegister(scans, opportunities, opened, closed, openRejected, hedgeRejected, hedgeUnknown, pnlTicks, pnlSkips)

	return &Prometheus{
		Metrics: &Metrics{
			ScansTotal:        promCounter{scans},
			OpportunitiesSeen: promCounter{opportunities},
			PositionsOpened:   promCounter{opened},
			PositionsClosed:   promCounter{closed},
			OpenRejected:      promCounter{openRejected},
			HedgeRejected:     promCounter{hedgeRejected},
			HedgeUnknown:      promCounter{hedgeUnknown},
			PnlTicks:          promCounter{pnlTicks},
			PnlSkips:          promCounter{pnlSkips},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
