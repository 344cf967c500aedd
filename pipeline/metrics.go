package pipeline

import (
	"fmt"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/prometheus/client_golang/prometheus"
)

type promMetrics struct {
	pairsTotal prometheus.Counter
	diffsTotal *prometheus.CounterVec
}

// RegisterMetrics exports comparison counters on reg. Call before Start.
func (p *Pipeline) RegisterMetrics(reg prometheus.Registerer) error {
	pairs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "updater_term_pairs_compared_total",
			Help: "Total number of term pairs reconciled.",
		},
	)
	diffs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updater_diffs_total",
			Help: "Total number of differences found, by diff type.",
		},
		[]string{"type"},
	)
	for _, c := range []prometheus.Collector{pairs, diffs} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register pipeline metrics: %w", err)
		}
	}
	p.prom = &promMetrics{pairsTotal: pairs, diffsTotal: diffs}
	return nil
}

func (m *promMetrics) record(report models.TermReport) {
	if m == nil {
		return
	}
	m.pairsTotal.Inc()
	for _, d := range report.Diffs {
		m.diffsTotal.WithLabelValues(string(d.Type)).Inc()
	}
}
