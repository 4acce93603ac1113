package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PawnMetrics counts lifecycle transition attempts segmented by operation and
// outcome so operators can watch rejection rates per transition.
type PawnMetrics struct {
	transitions *prometheus.CounterVec
}

var (
	pawnMetricsOnce sync.Once
	pawnRegistry    *PawnMetrics
)

// Pawn returns the lazily-initialised metrics registry for the pawn engine.
func Pawn() *PawnMetrics {
	pawnMetricsOnce.Do(func() {
		pawnRegistry = &PawnMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pawnhub",
				Subsystem: "engine",
				Name:      "transitions_total",
				Help:      "Total loan lifecycle transition attempts segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
		}
		prometheus.MustRegister(pawnRegistry.transitions)
	})
	return pawnRegistry
}

// RecordTransition records the outcome of one attempted transition.
func (m *PawnMetrics) RecordTransition(op string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transitions.WithLabelValues(op, outcome).Inc()
}
