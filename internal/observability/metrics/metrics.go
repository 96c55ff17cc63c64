package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	commitTotal       *prometheus.CounterVec
	sideEffectFailure *prometheus.CounterVec
	commitLatency     *prometheus.HistogramVec
	slotQueries       *prometheus.CounterVec
	degradedReads     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		commitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "commit_total",
			Help:      "Reservation submissions by outcome",
		}, []string{"outcome"}),
		sideEffectFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "side_effect_failures_total",
			Help:      "Post-commit side effects that failed",
		}, []string{"step"}),
		commitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "commit_latency_seconds",
			Help:      "Latency of reservation submissions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Slot availability queries by result",
		}, []string{"result"}),
		degradedReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "degraded_reads_total",
			Help:      "Reads served with fallback data because a source was unavailable",
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.commitTotal, m.sideEffectFailure, m.commitLatency, m.slotQueries, m.degradedReads)
	return m
}

func (m *BookingMetrics) ObserveCommit(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.commitTotal.WithLabelValues(outcome).Inc()
	m.commitLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *BookingMetrics) ObserveSideEffectFailure(step string) {
	if m == nil {
		return
	}
	m.sideEffectFailure.WithLabelValues(step).Inc()
}

func (m *BookingMetrics) ObserveSlotQuery(empty bool) {
	if m == nil {
		return
	}
	label := "available"
	if empty {
		label = "empty"
	}
	m.slotQueries.WithLabelValues(label).Inc()
}

func (m *BookingMetrics) ObserveDegraded(source string) {
	if m == nil {
		return
	}
	m.degradedReads.WithLabelValues(source).Inc()
}
