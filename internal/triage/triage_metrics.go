package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TurnsTotal         *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	GatewayCallsTotal  *prometheus.CounterVec
	GatewayDuration    *prometheus.HistogramVec
	EnrichmentsTotal   prometheus.Counter
	FacilitiesReturned prometheus.Histogram
	EmergenciesTotal   prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medtriage_turns_total",
			Help: "Completed turns by severity and outcome.",
		}, []string{"severity", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medtriage_turn_duration_seconds",
			Help:    "Duration of full triage turns in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"outcome"}),
		GatewayCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medtriage_gateway_calls_total",
			Help: "Model gateway calls by node and outcome.",
		}, []string{"node", "outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medtriage_gateway_call_duration_seconds",
			Help:    "Duration of individual model gateway calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}, []string{"node"}),
		EnrichmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtriage_enrichments_total",
			Help: "Facility enrichment attempts.",
		}),
		FacilitiesReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medtriage_facilities_returned",
			Help:    "Facilities returned per enrichment.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
		EmergenciesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtriage_emergencies_total",
			Help: "Turns that raised the emergency flag.",
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.TurnDuration,
		m.GatewayCallsTotal,
		m.GatewayDuration,
		m.EnrichmentsTotal,
		m.FacilitiesReturned,
		m.EmergenciesTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnGatewayCall: func(node string, duration float64, failed bool) {
			outcome := "success"
			if failed {
				outcome = "error"
			}
			m.GatewayCallsTotal.WithLabelValues(node, outcome).Inc()
			m.GatewayDuration.WithLabelValues(node).Observe(duration)
		},
		OnEnrichment: func(count int) {
			m.EnrichmentsTotal.Inc()
			m.FacilitiesReturned.Observe(float64(count))
		},
		OnTurnComplete: func(severity Severity, failed bool, duration float64) {
			outcome := "success"
			if failed {
				outcome = "failed"
			}
			m.TurnsTotal.WithLabelValues(string(severity), outcome).Inc()
			m.TurnDuration.WithLabelValues(outcome).Observe(duration)
			if !failed && severity == SeveritySevere {
				m.EmergenciesTotal.Inc()
			}
		},
	}
}
