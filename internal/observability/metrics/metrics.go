package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for the dialogue engine.
type DialogueMetrics struct {
	turnsTotal       *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
	retrievalTotal   *prometheus.CounterVec
	fallbackTotal    *prometheus.CounterVec
	captureDecisions *prometheus.CounterVec
	stateConflicts   prometheus.Counter
}

// NewDialogueMetrics registers collectors on reg, or the default registerer when reg is nil.
func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total dialogue turns by classified intent and outcome",
		}, []string{"intent", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full dialogue turn",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"intent"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "retrieval_total",
			Help:      "Knowledge retrieval results",
		}, []string{"result"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "fallback_total",
			Help:      "Fallback generator responses by category",
		}, []string{"category"}),
		captureDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "capture_decisions_total",
			Help:      "Contact capture policy decisions",
		}, []string{"decision"}),
		stateConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "state_conflicts_total",
			Help:      "Compare-and-swap conflicts on session state",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.retrievalTotal, m.fallbackTotal, m.captureDecisions, m.stateConflicts)
	return m
}

func (m *DialogueMetrics) ObserveTurn(intent, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

func (m *DialogueMetrics) ObserveRetrieval(result string) {
	if m == nil {
		return
	}
	m.retrievalTotal.WithLabelValues(result).Inc()
}

func (m *DialogueMetrics) ObserveFallback(category string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(category).Inc()
}

func (m *DialogueMetrics) ObserveCapture(decision string) {
	if m == nil {
		return
	}
	m.captureDecisions.WithLabelValues(decision).Inc()
}

func (m *DialogueMetrics) ObserveStateConflict() {
	if m == nil {
		return
	}
	m.stateConflicts.Inc()
}
