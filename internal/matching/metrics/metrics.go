package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the matching module.
type Metrics struct {
	// Matches generated, labelled by the kind of case that triggered generation
	MatchesGenerated *prometheus.CounterVec

	// Match resolutions by outcome
	MatchesResolved *prometheus.CounterVec

	// Pending matches force-rejected by case invalidation
	MatchesInvalidated prometheus.Counter

	// Candidate generation latency per source case
	GenerateLatency prometheus.Histogram

	// Confirmation latency including the case cascade
	ConfirmLatency prometheus.Histogram
}

// New creates a new Metrics instance with all matching module metrics registered.
func New() *Metrics {
	return &Metrics{
		MatchesGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reunite_matches_generated_total",
			Help: "Total candidate matches generated by triggering case kind",
		}, []string{"kind"}), // kind: "missing", "found"

		MatchesResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reunite_matches_resolved_total",
			Help: "Total match resolutions by outcome",
		}, []string{"outcome"}), // outcome: "confirmed", "rejected"

		MatchesInvalidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reunite_matches_invalidated_total",
			Help: "Pending matches force-rejected because a referenced case was cancelled or resolved",
		}),

		GenerateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reunite_match_generate_duration_seconds",
			Help:    "Duration of candidate generation for a single case",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reunite_match_confirm_duration_seconds",
			Help:    "Duration of match confirmation including the case status cascade",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementGenerated records candidate matches produced for a case kind.
func (m *Metrics) IncrementGenerated(kind string, count int) {
	if m != nil {
		m.MatchesGenerated.WithLabelValues(kind).Add(float64(count))
	}
}

// IncrementResolved records a match resolution outcome.
func (m *Metrics) IncrementResolved(outcome string) {
	if m != nil {
		m.MatchesResolved.WithLabelValues(outcome).Inc()
	}
}

// AddInvalidated records pending matches force-rejected for a case.
func (m *Metrics) AddInvalidated(count int) {
	if m != nil {
		m.MatchesInvalidated.Add(float64(count))
	}
}

// ObserveGenerateLatency records the duration of candidate generation.
func (m *Metrics) ObserveGenerateLatency(d time.Duration) {
	if m != nil {
		m.GenerateLatency.Observe(d.Seconds())
	}
}

// ObserveConfirmLatency records the duration of a confirmation.
func (m *Metrics) ObserveConfirmLatency(d time.Duration) {
	if m != nil {
		m.ConfirmLatency.Observe(d.Seconds())
	}
}
