// Package metrics exposes the ambient Prometheus instrumentation for the
// alignment core, mirroring pkg/healthcheck/metrics.go's promauto
// conventions for the per-stage counters spec.md §4.11's cascade and
// GuardSummary otherwise only report through telemetry and logs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
)

var _ outbound.MetricsRecorder = (*AlignmentMetrics)(nil)

const (
	namespace = "foodalign"
	subsystem = "alignment"
)

// AlignmentMetrics tracks per-stage outcomes, guard rejections and
// acceptance latency for a running alignment core.
type AlignmentMetrics struct {
	stageOutcomes  *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	alignDuration  *prometheus.HistogramVec
	stageZUsage    prometheus.Counter
	totalAligned   prometheus.Counter
}

// NewAlignmentMetrics registers the alignment metric family with the
// default Prometheus registerer. Construct once per process; a second
// call would panic on duplicate registration the way promauto always
// does, the same tradeoff pkg/healthcheck accepts.
func NewAlignmentMetrics() *AlignmentMetrics {
	return &AlignmentMetrics{
		stageOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_outcomes_total",
				Help:      "Count of foods resolved by each cascade stage",
			},
			[]string{"stage"},
		),
		guardRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "guard_rejections_total",
				Help:      "Count of guard rejections by guard kind",
			},
			[]string{"guard"},
		),
		alignDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "align_duration_seconds",
				Help:      "Duration of a single food's Align call",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageZUsage: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_z_usage_total",
			Help:      "Count of foods resolved via the Stage Z fallback",
		}),
		totalAligned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "aligned_total",
			Help:      "Count of foods successfully aligned",
		}),
	}
}

// Observe records one food's outcome: the terminal stage it resolved at,
// how long the call took, and whether it fell through to Stage Z.
func (m *AlignmentMetrics) Observe(stage align.Stage, seconds float64, accepted bool) {
	if m == nil {
		return
	}
	m.stageOutcomes.WithLabelValues(string(stage)).Inc()
	m.alignDuration.WithLabelValues(string(stage)).Observe(seconds)
	if accepted {
		m.totalAligned.Inc()
	}
	switch stage {
	case align.StageZBranded, align.StageZEnergyOnly:
		m.stageZUsage.Inc()
	}
}

// ObserveGuardSummary folds a completed run's GuardSummary counters into
// the rejection-by-guard-kind metric.
func (m *AlignmentMetrics) ObserveGuardSummary(s align.GuardSummary) {
	if m == nil {
		return
	}
	if s.EnergyGuardsRejected > 0 {
		m.guardRejections.WithLabelValues("energy").Add(float64(s.EnergyGuardsRejected))
	}
	if s.ProteinFailures > 0 {
		m.guardRejections.WithLabelValues("protein").Add(float64(s.ProteinFailures))
	}
	if s.CarbFailures > 0 {
		m.guardRejections.WithLabelValues("carb").Add(float64(s.CarbFailures))
	}
	if s.FatFailures > 0 {
		m.guardRejections.WithLabelValues("fat").Add(float64(s.FatFailures))
	}
}
