package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

// A single shared instance: promauto registers against the default
// registerer, and a second NewAlignmentMetrics call would panic on
// duplicate registration (see the constructor's doc comment).
var m = NewAlignmentMetrics()

func TestAlignmentMetricsObserveRecordsStageOutcomeAndAlignedTotal(t *testing.T) {
	m.Observe(align.Stage1b, 0.01, true)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.stageOutcomes.WithLabelValues(string(align.Stage1b))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.totalAligned))
}

func TestAlignmentMetricsObserveCountsStageZUsage(t *testing.T) {
	before := testutil.ToFloat64(m.stageZUsage)
	m.Observe(align.StageZEnergyOnly, 0.02, true)
	assert.Equal(t, before+1, testutil.ToFloat64(m.stageZUsage))
}

func TestAlignmentMetricsObserveNilReceiverIsNoop(t *testing.T) {
	var nilMetrics *AlignmentMetrics
	assert.NotPanics(t, func() {
		nilMetrics.Observe(align.Stage1b, 0.01, true)
		nilMetrics.ObserveGuardSummary(align.GuardSummary{EnergyGuardsRejected: 1})
	})
}

func TestAlignmentMetricsObserveGuardSummaryAddsRejectionsByKind(t *testing.T) {
	before := testutil.ToFloat64(m.guardRejections.WithLabelValues("protein"))
	m.ObserveGuardSummary(align.GuardSummary{ProteinFailures: 3})
	assert.Equal(t, before+3, testutil.ToFloat64(m.guardRejections.WithLabelValues("protein")))
}
