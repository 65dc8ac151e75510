package merganser

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// loopMetrics are the per-project metrics of one project loop.
// All methods are safe to call on a nil receiver, a loop whose metrics
// could not be created runs without recording them.
type loopMetrics struct {
	pending     prometheus.Gauge
	cooling     prometheus.Gauge
	jobDuration prometheus.Observer
}

func newLoopMetrics(project string) (*loopMetrics, error) {
	result := loopMetrics{}

	pending, err := metrics.pendingMRs.GetMetricWith(pendingMRsLabels(project, stateLabelPendingVal))
	if err != nil {
		return nil, fmt.Errorf("creating pending merge requests metric failed: %w", err)
	}
	result.pending = pending

	cooling, err := metrics.pendingMRs.GetMetricWith(pendingMRsLabels(project, stateLabelCoolingVal))
	if err != nil {
		return nil, fmt.Errorf("creating cooling merge requests metric failed: %w", err)
	}
	result.cooling = cooling

	jobDuration, err := metrics.jobDuration.GetMetricWith(prometheus.Labels{projectLabel: project})
	if err != nil {
		return nil, fmt.Errorf("creating job duration metric failed: %w", err)
	}
	result.jobDuration = jobDuration

	return &result, nil
}

func (l *loopMetrics) PendingSet(count int) {
	if l == nil {
		return
	}

	l.pending.Set(float64(count))
}

func (l *loopMetrics) CoolingSet(count int) {
	if l == nil {
		return
	}

	l.cooling.Set(float64(count))
}

func (l *loopMetrics) JobDurationObserve(d time.Duration) {
	if l == nil {
		return
	}

	l.jobDuration.Observe(d.Seconds())
}

func pendingMRsLabels(project string, state stateLabelVal) prometheus.Labels {
	return prometheus.Labels{
		projectLabel: project,
		stateLabel:   string(state),
	}
}
