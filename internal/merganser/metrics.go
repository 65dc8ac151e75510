package merganser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergejob"
)

const metricNamespace = "merganser"

const (
	mergeResultsMetricName = "merge_results_total"
	processedMRsMetricName = "processed_merge_requests_total"
	jobDurationMetricName  = "merge_job_duration_seconds"
	pendingMRsMetricName   = "pending_merge_requests_count"
)

const (
	projectLabel = "project"
	resultLabel  = "result"
	stateLabel   = "state"
)

type stateLabelVal string

const (
	stateLabelPendingVal stateLabelVal = "pending"
	stateLabelCoolingVal stateLabelVal = "cooling_down"
)

// jobDurationBuckets covers the expected runtime range of merge jobs,
// from seconds for rejections up to CI waits of multiple minutes.
var jobDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800}

type metricCollector struct {
	logger       *zap.Logger
	mergeResults *prometheus.CounterVec
	processedMRs prometheus.Counter
	jobDuration  *prometheus.HistogramVec
	pendingMRs   *prometheus.GaugeVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		mergeResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      mergeResultsMetricName,
				Help:      "count of finished merge jobs per result",
			},
			[]string{projectLabel, resultLabel},
		),
		processedMRs: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      processedMRsMetricName,
				Help:      "count of merge requests that a job was run for",
			},
		),
		jobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      jobDurationMetricName,
				Help:      "duration of merge jobs in seconds",
				Buckets:   jobDurationBuckets,
			},
			[]string{projectLabel},
		),
		pendingMRs: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      pendingMRsMetricName,
				Help:      "count of merge requests waiting to be merged",
			},
			[]string{projectLabel, stateLabel},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func mergeResultLabels(project string, conclusion mergejob.Conclusion) prometheus.Labels {
	return prometheus.Labels{
		projectLabel: project,
		resultLabel:  string(conclusion),
	}
}

func (m *metricCollector) MergeResultInc(project string, conclusion mergejob.Conclusion) {
	cnt, err := m.mergeResults.GetMetricWith(mergeResultLabels(project, conclusion))
	if err != nil {
		m.logGetMetricFailed(mergeResultsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) ProcessedMRsInc() {
	m.processedMRs.Inc()
}
