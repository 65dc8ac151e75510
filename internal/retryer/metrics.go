package retryer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "merganser"

const retriesMetricName = "api_retries_total"

// retriesMetric counts the scheduled retries of failed platform
// operations, a growing rate indicates platform trouble.
var retriesMetric = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: metricNamespace,
		Name:      retriesMetricName,
		Help:      "count of scheduled retries of failed platform operations",
	},
)
