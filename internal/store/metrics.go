package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queryErrorsTotal counts failed statements, excluding missing rows.
	queryErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "assessd",
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Total number of failed database statements",
		},
	)

	// txDuration tracks transaction latency.
	// Labels: result (commit, rollback)
	txDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assessd",
			Subsystem: "store",
			Name:      "tx_duration_seconds",
			Help:      "Duration of database transactions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

func observeTx(start time.Time, err error) {
	result := "commit"
	if err != nil {
		result = "rollback"
	}
	txDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
