// Package observability registers the prometheus metrics of the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cronograma",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labelled by method and status class.",
	}, []string{"method", "status"})

	movesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cronograma",
		Subsystem: "actividades",
		Name:      "moves_total",
		Help:      "Planned activities rescheduled through the move operation.",
	})

	snapshotGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cronograma",
		Subsystem: "backup",
		Name:      "last_snapshot_timestamp_seconds",
		Help:      "Unix timestamp of the most recent snapshot written.",
	})

	snapshotSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cronograma",
		Subsystem: "backup",
		Name:      "last_snapshot_size_bytes",
		Help:      "Size in bytes of the most recent snapshot written.",
	})
)

func init() {
	prometheus.MustRegister(requestCounter, movesCounter, snapshotGauge, snapshotSizeGauge)
}

// RecordRequest counts one served HTTP request.
func RecordRequest(method, status string) {
	requestCounter.WithLabelValues(method, status).Inc()
}

// RecordActividadMoved counts one completed move operation.
func RecordActividadMoved() {
	movesCounter.Inc()
}

// RecordSnapshot updates the snapshot watermark gauges.
func RecordSnapshot(ts time.Time, sizeBytes int64) {
	if ts.IsZero() {
		return
	}
	snapshotGauge.Set(float64(ts.Unix()))
	snapshotSizeGauge.Set(float64(sizeBytes))
}
