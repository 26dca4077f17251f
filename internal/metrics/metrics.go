// Package metrics defines the Prometheus collectors exported by qaserve.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qaserve"

// Prediction outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

var statuses = []string{"uninitialized", "loading", "ready", "failed"}

var (
	// Predictions counts question answering requests by surface (api, ui) and outcome.
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Question answering requests by surface and outcome.",
		},
		[]string{"surface", "outcome"},
	)

	// InferenceDuration observes the latency of adapter calls.
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of inference calls by backend and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"backend", "outcome"},
	)

	// HTTPRequests counts HTTP requests by server, method, route and status class.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by server, method, route and status class.",
		},
		[]string{"server", "method", "route", "status"},
	)

	// HTTPDuration observes HTTP request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by server, method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "route"},
	)

	// ModelCandidates is the number of subdirectories currently under the models root.
	ModelCandidates = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_candidates",
		Help:      "Subdirectories currently present under the models root.",
	})

	// ModelStatus is 1 for the current model status and 0 otherwise.
	ModelStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_status",
			Help:      "Current model lifecycle status.",
		},
		[]string{"status"},
	)

	// ModelInfo is set to 1 with the labels of the loaded model.
	ModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_info",
			Help:      "Information about the loaded model.",
		},
		[]string{"name", "version", "format"},
	)
)

// SetModelStatus marks status as the current model status.
func SetModelStatus(status string) {
	for _, s := range statuses {
		v := 0.0
		if s == status {
			v = 1
		}
		ModelStatus.WithLabelValues(s).Set(v)
	}
}
