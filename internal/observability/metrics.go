package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineStageDuration is a per-stage duration histogram labelled by
	// stage name. The vision pipeline does not record into it.
	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fd",
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of each face-liveness pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Name:      "verdicts_total",
		Help:      "Total number of detect_liveness verdicts, by prediction",
	}, []string{"prediction"})

	EnrollmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Name:      "enrollments_total",
		Help:      "Total number of face enrollments, by outcome",
	}, []string{"outcome"})

	EnrollQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fd",
		Name:      "enroll_queue_depth",
		Help:      "Number of pending enrollment tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fd",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fd",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
