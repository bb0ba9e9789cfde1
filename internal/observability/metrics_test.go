package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreRegisteredAndLabelable(t *testing.T) {
	VerdictsTotal.WithLabelValues("Live").Inc()
	EnrollmentsTotal.WithLabelValues("stored").Inc()
	EnrollQueueDepth.Set(3)
	WSConnections.Inc()
	WSConnections.Dec()
	PipelineStageDuration.WithLabelValues("liveness").Observe(0.02)
	HTTPRequestDuration.WithLabelValues("POST", "/v1/verify", "200").Observe(0.1)

	require.Equal(t, float64(1), testutil.ToFloat64(VerdictsTotal.WithLabelValues("Live")))
	require.Equal(t, float64(1), testutil.ToFloat64(EnrollmentsTotal.WithLabelValues("stored")))
	require.Equal(t, float64(3), testutil.ToFloat64(EnrollQueueDepth))
	require.Equal(t, float64(0), testutil.ToFloat64(WSConnections))
}
