// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_dispatch_attempts_total",
			Help: "Total number of upstream request candidates attempted",
		},
		[]string{"service", "method", "status"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_dispatch_failures_total",
			Help: "Total number of dispatch plans that ended in an error",
		},
		[]string{"service", "code"},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_health_probe_duration_seconds",
			Help: "Duration of upstream health probes in seconds",
		},
		[]string{"service"},
	)

	ServiceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_service_up",
			Help: "Whether the upstream service answered its last health probe (1 = up)",
		},
		[]string{"service"},
	)
)
