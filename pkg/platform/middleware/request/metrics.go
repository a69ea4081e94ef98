package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
}

// NewMetrics registers the endpoint latency histogram with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EndpointLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycpass_http_request_duration_seconds",
			Help:    "Latency of walletd endpoints in seconds, labeled by route pattern and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(route, method, status string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(route, method, status).Observe(durationSeconds)
}
