// Package monitoring exposes Prometheus metrics for the gateway and an
// optional dedicated metrics listener.
package monitoring

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Kubernetes metadata labels, attached to every metric when running in a
// cluster.
var (
	kubernetesNamespace = os.Getenv("KUBERNETES_NAMESPACE")
	kubernetesPodName   = os.Getenv("KUBERNETES_POD_NAME")
)

func kubernetesLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if kubernetesNamespace != "" {
		labels["kubernetes_namespace"] = kubernetesNamespace
	}
	if kubernetesPodName != "" {
		labels["kubernetes_pod_name"] = kubernetesPodName
	}
	return labels
}

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(prometheus.WrapRegistererWith(kubernetesLabels(), registry))
)

var (
	// Inbound request metrics
	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swift_s3_gateway_requests_total",
			Help: "Total number of inbound HTTP requests",
		},
		[]string{"method", "controller", "status_code"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swift_s3_gateway_request_duration_seconds",
			Help:    "Inbound request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "controller"},
	)

	// S3 error documents emitted, by taxonomy code
	ErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swift_s3_gateway_errors_total",
			Help: "Total number of S3 error responses emitted",
		},
		[]string{"code"},
	)

	// Backend round-trip metrics
	BackendRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swift_s3_gateway_backend_requests_total",
			Help: "Total number of backend requests",
		},
		[]string{"method", "status_code"},
	)

	BackendRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swift_s3_gateway_backend_request_duration_seconds",
			Help:    "Backend round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Unsigned traffic forwarded to the backend unchanged
	PassthroughTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "swift_s3_gateway_passthrough_total",
			Help: "Total number of unsigned requests proxied to the backend",
		},
	)

	ActiveConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "swift_s3_gateway_active_connections",
			Help: "Number of in-flight inbound requests",
		},
	)

	ServerInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swift_s3_gateway_server_info",
			Help: "Server build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetServerInfo sets server build information
func SetServerInfo(version, commit, buildTime string) {
	ServerInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// RecordError counts one emitted S3 error document.
func RecordError(code string) {
	ErrorsTotal.WithLabelValues(code).Inc()
}

// RecordBackendRequest records one backend round trip.
func RecordBackendRequest(method string, statusCode int, duration time.Duration) {
	BackendRequestsTotal.WithLabelValues(method, statusLabel(statusCode)).Inc()
	BackendRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler returns the metrics endpoint handler for the gateway registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
