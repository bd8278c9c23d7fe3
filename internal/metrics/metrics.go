// Package metrics collects Prometheus metrics for webhook processing and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the webhook pipeline and middleware.
type Recorder interface {
	RecordWebhookEvent(eventType, mode, outcome string)
	RecordVerificationFallback(reason string)
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	webhookEvents         *prometheus.CounterVec
	verificationFallbacks *prometheus.CounterVec
	httpRequests          *prometheus.CounterVec
	httpDuration          *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prompthub_webhook_events_total",
			Help: "Identity webhook deliveries by event type, verification mode and outcome.",
		}, []string{"event_type", "mode", "outcome"}),
		verificationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prompthub_webhook_verification_fallbacks_total",
			Help: "Signed deliveries processed without verification because the secret was unusable.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prompthub_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prompthub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.webhookEvents,
		c.verificationFallbacks,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (c *Collector) RecordWebhookEvent(eventType, mode, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, mode, outcome).Inc()
}

func (c *Collector) RecordVerificationFallback(reason string) {
	c.verificationFallbacks.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
