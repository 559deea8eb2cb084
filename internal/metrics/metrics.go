// Package metrics exposes Prometheus collectors for the notice summarizer.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	webhookRequestsTotal       *prometheus.CounterVec
	jobsTotal                  *prometheus.CounterVec
	jobDurationSeconds         *prometheus.HistogramVec
	jobsInFlight               prometheus.Gauge
	gateDecisionsTotal         *prometheus.CounterVec
	gateCooldownActive         prometheus.Gauge
	upstreamDurationSeconds    *prometheus.HistogramVec
	imageFetchesTotal          *prometheus.CounterVec
	imageBytes                 prometheus.Histogram
	callbackDeliveriesTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		webhookRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notice_webhook_requests_total",
				Help: "Total number of skill webhook requests, labeled by result.",
			},
			[]string{"result"},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notice_jobs_total",
				Help: "Total number of summary jobs finished, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		jobDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notice_job_duration_seconds",
				Help:    "Histogram of job run time from start to outcome, labeled by outcome.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 55, 60},
			},
			[]string{"outcome"},
		)

		jobsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notice_jobs_in_flight",
				Help: "Number of jobs currently running.",
			},
		)

		gateDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notice_gate_decisions_total",
				Help: "Total number of rate gate decisions, labeled by decision.",
			},
			[]string{"decision"},
		)

		gateCooldownActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "notice_gate_cooldown_active",
				Help: "1 while a same-day upstream cooldown is in effect.",
			},
		)

		upstreamDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notice_upstream_call_duration_seconds",
				Help:    "Histogram of upstream model call latencies, labeled by result.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
			},
			[]string{"result"},
		)

		imageFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notice_image_fetches_total",
				Help: "Total number of image downloads, labeled by host and result.",
			},
			[]string{"host", "result"},
		)

		imageBytes = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notice_image_bytes",
				Help:    "Histogram of downloaded image sizes in bytes.",
				Buckets: prometheus.ExponentialBuckets(64*1024, 2, 7),
			},
		)

		callbackDeliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notice_callback_deliveries_total",
				Help: "Total number of callback deliveries, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveWebhook counts a skill webhook request by its synchronous result.
func ObserveWebhook(result string) {
	Init()
	webhookRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveJob records a finished job.
func ObserveJob(outcome string, duration time.Duration) {
	Init()
	jobsTotal.WithLabelValues(outcome).Inc()
	jobDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncJobsInFlight increments the running jobs gauge.
func IncJobsInFlight() {
	Init()
	jobsInFlight.Inc()
}

// DecJobsInFlight decrements the running jobs gauge.
func DecJobsInFlight() {
	Init()
	jobsInFlight.Dec()
}

// ObserveGateDecision counts one admission decision.
func ObserveGateDecision(decision string) {
	Init()
	gateDecisionsTotal.WithLabelValues(decision).Inc()
}

// SetGateCooldown flips the cooldown gauge.
func SetGateCooldown(active bool) {
	Init()
	if active {
		gateCooldownActive.Set(1)
		return
	}
	gateCooldownActive.Set(0)
}

// ObserveUpstreamCall records the latency of one upstream model call.
func ObserveUpstreamCall(result string, duration time.Duration) {
	Init()
	upstreamDurationSeconds.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveImageFetch counts an image download and, on success, its size.
func ObserveImageFetch(rawURL, result string, size int) {
	Init()
	imageFetchesTotal.WithLabelValues(SanitizeSite(rawURL), result).Inc()
	if size > 0 {
		imageBytes.Observe(float64(size))
	}
}

// ObserveCallback counts a callback delivery attempt.
func ObserveCallback(result string) {
	Init()
	callbackDeliveriesTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
