// Package metrics exposes Prometheus collectors for the audit service.
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
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	providerCallsTotal          *prometheus.CounterVec
	providerCallDurationSeconds *prometheus.HistogramVec
	pollTicksTotal              *prometheus.CounterVec
	taskOutcomesTotal           *prometheus.CounterVec
	keywordReportsTotal         *prometheus.CounterVec
	auditDurationSeconds        *prometheus.HistogramVec
	pageFetchesTotal            *prometheus.CounterVec
	rateLimitDelaysSeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60, 120},
			},
			[]string{"method", "route"},
		)

		providerCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoaudit_provider_calls_total",
				Help: "Total number of SERP provider calls, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		providerCallDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seoaudit_provider_call_duration_seconds",
				Help:    "Histogram of SERP provider call latencies, labeled by operation.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"operation"},
		)

		pollTicksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoaudit_poll_ticks_total",
				Help: "Total number of batched status checks, labeled by result.",
			},
			[]string{"result"},
		)

		taskOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoaudit_task_outcomes_total",
				Help: "Total number of provider tasks by final outcome.",
			},
			[]string{"outcome"},
		)

		keywordReportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoaudit_keyword_reports_total",
				Help: "Total number of keyword reports produced, labeled by shape.",
			},
			[]string{"kind"},
		)

		auditDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seoaudit_audit_duration_seconds",
				Help:    "Histogram of end-to-end audit durations, labeled by result.",
				Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120, 180, 300},
			},
			[]string{"result"},
		)

		pageFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoaudit_page_fetches_total",
				Help: "Total number of audited page fetches, labeled by site and mode.",
			},
			[]string{"site", "mode"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seoaudit_rate_limit_delays_seconds",
				Help:    "Histogram of outbound pacing wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
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

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveProviderCall records one provider round trip.
func ObserveProviderCall(operation, outcome string, duration time.Duration) {
	Init()
	providerCallsTotal.WithLabelValues(operation, outcome).Inc()
	providerCallDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePollTick counts one batched status check.
func ObservePollTick(result string) {
	Init()
	pollTicksTotal.WithLabelValues(result).Inc()
}

// ObserveTaskOutcome counts the final state of a provider task.
func ObserveTaskOutcome(outcome string) {
	Init()
	taskOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveKeywordReport counts one produced keyword report.
func ObserveKeywordReport(kind string) {
	Init()
	keywordReportsTotal.WithLabelValues(kind).Inc()
}

// ObserveAudit records the duration of one audit.
func ObserveAudit(result string, duration time.Duration) {
	Init()
	auditDurationSeconds.WithLabelValues(result).Observe(duration.Seconds())
}

// ObservePageFetch counts one audited page fetch. mode is "plain", "headless" or "error".
func ObservePageFetch(site, mode string) {
	Init()
	pageFetchesTotal.WithLabelValues(SanitizeSite(site), mode).Inc()
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}
