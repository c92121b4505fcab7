package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RateLimitMetrics holds the Prometheus collectors the admission pipeline
// updates directly, registered against the default registry so they are
// served alongside the OpenTelemetry-bridged metrics by the same handler.
type RateLimitMetrics struct {
	Blocks           *prometheus.CounterVec
	CacheRefunds     *prometheus.CounterVec
	ErrorPenalties   *prometheus.CounterVec
	CacheSize        prometheus.Gauge
	BlockedIPs       prometheus.Gauge
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ScreeningBlocks  *prometheus.CounterVec
	RequestsAdmitted *prometheus.CounterVec
}

// NewRateLimitMetrics registers and returns the rate-limiting metric
// collectors against reg. Call once per registerer at startup; registering
// twice against the same registerer panics.
func NewRateLimitMetrics(reg prometheus.Registerer) *RateLimitMetrics {
	factory := promauto.With(reg)
	return &RateLimitMetrics{
		Blocks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_blocks_total",
			Help: "Total number of rate limit blocks by IP",
		}, []string{"ip"}),
		CacheRefunds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_cache_refunds_total",
			Help: "Total number of cache refunds (304 responses)",
		}, []string{"ip"}),
		ErrorPenalties: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_error_penalties_total",
			Help: "Total number of error penalties applied",
		}, []string{"ip", "status"}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rate_limit_cache_size",
			Help: "Current number of IPs in rate limit cache",
		}),
		BlockedIPs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rate_limit_blocked_ips",
			Help: "Current number of blocked IPs",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by status code",
		}, []string{"status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		}, []string{"status"}),
		ScreeningBlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "screening_blocks_total",
			Help: "Total number of requests blocked by malicious pattern screening",
		}, []string{"ip", "reason"}),
		RequestsAdmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_requests_admitted_total",
			Help: "Total number of requests admitted through the rate limiter",
		}, []string{"ip"}),
	}
}

func (m *RateLimitMetrics) RecordBlock(ip string) {
	m.Blocks.WithLabelValues(ip).Inc()
}

func (m *RateLimitMetrics) RecordAdmitted(ip string) {
	m.RequestsAdmitted.WithLabelValues(ip).Inc()
}

func (m *RateLimitMetrics) RecordCacheRefund(ip string) {
	m.CacheRefunds.WithLabelValues(ip).Inc()
}

func (m *RateLimitMetrics) RecordErrorPenalty(ip string, status int) {
	m.ErrorPenalties.WithLabelValues(ip, statusLabel(status)).Inc()
}

func (m *RateLimitMetrics) UpdateCacheSize(size int) {
	m.CacheSize.Set(float64(size))
}

func (m *RateLimitMetrics) UpdateBlockedIPs(count int) {
	m.BlockedIPs.Set(float64(count))
}

func (m *RateLimitMetrics) RecordHTTPRequest(status int, durationSeconds float64) {
	label := statusLabel(status)
	m.RequestsTotal.WithLabelValues(label).Inc()
	m.RequestDuration.WithLabelValues(label).Observe(durationSeconds)
}

func (m *RateLimitMetrics) RecordScreeningBlock(ip, reason string) {
	m.ScreeningBlocks.WithLabelValues(ip, reason).Inc()
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}
