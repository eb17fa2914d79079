// Package metrics exposes Prometheus counters and gauges for the
// gateway's HTTP surface, account pool, and upstream rate-limit events,
// per SPEC_FULL.md's domain-stack wiring for client_golang.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds one registered collector set. Unlike the teacher's
// package-level globals, this is instantiated explicitly so tests (and a
// future second gateway instance in the same process) don't collide on
// prometheus's default registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	accountCooldownSeconds *prometheus.GaugeVec
	rateLimitEventsTotal   *prometheus.CounterVec
	accountsTotal          prometheus.Gauge
}

// New constructs and registers a fresh collector set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "antigravity_gateway_http_requests_total",
			Help: "Total number of HTTP requests processed, by method/path/status.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "antigravity_gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by method/path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		accountCooldownSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "antigravity_gateway_account_cooldown_seconds",
			Help: "Remaining cooldown in seconds for an account/model pair, 0 when not cooling down.",
		}, []string{"email", "model"}),
		rateLimitEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "antigravity_gateway_rate_limit_events_total",
			Help: "Total upstream rate-limit responses, by scope (account or endpoint).",
		}, []string{"scope"}),
		accountsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antigravity_gateway_accounts_total",
			Help: "Number of accounts configured in the pool.",
		}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.accountCooldownSeconds,
		m.rateLimitEventsTotal,
		m.accountsTotal,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this collector set.
func (m *Metrics) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records request count and latency for every request
// except the metrics endpoint itself, matching the teacher's
// self-referential-metrics exclusion.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// SetAccountCooldown records the remaining cooldown for an account/model
// pair, wired to accountpool.Pool.OnChange via internal/store's snapshot
// callback.
func (m *Metrics) SetAccountCooldown(email, model string, remaining time.Duration) {
	seconds := remaining.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.accountCooldownSeconds.WithLabelValues(email, model).Set(seconds)
}

// RecordRateLimitEvent increments the rate-limit counter for scope,
// "account" or "endpoint" per internal/upstream's 429 classification.
func (m *Metrics) RecordRateLimitEvent(scope string) {
	m.rateLimitEventsTotal.WithLabelValues(scope).Inc()
}

// SetAccountsTotal records the current pool size.
func (m *Metrics) SetAccountsTotal(n int) {
	m.accountsTotal.Set(float64(n))
}
