// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics for the gateway.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	NormalizedTotal    *prometheus.CounterVec
	AuthEventsTotal    *prometheus.CounterVec
	RegisteredUsers    prometheus.Gauge
}

// NewMetrics creates and registers the gateway metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CompletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polylingo_completions_total",
				Help: "Total number of upstream completion calls by outcome",
			},
			[]string{"outcome"},
		),
		CompletionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "polylingo_completion_duration_seconds",
				Help:    "Latency of upstream completion calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polylingo_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polylingo_http_request_duration_seconds",
				Help:    "Latency of HTTP requests by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		NormalizedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polylingo_normalized_results_total",
				Help: "Total number of normalized model responses by task and kind",
			},
			[]string{"task", "kind"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polylingo_auth_events_total",
				Help: "Total number of auth operations by event and result",
			},
			[]string{"event", "result"},
		),
		RegisteredUsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "polylingo_registered_users",
				Help: "Number of registered users",
			},
		),
	}

	reg.MustRegister(
		m.CompletionsTotal,
		m.CompletionDuration,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
		m.NormalizedTotal,
		m.AuthEventsTotal,
		m.RegisteredUsers,
	)
	return m
}

// RecordCompletion counts one upstream call and observes its latency.
func (m *Metrics) RecordCompletion(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(outcome).Inc()
	m.CompletionDuration.Observe(elapsed.Seconds())
}

// RecordHTTPRequest counts one served request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordNormalized counts one normalized model response.
func (m *Metrics) RecordNormalized(task, kind string) {
	if m == nil {
		return
	}
	m.NormalizedTotal.WithLabelValues(task, kind).Inc()
}

// RecordAuthEvent counts a register or login attempt.
func (m *Metrics) RecordAuthEvent(event, result string) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(event, result).Inc()
}

// SetRegisteredUsers reports the current number of registered users.
func (m *Metrics) SetRegisteredUsers(n int) {
	if m == nil {
		return
	}
	m.RegisteredUsers.Set(float64(n))
}
