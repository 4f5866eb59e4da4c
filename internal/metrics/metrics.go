// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AI estimation outcomes.
const (
	AISuccess  = "success"
	AIFailure  = "failure"
	AIDisabled = "disabled"
	AIManual   = "manual"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	AIEstimates   *prometheus.CounterVec
	SocialActions *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutrilog_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nutrilog_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		AIEstimates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutrilog_ai_estimates_total",
				Help: "Meal nutrition resolutions by outcome",
			},
			[]string{"outcome"},
		),
		SocialActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutrilog_social_actions_total",
				Help: "Successful social actions (post, like, comment, follow, favorite)",
			},
			[]string{"action"},
		),
	}
	reg.MustRegister(m.Requests, m.Duration, m.AIEstimates, m.SocialActions)
	return m
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.Duration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) AIEstimate(outcome string) {
	if m == nil {
		return
	}
	m.AIEstimates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SocialAction(action string) {
	if m == nil {
		return
	}
	m.SocialActions.WithLabelValues(action).Inc()
}
