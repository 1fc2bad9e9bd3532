// Package metrics exposes Prometheus collectors for routing and recovery.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the bot metrics.
type Collector struct {
	Gatherer prometheus.Gatherer

	HandlerEvents   *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	Recovered       *prometheus.CounterVec
	Unhandled       *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	UnmatchedEvents *prometheus.CounterVec
	RoutesWired     *prometheus.GaugeVec
	Deliveries      *prometheus.CounterVec
}

// NewWithRegistry creates collectors registered on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Gatherer: reg,
		HandlerEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kilobot",
				Name:      "handler_events_total",
				Help:      "Inbound events handled, by handler and outcome",
			},
			[]string{"handler", "outcome"},
		),
		HandlerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kilobot",
				Name:      "handler_duration_seconds",
				Help:      "Handler execution time in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"handler"},
		),
		Recovered: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kilobot",
				Name:      "recovered_faults_total",
				Help:      "Handler faults answered by a recovery policy",
			},
			[]string{"handler", "policy"},
		),
		Unhandled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kilobot",
				Name:      "unhandled_faults_total",
				Help:      "Handler faults no recovery policy answered",
			},
			[]string{"handler"},
		),
		DecodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kilobot",
				Name:      "callback_decode_errors_total",
				Help:      "Callback tokens that failed to decode",
			},
			[]string{"schema"},
		),
		UnmatchedEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kilobot",
				Name:      "unmatched_events_total",
				Help:      "Inbound events no route matched",
			},
			[]string{"kind"},
		),
		RoutesWired: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "kilobot",
				Name:      "routes_wired",
				Help:      "Routes installed at startup, by kind",
			},
			[]string{"kind"},
		),
		Deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kilobot",
				Name:      "deliveries_total",
				Help:      "Outbound Bot API calls, by action and result",
			},
			[]string{"action", "result"},
		),
	}
}

var current atomic.Pointer[Collector]

// Set installs the process-wide collector. Passing nil disables metrics.
func Set(c *Collector) { current.Store(c) }

// Current returns the installed collector, or nil.
func Current() *Collector { return current.Load() }

// ObserveHandled records a finished handler invocation.
func ObserveHandled(handler, outcome string, took time.Duration) {
	c := Current()
	if c == nil {
		return
	}
	c.HandlerEvents.WithLabelValues(handler, outcome).Inc()
	c.HandlerDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// ObserveRecovered records a fault answered by policy.
func ObserveRecovered(handler, policy string) {
	if c := Current(); c != nil {
		c.Recovered.WithLabelValues(handler, policy).Inc()
	}
}

// ObserveUnhandled records a fault that escaped every policy.
func ObserveUnhandled(handler string) {
	if c := Current(); c != nil {
		c.Unhandled.WithLabelValues(handler).Inc()
	}
}

// ObserveDecodeError records a callback token rejected by schema.
func ObserveDecodeError(schema string) {
	if c := Current(); c != nil {
		c.DecodeErrors.WithLabelValues(schema).Inc()
	}
}

// ObserveUnmatched records an event that reached a fallback.
func ObserveUnmatched(kind string) {
	if c := Current(); c != nil {
		c.UnmatchedEvents.WithLabelValues(kind).Inc()
	}
}

// SetRoutes records the number of wired routes of a kind.
func SetRoutes(kind string, n int) {
	if c := Current(); c != nil {
		c.RoutesWired.WithLabelValues(kind).Set(float64(n))
	}
}

// ObserveDelivery records an outbound call; result is "ok" or an error kind.
func ObserveDelivery(action, result string) {
	if c := Current(); c != nil {
		c.Deliveries.WithLabelValues(action, result).Inc()
	}
}
