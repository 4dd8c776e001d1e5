// Package metrics provides Prometheus instrumentation for the chat server. It
// exposes gauges for connections and joined sessions, counters for message and
// widget throughput, and a histogram for frame handling latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pookieplum_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// JoinedSessions tracks connections bound to a user and couple.
	JoinedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pookieplum_joined_sessions",
		Help: "Current number of sessions joined to a couple",
	})

	// MessagesTotal counts messages processed, labeled by type: "sent",
	// "received" or "blocked".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pookieplum_messages_total",
		Help: "Total number of messages processed",
	}, []string{"type"})

	// WidgetsTotal counts submitted widgets by variant.
	WidgetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pookieplum_widgets_total",
		Help: "Total number of widgets sent, by variant",
	}, []string{"variant"})

	// FrameLatency records client frame handling latency in seconds.
	FrameLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pookieplum_frame_latency_seconds",
		Help:    "Client frame handling latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// StoreErrors counts failed writes to history or the archive.
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pookieplum_store_errors_total",
		Help: "Failed persistence operations, by store",
	}, []string{"store"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		JoinedSessions,
		MessagesTotal,
		WidgetsTotal,
		FrameLatency,
		StoreErrors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
