// internal/monitor/monitor.go

// Package monitor exposes client health over Prometheus: how many snapshots
// replaced the local state, how many commands went out, and how often the
// channel had to be re-dialed.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics is the counter set a session reports into.
type Metrics struct {
	SnapshotsApplied prometheus.Counter
	CommandsSent     prometheus.Counter
	DialAttempts     prometheus.Counter
	ProtocolErrors   prometheus.Counter
	ConnectionOpen   prometheus.Gauge
}

// NewMetrics builds and registers the metric set. Pass nil to register on
// the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SnapshotsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Full-state snapshots applied to the local store",
		}),
		CommandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Outbound commands written to the channel",
		}),
		DialAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dial_attempts_total",
			Help:      "Connection establishment attempts, retries included",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Inbound payloads dropped as malformed or unknown",
		}),
		ConnectionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_open",
			Help:      "1 while the channel is open, 0 otherwise",
		}),
	}
	reg.MustRegister(m.SnapshotsApplied, m.CommandsSent, m.DialAttempts, m.ProtocolErrors, m.ConnectionOpen)
	return m
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.WithError(err).Error("metrics listener exited")
		}
	}()
}
