package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ingestion activity.
type Metrics struct {
	Readings prometheus.Counter
	Rejected prometheus.Counter
	Clamped  prometheus.Counter
	Alerts   *prometheus.CounterVec
}

// NewMetrics builds and registers the ingestion counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecofy_telemetry_readings_total",
			Help: "Telemetry readings accepted and committed.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecofy_telemetry_readings_rejected_total",
			Help: "Telemetry readings rejected before commit.",
		}),
		Clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecofy_telemetry_values_clamped_total",
			Help: "Individual reading values clamped into physical bounds.",
		}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecofy_telemetry_alerts_total",
			Help: "Threshold notifications emitted, by severity.",
		}, []string{"severity"}),
	}
	reg.MustRegister(m.Readings, m.Rejected, m.Clamped, m.Alerts)
	return m
}
