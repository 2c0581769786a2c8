package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for readiness checks.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health metrics and registers them with registry.
func NewMetrics(namespace string, registry prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "wiggly"
	}
	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"check", "status"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current health check status (1=healthy, 0.5=degraded, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}
	registry.MustRegister(m.checksTotal, m.checkStatus)
	return m
}

func (m *Metrics) record(check string, status Status) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(check, string(status)).Inc()

	value := 0.0
	switch status {
	case StatusHealthy:
		value = 1
	case StatusDegraded:
		value = 0.5
	}
	m.checkStatus.WithLabelValues(check).Set(value)
}
