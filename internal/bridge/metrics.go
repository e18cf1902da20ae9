package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the Bridge's Prometheus surface, a narrowed version of the
// teacher's metrics wrapper scoped to what C5 actually observes: execution
// records, session lifecycle, and monitoring self-health.
type Metrics struct {
	ExecutionCounter  *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	TaskCounter       *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	HealthAlerts      prometheus.Counter
	MonitoringErrors  prometheus.Counter
}

// NewMetrics registers the Bridge's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid the global default registry's
// duplicate-registration panic across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExecutionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_bridge_executions_total",
			Help: "Total tool/task executions recorded by the observability bridge.",
		}, []string{"type", "tool_name", "success"}),

		ExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_bridge_execution_duration_seconds",
			Help:    "Duration of recorded executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type", "tool_name"}),

		TaskCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_bridge_tasks_total",
			Help: "Total tasks observed, by terminal status.",
		}, []string{"status"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_bridge_active_sessions",
			Help: "Sessions currently in the running state, per the autonomous collector's last poll.",
		}),

		HealthAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_bridge_health_alerts_total",
			Help: "Watchdog health_alert events observed.",
		}),

		MonitoringErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_bridge_monitoring_errors_total",
			Help: "Persistence or collection failures swallowed by the bridge without reaching the agent.",
		}),
	}

	reg.MustRegister(
		m.ExecutionCounter,
		m.ExecutionDuration,
		m.TaskCounter,
		m.ActiveSessions,
		m.HealthAlerts,
		m.MonitoringErrors,
	)
	return m
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
