// Package metrics exposes Prometheus collectors for the sentinel daemon.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EvidenceCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_evidence_collected_total",
			Help: "Evidence packets collected, by container and fault type.",
		},
		[]string{"container", "fault_type"},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_decisions_total",
			Help: "Diagnosis decisions reached, by container and command.",
		},
		[]string{"container", "command"},
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_actions_total",
			Help: "Executor actions run, by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	ReportsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_reports_suppressed_total",
			Help: "Reports suppressed by dedup or circuit breaker, by container and reason.",
		},
		[]string{"container", "reason"},
	)

	CircuitBreakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_circuit_breaker_open",
			Help: "1 if the circuit breaker is currently open for a container.",
		},
		[]string{"container"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_task_queue_depth",
			Help: "Current number of tasks pending in the diagnosis task queue.",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifications_total",
			Help: "Notifications sent, by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	ContainerCPUPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_container_cpu_percent",
			Help: "Last observed CPU percent for a watched container.",
		},
		[]string{"container"},
	)

	ContainerMemoryPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_container_memory_percent",
			Help: "Last observed memory percent for a watched container.",
		},
		[]string{"container"},
	)
)

// Register adds all sentinel collectors to reg.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(
		EvidenceCollected,
		DecisionsTotal,
		ActionsTotal,
		ReportsSuppressed,
		CircuitBreakerOpen,
		QueueDepth,
		NotificationsTotal,
		ContainerCPUPercent,
		ContainerMemoryPercent,
	)
}
