// Package metrics holds the Prometheus collectors of herd. A CLI run is short
// lived, so collectors are registered on a private registry and written to a
// node_exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registry all herd collectors are registered with
var Registry = prometheus.NewRegistry()

var (
	// Reconciliation metrics
	ReconcileActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herd_reconcile_actions_total",
			Help: "Provider mutations issued by reconciliation, by cluster and action",
		},
		[]string{"cluster", "action"},
	)

	ReconcileFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herd_reconcile_failures_total",
			Help: "Failed cluster reconciliations by reason",
		},
		[]string{"cluster", "reason"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herd_reconcile_duration_seconds",
			Help:    "Time taken to reconcile a cluster in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cluster"},
	)

	ClusterNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "herd_cluster_nodes",
			Help: "Nodes owned by a cluster by status",
		},
		[]string{"cluster", "status"},
	)

	// Executor metrics
	NodeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herd_node_runs_total",
			Help: "Per node command runs by cluster and result",
		},
		[]string{"cluster", "result"},
	)

	NodeRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herd_node_run_duration_seconds",
			Help:    "Time taken to run a command list on one node in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"cluster"},
	)

	ReadinessWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herd_readiness_wait_seconds",
			Help:    "Time spent waiting for provisioning nodes in seconds",
			Buckets: []float64{0, 10, 30, 60, 120, 300, 600},
		},
		[]string{"cluster"},
	)
)

func init() {
	Registry.MustRegister(ReconcileActions)
	Registry.MustRegister(ReconcileFailures)
	Registry.MustRegister(ReconcileDuration)
	Registry.MustRegister(ClusterNodes)
	Registry.MustRegister(NodeRuns)
	Registry.MustRegister(NodeRunDuration)
	Registry.MustRegister(ReadinessWait)
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDurationVec records the elapsed seconds with the given label values
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
