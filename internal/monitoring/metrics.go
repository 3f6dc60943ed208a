package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	Attachments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_attachments_total",
			Help: "Total attachment workflow runs by outcome",
		},
		[]string{"outcome"},
	)
	ReconcileIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_reconcile_issues_total",
			Help: "Invariant issues handled by the reconciliation job",
		},
		[]string{"kind", "action"},
	)
	InvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenancy_invariant_violations_total",
			Help: "Consistency verifier violations inside write workflows",
		},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_notifications_total",
			Help: "Best-effort notification dispatch results",
		},
		[]string{"status"},
	)
	WorkflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenancy_workflow_duration_seconds",
			Help:    "Duration of engine workflows in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)
)

func InitMetrics() {
	for _, c := range []prometheus.Collector{
		Attachments, ReconcileIssues, InvariantViolations, Notifications, WorkflowDuration,
	} {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msg("Failed to register metric")
		}
	}
}
