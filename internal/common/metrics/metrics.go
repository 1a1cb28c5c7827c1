// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of successful status transitions",
		},
		[]string{"from", "to"},
	)

	IllegalTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_illegal_transitions_total",
			Help: "Total number of rejected transition attempts",
		},
		[]string{"from", "to"},
	)

	StageApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_stage_approvals_total",
			Help: "Total number of SSC stage reviews recorded",
		},
		[]string{"stage", "status"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "workflow_transition_duration_seconds",
			Help: "Duration of transition processing in seconds",
		},
		[]string{"to"},
	)

	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Total number of enrollment rows processed by outcome",
		},
		[]string{"outcome"},
	)
)
