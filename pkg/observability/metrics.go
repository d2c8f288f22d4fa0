package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the orchestrator collectors.
type Metrics struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	approvals    *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runTurns     prometheus.Histogram
}

// NewMetrics creates and registers the collectors on registry.
// A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_turns_total",
				Help: "Model round-trips by response kind",
			},
			[]string{"kind"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tendril_turn_duration_seconds",
				Help:    "Duration of a model round-trip, streaming included",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_tool_calls_total",
				Help: "Tool executions by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tendril_tool_duration_seconds",
				Help:    "Duration of tool executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		approvals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_approvals_total",
				Help: "Approval decisions by tool and decision",
			},
			[]string{"tool", "decision"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tendril_runs_total",
				Help: "Finished workflows by final status",
			},
			[]string{"status"},
		),
		runTurns: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tendril_run_turns",
				Help:    "Model turns per finished workflow",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
			},
		),
	}

	registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.toolCalls,
		m.toolDuration,
		m.approvals,
		m.runs,
		m.runTurns,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(string(e.Kind)).Inc()
			m.turnDuration.Observe(e.Duration.Seconds())
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.toolCalls.WithLabelValues(e.ToolName, outcome).Inc()
			if e.Duration > 0 {
				m.toolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
			}
		},
		OnApproval: func(_ context.Context, e *domain.ApprovalEvent) {
			decision := "denied"
			if e.Approved {
				decision = "approved"
			}
			m.approvals.WithLabelValues(e.ToolName, decision).Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(string(e.Status)).Inc()
			m.runTurns.Observe(float64(e.Iterations))
		},
	}
}
