// Package metrics exposes Prometheus instrumentation for the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feldsher_provider_attempts_total",
			Help: "Provider candidate attempts by candidate name",
		},
		[]string{"candidate"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feldsher_provider_errors_total",
			Help: "Failed provider candidate attempts by candidate name",
		},
		[]string{"candidate"},
	)

	ProviderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feldsher_provider_fallbacks_total",
			Help: "Times the chain advanced past the first candidate of a call",
		},
	)

	ProviderExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feldsher_provider_exhausted_total",
			Help: "Times every candidate in the fallback chain failed",
		},
	)

	ToolExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feldsher_tool_executions_total",
			Help: "Tool executions by tool name and outcome (ok, error, denied, not_found)",
		},
		[]string{"tool", "outcome"},
	)

	RecoveredInvocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feldsher_recovered_invocations_total",
			Help: "Tool invocations rescued from free-text provider output",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feldsher_active_sessions",
			Help: "Sessions currently resident in the in-memory store",
		},
	)

	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feldsher_chat_turns_total",
			Help: "Processed user turns by role",
		},
		[]string{"role"},
	)
)
