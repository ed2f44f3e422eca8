package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Classifier metrics
	ClassifierDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_classifier_decisions_total",
			Help: "Total classification decisions by outcome",
		},
		[]string{"outcome"}, // workflow type or single-action kind
	)

	// Task metrics
	TasksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_tasks_created_total",
			Help: "Total tasks created by workflow type",
		},
		[]string{"task_type"},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_tasks_finished_total",
			Help: "Total tasks reaching a terminal status",
		},
		[]string{"task_type", "status"},
	)

	TasksWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisordesk_tasks_waiting",
			Help: "Tasks currently suspended on an external event",
		},
	)

	// Engine metrics
	StepsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_steps_executed_total",
			Help: "Step executions by step name and result",
		},
		[]string{"step", "result"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisordesk_step_duration_seconds",
			Help:    "Step execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	StepRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisordesk_step_retries_total",
			Help: "Step re-executions after a recoverable failure",
		},
	)

	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisordesk_task_version_conflicts_total",
			Help: "Optimistic update conflicts on task records",
		},
	)

	// Resume metrics
	ResumeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_resume_events_total",
			Help: "Inbound webhook events by kind",
		},
		[]string{"kind"},
	)

	ResumeMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisordesk_resume_matched_tasks",
			Help:    "Waiting tasks matched per inbound event",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)

	// Tool adapter metrics
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_tool_calls_total",
			Help: "Tool adapter invocations by tool and status",
		},
		[]string{"tool", "status"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisordesk_tool_call_duration_seconds",
			Help:    "Tool adapter call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tool"},
	)

	// LLM gateway metrics
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_llm_requests_total",
			Help: "LLM gateway requests by mode and status",
		},
		[]string{"mode", "status"},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisordesk_sessions_created_total",
			Help: "Total conversation sessions created",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisordesk_session_cache_size",
			Help: "Sessions held in the local cache",
		},
	)

	// Rules metrics
	RulesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisordesk_rules_evaluated_total",
			Help: "Proactive rule evaluations by outcome",
		},
		[]string{"outcome"}, // matched, skipped, action_failed
	)

	// Circuit breaker metrics
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "advisordesk_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
