package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_workflow_advances_total",
			Help: "Total number of advance attempts by step and result code",
		},
		[]string{"step", "result"},
	)

	WorkflowsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_workflows_initiated_total",
			Help: "Total number of offer workflow initiations by result code",
		},
		[]string{"result"},
	)

	CandidateResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_candidate_responses_total",
			Help: "Total number of recorded candidate responses",
		},
		[]string{"response"},
	)

	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_gateway_calls_total",
			Help: "Total number of side effect calls by effect and result",
		},
		[]string{"effect", "result"},
	)

	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offerflow_gateway_call_duration_seconds",
			Help:    "Side effect call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"effect"},
	)

	Assessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_assessments_total",
			Help: "Total number of application assessments by outcome",
		},
		[]string{"outcome"},
	)

	JobDescriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_job_descriptions_total",
			Help: "Total number of generated job descriptions by result",
		},
		[]string{"result"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerflow_outbox_events_total",
			Help: "Total number of outbox events relayed by result",
		},
		[]string{"result"},
	)
)

// Result labels shared by the gateway counters.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
	ResultTimeout   = "timeout"
)
