package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/store"
)

var workflowStatuses = []model.WorkflowStatus{
	model.WorkflowPending,
	model.WorkflowNegotiating,
	model.WorkflowCompleted,
	model.WorkflowRejected,
}

// WorkflowCollector periodically refreshes the number of offer workflows
// per status.
type WorkflowCollector struct {
	workflows store.WorkflowStore
	interval  time.Duration
	logger    *zap.Logger
	gauge     *prometheus.GaugeVec
}

func NewWorkflowCollector(workflows store.WorkflowStore, reg prometheus.Registerer, interval time.Duration, logger *zap.Logger) *WorkflowCollector {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &WorkflowCollector{
		workflows: workflows,
		interval:  interval,
		logger:    logger,
		gauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "offerflow_workflows",
				Help: "Number of offer workflows by status.",
			},
			[]string{"status"},
		),
	}
	if reg != nil {
		reg.MustRegister(c.gauge)
	}
	return c
}

func (c *WorkflowCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh counts workflows per status. A failed count keeps the last value.
func (c *WorkflowCollector) Refresh(ctx context.Context) {
	for _, status := range workflowStatuses {
		_, total, err := c.workflows.List(ctx, store.WorkflowFilter{Status: &status, Limit: 1})
		if err != nil {
			c.logger.Warn("failed to count offer workflows", zap.String("status", string(status)), zap.Error(err))
			continue
		}
		c.gauge.WithLabelValues(string(status)).Set(float64(total))
	}
}

// Gauge exposes the underlying vector.
func (c *WorkflowCollector) Gauge() *prometheus.GaugeVec {
	return c.gauge
}
