package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/eventbus"
	"github.com/simplifyhr/offerflow/pkg/gateway"
	"github.com/simplifyhr/offerflow/pkg/metrics"
	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
)

const defaultOperationTimeout = 60 * time.Second

// Gateway is the part of *gateway.Gateway the supervisor drives.
type Gateway interface {
	Run(ctx context.Context, e offer.Effect) gateway.Result
	DraftOffer(ctx context.Context, in gateway.OfferContext) (string, error)
}

// Supervisor is the only mutation entry point for offer workflows. Every
// operation either commits one whole transition or leaves the stored
// workflow untouched.
type Supervisor struct {
	workflows store.WorkflowStore
	apps      store.ApplicationStore
	executor  *offer.Executor
	gateway   Gateway
	publisher eventbus.Publisher
	logger    *zap.Logger
	timeout   time.Duration
}

type Option func(*Supervisor)

// WithPublisher sends a live update after every committed change.
func WithPublisher(p eventbus.Publisher) Option {
	return func(s *Supervisor) {
		s.publisher = p
	}
}

func WithOperationTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(workflows store.WorkflowStore, apps store.ApplicationStore, executor *offer.Executor, gw Gateway, logger *zap.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		workflows: workflows,
		apps:      apps,
		executor:  executor,
		gateway:   gw,
		logger:    logger,
		timeout:   defaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is the uniform result handed back to callers.
type Outcome struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Code     string        `json:"code,omitempty"`
	Workflow *WorkflowView `json:"workflow,omitempty"`
}

func failure(err error) Outcome {
	return Outcome{Success: false, Message: offer.Message(err), Code: offer.Code(err)}
}

// AdvanceWorkflow advances the workflow and converts any error into an
// unsuccessful Outcome.
func (s *Supervisor) AdvanceWorkflow(ctx context.Context, id uuid.UUID, stepData map[string]any, expectedStep int) Outcome {
	wf, t, err := s.advance(ctx, id, stepData, expectedStep)
	if err != nil {
		return failure(err)
	}
	out := Outcome{Success: true, Workflow: NewWorkflowView(wf)}
	switch {
	case t.NoOp:
		out.Message = "awaiting candidate response"
	case wf.Status == model.WorkflowRejected:
		out.Message = "offer rejected at " + offer.Step(wf.CurrentStep).Name()
	default:
		out.Message = "advanced to " + offer.Step(wf.CurrentStep).Name()
	}
	return out
}

// Advance moves the workflow one step forward with stepData as the payload
// of its current step. A positive expectedStep must match the stored step.
func (s *Supervisor) Advance(ctx context.Context, id uuid.UUID, stepData map[string]any, expectedStep int) (*model.OfferWorkflow, error) {
	wf, _, err := s.advance(ctx, id, stepData, expectedStep)
	return wf, err
}

func (s *Supervisor) advance(ctx context.Context, id uuid.UUID, stepData map[string]any, expectedStep int) (*model.OfferWorkflow, offer.Transition, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	logger := s.logger.With(zap.String("workflow_id", id.String()))
	step := "unknown"

	wf, t, err := func() (*model.OfferWorkflow, offer.Transition, error) {
		wf, err := s.workflows.Get(ctx, id)
		if err != nil {
			return nil, offer.Transition{}, err
		}
		step = offer.Step(wf.CurrentStep).String()

		if wf.Status.Terminal() {
			return nil, offer.Transition{}, offer.ErrWorkflowTerminal
		}
		if expectedStep > 0 && wf.CurrentStep != expectedStep {
			return nil, offer.Transition{}, fmt.Errorf("workflow is at step %d, not %d: %w", wf.CurrentStep, expectedStep, offer.ErrConflict)
		}

		payload, err := s.executor.Decode(wf, stepData)
		if err != nil {
			return nil, offer.Transition{}, err
		}
		effects, err := s.executor.Plan(wf, payload)
		if err != nil {
			return nil, offer.Transition{}, err
		}

		results := offer.EffectResults{}
		for _, effect := range effects {
			res := s.gateway.Run(ctx, effect)
			if !res.OK {
				return nil, offer.Transition{}, res.Failure(effect.Kind)
			}
			if res.Duplicate {
				logger.Info("reusing side effect result of an earlier attempt", zap.String("effect", string(effect.Kind)))
			}
			results[effect.Kind] = res.Payload
		}

		t, err := s.executor.Apply(wf, payload, results)
		if err != nil {
			return nil, offer.Transition{}, err
		}
		if t.NoOp {
			return wf, t, nil
		}

		next, err := s.commit(ctx, wf, t)
		return next, t, err
	}()

	if err != nil {
		metrics.WorkflowAdvances.WithLabelValues(step, offer.Code(err)).Inc()
		logger.Warn("failed to advance offer workflow", zap.String("step", step), zap.Error(err))
		return nil, offer.Transition{}, err
	}

	metrics.WorkflowAdvances.WithLabelValues(step, metrics.ResultOK).Inc()
	logger.Info("offer workflow advanced",
		zap.String("from_step", step),
		zap.Int("current_step", wf.CurrentStep),
		zap.String("status", string(wf.Status)),
	)
	return wf, t, nil
}

// RecordResponse stores the candidate's response to a sent offer.
func (s *Supervisor) RecordResponse(ctx context.Context, id uuid.UUID, resp offer.CandidateResponse) (*model.OfferWorkflow, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	logger := s.logger.With(zap.String("workflow_id", id.String()))

	wf, err := s.workflows.Get(ctx, id)
	if err != nil {
		logger.Warn("failed to load offer workflow", zap.Error(err))
		return nil, err
	}
	t, err := s.executor.Respond(wf, resp)
	if err != nil {
		logger.Warn("rejected candidate response", zap.Error(err))
		return nil, err
	}
	next, err := s.commit(ctx, wf, t)
	if err != nil {
		logger.Warn("failed to record candidate response", zap.Error(err))
		return nil, err
	}

	response, _ := next.StepData[offer.KeyCandidateResponse].(string)
	metrics.CandidateResponses.WithLabelValues(response).Inc()
	logger.Info("candidate response recorded", zap.String("status", string(next.Status)))
	return next, nil
}

// RecordResponseOutcome is RecordResponse behind the uniform result.
func (s *Supervisor) RecordResponseOutcome(ctx context.Context, id uuid.UUID, resp offer.CandidateResponse) Outcome {
	wf, err := s.RecordResponse(ctx, id, resp)
	if err != nil {
		return failure(err)
	}
	return Outcome{Success: true, Message: "offer " + string(wf.Status), Workflow: NewWorkflowView(wf)}
}

// Initiate starts the offer workflow of a selected application.
func (s *Supervisor) Initiate(ctx context.Context, applicationID uuid.UUID, actor string) (*model.OfferWorkflow, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	logger := s.logger.With(zap.String("application_id", applicationID.String()))

	wf, err := func() (*model.OfferWorkflow, error) {
		app, err := s.apps.GetApplication(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		if app.Status != model.ApplicationSelected {
			return nil, fmt.Errorf("application is %s: %w", app.Status, offer.ErrNotSelected)
		}

		wf := &model.OfferWorkflow{
			ID:            uuid.New(),
			ApplicationID: applicationID,
			CurrentStep:   int(offer.FirstStep),
			Status:        model.WorkflowPending,
			StepData:      model.JSONB{},
			CreatedBy:     actor,
		}
		event := model.NewOfferEvent(wf.ID, model.EventWorkflowInitiated, model.JSONB{
			"application_id": applicationID.String(),
			"created_by":     actor,
		})
		if err := s.workflows.Create(ctx, wf, event); err != nil {
			return nil, err
		}
		return s.workflows.Get(ctx, wf.ID)
	}()
	if err != nil {
		metrics.WorkflowsInitiated.WithLabelValues(offer.Code(err)).Inc()
		logger.Warn("failed to initiate offer workflow", zap.Error(err))
		return nil, err
	}

	metrics.WorkflowsInitiated.WithLabelValues(metrics.ResultOK).Inc()
	logger.Info("offer workflow initiated", zap.String("workflow_id", wf.ID.String()), zap.String("created_by", actor))
	s.publish(ctx, eventbus.TypeWorkflowInitiated, wf, "offer workflow started")
	return wf, nil
}

// Get loads a workflow. A non-empty owner hides workflows created by anyone else.
func (s *Supervisor) Get(ctx context.Context, id uuid.UUID, owner string) (*model.OfferWorkflow, error) {
	wf, err := s.workflows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner != "" && wf.CreatedBy != owner {
		return nil, offer.ErrNotFound
	}
	return wf, nil
}

func (s *Supervisor) List(ctx context.Context, filter store.WorkflowFilter) (*WorkflowPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, &offer.ValidationError{Field: "status", Reason: "must be pending, negotiating, completed or rejected"}
	}
	items, total, err := s.workflows.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := &WorkflowPage{Items: make([]WorkflowView, 0, len(items)), Total: total}
	for i := range items {
		page.Items = append(page.Items, *NewWorkflowView(&items[i]))
	}
	return page, nil
}

// commit persists the staged transition against the version that was read
// and publishes the live update once it is stored.
func (s *Supervisor) commit(ctx context.Context, wf *model.OfferWorkflow, t offer.Transition) (*model.OfferWorkflow, error) {
	next := t.Stage(wf)
	event := model.NewOfferEvent(wf.ID, t.EventType, model.JSONB{
		"from_step": int(t.From),
		"to_step":   int(t.NextStep),
		"status":    string(t.NextStatus),
		"changes":   map[string]any(t.Patch.Clone()),
	})
	if err := s.workflows.Save(ctx, next, wf.Version, event); err != nil {
		return nil, err
	}

	eventType := eventbus.TypeWorkflowAdvanced
	if t.EventType == model.EventCandidateResponded {
		eventType = eventbus.TypeCandidateResponded
	}
	s.publish(ctx, eventType, next, "")
	return next, nil
}

func (s *Supervisor) publish(ctx context.Context, eventType string, wf *model.OfferWorkflow, message string) {
	if s.publisher == nil {
		return
	}
	event, err := eventbus.NewEvent(eventType, eventbus.WorkflowEvent{
		WorkflowID:  wf.ID.String(),
		CurrentStep: wf.CurrentStep,
		Status:      string(wf.Status),
		Version:     wf.Version,
		Message:     message,
	})
	if err != nil {
		s.logger.Warn("failed to encode workflow event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, eventbus.WorkflowChannel(wf.ID.String()), event); err != nil {
		s.logger.Warn("failed to publish workflow event", zap.String("workflow_id", wf.ID.String()), zap.Error(err))
	}
}

// detach keeps an operation that has started running after the caller
// goes away, bounded by the operation timeout.
func (s *Supervisor) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}
