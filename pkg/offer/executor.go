package offer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/simplifyhr/offerflow/pkg/model"
)

// EffectResults carries the payload of every effect that completed
// successfully, keyed by kind.
type EffectResults map[EffectKind]model.JSONB

// Transition is the computed next state of a workflow. It is applied to a
// copy of the workflow and persisted as a whole or not at all.
type Transition struct {
	From       Step
	NextStep   Step
	NextStatus model.WorkflowStatus
	Patch      model.JSONB
	EventType  string
	// NoOp is set when nothing changes, e.g. advancing while awaiting the
	// candidate's response.
	NoOp bool
}

// Stage returns a copy of wf with the transition applied.
func (t Transition) Stage(wf *model.OfferWorkflow) *model.OfferWorkflow {
	next := wf.Clone()
	if t.NoOp {
		return next
	}
	next.CurrentStep = int(t.NextStep)
	next.Status = t.NextStatus
	next.StepData = next.StepData.Merge(t.Patch)
	return next
}

// Executor holds the step graph. It performs no I/O.
type Executor struct {
	allowHRRejection bool
}

type Option func(*Executor)

// WithHRRejection enables the rejection outcome of the HR approval step.
func WithHRRejection(enabled bool) Option {
	return func(e *Executor) {
		e.allowHRRejection = enabled
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decode validates that wf may advance and decodes raw into the payload of
// its current step.
func (e *Executor) Decode(wf *model.OfferWorkflow, raw map[string]any) (StepPayload, error) {
	if wf == nil {
		return nil, ErrNotFound
	}
	if wf.Status.Terminal() {
		return nil, ErrWorkflowTerminal
	}
	return DecodePayload(Step(wf.CurrentStep), raw)
}

// Plan returns the side effects that must succeed before payload can be
// applied to wf.
func (e *Executor) Plan(wf *model.OfferWorkflow, payload StepPayload) ([]Effect, error) {
	if err := e.check(wf, payload); err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case BackgroundCheckPayload:
		if !p.RunCheck {
			return nil, nil
		}
		identity, err := candidateIdentity(wf)
		if err != nil {
			return nil, err
		}
		return []Effect{{
			Kind:            EffectBackgroundCheck,
			WorkflowID:      wf.ID,
			Step:            StepBackgroundCheck,
			BackgroundCheck: identity,
		}}, nil
	case SendOfferPayload:
		notification, err := offerNotification(wf, p.OfferLetterURL)
		if err != nil {
			return nil, err
		}
		return []Effect{{
			Kind:         EffectNotification,
			WorkflowID:   wf.ID,
			Step:         StepSendToCandidate,
			Notification: notification,
		}}, nil
	default:
		return nil, nil
	}
}

// Apply computes the transition for payload given the results of the
// effects returned by Plan.
func (e *Executor) Apply(wf *model.OfferWorkflow, payload StepPayload, results EffectResults) (Transition, error) {
	if err := e.check(wf, payload); err != nil {
		return Transition{}, err
	}

	from := Step(wf.CurrentStep)
	t := Transition{
		From:       from,
		NextStep:   from + 1,
		NextStatus: model.WorkflowPending,
		EventType:  model.EventWorkflowAdvanced,
	}

	switch p := payload.(type) {
	case BackgroundCheckPayload:
		status, result := p.Status, p.Result
		if p.RunCheck {
			var err error
			status, result, err = checkFromResult(results[EffectBackgroundCheck])
			if err != nil {
				return Transition{}, err
			}
		}
		t.Patch = model.JSONB{
			KeyBackgroundCheckStatus: string(status),
			KeyBackgroundCheckResult: map[string]any(result),
		}
	case GenerateOfferPayload:
		t.Patch = model.JSONB{KeyGeneratedOfferContent: p.Content}
		if p.Details != nil {
			t.Patch[KeyOfferDetails] = map[string]any(p.Details)
		}
	case HRApprovalPayload:
		t.Patch = model.JSONB{KeyHRDecision: string(p.Decision)}
		if p.Comments != nil {
			t.Patch[KeyHRComments] = *p.Comments
		}
		if p.Decision == HRRejected {
			t.NextStep = from
			t.NextStatus = model.WorkflowRejected
			t.EventType = model.EventHRRejected
		}
	case SendOfferPayload:
		delivery, ok := results[EffectNotification]
		if !ok {
			return Transition{}, &GatewayError{Effect: EffectNotification, Err: errors.New("no delivery acknowledgement")}
		}
		t.Patch = model.JSONB{KeyOfferLetterURL: p.OfferLetterURL}
		if id, ok := delivery["id"].(string); ok && id != "" {
			t.Patch[KeyNotificationID] = id
		}
		if status, ok := delivery["status"].(string); ok && status != "" {
			t.Patch[KeyNotificationStatus] = status
		}
	case TrackResponsePayload:
		return Transition{
			From:       from,
			NextStep:   from,
			NextStatus: wf.Status,
			NoOp:       true,
		}, nil
	}

	return t, nil
}

func (e *Executor) check(wf *model.OfferWorkflow, payload StepPayload) error {
	if wf == nil {
		return ErrNotFound
	}
	if wf.Status.Terminal() {
		return ErrWorkflowTerminal
	}
	if payload == nil {
		return invalid("step_data", "is required")
	}
	if payload.Step() != Step(wf.CurrentStep) {
		return invalid("current_step", fmt.Sprintf("workflow is at step %d, payload is for step %d", wf.CurrentStep, payload.Step()))
	}
	if p, ok := payload.(HRApprovalPayload); ok && p.Decision == HRRejected && !e.allowHRRejection {
		return invalid(KeyHRDecision, "rejection at HR approval is not enabled")
	}
	return nil
}

type ResponseKind string

const (
	ResponseAccepted  ResponseKind = "accepted"
	ResponseDeclined  ResponseKind = "declined"
	ResponseCountered ResponseKind = "countered"
)

var responseStatus = map[ResponseKind]model.WorkflowStatus{
	ResponseAccepted:  model.WorkflowCompleted,
	ResponseDeclined:  model.WorkflowRejected,
	ResponseCountered: model.WorkflowNegotiating,
}

// CandidateResponse is the candidate's disposition on a sent offer.
type CandidateResponse struct {
	Response         ResponseKind
	Notes            string
	FinalOfferAmount *float64
}

// Respond computes the transition for a candidate response. Only a
// workflow waiting at the last step can record one.
func (e *Executor) Respond(wf *model.OfferWorkflow, resp CandidateResponse) (Transition, error) {
	if wf == nil {
		return Transition{}, ErrNotFound
	}
	if wf.Status.Terminal() {
		return Transition{}, ErrWorkflowTerminal
	}
	if Step(wf.CurrentStep) != StepTrackResponse {
		return Transition{}, invalid("response", fmt.Sprintf("can only be recorded at step %d, workflow is at step %d", StepTrackResponse, wf.CurrentStep))
	}

	kind := ResponseKind(strings.ToLower(strings.TrimSpace(string(resp.Response))))
	status, ok := responseStatus[kind]
	if !ok {
		return Transition{}, invalid("response", "must be accepted, declined or countered")
	}

	patch := model.JSONB{KeyCandidateResponse: string(kind)}
	if notes := strings.TrimSpace(resp.Notes); notes != "" {
		patch[KeyResponseNotes] = notes
	}
	if resp.FinalOfferAmount != nil {
		if *resp.FinalOfferAmount < 0 {
			return Transition{}, invalid(KeyFinalOfferAmount, "must not be negative")
		}
		patch[KeyFinalOfferAmount] = *resp.FinalOfferAmount
	}

	return Transition{
		From:       StepTrackResponse,
		NextStep:   StepTrackResponse,
		NextStatus: status,
		Patch:      patch,
		EventType:  model.EventCandidateResponded,
	}, nil
}

func checkFromResult(payload model.JSONB) (CheckStatus, model.JSONB, error) {
	if payload == nil {
		return "", nil, &GatewayError{Effect: EffectBackgroundCheck, Err: errors.New("no result returned")}
	}
	raw, _ := payload["status"].(string)
	status := CheckStatus(strings.ToLower(raw))
	if !status.Valid() {
		return "", nil, &GatewayError{Effect: EffectBackgroundCheck, Err: fmt.Errorf("unexpected status %q", raw)}
	}
	var result model.JSONB
	switch r := payload["result"].(type) {
	case map[string]any:
		result = model.JSONB(r)
	case model.JSONB:
		result = r
	default:
		return "", nil, &GatewayError{Effect: EffectBackgroundCheck, Err: errors.New("result is not an object")}
	}
	return status, result, nil
}

func candidateIdentity(wf *model.OfferWorkflow) (*CandidateIdentity, error) {
	if wf.Application == nil || wf.Application.Candidate == nil {
		return nil, invalid("run_background_check", "candidate identity is not available for this workflow")
	}
	c := wf.Application.Candidate
	return &CandidateIdentity{
		CandidateID: c.ID.String(),
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
	}, nil
}
