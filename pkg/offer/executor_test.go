package offer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/simplifyhr/offerflow/pkg/model"
)

func newWorkflow(step int, status model.WorkflowStatus) *model.OfferWorkflow {
	return &model.OfferWorkflow{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		CurrentStep:   step,
		Status:        status,
		StepData:      model.JSONB{"existing": "kept"},
		Version:       1,
		Application: &model.JobApplication{
			Status: model.ApplicationSelected,
			Job:    &model.Job{Title: "Backend Engineer"},
			Candidate: &model.Candidate{
				ID:        uuid.New(),
				FirstName: "Grace",
				LastName:  "Hopper",
				Email:     "grace@example.com",
			},
		},
	}
}

func advance(t *testing.T, e *Executor, wf *model.OfferWorkflow, raw map[string]any, results EffectResults) (Transition, error) {
	t.Helper()
	payload, err := e.Decode(wf, raw)
	if err != nil {
		return Transition{}, err
	}
	if _, err := e.Plan(wf, payload); err != nil {
		return Transition{}, err
	}
	return e.Apply(wf, payload, results)
}

func TestValidPayloadsAdvanceOneStep(t *testing.T) {
	e := NewExecutor()
	notification := EffectResults{EffectNotification: {"id": "msg-1", "status": "sent"}}

	tests := []struct {
		step    int
		raw     map[string]any
		results EffectResults
		key     string
	}{
		{1, map[string]any{"background_check_status": "passed", "background_check_result": map[string]any{"score": 92}}, nil, KeyBackgroundCheckStatus},
		{1, map[string]any{"backgroundCheckStatus": "failed", "backgroundCheckResult": map[string]any{}}, nil, KeyBackgroundCheckStatus},
		{2, map[string]any{"generated_offer_content": "Dear Grace", "offer_details": map[string]any{"salary": 75000.0}}, nil, KeyGeneratedOfferContent},
		{3, map[string]any{"hr_comments": "approved"}, nil, KeyHRComments},
		{3, map[string]any{}, nil, KeyHRDecision},
		{4, map[string]any{"offer_letter_url": "https://files.example.com/offer.pdf"}, notification, KeyOfferLetterURL},
	}

	for _, tt := range tests {
		wf := newWorkflow(tt.step, model.WorkflowPending)
		tr, err := advance(t, e, wf, tt.raw, tt.results)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", tt.step, err)
		}
		next := tr.Stage(wf)
		if next.CurrentStep != tt.step+1 {
			t.Fatalf("step %d: expected next step %d, got %d", tt.step, tt.step+1, next.CurrentStep)
		}
		if next.Status != model.WorkflowPending {
			t.Fatalf("step %d: expected pending, got %s", tt.step, next.Status)
		}
		if next.StepData["existing"] != "kept" {
			t.Fatalf("step %d: previously stored step data was lost", tt.step)
		}
		if _, ok := next.StepData[tt.key]; !ok {
			t.Fatalf("step %d: expected %s in step data", tt.step, tt.key)
		}
		if wf.CurrentStep != tt.step || len(wf.StepData) != 1 {
			t.Fatalf("step %d: staging mutated the loaded workflow", tt.step)
		}
	}
}

func TestStepOneRequiresStatus(t *testing.T) {
	e := NewExecutor()
	wf := newWorkflow(1, model.WorkflowPending)

	_, err := advance(t, e, wf, map[string]any{"background_check_result": map[string]any{}}, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != KeyBackgroundCheckStatus {
		t.Fatalf("expected field %s, got %s", KeyBackgroundCheckStatus, verr.Field)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("validation error must wrap ErrValidation")
	}
}

func TestPayloadValidation(t *testing.T) {
	e := NewExecutor()
	tests := []struct {
		name  string
		step  int
		raw   map[string]any
		field string
	}{
		{"unknown check status", 1, map[string]any{"background_check_status": "maybe", "background_check_result": map[string]any{}}, KeyBackgroundCheckStatus},
		{"missing check result", 1, map[string]any{"background_check_status": "passed"}, KeyBackgroundCheckResult},
		{"result not an object", 1, map[string]any{"background_check_status": "passed", "background_check_result": "ok"}, KeyBackgroundCheckResult},
		{"run check with status", 1, map[string]any{"run_background_check": true, "background_check_status": "passed"}, KeyBackgroundCheckStatus},
		{"blank offer content", 2, map[string]any{"generated_offer_content": "   "}, KeyGeneratedOfferContent},
		{"offer details not an object", 2, map[string]any{"generated_offer_content": "x", "offer_details": []any{1}}, KeyOfferDetails},
		{"comments not a string", 3, map[string]any{"hr_comments": 42.0}, KeyHRComments},
		{"unknown hr decision", 3, map[string]any{"hr_decision": "maybe"}, KeyHRDecision},
		{"hr rejection disabled", 3, map[string]any{"hr_decision": "rejected"}, KeyHRDecision},
		{"missing offer letter", 4, map[string]any{}, KeyOfferLetterURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := newWorkflow(tt.step, model.WorkflowPending)
			_, err := advance(t, e, wf, tt.raw, nil)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestTerminalWorkflowCannotAdvance(t *testing.T) {
	e := NewExecutor()
	for _, status := range []model.WorkflowStatus{model.WorkflowCompleted, model.WorkflowRejected} {
		wf := newWorkflow(5, status)
		if _, err := e.Decode(wf, nil); !errors.Is(err, ErrWorkflowTerminal) {
			t.Fatalf("%s: expected ErrWorkflowTerminal, got %v", status, err)
		}
		if _, err := e.Respond(wf, CandidateResponse{Response: ResponseAccepted}); !errors.Is(err, ErrWorkflowTerminal) {
			t.Fatalf("%s: expected ErrWorkflowTerminal on respond, got %v", status, err)
		}
	}
}

func TestRunBackgroundCheckPlansEffect(t *testing.T) {
	e := NewExecutor()
	wf := newWorkflow(1, model.WorkflowPending)

	payload, err := e.Decode(wf, map[string]any{"run_background_check": true})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	effects, err := e.Plan(wf, payload)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(effects) != 1 || effects[0].Kind != EffectBackgroundCheck {
		t.Fatalf("expected one background check effect, got %+v", effects)
	}
	if effects[0].BackgroundCheck.Email != "grace@example.com" {
		t.Fatalf("expected candidate email in request, got %q", effects[0].BackgroundCheck.Email)
	}
	wantKey := "offer:" + wf.ID.String() + ":1:background_check"
	if effects[0].IdempotencyKey() != wantKey {
		t.Fatalf("expected key %s, got %s", wantKey, effects[0].IdempotencyKey())
	}

	tr, err := e.Apply(wf, payload, EffectResults{EffectBackgroundCheck: {
		"status": "passed",
		"result": map[string]any{"score": 95.0, "provider": "BackgroundCheck Pro"},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	next := tr.Stage(wf)
	if next.StepData[KeyBackgroundCheckStatus] != "passed" {
		t.Fatalf("expected passed status, got %v", next.StepData[KeyBackgroundCheckStatus])
	}

	_, err = e.Apply(wf, payload, EffectResults{EffectBackgroundCheck: {"status": "weird", "result": map[string]any{}}})
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected gateway error for malformed provider status, got %v", err)
	}
}

func TestSendOfferPlansNotification(t *testing.T) {
	e := NewExecutor()
	wf := newWorkflow(4, model.WorkflowPending)
	wf.StepData[KeyOfferDetails] = map[string]any{"salary": 75000.0}

	payload, err := e.Decode(wf, map[string]any{"offerLetterUrl": "https://files.example.com/offer.pdf"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	effects, err := e.Plan(wf, payload)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(effects) != 1 || effects[0].Notification == nil {
		t.Fatalf("expected notification effect, got %+v", effects)
	}
	n := effects[0].Notification
	if n.To != "grace@example.com" || n.Subject != "Job Offer - Backend Engineer" || n.Type != NotificationOfferSent {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !strings.Contains(n.HTML, "https://files.example.com/offer.pdf") || !strings.Contains(n.HTML, "75000") {
		t.Fatalf("notification body missing offer details: %s", n.HTML)
	}

	if _, err := e.Apply(wf, payload, nil); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected gateway error without acknowledgement, got %v", err)
	}

	wf.Application.Candidate.Email = ""
	if _, err := e.Plan(wf, payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error without candidate email, got %v", err)
	}
}

func TestTrackResponseAdvanceIsNoOp(t *testing.T) {
	e := NewExecutor()
	wf := newWorkflow(5, model.WorkflowPending)

	tr, err := advance(t, e, wf, map[string]any{"anything": true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tr.NoOp {
		t.Fatalf("expected a no-op transition")
	}
	next := tr.Stage(wf)
	if next.CurrentStep != 5 || next.Status != model.WorkflowPending || len(next.StepData) != 1 {
		t.Fatalf("no-op transition changed the workflow: %+v", next)
	}
}

func TestHRRejectionWhenEnabled(t *testing.T) {
	e := NewExecutor(WithHRRejection(true))
	wf := newWorkflow(3, model.WorkflowPending)

	tr, err := advance(t, e, wf, map[string]any{"hr_decision": "rejected", "hr_comments": "budget freeze"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next := tr.Stage(wf)
	if next.Status != model.WorkflowRejected || next.CurrentStep != 3 {
		t.Fatalf("expected rejected at step 3, got %s at %d", next.Status, next.CurrentStep)
	}
	if tr.EventType != model.EventHRRejected {
		t.Fatalf("expected hr rejected event, got %s", tr.EventType)
	}
}

func TestRespond(t *testing.T) {
	e := NewExecutor()
	amount := 80000.0

	tests := []struct {
		response ResponseKind
		want     model.WorkflowStatus
	}{
		{ResponseAccepted, model.WorkflowCompleted},
		{ResponseDeclined, model.WorkflowRejected},
		{ResponseCountered, model.WorkflowNegotiating},
		{"ACCEPTED", model.WorkflowCompleted},
	}

	for _, tt := range tests {
		wf := newWorkflow(5, model.WorkflowPending)
		tr, err := e.Respond(wf, CandidateResponse{Response: tt.response, Notes: " thanks ", FinalOfferAmount: &amount})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.response, err)
		}
		next := tr.Stage(wf)
		if next.Status != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.response, tt.want, next.Status)
		}
		if next.CurrentStep != 5 {
			t.Fatalf("%s: response must not move the step", tt.response)
		}
		if next.StepData[KeyResponseNotes] != "thanks" || next.StepData[KeyFinalOfferAmount] != amount {
			t.Fatalf("%s: response details not recorded: %v", tt.response, next.StepData)
		}
	}
}

func TestRespondAfterCounterOffer(t *testing.T) {
	e := NewExecutor()
	wf := newWorkflow(5, model.WorkflowNegotiating)

	tr, err := e.Respond(wf, CandidateResponse{Response: ResponseAccepted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.NextStatus != model.WorkflowCompleted {
		t.Fatalf("expected completed after negotiation, got %s", tr.NextStatus)
	}
}

func TestRespondRequiresLastStep(t *testing.T) {
	e := NewExecutor()
	wf := newWorkflow(4, model.WorkflowPending)

	if _, err := e.Respond(wf, CandidateResponse{Response: ResponseAccepted}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error before step 5, got %v", err)
	}

	wf = newWorkflow(5, model.WorkflowPending)
	if _, err := e.Respond(wf, CandidateResponse{Response: "ghosted"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown response, got %v", err)
	}
}
