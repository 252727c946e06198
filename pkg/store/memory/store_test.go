package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
)

func seed(s *Store) (model.JobApplication, model.Candidate, model.Job) {
	job := model.Job{ID: uuid.New(), Title: "Data Engineer"}
	candidate := model.Candidate{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	app := model.JobApplication{ID: uuid.New(), JobID: job.ID, CandidateID: candidate.ID, Status: model.ApplicationSelected}
	s.PutJob(job)
	s.PutCandidate(candidate)
	s.PutApplication(app)
	return app, candidate, job
}

func TestCreateAndGetJoinsApplication(t *testing.T) {
	ctx := context.Background()
	s := New()
	app, candidate, job := seed(s)

	wf := &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending, CreatedBy: "hm-1"}
	if err := s.Create(ctx, wf, model.NewOfferEvent(uuid.Nil, model.EventWorkflowInitiated, nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if wf.ID == uuid.Nil || wf.Version != 1 {
		t.Fatalf("expected id and version to be assigned, got %s v%d", wf.ID, wf.Version)
	}

	got, err := s.Get(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Application == nil || got.Application.Job.Title != job.Title || got.Application.Candidate.Email != candidate.Email {
		t.Fatalf("expected joined application, got %+v", got.Application)
	}

	err = s.Create(ctx, &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending}, nil)
	if !errors.Is(err, offer.ErrDuplicateWorkflow) {
		t.Fatalf("expected duplicate workflow, got %v", err)
	}

	if _, err := s.Get(ctx, uuid.New()); !errors.Is(err, offer.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := New()
	app, _, _ := seed(s)

	wf := &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending}
	if err := s.Create(ctx, wf, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := s.Get(ctx, wf.ID)
	second, _ := s.Get(ctx, wf.ID)

	first.CurrentStep = 2
	first.StepData = first.StepData.Merge(model.JSONB{"background_check_status": "passed"})
	if err := s.Save(ctx, first, 1, model.NewOfferEvent(first.ID, model.EventWorkflowAdvanced, nil)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version 2, got %d", first.Version)
	}

	second.CurrentStep = 2
	if err := s.Save(ctx, second, 1, nil); !errors.Is(err, offer.ErrConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	stored, _ := s.Get(ctx, wf.ID)
	if stored.StepData["background_check_status"] != "passed" || stored.Version != 2 {
		t.Fatalf("losing writer changed stored state: %+v", stored)
	}
	if len(s.Events()) != 1 {
		t.Fatalf("expected only the winning save to write an event, got %d", len(s.Events()))
	}
}

func TestSaveNeverDropsStepData(t *testing.T) {
	ctx := context.Background()
	s := New()
	app, _, _ := seed(s)

	wf := &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending, StepData: model.JSONB{"a": "1"}}
	_ = s.Create(ctx, wf, nil)

	loaded, _ := s.Get(ctx, wf.ID)
	loaded.StepData = model.JSONB{"b": "2"}
	if err := s.Save(ctx, loaded, 1, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, _ := s.Get(ctx, wf.ID)
	if stored.StepData["a"] != "1" || stored.StepData["b"] != "2" {
		t.Fatalf("expected additive step data, got %v", stored.StepData)
	}
}

func TestListScopesAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 3; i++ {
		app, _, _ := seed(s)
		_ = s.Create(ctx, &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending, CreatedBy: "hm-1"}, nil)
	}
	other, _, _ := seed(s)
	_ = s.Create(ctx, &model.OfferWorkflow{ApplicationID: other.ID, CurrentStep: 1, Status: model.WorkflowPending, CreatedBy: "hm-2"}, nil)

	got, total, err := s.List(ctx, store.WorkflowFilter{CreatedBy: "hm-1", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(got) != 2 {
		t.Fatalf("expected 2 of 3 workflows, got %d of %d", len(got), total)
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}

	completed := model.WorkflowCompleted
	got, total, _ = s.List(ctx, store.WorkflowFilter{CreatedBy: "hm-1", Status: &completed})
	if total != 0 || len(got) != 0 {
		t.Fatalf("expected no completed workflows, got %d", total)
	}
}

func TestUpdateScreening(t *testing.T) {
	ctx := context.Background()
	s := New()
	app, _, _ := seed(s)

	if err := s.UpdateScreening(ctx, app.ID, 81, "good fit", model.ApplicationScreening); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetApplication(ctx, app.ID)
	if got.Status != model.ApplicationScreening || *got.AIScreeningScore != 81 {
		t.Fatalf("unexpected application %+v", got)
	}
	if err := s.UpdateScreening(ctx, uuid.New(), 1, "", model.ApplicationRejected); !errors.Is(err, offer.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
