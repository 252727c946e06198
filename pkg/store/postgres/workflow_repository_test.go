package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
)

// openTestStore starts a Postgres 16 container, or reuses OFFERFLOW_TEST_DSN.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	dsn := os.Getenv("OFFERFLOW_TEST_DSN")
	if dsn == "" {
		container, err := tcpostgres.Run(ctx,
			"postgres:16",
			tcpostgres.WithDatabase("offerflow"),
			tcpostgres.WithUsername("offerflow"),
			tcpostgres.WithPassword("offerflow"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
		t.Cleanup(func() {
			_ = container.Terminate(context.Background())
		})
		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("connection string: %v", err)
		}
	}

	s, err := Open(dsn, 10, 5)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedApplication(t *testing.T, s *Store) *model.JobApplication {
	t.Helper()
	db := s.DB()
	job := &model.Job{ID: uuid.New(), Title: "Platform Engineer", SkillsRequired: []string{"Go", "Kubernetes"}}
	candidate := &model.Candidate{ID: uuid.New(), FirstName: "Linus", LastName: "Torvalds", Email: "linus@example.com"}
	app := &model.JobApplication{ID: uuid.New(), JobID: job.ID, CandidateID: candidate.ID, Status: model.ApplicationSelected}
	for _, row := range []interface{}{job, candidate, app} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return app
}

func TestWorkflowRepositoryLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := NewWorkflowRepository(s.DB())
	outbox := NewOutboxRepository(s.DB())
	app := seedApplication(t, s)

	wf := &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending, CreatedBy: "hm-1"}
	if err := repo.Create(ctx, wf, model.NewOfferEvent(uuid.Nil, model.EventWorkflowInitiated, nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending}
	if err := repo.Create(ctx, dup, nil); !errors.Is(err, offer.ErrDuplicateWorkflow) {
		t.Fatalf("expected duplicate workflow, got %v", err)
	}

	loaded, err := repo.Get(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Application == nil || loaded.Application.Candidate.Email != "linus@example.com" || loaded.Application.Job.Title != "Platform Engineer" {
		t.Fatalf("expected joined application, got %+v", loaded.Application)
	}

	loaded.CurrentStep = 2
	loaded.StepData = model.JSONB{"background_check_status": "passed", "background_check_result": map[string]interface{}{"score": 90}}
	if err := repo.Save(ctx, loaded, 1, model.NewOfferEvent(wf.ID, model.EventWorkflowAdvanced, model.JSONB{"to_step": 2})); err != nil {
		t.Fatalf("save: %v", err)
	}
	if loaded.Version != 2 {
		t.Fatalf("expected version 2, got %d", loaded.Version)
	}

	stale := &model.OfferWorkflow{ID: wf.ID, CurrentStep: 2, Status: model.WorkflowPending, StepData: model.JSONB{"other": "x"}}
	if err := repo.Save(ctx, stale, 1, nil); !errors.Is(err, offer.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Omitted keys survive a save.
	loaded.CurrentStep = 3
	loaded.StepData = model.JSONB{"generated_offer_content": "Dear Linus"}
	if err := repo.Save(ctx, loaded, 2, nil); err != nil {
		t.Fatalf("second save: %v", err)
	}
	final, _ := repo.Get(ctx, wf.ID)
	if final.StepData["background_check_status"] != "passed" || final.StepData["generated_offer_content"] != "Dear Linus" {
		t.Fatalf("expected merged step data, got %v", final.StepData)
	}
	if _, ok := final.StepData["other"]; ok {
		t.Fatalf("conflicting save leaked step data")
	}

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, offer.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	events, err := outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	var forWorkflow int
	for _, e := range events {
		if e.WorkflowID == wf.ID {
			forWorkflow++
		}
	}
	if forWorkflow != 2 {
		t.Fatalf("expected 2 outbox events, got %d", forWorkflow)
	}
	if err := outbox.MarkPublished(ctx, events[0].EventID, time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}

	list, total, err := repo.List(ctx, store.WorkflowFilter{CreatedBy: "hm-1", Limit: 10})
	if err != nil || total < 1 || len(list) < 1 {
		t.Fatalf("expected listed workflow, got %d (%v)", total, err)
	}
}

func TestWorkflowRepositoryConcurrentSave(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := NewWorkflowRepository(s.DB())
	app := seedApplication(t, s)

	wf := &model.OfferWorkflow{ApplicationID: app.ID, CurrentStep: 1, Status: model.WorkflowPending}
	if err := repo.Create(ctx, wf, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := &model.OfferWorkflow{ID: wf.ID, CurrentStep: 2, Status: model.WorkflowPending, StepData: model.JSONB{}}
			errs[i] = repo.Save(ctx, next, 1, nil)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, offer.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one winner and one conflict, got %d/%d", ok, conflicts)
	}
}

func TestApplicationRepositoryScreening(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := NewApplicationRepository(s.DB())
	app := seedApplication(t, s)

	if err := repo.UpdateScreening(ctx, app.ID, 74, "solid match", model.ApplicationScreening); err != nil {
		t.Fatalf("update screening: %v", err)
	}
	got, err := repo.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if got.Status != model.ApplicationScreening || got.AIScreeningScore == nil || *got.AIScreeningScore != 74 {
		t.Fatalf("unexpected application %+v", got)
	}
	if len(got.Job.SkillsRequired) != 2 {
		t.Fatalf("expected skills array round trip, got %v", got.Job.SkillsRequired)
	}

	apps, err := repo.ListApplicationsByJob(ctx, app.JobID, model.ApplicationScreening)
	if err != nil || len(apps) != 1 {
		t.Fatalf("expected one screening application, got %d (%v)", len(apps), err)
	}
	if _, err := repo.GetApplication(ctx, uuid.New()); !errors.Is(err, offer.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
