package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
)

// Store keeps workflows, applications and outbox events in process. It
// enforces the same uniqueness and version checks as the postgres store.
type Store struct {
	mu           sync.RWMutex
	workflows    map[uuid.UUID]model.OfferWorkflow
	byApp        map[uuid.UUID]uuid.UUID
	applications map[uuid.UUID]model.JobApplication
	jobs         map[uuid.UUID]model.Job
	candidates   map[uuid.UUID]model.Candidate
	events       []model.OfferEvent
	now          func() time.Time
}

var (
	_ store.WorkflowStore    = (*Store)(nil)
	_ store.ApplicationStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		workflows:    make(map[uuid.UUID]model.OfferWorkflow),
		byApp:        make(map[uuid.UUID]uuid.UUID),
		applications: make(map[uuid.UUID]model.JobApplication),
		jobs:         make(map[uuid.UUID]model.Job),
		candidates:   make(map[uuid.UUID]model.Candidate),
		now:          time.Now,
	}
}

// PutJob, PutCandidate and PutApplication seed reference data.
func (s *Store) PutJob(job model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	s.jobs[job.ID] = job
}

func (s *Store) PutCandidate(c model.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.candidates[c.ID] = c
}

func (s *Store) PutApplication(app model.JobApplication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	app.Job, app.Candidate = nil, nil
	s.applications[app.ID] = app
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*model.OfferWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, offer.ErrNotFound
	}
	return s.hydrate(wf), nil
}

func (s *Store) Create(_ context.Context, wf *model.OfferWorkflow, event *model.OfferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byApp[wf.ApplicationID]; exists {
		return offer.ErrDuplicateWorkflow
	}
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	now := s.now()
	wf.Version = 1
	wf.CreatedAt = now
	wf.UpdatedAt = now
	if wf.StepData == nil {
		wf.StepData = model.JSONB{}
	}

	stored := *wf.Clone()
	stored.Application = nil
	s.workflows[wf.ID] = stored
	s.byApp[wf.ApplicationID] = wf.ID
	s.appendEvent(event, now)
	return nil
}

func (s *Store) Save(_ context.Context, wf *model.OfferWorkflow, expectedVersion int64, event *model.OfferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.workflows[wf.ID]
	if !ok {
		return offer.ErrNotFound
	}
	if current.Version != expectedVersion {
		return offer.ErrConflict
	}

	now := s.now()
	stored := *wf.Clone()
	stored.Application = nil
	stored.ApplicationID = current.ApplicationID
	stored.CreatedAt = current.CreatedAt
	stored.CreatedBy = current.CreatedBy
	stored.StepData = current.StepData.Merge(wf.StepData)
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = now
	s.workflows[wf.ID] = stored
	s.appendEvent(event, now)

	wf.Version = stored.Version
	wf.UpdatedAt = now
	return nil
}

func (s *Store) List(_ context.Context, filter store.WorkflowFilter) ([]model.OfferWorkflow, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.OfferWorkflow
	for _, wf := range s.workflows {
		if filter.CreatedBy != "" && wf.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Status != nil && wf.Status != *filter.Status {
			continue
		}
		matched = append(matched, *s.hydrate(wf))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []model.OfferWorkflow{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// Events returns a copy of every outbox event written so far.
func (s *Store) Events() []model.OfferEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OfferEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (*model.JobApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return nil, offer.ErrApplicationNotFound
	}
	return s.joinApplication(app), nil
}

func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, offer.ErrJobNotFound
	}
	return &job, nil
}

func (s *Store) ListApplicationsByJob(_ context.Context, jobID uuid.UUID, status model.ApplicationStatus) ([]model.JobApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.JobApplication
	for _, app := range s.applications {
		if app.JobID != jobID || (status != "" && app.Status != status) {
			continue
		}
		out = append(out, *s.joinApplication(app))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateScreening(_ context.Context, id uuid.UUID, score float64, notes string, status model.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[id]
	if !ok {
		return offer.ErrApplicationNotFound
	}
	app.AIScreeningScore = &score
	app.AIScreeningNotes = notes
	app.Status = status
	app.UpdatedAt = s.now()
	s.applications[id] = app
	return nil
}

func (s *Store) appendEvent(event *model.OfferEvent, now time.Time) {
	if event == nil {
		return
	}
	stored := *event
	stored.Payload = event.Payload.Clone()
	stored.CreatedAt = now
	s.events = append(s.events, stored)
}

func (s *Store) hydrate(wf model.OfferWorkflow) *model.OfferWorkflow {
	out := wf.Clone()
	if app, ok := s.applications[wf.ApplicationID]; ok {
		out.Application = s.joinApplication(app)
	}
	return out
}

func (s *Store) joinApplication(app model.JobApplication) *model.JobApplication {
	if job, ok := s.jobs[app.JobID]; ok {
		app.Job = &job
	}
	if c, ok := s.candidates[app.CandidateID]; ok {
		app.Candidate = &c
	}
	return &app
}
