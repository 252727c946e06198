package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/simplifyhr/offerflow/pkg/model"
)

// WorkflowFilter narrows a workflow listing. CreatedBy scopes rows to the
// principal that owns them.
type WorkflowFilter struct {
	CreatedBy string
	Status    *model.WorkflowStatus
	Limit     int
	Offset    int
}

// WorkflowStore defines the persistence backends for offer workflows (PostgreSQL, memory)
type WorkflowStore interface {
	// Get loads a workflow with its application, job and candidate joined.
	Get(ctx context.Context, id uuid.UUID) (*model.OfferWorkflow, error)

	// Create inserts a new workflow and its outbox event. A second workflow
	// for the same application fails with offer.ErrDuplicateWorkflow.
	Create(ctx context.Context, wf *model.OfferWorkflow, event *model.OfferEvent) error

	// Save persists wf only if the stored version still equals
	// expectedVersion, otherwise offer.ErrConflict. The outbox event is
	// written in the same transaction. On success wf.Version is bumped.
	Save(ctx context.Context, wf *model.OfferWorkflow, expectedVersion int64, event *model.OfferEvent) error

	// List returns workflows newest first and the total matching count.
	List(ctx context.Context, filter WorkflowFilter) ([]model.OfferWorkflow, int64, error)
}

// ApplicationStore reads and updates the applications offers and screening work on.
type ApplicationStore interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*model.JobApplication, error)
	GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID, status model.ApplicationStatus) ([]model.JobApplication, error)
	UpdateScreening(ctx context.Context, id uuid.UUID, score float64, notes string, status model.ApplicationStatus) error
}
