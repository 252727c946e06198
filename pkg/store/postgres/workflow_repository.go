package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
)

type WorkflowRepository struct {
	db *gorm.DB
}

var _ store.WorkflowStore = (*WorkflowRepository)(nil)

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) withApplication(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Application").
		Preload("Application.Job").
		Preload("Application.Candidate")
}

func (r *WorkflowRepository) Get(ctx context.Context, id uuid.UUID) (*model.OfferWorkflow, error) {
	var wf model.OfferWorkflow
	err := r.withApplication(ctx).First(&wf, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, offer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load offer workflow: %w", err)
	}
	return &wf, nil
}

func (r *WorkflowRepository) Create(ctx context.Context, wf *model.OfferWorkflow, event *model.OfferEvent) error {
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	if wf.StepData == nil {
		wf.StepData = model.JSONB{}
	}
	wf.Version = 1

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(wf).Error; err != nil {
			if isUniqueViolation(err) {
				return offer.ErrDuplicateWorkflow
			}
			return fmt.Errorf("insert offer workflow: %w", err)
		}
		if event != nil {
			event.WorkflowID = wf.ID
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("insert offer event: %w", err)
			}
		}
		return nil
	})
}

// Save merges step data with the jsonb concatenation operator so stored
// keys are never removed, and only when the version is unchanged.
func (r *WorkflowRepository) Save(ctx context.Context, wf *model.OfferWorkflow, expectedVersion int64, event *model.OfferEvent) error {
	stepData, err := json.Marshal(wf.StepData)
	if err != nil {
		return fmt.Errorf("encode step data: %w", err)
	}
	if wf.StepData == nil {
		stepData = []byte("{}")
	}
	now := time.Now()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"current_step": wf.CurrentStep,
			"status":       wf.Status,
			"step_data":    gorm.Expr("step_data || ?::jsonb", string(stepData)),
			"version":      expectedVersion + 1,
			"updated_at":   now,
		}
		res := tx.Model(&model.OfferWorkflow{}).
			Where("id = ? AND version = ?", wf.ID, expectedVersion).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update offer workflow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.OfferWorkflow{}).Where("id = ?", wf.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check offer workflow: %w", err)
			}
			if count == 0 {
				return offer.ErrNotFound
			}
			return offer.ErrConflict
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("insert offer event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	wf.Version = expectedVersion + 1
	wf.UpdatedAt = now
	return nil
}

func (r *WorkflowRepository) List(ctx context.Context, filter store.WorkflowFilter) ([]model.OfferWorkflow, int64, error) {
	var workflows []model.OfferWorkflow
	var total int64

	query := r.db.WithContext(ctx).Model(&model.OfferWorkflow{})
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	err := query.
		Preload("Application").
		Preload("Application.Job").
		Preload("Application.Candidate").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&workflows).Error

	return workflows, total, err
}
