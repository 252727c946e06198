package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
)

type ApplicationRepository struct {
	db *gorm.DB
}

var _ store.ApplicationStore = (*ApplicationRepository)(nil)

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) GetApplication(ctx context.Context, id uuid.UUID) (*model.JobApplication, error) {
	var app model.JobApplication
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Candidate").
		First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, offer.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, offer.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return &job, nil
}

func (r *ApplicationRepository) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID, status model.ApplicationStatus) ([]model.JobApplication, error) {
	var apps []model.JobApplication
	query := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Candidate").
		Where("job_id = ?", jobID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at ASC").Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepository) UpdateScreening(ctx context.Context, id uuid.UUID, score float64, notes string, status model.ApplicationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.JobApplication{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_screening_score": score,
			"ai_screening_notes": notes,
			"status":             status,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update application screening: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return offer.ErrApplicationNotFound
	}
	return nil
}
