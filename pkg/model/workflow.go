package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WorkflowStatus string

const (
	WorkflowPending     WorkflowStatus = "pending"
	WorkflowNegotiating WorkflowStatus = "negotiating"
	WorkflowCompleted   WorkflowStatus = "completed"
	WorkflowRejected    WorkflowStatus = "rejected"
)

// Terminal reports whether no further mutation is allowed.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowRejected
}

func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowPending, WorkflowNegotiating, WorkflowCompleted, WorkflowRejected:
		return true
	default:
		return false
	}
}

// OfferWorkflow is the persisted offer approval process for one job application.
type OfferWorkflow struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ApplicationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_offer_workflow_application"`
	Application   *JobApplication `gorm:"foreignKey:ApplicationID"`
	CurrentStep   int             `gorm:"not null;default:1"`
	Status        WorkflowStatus  `gorm:"type:varchar(20);not null;default:'pending';index"`
	StepData      JSONB           `gorm:"type:jsonb;not null;default:'{}'"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedBy     string          `gorm:"index"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;<-:create"`
	UpdatedAt     time.Time
}

func (OfferWorkflow) TableName() string {
	return "offer_workflow"
}

// Clone returns a deep copy so callers can stage changes without touching the original.
func (w *OfferWorkflow) Clone() *OfferWorkflow {
	if w == nil {
		return nil
	}
	out := *w
	out.StepData = w.StepData.Clone()
	if w.Application != nil {
		app := *w.Application
		out.Application = &app
	}
	return &out
}

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) GormDataType() string {
	return "jsonb"
}

// Clone deep-copies the map through a JSON round trip, which is also the
// representation the store persists.
func (j JSONB) Clone() JSONB {
	if j == nil {
		return nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		out := make(JSONB, len(j))
		for k, v := range j {
			out[k] = v
		}
		return out
	}
	var out JSONB
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Merge returns a copy of j with patch applied. Keys are never removed and nil
// values in patch are ignored, so step data only grows.
func (j JSONB) Merge(patch JSONB) JSONB {
	out := j.Clone()
	if out == nil {
		out = JSONB{}
	}
	for k, v := range patch.Clone() {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
