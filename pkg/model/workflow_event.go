package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

const (
	EventWorkflowInitiated  = "offer_workflow_initiated"
	EventWorkflowAdvanced   = "offer_workflow_advanced"
	EventCandidateResponded = "offer_candidate_responded"
	EventHRRejected         = "offer_hr_rejected"
)

// OfferEvent is a transactional outbox row written alongside every workflow save.
type OfferEvent struct {
	EventID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	WorkflowID  uuid.UUID `gorm:"type:uuid;not null;index"`
	EventType   string    `gorm:"not null"`
	Payload     JSONB     `gorm:"type:jsonb;not null"`
	Status      string    `gorm:"not null;default:'pending';index"`
	CreatedAt   time.Time `gorm:"autoCreateTime;not null"`
	PublishedAt *time.Time
}

func (OfferEvent) TableName() string {
	return "offer_events"
}

func NewOfferEvent(workflowID uuid.UUID, eventType string, payload JSONB) *OfferEvent {
	if payload == nil {
		payload = JSONB{}
	}
	payload["workflow_id"] = workflowID.String()
	return &OfferEvent{
		EventID:    uuid.New(),
		WorkflowID: workflowID,
		EventType:  eventType,
		Payload:    payload,
		Status:     OutboxStatusPending,
	}
}
