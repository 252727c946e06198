package offer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Step int

const (
	StepBackgroundCheck Step = iota + 1
	StepGenerateOffer
	StepHRApproval
	StepSendToCandidate
	StepTrackResponse
)

const (
	FirstStep = StepBackgroundCheck
	LastStep  = StepTrackResponse
)

var stepNames = map[Step]string{
	StepBackgroundCheck: "Background Check",
	StepGenerateOffer:   "Generate Offer",
	StepHRApproval:      "HR Approval",
	StepSendToCandidate: "Send to Candidate",
	StepTrackResponse:   "Track Response",
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) Name() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step %d", int(s))
}

func (s Step) String() string {
	return fmt.Sprintf("%d", int(s))
}

// Step data keys persisted in the workflow's step_data column.
const (
	KeyBackgroundCheckStatus = "background_check_status"
	KeyBackgroundCheckResult = "background_check_result"
	KeyGeneratedOfferContent = "generated_offer_content"
	KeyOfferDetails          = "offer_details"
	KeyHRComments            = "hr_comments"
	KeyHRDecision            = "hr_decision"
	KeyOfferLetterURL        = "offer_letter_url"
	KeyNotificationID        = "notification_id"
	KeyNotificationStatus    = "notification_status"
	KeyCandidateResponse     = "candidate_response"
	KeyResponseNotes         = "candidate_response_notes"
	KeyFinalOfferAmount      = "final_offer_amount"
)

type EffectKind string

const (
	EffectBackgroundCheck EffectKind = "background_check"
	EffectNotification    EffectKind = "notification"
	EffectAssessment      EffectKind = "ai_assessment"
)

func (k EffectKind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// CandidateIdentity is what the background check provider needs.
type CandidateIdentity struct {
	CandidateID string `json:"candidateId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
}

type NotificationType string

const (
	NotificationOfferGenerated NotificationType = "offer_generated"
	NotificationOfferApproved  NotificationType = "offer_approved"
	NotificationOfferSent      NotificationType = "offer_sent"
)

type Notification struct {
	To      string           `json:"to"`
	Subject string           `json:"subject"`
	HTML    string           `json:"html"`
	Type    NotificationType `json:"type"`
}

// Effect is one external action a step transition requires before it can be persisted.
type Effect struct {
	Kind            EffectKind
	WorkflowID      uuid.UUID
	Step            Step
	BackgroundCheck *CandidateIdentity
	Notification    *Notification
}

// IdempotencyKey identifies the effect for one transition of one workflow.
func (e Effect) IdempotencyKey() string {
	return fmt.Sprintf("offer:%s:%d:%s", e.WorkflowID, int(e.Step), e.Kind)
}
