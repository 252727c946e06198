package supervisor

import (
	"time"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
)

// WorkflowView is the response shape of a workflow with its application joined.
type WorkflowView struct {
	ID             string      `json:"id"`
	ApplicationID  string      `json:"application_id"`
	CurrentStep    int         `json:"current_step"`
	StepName       string      `json:"step_name"`
	Status         string      `json:"status"`
	StepData       model.JSONB `json:"step_data"`
	Version        int64       `json:"version"`
	CreatedBy      string      `json:"created_by,omitempty"`
	JobTitle       string      `json:"job_title,omitempty"`
	CandidateName  string      `json:"candidate_name,omitempty"`
	CandidateEmail string      `json:"candidate_email,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type WorkflowPage struct {
	Items []WorkflowView `json:"items"`
	Total int64          `json:"total"`
}

func NewWorkflowView(wf *model.OfferWorkflow) *WorkflowView {
	if wf == nil {
		return nil
	}
	v := &WorkflowView{
		ID:            wf.ID.String(),
		ApplicationID: wf.ApplicationID.String(),
		CurrentStep:   wf.CurrentStep,
		StepName:      offer.Step(wf.CurrentStep).Name(),
		Status:        string(wf.Status),
		StepData:      wf.StepData.Clone(),
		Version:       wf.Version,
		CreatedBy:     wf.CreatedBy,
		CreatedAt:     wf.CreatedAt,
		UpdatedAt:     wf.UpdatedAt,
	}
	if v.StepData == nil {
		v.StepData = model.JSONB{}
	}
	if app := wf.Application; app != nil {
		if app.Job != nil {
			v.JobTitle = app.Job.Title
		}
		if app.Candidate != nil {
			v.CandidateName = app.Candidate.FullName()
			v.CandidateEmail = app.Candidate.Email
		}
	}
	return v
}
