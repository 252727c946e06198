package supervisor

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/gateway"
	"github.com/simplifyhr/offerflow/pkg/model"
)

type OfferDraft struct {
	Content   string `json:"content"`
	Generated bool   `json:"generated"`
}

// DraftOffer produces offer letter text for the workflow's candidate and
// job. When the model is unavailable the template text is returned. The
// workflow itself is not changed.
func (s *Supervisor) DraftOffer(ctx context.Context, id uuid.UUID, owner string, salary *float64) (*OfferDraft, error) {
	wf, err := s.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	in := offerContext(wf, salary)
	text, err := s.gateway.DraftOffer(ctx, in)
	if err != nil {
		s.logger.Warn("offer draft fell back to template", zap.String("workflow_id", id.String()), zap.Error(err))
		return &OfferDraft{Content: gateway.TemplateOffer(in)}, nil
	}
	return &OfferDraft{Content: text, Generated: true}, nil
}

func offerContext(wf *model.OfferWorkflow, salary *float64) gateway.OfferContext {
	var in gateway.OfferContext
	if app := wf.Application; app != nil {
		in.CandidateName = app.Candidate.FullName()
		if job := app.Job; job != nil {
			in.JobTitle = job.Title
			in.Location = job.Location
			in.Currency = job.Currency
			if job.SalaryMax != nil {
				in.Salary = *job.SalaryMax
			}
		}
	}
	if salary != nil {
		in.Salary = *salary
	}
	if in.CandidateName == "" {
		in.CandidateName = "Candidate"
	}
	return in
}
