package screening

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simplifyhr/offerflow/pkg/gateway"
	"github.com/simplifyhr/offerflow/pkg/metrics"
	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/store"
)

const (
	defaultMinScore    = 70
	defaultConcurrency = 4
)

// Assessor is satisfied by *gateway.Gateway.
type Assessor interface {
	Assess(ctx context.Context, app gateway.ApplicationContext, job gateway.JobContext) gateway.Assessment
	DescribeJob(ctx context.Context, brief gateway.JobBrief) (*gateway.JobDescription, error)
}

// Service scores applications against their job and moves applied
// candidates into screening or out of the pipeline.
type Service struct {
	apps        store.ApplicationStore
	assessor    Assessor
	minScore    int
	concurrency int
	logger      *zap.Logger
}

func NewService(apps store.ApplicationStore, assessor Assessor, minScore, concurrency int, logger *zap.Logger) *Service {
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		apps:        apps,
		assessor:    assessor,
		minScore:    minScore,
		concurrency: concurrency,
		logger:      logger,
	}
}

type Result struct {
	ApplicationID string                  `json:"application_id"`
	Score         float64                 `json:"score"`
	Justification string                  `json:"justification"`
	Fallback      bool                    `json:"fallback"`
	Threshold     int                     `json:"threshold"`
	Status        model.ApplicationStatus `json:"status"`
}

// AssessApplication scores one application and stores the score and notes.
// Only an application still in applied changes status, and never on a
// fallback assessment.
func (s *Service) AssessApplication(ctx context.Context, id uuid.UUID) (*Result, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	job := app.Job
	if job == nil {
		if job, err = s.apps.GetJob(ctx, app.JobID); err != nil {
			return nil, err
		}
	}
	return s.assess(ctx, app, job)
}

// DescribeJob drafts a job posting for a role that has not been published yet.
func (s *Service) DescribeJob(ctx context.Context, brief gateway.JobBrief) (*gateway.JobDescription, error) {
	out, err := s.assessor.DescribeJob(ctx, brief)
	if err != nil {
		metrics.JobDescriptions.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Warn("failed to describe job", zap.String("title", brief.Title), zap.Error(err))
		return nil, err
	}
	metrics.JobDescriptions.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("job description generated", zap.String("title", brief.Title), zap.Bool("budget", out.Budget != nil))
	return out, nil
}

// AssessJob scores every applied application of a job concurrently.
func (s *Service) AssessJob(ctx context.Context, jobID uuid.UUID) ([]Result, error) {
	job, err := s.apps.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	apps, err := s.apps.ListApplicationsByJob(ctx, jobID, model.ApplicationApplied)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(apps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range apps {
		i := i
		g.Go(func() error {
			res, err := s.assess(gctx, &apps[i], job)
			if err != nil {
				return fmt.Errorf("assess application %s: %w", apps[i].ID, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("job applications assessed", zap.String("job_id", jobID.String()), zap.Int("count", len(results)))
	return results, nil
}

func (s *Service) assess(ctx context.Context, app *model.JobApplication, job *model.Job) (*Result, error) {
	out := s.assessor.Assess(ctx, applicationContext(app), jobContext(job))

	threshold := s.minScore
	// Zero means no threshold was set for the job.
	if job.MinAssessmentScore != nil && *job.MinAssessmentScore > 0 {
		threshold = *job.MinAssessmentScore
	}

	status := app.Status
	outcome := "unchanged"
	switch {
	case out.Fallback:
		outcome = "fallback"
	case app.Status != model.ApplicationApplied:
	case out.Score >= float64(threshold):
		status = model.ApplicationScreening
		outcome = "screening"
	default:
		status = model.ApplicationRejected
		outcome = "rejected"
	}

	if err := s.apps.UpdateScreening(ctx, app.ID, out.Score, out.Justification, status); err != nil {
		return nil, err
	}
	metrics.Assessments.WithLabelValues(outcome).Inc()

	s.logger.Info("application assessed",
		zap.String("application_id", app.ID.String()),
		zap.Float64("score", out.Score),
		zap.Int("threshold", threshold),
		zap.String("outcome", outcome),
	)

	return &Result{
		ApplicationID: app.ID.String(),
		Score:         out.Score,
		Justification: out.Justification,
		Fallback:      out.Fallback,
		Threshold:     threshold,
		Status:        status,
	}, nil
}

func applicationContext(app *model.JobApplication) gateway.ApplicationContext {
	in := gateway.ApplicationContext{CoverLetter: app.CoverLetter}
	if c := app.Candidate; c != nil {
		in.CandidateName = c.FullName()
		in.Skills = c.Skills
		in.ExperienceYears = c.ExperienceYears
		in.Summary = c.AISummary
		if in.Summary == "" {
			in.Summary = c.ResumeText
		}
	}
	return in
}

func jobContext(job *model.Job) gateway.JobContext {
	return gateway.JobContext{
		Title:           job.Title,
		Description:     job.Description,
		SkillsRequired:  job.SkillsRequired,
		Requirements:    job.Requirements,
		ExperienceLevel: job.ExperienceLevel,
	}
}
