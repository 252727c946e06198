package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simplifyhr/offerflow/pkg/gateway/llm"
	"github.com/simplifyhr/offerflow/pkg/offer"
)

// JobBrief is what a recruiter knows about a role before it is written up.
type JobBrief struct {
	Title           string   `json:"title" binding:"required"`
	CompanyName     string   `json:"company_name"`
	Industry        string   `json:"industry"`
	ExperienceLevel string   `json:"experience_level"`
	EmploymentType  string   `json:"employment_type"`
	Location        string   `json:"location"`
	Skills          []string `json:"skills"`
	BudgetMin       *float64 `json:"budget_min"`
	BudgetMax       *float64 `json:"budget_max"`
	Currency        string   `json:"currency"`
}

type BudgetRecommendation struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Reasoning string  `json:"reasoning"`
}

// JobDescription is the generated posting. Budget and the suggestion lists
// are best effort and may be empty.
type JobDescription struct {
	Description              string                `json:"description"`
	Budget                   *BudgetRecommendation `json:"budget_recommendation,omitempty"`
	SuggestedSkills          []string              `json:"suggested_skills"`
	SuggestedRequirements    []string              `json:"suggested_requirements"`
	SuggestedScoringCriteria []string              `json:"suggested_scoring_criteria"`
}

const (
	describeSystemPrompt = "You are an expert HR professional writing compelling, accurate job descriptions."
	budgetSystemPrompt   = "You are an HR compensation expert. Always respond with valid JSON."
	skillsSystemPrompt   = "You are an HR expert. Always respond with valid JSON."
)

func (b JobBrief) withDefaults() JobBrief {
	b.Title = strings.TrimSpace(b.Title)
	if b.CompanyName == "" {
		b.CompanyName = "Our Company"
	}
	if b.Industry == "" {
		b.Industry = "Technology"
	}
	if b.ExperienceLevel == "" {
		b.ExperienceLevel = "Mid-level"
	}
	if b.EmploymentType == "" {
		b.EmploymentType = "Full-time"
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	return b
}

// DescribeJob writes a job description for brief. Only the description
// itself is required; a failed budget or skills completion is logged and
// left empty.
func (a *Assessor) DescribeJob(ctx context.Context, brief JobBrief) (*JobDescription, error) {
	brief = brief.withDefaults()
	if brief.Title == "" {
		return nil, &offer.ValidationError{Field: "title", Reason: "is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out := &JobDescription{SuggestedSkills: []string{}, SuggestedRequirements: []string{}, SuggestedScoringCriteria: []string{}}
	var g errgroup.Group

	g.Go(func() error {
		reply, err := a.llm.Complete(ctx, llm.Prompt{System: describeSystemPrompt, User: buildDescriptionPrompt(brief)})
		if err != nil {
			return err
		}
		out.Description = strings.TrimSpace(reply)
		if out.Description == "" {
			return errors.New("empty job description")
		}
		return nil
	})

	g.Go(func() error {
		reply, err := a.llm.Complete(ctx, llm.Prompt{System: budgetSystemPrompt, User: buildBudgetPrompt(brief)})
		if err == nil {
			var budget BudgetRecommendation
			if err = decodeReply(reply, &budget); err == nil && budget.Max >= budget.Min && budget.Min > 0 {
				out.Budget = &budget
				return nil
			}
		}
		a.logger.Warn("budget recommendation unavailable", zap.String("title", brief.Title), zap.Error(err))
		return nil
	})

	g.Go(func() error {
		reply, err := a.llm.Complete(ctx, llm.Prompt{System: skillsSystemPrompt, User: buildSkillsPrompt(brief)})
		if err == nil {
			var suggestions struct {
				Skills          []string `json:"skills"`
				Requirements    []string `json:"requirements"`
				ScoringCriteria []string `json:"scoring_criteria"`
			}
			if err = decodeReply(reply, &suggestions); err == nil {
				out.SuggestedSkills = nonEmpty(suggestions.Skills)
				out.SuggestedRequirements = nonEmpty(suggestions.Requirements)
				out.SuggestedScoringCriteria = nonEmpty(suggestions.ScoringCriteria)
				return nil
			}
		}
		a.logger.Warn("skill suggestions unavailable", zap.String("title", brief.Title), zap.Error(err))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, &offer.GatewayError{Effect: offer.EffectAssessment, Err: err}
	}
	return out, nil
}

func buildDescriptionPrompt(b JobBrief) string {
	var sb strings.Builder
	sb.WriteString("Create a comprehensive job description for the following position:\n\n")
	sb.WriteString(fmt.Sprintf("Job Title: %s\n", b.Title))
	sb.WriteString(fmt.Sprintf("Company: %s\n", b.CompanyName))
	sb.WriteString(fmt.Sprintf("Industry: %s\n", b.Industry))
	sb.WriteString(fmt.Sprintf("Experience Level: %s\n", b.ExperienceLevel))
	sb.WriteString(fmt.Sprintf("Employment Type: %s\n", b.EmploymentType))
	if b.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", b.Location))
	}
	if len(b.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Required Skills: %s\n", strings.Join(b.Skills, ", ")))
	}
	if b.BudgetMin != nil && b.BudgetMax != nil {
		sb.WriteString(fmt.Sprintf("Salary Range: %s - %s\n", formatSalary(*b.BudgetMin, b.Currency), formatSalary(*b.BudgetMax, b.Currency)))
	} else {
		sb.WriteString("Salary Range: Competitive\n")
	}
	sb.WriteString("\nUse these sections: Company Overview, Role Summary, Key Responsibilities, " +
		"Required Qualifications, Preferred Qualifications, What We Offer.\n")
	return sb.String()
}

func buildBudgetPrompt(b JobBrief) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Suggest an annual salary range in %s for this role.\n\n", b.Currency))
	sb.WriteString(fmt.Sprintf("Job Title: %s\n", b.Title))
	sb.WriteString(fmt.Sprintf("Experience Level: %s\n", b.ExperienceLevel))
	sb.WriteString(fmt.Sprintf("Employment Type: %s\n", b.EmploymentType))
	sb.WriteString(fmt.Sprintf("Industry: %s\n", b.Industry))
	if b.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", b.Location))
	}
	sb.WriteString("\nRespond with a JSON object: {\"min\": <number>, \"max\": <number>, \"reasoning\": \"<brief explanation>\"}\n")
	return sb.String()
}

func buildSkillsPrompt(b JobBrief) string {
	return fmt.Sprintf("For the job title %q at experience level %q, list the required technical skills, "+
		"the key requirements and suggested interview scoring criteria.\n\n"+
		"Respond with a JSON object: {\"skills\": [...], \"requirements\": [...], \"scoring_criteria\": [...]}\n",
		b.Title, b.ExperienceLevel)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
