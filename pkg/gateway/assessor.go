package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/gateway/llm"
	"github.com/simplifyhr/offerflow/pkg/offer"
)

const (
	FallbackScore         = 50
	FallbackJustification = "Application received and under review. Automated assessment temporarily unavailable."
)

type ApplicationContext struct {
	CandidateName   string
	Skills          []string
	ExperienceYears int
	Summary         string
	CoverLetter     string
}

type JobContext struct {
	Title           string
	Description     string
	SkillsRequired  []string
	Requirements    []string
	ExperienceLevel string
}

type Assessment struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	Fallback      bool    `json:"fallback"`
}

func FallbackAssessment() Assessment {
	return Assessment{Score: FallbackScore, Justification: FallbackJustification, Fallback: true}
}

type OfferContext struct {
	CandidateName string
	JobTitle      string
	Location      string
	Salary        float64
	Currency      string
}

// Assessor turns model completions into assessments and offer drafts. Model
// output is untrusted and parsed defensively.
type Assessor struct {
	llm     llm.Completer
	timeout time.Duration
	logger  *zap.Logger
}

func NewAssessor(completer llm.Completer, timeout time.Duration, logger *zap.Logger) *Assessor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Assessor{llm: completer, timeout: timeout, logger: logger}
}

const assessSystemPrompt = "You are an expert HR assistant. Assess how well a job application matches the job. " +
	"Respond with a JSON object with two fields: score (integer 0-100) and justification (2-3 sentences)."

// Assess never returns an error: failures produce FallbackAssessment.
func (a *Assessor) Assess(ctx context.Context, app ApplicationContext, job JobContext) Assessment {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.llm.Complete(ctx, llm.Prompt{System: assessSystemPrompt, User: buildAssessmentPrompt(app, job)})
	if err != nil {
		a.logger.Warn("assessment completion failed, using fallback", zap.Error(err))
		return FallbackAssessment()
	}
	out, err := ParseAssessment(reply)
	if err != nil {
		a.logger.Warn("assessment reply malformed, using fallback", zap.Error(err))
		return FallbackAssessment()
	}
	return out
}

func buildAssessmentPrompt(app ApplicationContext, job JobContext) string {
	var sb strings.Builder

	sb.WriteString("## JOB\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", job.Title))
	if job.ExperienceLevel != "" {
		sb.WriteString(fmt.Sprintf("Experience level: %s\n", job.ExperienceLevel))
	}
	if job.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", job.Description))
	}
	if len(job.SkillsRequired) > 0 {
		sb.WriteString(fmt.Sprintf("Required skills: %s\n", strings.Join(job.SkillsRequired, ", ")))
	}
	for _, req := range job.Requirements {
		sb.WriteString(fmt.Sprintf("- %s\n", req))
	}

	sb.WriteString("\n## CANDIDATE\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", app.CandidateName))
	sb.WriteString(fmt.Sprintf("Experience: %d years\n", app.ExperienceYears))
	if len(app.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(app.Skills, ", ")))
	}
	if app.Summary != "" {
		sb.WriteString(fmt.Sprintf("Summary: %s\n", app.Summary))
	}
	if app.CoverLetter != "" {
		sb.WriteString("\n### COVER LETTER\n")
		sb.WriteString(app.CoverLetter)
		sb.WriteString("\n")
	}

	sb.WriteString("\nReturn ONLY the JSON object, no additional text.\n")
	return sb.String()
}

// ParseAssessment extracts the first JSON object in reply and validates it.
func ParseAssessment(reply string) (Assessment, error) {
	var raw struct {
		Score         json.RawMessage `json:"score"`
		Justification string          `json:"justification"`
	}
	if err := decodeReply(reply, &raw); err != nil {
		return Assessment{}, err
	}
	if len(raw.Score) == 0 {
		return Assessment{}, fmt.Errorf("score is missing")
	}

	score, err := parseScore(raw.Score)
	if err != nil {
		return Assessment{}, err
	}
	if math.IsNaN(score) || score < 0 || score > 100 {
		return Assessment{}, fmt.Errorf("score %v is outside 0-100", score)
	}
	justification := strings.TrimSpace(raw.Justification)
	if justification == "" {
		return Assessment{}, fmt.Errorf("justification is missing")
	}
	return Assessment{Score: math.Round(score), Justification: justification}, nil
}

// decodeReply unmarshals the first JSON object in a model reply into out.
func decodeReply(reply string, out any) error {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON found in response")
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), out); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func parseScore(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("score is not a number")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("score %q is not a number", s)
	}
	return n, nil
}

const draftSystemPrompt = "You are an HR assistant writing professional, warm job offer letters. " +
	"Respond with the letter body only, in plain text."

// DraftOffer returns generated offer letter text for in.
func (a *Assessor) DraftOffer(ctx context.Context, in OfferContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a job offer letter for %s for the position of %s.\n", in.CandidateName, in.JobTitle))
	if in.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", in.Location))
	}
	if in.Salary > 0 {
		sb.WriteString(fmt.Sprintf("Annual salary: %s\n", formatSalary(in.Salary, in.Currency)))
	}
	sb.WriteString("Mention that the candidate should respond to accept or decline the offer.\n")

	reply, err := a.llm.Complete(ctx, llm.Prompt{System: draftSystemPrompt, User: sb.String()})
	if err != nil {
		return "", &offer.GatewayError{Effect: offer.EffectAssessment, Err: err}
	}
	text := strings.TrimSpace(reply)
	if text == "" {
		return "", &offer.GatewayError{Effect: offer.EffectAssessment, Err: fmt.Errorf("empty offer draft")}
	}
	return text, nil
}

// TemplateOffer is the deterministic offer text used when drafting fails.
func TemplateOffer(in OfferContext) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Dear %s,\n\n", in.CandidateName))
	sb.WriteString(fmt.Sprintf("We are delighted to offer you the position of %s", in.JobTitle))
	if in.Location != "" {
		sb.WriteString(fmt.Sprintf(" in %s", in.Location))
	}
	sb.WriteString(".")
	if in.Salary > 0 {
		sb.WriteString(fmt.Sprintf(" The annual salary for this role is %s.", formatSalary(in.Salary, in.Currency)))
	}
	sb.WriteString("\n\nPlease let us know whether you accept this offer.\n\nSincerely,\nThe Hiring Team\n")
	return sb.String()
}

func formatSalary(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %s", strconv.FormatFloat(amount, 'f', -1, 64), currency)
}
