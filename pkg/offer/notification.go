package offer

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"

	"github.com/simplifyhr/offerflow/pkg/model"
)

var offerEmail = template.Must(template.New("offer_sent").Parse(`<h2>Congratulations, {{.CandidateName}}!</h2>
<p>We are pleased to offer you the position of <strong>{{.JobTitle}}</strong>.</p>
{{- if .Salary}}
<p>Proposed compensation: {{.Salary}}</p>
{{- end}}
<p>Your offer letter is available here: <a href="{{.OfferLetterURL}}">{{.OfferLetterURL}}</a></p>
<p>Please review it and let us know your decision.</p>`))

type offerEmailData struct {
	CandidateName  string
	JobTitle       string
	Salary         string
	OfferLetterURL string
}

func offerNotification(wf *model.OfferWorkflow, offerLetterURL string) (*Notification, error) {
	if wf.Application == nil || wf.Application.Candidate == nil || strings.TrimSpace(wf.Application.Candidate.Email) == "" {
		return nil, invalid("candidate.email", "is required to send the offer")
	}

	title := "the open position"
	if wf.Application.Job != nil && wf.Application.Job.Title != "" {
		title = wf.Application.Job.Title
	}

	data := offerEmailData{
		CandidateName:  wf.Application.Candidate.FullName(),
		JobTitle:       title,
		OfferLetterURL: offerLetterURL,
	}
	if details, ok := wf.StepData[KeyOfferDetails].(map[string]any); ok {
		if salary, ok := details["salary"]; ok && salary != nil {
			data.Salary = formatAmount(salary)
		}
	}

	var body bytes.Buffer
	if err := offerEmail.Execute(&body, data); err != nil {
		return nil, err
	}

	return &Notification{
		To:      wf.Application.Candidate.Email,
		Subject: "Job Offer - " + title,
		HTML:    body.String(),
		Type:    NotificationOfferSent,
	}, nil
}

func formatAmount(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case string:
		return n
	default:
		return ""
	}
}
