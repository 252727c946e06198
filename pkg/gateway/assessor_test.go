package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/gateway/llm"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt llm.Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, prompt llm.Prompt) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		score   float64
		wantErr bool
	}{
		{"plain json", `{"score": 82, "justification": "Strong Go background."}`, 82, false},
		{"wrapped in prose", "Here you go:\n```json\n{\"score\": 64.6, \"justification\": \"Partial match.\"}\n```", 65, false},
		{"string score", `{"score": "71", "justification": "Good fit."}`, 71, false},
		{"no json", "I cannot assess this candidate.", 0, true},
		{"out of range", `{"score": 140, "justification": "Too good."}`, 0, true},
		{"missing justification", `{"score": 80}`, 0, true},
		{"missing score", `{"justification": "n/a"}`, 0, true},
		{"broken json", `{"score": 80, "justification": }`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssessment(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Score != tt.score {
				t.Fatalf("expected score %v, got %v", tt.score, got.Score)
			}
		})
	}
}

func TestAssessFallsBack(t *testing.T) {
	app := ApplicationContext{CandidateName: "Grace Hopper", Skills: []string{"Go", "SQL"}, ExperienceYears: 6}
	job := JobContext{Title: "Backend Engineer", SkillsRequired: []string{"Go"}}

	for _, completer := range []*fakeCompleter{
		{err: errors.New("rate limited")},
		{reply: "not json at all"},
		{reply: `{"score": -5, "justification": "?"}`},
	} {
		got := NewAssessor(completer, time.Second, zap.NewNop()).Assess(context.Background(), app, job)
		if !got.Fallback || got.Score != FallbackScore || got.Justification != FallbackJustification {
			t.Fatalf("expected fallback assessment, got %+v", got)
		}
	}
}

func TestAssessBuildsPrompt(t *testing.T) {
	completer := &fakeCompleter{reply: `{"score": 88, "justification": "Matches every required skill."}`}
	assessor := NewAssessor(completer, time.Second, zap.NewNop())

	got := assessor.Assess(context.Background(),
		ApplicationContext{CandidateName: "Grace Hopper", Skills: []string{"Go"}, CoverLetter: "I love compilers."},
		JobContext{Title: "Backend Engineer", SkillsRequired: []string{"Go", "Postgres"}},
	)
	if got.Fallback || got.Score != 88 {
		t.Fatalf("unexpected assessment %+v", got)
	}
	for _, want := range []string{"Backend Engineer", "Go, Postgres", "Grace Hopper", "I love compilers."} {
		if !strings.Contains(completer.prompt.User, want) {
			t.Fatalf("prompt missing %q:\n%s", want, completer.prompt.User)
		}
	}
}

func TestDraftOffer(t *testing.T) {
	in := OfferContext{CandidateName: "Grace Hopper", JobTitle: "Backend Engineer", Salary: 75000}

	text, err := NewAssessor(&fakeCompleter{reply: "  Dear Grace, welcome aboard.  "}, time.Second, zap.NewNop()).DraftOffer(context.Background(), in)
	if err != nil || text != "Dear Grace, welcome aboard." {
		t.Fatalf("unexpected draft %q (%v)", text, err)
	}

	if _, err := NewAssessor(&fakeCompleter{err: errors.New("down")}, time.Second, zap.NewNop()).DraftOffer(context.Background(), in); err == nil {
		t.Fatalf("expected error when the model is unavailable")
	}

	template := TemplateOffer(in)
	if !strings.Contains(template, "Backend Engineer") || !strings.Contains(template, "75000 USD") {
		t.Fatalf("unexpected template offer %q", template)
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"score\":77,\"justification\":\"ok\"}"}}]}`))
	}))
	defer server.Close()

	client := llm.NewOpenAIClient(server.URL, "key", "gpt-4o-mini", 0.3, server.Client())
	assessor := NewAssessor(client, time.Second, zap.NewNop())

	got := assessor.Assess(context.Background(), ApplicationContext{CandidateName: "Ada"}, JobContext{Title: "Analyst"})
	if got.Fallback || got.Score != 77 {
		t.Fatalf("unexpected assessment %+v", got)
	}
}
