package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	original := JSONB{"background_check_status": "passed", "score": 91}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal value error: %v", err)
	}

	if decoded["background_check_status"] != "passed" {
		t.Fatalf("expected status passed, got %v", decoded["background_check_status"])
	}

	var scanned JSONB
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if scanned["background_check_status"] != "passed" {
		t.Fatalf("expected scanned status passed, got %v", scanned["background_check_status"])
	}

	var fromString JSONB
	if err := fromString.Scan(string(data)); err != nil {
		t.Fatalf("Scan(string) error: %v", err)
	}
	if fromString["score"] != float64(91) {
		t.Fatalf("expected score 91, got %v", fromString["score"])
	}
}

func TestJSONBGormDataType(t *testing.T) {
	value := JSONB{"ok": true}
	if value.GormDataType() != "jsonb" {
		t.Fatalf("expected jsonb data type, got %q", value.GormDataType())
	}
}

func TestJSONBMergeNeverRemovesKeys(t *testing.T) {
	base := JSONB{
		"background_check_status": "passed",
		"offer_details":           map[string]interface{}{"salary": 75000},
	}

	merged := base.Merge(JSONB{
		"hr_comments":             "approved",
		"background_check_status": nil,
	})

	if merged["background_check_status"] != "passed" {
		t.Fatalf("nil patch value must not clear existing key, got %v", merged["background_check_status"])
	}
	if merged["hr_comments"] != "approved" {
		t.Fatalf("expected hr_comments to be added, got %v", merged["hr_comments"])
	}
	if _, ok := base["hr_comments"]; ok {
		t.Fatalf("merge must not mutate the receiver")
	}

	details := merged["offer_details"].(map[string]interface{})
	details["salary"] = 1
	if base["offer_details"].(map[string]interface{})["salary"] != 75000 {
		t.Fatalf("merged copy must not alias nested maps of the receiver")
	}
}

func TestWorkflowStatusTerminal(t *testing.T) {
	cases := map[WorkflowStatus]bool{
		WorkflowPending:     false,
		WorkflowNegotiating: false,
		WorkflowCompleted:   true,
		WorkflowRejected:    true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestCandidateFullName(t *testing.T) {
	c := &Candidate{FirstName: "Ada", LastName: "Lovelace"}
	if c.FullName() != "Ada Lovelace" {
		t.Fatalf("unexpected full name %q", c.FullName())
	}
	var missing *Candidate
	if missing.FullName() != "" {
		t.Fatalf("nil candidate should have empty name")
	}
}
