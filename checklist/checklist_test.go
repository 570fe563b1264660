package checklist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStarterSession(t *testing.T) {
	c := StarterSession()

	if c.Len() != 23 {
		t.Fatalf("expected 23 checks, got %d", c.Len())
	}
	if c.Name != "starter_session" {
		t.Errorf("expected name starter_session, got %q", c.Name)
	}

	regulated, ok := c.Get("regulated_advice_given")
	if !ok {
		t.Fatal("expected regulated_advice_given to exist")
	}
	if regulated.Severity != SeverityHigh {
		t.Errorf("expected High severity, got %s", regulated.Severity)
	}
	if regulated.Category != CategoryCompliance {
		t.Errorf("expected Compliance category, got %s", regulated.Category)
	}

	goals, _ := c.Get("client_goals_established")
	if goals.Category != CategoryMacro || goals.Theme != ThemeCustomerExperience {
		t.Errorf("expected Macro/customerExperience, got %s/%s", goals.Category, goals.Theme)
	}

	pension, _ := c.Get("pension_withdrawal_if_over_50")
	if pension.Required {
		t.Error("expected pension_withdrawal_if_over_50 to be optional")
	}
	if pension.Applicability == nil || pension.Applicability.Fact != FactClientAge {
		t.Fatalf("expected client_age predicate, got %+v", pension.Applicability)
	}

	vuln, _ := c.Get("vulnerability_identified")
	if !vuln.EscalatesOn("competent") || !vuln.EscalatesOn("Fail") || vuln.EscalatesOn("NotApplicable") {
		t.Errorf("unexpected escalation statuses %v", vuln.EscalateOn)
	}

	if c.Position("call_recording_confirmed") != 0 {
		t.Errorf("expected first position, got %d", c.Position("call_recording_confirmed"))
	}
	if c.Position("missing") != -1 {
		t.Error("expected -1 for unknown id")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		checks []CheckDefinition
	}{
		{"empty", nil},
		{"missing id", []CheckDefinition{{ID: " "}}},
		{"duplicate id", []CheckDefinition{{ID: "a"}, {ID: "a"}}},
		{"bad severity", []CheckDefinition{{ID: "a", Severity: "critical"}}},
		{"bad category", []CheckDefinition{{ID: "a", Category: "other"}}},
		{"bad operator", []CheckDefinition{{ID: "a", Applicability: &Predicate{Fact: "x", Op: "~", Value: 1}}}},
		{"predicate without value", []CheckDefinition{{ID: "a", Applicability: &Predicate{Fact: "x", Op: "=="}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("test", tt.checks); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewNormalizes(t *testing.T) {
	c, err := New("test", []CheckDefinition{
		{ID: "a", Severity: "HIGH", Category: "macro"},
		{ID: "b", Theme: "businessrisk"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := c.Get("a")
	if a.Severity != SeverityHigh || a.Theme != ThemeCustomerExperience {
		t.Errorf("expected High/customerExperience, got %s/%s", a.Severity, a.Theme)
	}
	b, _ := c.Get("b")
	if b.Severity != SeverityMedium || b.Category != CategoryCompliance {
		t.Errorf("expected Medium/Compliance, got %s/%s", b.Severity, b.Category)
	}
}

func TestLabel(t *testing.T) {
	def := CheckDefinition{ID: "x", Prompt: "Will confirmed? Did the coach confirm?"}
	if got := def.Label(); got != "Will confirmed?" {
		t.Errorf("expected 'Will confirmed?', got %q", got)
	}
	if got := (CheckDefinition{ID: "x"}).Label(); got != "x" {
		t.Errorf("expected id fallback, got %q", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "checks.json")
	content := `{"name":"mini","version":"2","checks":[{"id":"a","severity":"low","required":true},{"id":"b","applicability":{"fact":"client_age","op":"<","value":30}}]}`
	if err := os.WriteFile(jsonPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "mini" || c.Version != "2" || c.Len() != 2 {
		t.Errorf("unexpected checklist %s v%s with %d checks", c.Name, c.Version, c.Len())
	}

	b, _ := c.Get("b")
	if b.Applicable(Facts{FactClientAge: 45}) {
		t.Error("expected b to be inapplicable for age 45")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDefaultsToStarterSession(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != StarterSession() {
		t.Error("expected the starter session checklist")
	}
}
