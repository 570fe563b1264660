package assessment

import (
	"errors"
	"strings"
	"testing"

	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
)

func newValidator(t *testing.T, cfg ValidatorConfig) *Validator {
	t.Helper()
	v, err := NewValidator(testChecklist(t), cfg)
	if err != nil {
		t.Fatalf("failed to create validator: %v", err)
	}
	return v
}

func TestNewValidatorConfiguration(t *testing.T) {
	if _, err := NewValidator(nil, DefaultValidatorConfig()); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for nil checklist, got %v", err)
	}
	if _, err := NewValidator(testChecklist(t), ValidatorConfig{RepairPasses: 3}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for 3 passes, got %v", err)
	}
}

func TestValidateLowercaseStatusScenario(t *testing.T) {
	v := newValidator(t, ValidatorConfig{RepairPasses: 2, RequireEvidence: false})

	out, err := v.Validate(`[{"id": "client_goals_established", "status": "competent"}]`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.Results[1]
	if got.ID != "client_goals_established" {
		t.Fatalf("expected results in checklist order, got %s at index 1", got.ID)
	}
	if got.Status != StatusCompetent {
		t.Errorf("expected Competent, got %s", got.Status)
	}
	if got.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %v", got.Confidence)
	}
	if got.Comment != placeholderComment {
		t.Errorf("expected placeholder comment, got %q", got.Comment)
	}
	if out.Repairs.Count(RepairStatusCase) != 1 || out.Repairs.Count(RepairConfidenceDefault) != 1 || out.Repairs.Count(RepairCommentMissing) != 1 {
		t.Errorf("unexpected repair counts %v", out.Repairs.Counts())
	}
}

func TestValidateFieldRepairs(t *testing.T) {
	longQuote := strings.Repeat("é", 700)

	tests := []struct {
		name       string
		entry      string
		status     Status
		confidence float64
		repair     RepairKind
	}{
		{"canonical", `{"id":"regulated_advice_given","status":"Fail","confidence":0.9,"evidence_quote":"buy this fund","comment":"steered"}`, StatusFail, 0.9, ""},
		{"separator status", `{"id":"regulated_advice_given","status":"competent_with_development","confidence":0.7,"evidence_quote":"q","comment":"c"}`, StatusCompetentWithDevelopment, 0.7, RepairStatusCase},
		{"unknown status", `{"id":"regulated_advice_given","status":"Pass","confidence":0.9,"evidence_quote":"q","comment":"c"}`, StatusInconclusive, 0.9, RepairStatusUnknown},
		{"missing status", `{"id":"regulated_advice_given","confidence":0.9,"evidence_quote":"q","comment":"c"}`, StatusInconclusive, 0.9, RepairStatusUnknown},
		{"confidence above range", `{"id":"regulated_advice_given","status":"Fail","confidence":85,"evidence_quote":"q","comment":"c"}`, StatusFail, 1, RepairConfidenceClamped},
		{"confidence below range", `{"id":"regulated_advice_given","status":"Fail","confidence":-0.2,"evidence_quote":"q","comment":"c"}`, StatusFail, 0, RepairConfidenceClamped},
		{"confidence string", `{"id":"regulated_advice_given","status":"Fail","confidence":"0.8","evidence_quote":"q","comment":"c"}`, StatusFail, 0.8, ""},
		{"confidence percent", `{"id":"regulated_advice_given","status":"Fail","confidence":"80%","evidence_quote":"q","comment":"c"}`, StatusFail, 0.8, ""},
		{"confidence garbage", `{"id":"regulated_advice_given","status":"Fail","confidence":"high","evidence_quote":"q","comment":"c"}`, StatusFail, 0.5, RepairConfidenceDefault},
		{"missing evidence", `{"id":"regulated_advice_given","status":"Fail","confidence":0.9,"comment":"c"}`, StatusInconclusive, 0.9, RepairEvidenceMissing},
		{"long evidence", `{"id":"regulated_advice_given","status":"Fail","confidence":0.9,"evidence_quote":"` + longQuote + `","comment":"c"}`, StatusFail, 0.9, RepairEvidenceTruncated},
		{"empty comment", `{"id":"regulated_advice_given","status":"Fail","confidence":0.9,"evidence_quote":"q","comment":"  "}`, StatusFail, 0.9, RepairCommentMissing},
		{"padded id", `{"id":" Regulated_Advice_Given ","status":"Fail","confidence":0.9,"evidence_quote":"q","comment":"c"}`, StatusFail, 0.9, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(t, DefaultValidatorConfig())
			out, err := v.Validate("["+tt.entry+"]", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := out.Results[0]
			if got.Status != tt.status {
				t.Errorf("expected status %s, got %s", tt.status, got.Status)
			}
			if got.Confidence < tt.confidence-1e-9 || got.Confidence > tt.confidence+1e-9 {
				t.Errorf("expected confidence %v, got %v", tt.confidence, got.Confidence)
			}
			if len([]rune(got.EvidenceQuote)) > MaxEvidenceLength {
				t.Errorf("evidence longer than %d characters", MaxEvidenceLength)
			}
			if got.Comment == "" {
				t.Error("expected a non-empty comment")
			}
			if tt.repair != "" && out.Repairs.Count(tt.repair) != 1 {
				t.Errorf("expected one %s repair, got %v", tt.repair, out.Repairs.Counts())
			}
			if tt.repair == "" {
				if n := len(out.Repairs.Entries) - out.Repairs.Count(RepairMissingCheck); n != 0 {
					t.Errorf("expected no repairs besides missing checks, got %v", out.Repairs.Counts())
				}
			}
		})
	}
}

func TestValidateRepairNoteInComment(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())
	out, err := v.Validate(`[{"id":"regulated_advice_given","status":"Maybe","confidence":0.4,"evidence_quote":"q","comment":"unclear"}]`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comment := out.Results[0].Comment
	if !strings.HasPrefix(comment, "unclear") || !strings.Contains(comment, "Repaired") {
		t.Errorf("expected original comment plus repair note, got %q", comment)
	}
}

func TestValidateEvidenceNotRequired(t *testing.T) {
	v := newValidator(t, ValidatorConfig{RepairPasses: 2, RequireEvidence: false})
	out, _ := v.Validate(`[{"id":"regulated_advice_given","status":"Fail","confidence":0.9,"comment":"c"}]`, nil)
	if out.Results[0].Status != StatusFail {
		t.Errorf("expected Fail to be kept without evidence, got %s", out.Results[0].Status)
	}
}

func TestValidateNotApplicableWithoutEvidence(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())
	out, _ := v.Validate(`[{"id":"client_goals_established","status":"NotApplicable","confidence":0.9,"comment":"not discussed in this part"}]`, nil)
	if out.Results[1].Status != StatusNotApplicable {
		t.Errorf("expected NotApplicable, got %s", out.Results[1].Status)
	}
	if out.Repairs.Count(RepairEvidenceMissing) != 0 {
		t.Error("expected no evidence repair for NotApplicable")
	}
}

func TestValidateReconciliation(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())
	raw := `{"results":[
		{"id":"pension_withdrawal_if_over_50","status":"Fail","confidence":0.9,"evidence_quote":"q","comment":"did not ask"},
		{"id":"made_up_check","status":"Fail","confidence":0.9,"evidence_quote":"q","comment":"c"},
		{"status":"Fail"}
	]}`

	out, err := v.Validate(raw, checklist.Facts{checklist.FactClientAge: 32})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Results) != 3 {
		t.Fatalf("expected one result per check, got %d", len(out.Results))
	}
	for i, id := range []string{"regulated_advice_given", "client_goals_established", "pension_withdrawal_if_over_50"} {
		if out.Results[i].ID != id {
			t.Errorf("expected %s at %d, got %s", id, i, out.Results[i].ID)
		}
	}

	pension := out.Results[2]
	if pension.Status != StatusNotApplicable || !pension.RuleApplied {
		t.Errorf("expected rule-forced NotApplicable, got %s (rule=%v)", pension.Status, pension.RuleApplied)
	}
	for _, r := range out.Results[:2] {
		if r.Status != StatusInconclusive || !r.Synthesized {
			t.Errorf("expected %s synthesized as Inconclusive, got %s", r.ID, r.Status)
		}
	}

	counts := out.Repairs.Counts()
	if counts[RepairRuleNotApplicable] != 1 || counts[RepairMissingCheck] != 2 || counts[RepairEntryDropped] != 2 {
		t.Errorf("unexpected repair counts %v", counts)
	}
}

func TestValidateUnknownAgeKeepsConditionalCheck(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())
	out, _ := v.Validate(`[{"id":"pension_withdrawal_if_over_50","status":"Competent","confidence":0.8,"evidence_quote":"q","comment":"c"}]`, nil)
	if out.Results[2].Status != StatusCompetent {
		t.Errorf("expected model verdict kept when age unknown, got %s", out.Results[2].Status)
	}
}

func TestValidateDuplicateKeepsMoreSevere(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())
	raw := `[
		{"id":"regulated_advice_given","status":"Competent","confidence":0.9,"evidence_quote":"fine","comment":"c"},
		{"id":"regulated_advice_given","status":"Fail","confidence":0.6,"evidence_quote":"steer","comment":"c"},
		{"id":"regulated_advice_given","status":"Competent","confidence":0.99,"evidence_quote":"fine","comment":"c"}
	]`
	out, _ := v.Validate(raw, nil)

	if got := out.Results[0]; got.Status != StatusFail || got.EvidenceQuote != "steer" {
		t.Errorf("expected the Fail entry to be kept, got %s %q", got.Status, got.EvidenceQuote)
	}
	if out.Repairs.Count(RepairDuplicate) != 2 {
		t.Errorf("expected 2 duplicate repairs, got %d", out.Repairs.Count(RepairDuplicate))
	}
}

func TestValidateMalformed(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())
	_, err := v.Validate("Sorry, I can't help with that.", nil)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("expected malformed output, got %v", err)
	}
}
