package assessment

import (
	"testing"

	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
)

// testChecklist has three checks: a high-severity compliance check, a medium
// macro check and a conditional check that applies from age 50
func testChecklist(t *testing.T) *checklist.Checklist {
	t.Helper()
	cl, err := checklist.New("test", []checklist.CheckDefinition{
		{ID: "regulated_advice_given", Severity: checklist.SeverityHigh, Category: checklist.CategoryCompliance, Required: true, Prompt: "Was regulated advice given?"},
		{ID: "client_goals_established", Severity: checklist.SeverityMedium, Category: checklist.CategoryMacro, Required: true, Prompt: "Were goals established?"},
		{
			ID:            "pension_withdrawal_if_over_50",
			Severity:      checklist.SeverityMedium,
			Prompt:        "If over 50, will the client withdraw?",
			Applicability: &checklist.Predicate{Fact: checklist.FactClientAge, Op: ">=", Value: 50},
		},
	})
	if err != nil {
		t.Fatalf("failed to build checklist: %v", err)
	}
	return cl
}

func result(id string, status Status, confidence float64, quote string) CheckResult {
	return CheckResult{ID: id, Status: status, Confidence: confidence, EvidenceQuote: quote, Comment: "because"}
}
