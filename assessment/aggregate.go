package assessment

import "github.com/Octopus-Moneycoach/coaching-ai/checklist"

// Aggregate computes the overall metrics of a merged result set.
// pass_rate is 1.0 when no check is applicable.
func Aggregate(cl *checklist.Checklist, results []CheckResult) Overall {
	overall := Overall{
		FailedIDs:         []string{},
		HighSeverityFlags: []string{},
	}

	passed, applicable := 0, 0
	for _, r := range results {
		if r.Status == StatusNotApplicable {
			continue
		}
		applicable++
		if r.Status.Passing() {
			passed++
		}
		if r.Status == StatusFail {
			overall.FailedIDs = append(overall.FailedIDs, r.ID)
			if def, ok := cl.Get(r.ID); ok && def.Severity == checklist.SeverityHigh {
				overall.HighSeverityFlags = append(overall.HighSeverityFlags, r.ID)
			}
		}
	}

	overall.PassRate = 1.0
	if applicable > 0 {
		overall.PassRate = float64(passed) / float64(applicable)
	}
	overall.HasHighSeverityFailures = len(overall.HighSeverityFlags) > 0
	return overall
}

// Triage outcomes
const (
	TriagePass = "Pass"
	TriageFail = "Fail"
)

// Escalation is a check whose status calls for a detailed follow-up review
type Escalation struct {
	CheckID string `json:"check_id"`
	Status  Status `json:"status"`
}

// TriageSummary groups failures for reviewers
type TriageSummary struct {
	Outcome                    string       `json:"outcome"`
	FailedCount                int          `json:"failed_count"`
	BusinessRiskFailures       []string     `json:"business_risk_failures"`
	CustomerExperienceFailures []string     `json:"customer_experience_failures"`
	Escalations                []Escalation `json:"escalations"`
}

// Triage classifies the call as Pass (no failures) or Fail and lists failed
// check labels by theme
func Triage(cl *checklist.Checklist, results []CheckResult) TriageSummary {
	summary := TriageSummary{
		Outcome:                    TriagePass,
		BusinessRiskFailures:       []string{},
		CustomerExperienceFailures: []string{},
		Escalations:                []Escalation{},
	}

	for _, r := range results {
		def, ok := cl.Get(r.ID)
		if !ok {
			continue
		}
		if def.EscalatesOn(string(r.Status)) {
			summary.Escalations = append(summary.Escalations, Escalation{CheckID: r.ID, Status: r.Status})
		}
		if r.Status != StatusFail {
			continue
		}
		summary.FailedCount++
		if def.Theme == checklist.ThemeCustomerExperience {
			summary.CustomerExperienceFailures = append(summary.CustomerExperienceFailures, def.Label())
		} else {
			summary.BusinessRiskFailures = append(summary.BusinessRiskFailures, def.Label())
		}
	}

	if summary.FailedCount > 0 {
		summary.Outcome = TriageFail
	}
	return summary
}

// NeedsEscalation reports whether downstream review should be alerted
func (t TriageSummary) NeedsEscalation(o Overall) bool {
	return o.HasHighSeverityFailures || len(t.Escalations) > 0
}
