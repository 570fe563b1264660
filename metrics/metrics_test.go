package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChunkObserver(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ChunkCompleted(0, 2*time.Second, nil)
	m.ChunkCompleted(1, time.Second, errors.New("timeout"))
	m.ChunkValidated(0, assessment.RepairLog{
		Passes: 1,
		Entries: []assessment.Repair{
			{Kind: assessment.RepairStructural},
			{Kind: assessment.RepairMissingCheck, CheckID: "a"},
			{Kind: assessment.RepairMissingCheck, CheckID: "b"},
		},
	})

	if got := testutil.ToFloat64(m.ChunksTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok chunk, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChunksTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed chunk, got %v", got)
	}
	if got := testutil.ToFloat64(m.RepairsTotal.WithLabelValues(string(assessment.RepairMissingCheck))); got != 2 {
		t.Errorf("expected 2 missing-check repairs, got %v", got)
	}
	if got := testutil.ToFloat64(m.StructuralPasses.WithLabelValues("1")); got != 1 {
		t.Errorf("expected 1 chunk needing one pass, got %v", got)
	}
}

func TestRecordCaseCheck(t *testing.T) {
	m := New(prometheus.NewRegistry())

	report := &assessment.Report{
		MergedAssessment: assessment.MergedAssessment{
			Results: []assessment.CheckResult{
				{ID: "a", Status: assessment.StatusFail},
				{ID: "b", Status: assessment.StatusCompetent},
			},
			Overall: assessment.Overall{HasHighSeverityFailures: true},
		},
		Triage: assessment.TriageSummary{Outcome: assessment.TriageFail},
		Gaps:   []assessment.CoverageGap{{CheckID: "c"}},
	}
	m.RecordCaseCheck(report, nil, time.Minute)
	m.RecordCaseCheck(nil, errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(m.CaseChecksTotal.WithLabelValues("Fail")); got != 1 {
		t.Errorf("expected 1 failed triage, got %v", got)
	}
	if got := testutil.ToFloat64(m.CaseChecksTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.EscalationsTotal); got != 1 {
		t.Errorf("expected 1 escalation, got %v", got)
	}
	if got := testutil.ToFloat64(m.CoverageGapsTotal); got != 1 {
		t.Errorf("expected 1 coverage gap, got %v", got)
	}
}

func TestRecordKafkaPublish(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordKafkaPublish("case-check.completed", "completed", nil, 0.01)
	m.RecordKafkaPublish("case-check.completed", "completed", errors.New("broker down"), 0.5)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("case-check.completed", "completed")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("case-check.completed", "completed")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}
