package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "test.sqlite")})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func newCheck(meetingID string) NewCaseCheck {
	return NewCaseCheck{
		MeetingID:  meetingID,
		Transcript: "COACH: Hello\nCLIENT: Hi",
		CoachName:  "Sam",
		Facts:      `{"client_age":32}`,
		Checklist:  "starter_session",
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	d := openTestDB(t)

	version, err := d.CurrentVersion()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 2 {
		t.Errorf("expected schema version 2, got %d", version)
	}
}

func TestCreateAndGetCaseCheck(t *testing.T) {
	d := openTestDB(t)

	created, err := d.CreateCaseCheck(newCheck("m-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != CaseCheckQueued || created.Attempts != 0 {
		t.Errorf("expected queued with 0 attempts, got %s/%d", created.Status, created.Attempts)
	}
	if created.VTT != nil {
		t.Error("expected nil vtt for empty input")
	}
	if created.CoachName == nil || *created.CoachName != "Sam" {
		t.Errorf("expected coach Sam, got %v", created.CoachName)
	}

	byMeeting, err := d.GetCaseCheckByMeeting("m-1")
	if err != nil || byMeeting == nil {
		t.Fatalf("expected case check by meeting, got %v (%v)", byMeeting, err)
	}
	if byMeeting.ID != created.ID {
		t.Errorf("expected id %s, got %s", created.ID, byMeeting.ID)
	}

	missing, err := d.GetCaseCheck("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing id, got %v, %v", missing, err)
	}

	if _, err := d.CreateCaseCheck(newCheck("m-1")); err == nil {
		t.Error("expected unique meeting id violation")
	}
}

func TestCaseCheckLifecycle(t *testing.T) {
	d := openTestDB(t)
	c, _ := d.CreateCaseCheck(newCheck("m-2"))

	if err := d.MarkInProgress(c.ID); err != nil {
		t.Fatal(err)
	}
	if err := d.FailCaseCheck(c.ID, "upstream timeout"); err != nil {
		t.Fatal(err)
	}

	retryable, err := d.ListRetryable(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(retryable) != 1 || retryable[0].Attempts != 1 {
		t.Fatalf("expected one retryable check with 1 attempt, got %+v", retryable)
	}
	if retryable, _ := d.ListRetryable(1); len(retryable) != 0 {
		t.Errorf("expected no retryable checks at max attempts, got %d", len(retryable))
	}

	quote := "I'm not able to give advice"
	err = d.CompleteCaseCheck(c.ID, Completion{
		Outcome:                 "Fail",
		PassRate:                0.5,
		HasHighSeverityFailures: true,
		NeedsEscalation:         true,
		Result:                  `{"results":[]}`,
		Checks: []CheckResultRow{
			{CheckID: "b", Position: 1, Label: "B?", Severity: "High", Theme: "businessRisk", Status: "Fail", Confidence: 0.9, EvidenceQuote: &quote},
			{CheckID: "a", Position: 0, Label: "A?", Severity: "Low", Theme: "customerExperience", Status: "Competent", Confidence: 0.8},
		},
		Analytics: &CallAnalytics{TotalDurationMin: 2, CoachSpeakingPct: 25, CoachTurns: 2, Timed: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, _ := d.GetCaseCheck(c.ID)
	if done.Status != CaseCheckCompleted || done.Error != nil {
		t.Errorf("expected completed without error, got %s/%v", done.Status, done.Error)
	}
	if done.PassRate == nil || *done.PassRate != 0.5 || !done.HasHighSeverityFailures || !done.NeedsEscalation {
		t.Errorf("unexpected completion fields %+v", done)
	}
	if done.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if done.ArchiveKey != nil {
		t.Errorf("expected no archive key before archiving, got %q", *done.ArchiveKey)
	}

	key := "case-checks/2026/10/m-2/case_check.v1.2.json"
	if err := d.SetArchiveKey(c.ID, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	archived, _ := d.GetCaseCheck(c.ID)
	if archived.ArchiveKey == nil || *archived.ArchiveKey != key {
		t.Errorf("expected archive key %q, got %v", key, archived.ArchiveKey)
	}
	if archived.Status != CaseCheckCompleted {
		t.Errorf("expected status to stay completed, got %s", archived.Status)
	}

	rows, err := d.ListCheckResults(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].CheckID != "a" || rows[1].CheckID != "b" {
		t.Fatalf("expected rows in position order, got %+v", rows)
	}
	if rows[1].EvidenceQuote == nil || *rows[1].EvidenceQuote != quote {
		t.Errorf("expected evidence quote, got %v", rows[1].EvidenceQuote)
	}
	if rows[0].ReviewStatus != ReviewPending {
		t.Errorf("expected pending review, got %s", rows[0].ReviewStatus)
	}

	analytics, err := d.GetCallAnalytics(c.ID)
	if err != nil || analytics == nil {
		t.Fatalf("expected analytics, got %v (%v)", analytics, err)
	}
	if !analytics.Timed || analytics.CoachTurns != 2 || analytics.CoachSpeakingPct != 25 {
		t.Errorf("unexpected analytics %+v", analytics)
	}
}

func TestResetCaseCheck(t *testing.T) {
	d := openTestDB(t)
	c, _ := d.CreateCaseCheck(newCheck("m-3"))
	d.MarkInProgress(c.ID)
	d.CompleteCaseCheck(c.ID, Completion{
		Outcome: "Pass",
		Result:  "{}",
		Checks:  []CheckResultRow{{CheckID: "a", Label: "A?", Severity: "Low", Theme: "customerExperience", Status: "Competent"}},
	})

	in := newCheck("m-3")
	in.Transcript = "COACH: Updated"
	reset, err := d.ResetCaseCheck(c.ID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reset.Status != CaseCheckQueued || reset.Attempts != 0 || reset.Outcome != nil || reset.Result != nil {
		t.Errorf("expected a fresh queued check, got %+v", reset)
	}
	if reset.Transcript != "COACH: Updated" {
		t.Errorf("expected updated transcript, got %q", reset.Transcript)
	}
	if rows, _ := d.ListCheckResults(c.ID); len(rows) != 0 {
		t.Errorf("expected results cleared, got %d", len(rows))
	}
}

func TestRequeueInProgress(t *testing.T) {
	d := openTestDB(t)
	a, _ := d.CreateCaseCheck(newCheck("m-4"))
	d.CreateCaseCheck(newCheck("m-5"))
	d.MarkInProgress(a.ID)

	n, err := d.RequeueInProgress()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 requeued, got %d", n)
	}
	got, _ := d.GetCaseCheck(a.ID)
	if got.Status != CaseCheckQueued {
		t.Errorf("expected queued, got %s", got.Status)
	}
}

func TestListCaseChecks(t *testing.T) {
	d := openTestDB(t)
	for _, id := range []string{"m-6", "m-7", "m-8"} {
		d.CreateCaseCheck(newCheck(id))
	}
	first, _ := d.GetCaseCheckByMeeting("m-6")
	d.FailCaseCheck(first.ID, "boom")

	items, total, err := d.ListCaseChecks(ListOptions{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("expected 2 of 3, got %d of %d", len(items), total)
	}

	failed, total, _ := d.ListCaseChecks(ListOptions{Status: CaseCheckFailed})
	if total != 1 || len(failed) != 1 || failed[0].MeetingID != "m-6" {
		t.Errorf("expected only m-6 failed, got %+v", failed)
	}
}

func TestReviewCheckResult(t *testing.T) {
	d := openTestDB(t)
	c, _ := d.CreateCaseCheck(newCheck("m-9"))
	d.CompleteCaseCheck(c.ID, Completion{
		Outcome: "Fail",
		Result:  "{}",
		Checks: []CheckResultRow{
			{CheckID: "a", Position: 0, Label: "A?", Severity: "High", Theme: "businessRisk", Status: "Fail", Confidence: 0.7},
			{CheckID: "b", Position: 1, Label: "B?", Severity: "Low", Theme: "businessRisk", Status: "Competent", Confidence: 0.9},
		},
	})

	tests := []struct {
		name         string
		checkID      string
		review       Review
		status       string
		reviewStatus ReviewStatus
	}{
		{"confirm", "b", Review{Reviewer: "qa@octopus"}, "Competent", ReviewConfirmed},
		{"same status confirms", "b", Review{Status: "Competent"}, "Competent", ReviewConfirmed},
		{"override", "a", Review{Status: "Competent", Reviewer: "qa@octopus", Note: "quote was taken out of context"}, "Competent", ReviewOverridden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ReviewCheckResult(c.ID, tt.checkID, tt.review)
			if err != nil || got == nil {
				t.Fatalf("expected reviewed row, got %v (%v)", got, err)
			}
			if got.Status != tt.status || got.ReviewStatus != tt.reviewStatus {
				t.Errorf("expected %s/%s, got %s/%s", tt.status, tt.reviewStatus, got.Status, got.ReviewStatus)
			}
			if got.ReviewedAt == nil {
				t.Error("expected reviewed_at to be set")
			}
		})
	}

	missing, err := d.ReviewCheckResult(c.ID, "zzz", Review{})
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown check, got %v, %v", missing, err)
	}

	if pending, _ := d.CountPendingReviews(); pending != 0 {
		t.Errorf("expected no pending reviews, got %d", pending)
	}
}
