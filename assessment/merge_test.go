package assessment

import (
	"reflect"
	"strings"
	"testing"
)

func fullChunk(index int, regulated, goals, pension CheckResult) ChunkResult {
	return ChunkResult{Chunk: index, Results: []CheckResult{regulated, goals, pension}}
}

func TestMergeFailInOneChunkWins(t *testing.T) {
	cl := testChecklist(t)
	goals := result("client_goals_established", StatusCompetent, 0.8, "what matters to you")
	pension := result("pension_withdrawal_if_over_50", StatusNotApplicable, 0.9, "")

	chunks := []ChunkResult{
		fullChunk(0, result("regulated_advice_given", StatusCompetent, 0.9, "no advice here"), goals, pension),
		fullChunk(1, result("regulated_advice_given", StatusCompetent, 0.95, "general guidance only"), goals, pension),
		fullChunk(2, result("regulated_advice_given", StatusFail, 0.98, "you should move it all into that fund"), goals, pension),
		fullChunk(3, result("regulated_advice_given", StatusCompetent, 0.9, "no advice here"), goals, pension),
	}

	merged := Merge(cl, chunks)
	got := merged.Results[0]

	if got.Status != StatusFail {
		t.Fatalf("expected Fail, got %s", got.Status)
	}
	if !strings.HasPrefix(got.EvidenceQuote, "you should move it all into that fund") {
		t.Errorf("expected evidence to start with chunk 3's quote, got %q", got.EvidenceQuote)
	}
	if got.Confidence != 0.98 {
		t.Errorf("expected winner confidence 0.98, got %v", got.Confidence)
	}
	if len(merged.Gaps) != 0 {
		t.Errorf("expected no gaps, got %v", merged.Gaps)
	}
}

func TestMergeTieBreaks(t *testing.T) {
	cl := testChecklist(t)

	t.Run("higher confidence", func(t *testing.T) {
		merged := Merge(cl, []ChunkResult{
			{Chunk: 0, Results: []CheckResult{{ID: "client_goals_established", Status: StatusCompetent, Confidence: 0.6, EvidenceQuote: "a", Comment: "first"}}},
			{Chunk: 1, Results: []CheckResult{{ID: "client_goals_established", Status: StatusCompetent, Confidence: 0.9, EvidenceQuote: "b", Comment: "second"}}},
		})
		got := merged.Results[1]
		if got.Comment != "second" || got.Confidence != 0.9 {
			t.Errorf("expected the higher-confidence result, got %+v", got)
		}
		if got.EvidenceQuote != "a"+EvidenceSeparator+"b" {
			t.Errorf("expected evidence in chunk order, got %q", got.EvidenceQuote)
		}
	})

	t.Run("earlier chunk", func(t *testing.T) {
		merged := Merge(cl, []ChunkResult{
			{Chunk: 1, Results: []CheckResult{{ID: "client_goals_established", Status: StatusCompetent, Confidence: 0.7, Comment: "later"}}},
			{Chunk: 0, Results: []CheckResult{{ID: "client_goals_established", Status: StatusCompetent, Confidence: 0.7, Comment: "earlier"}}},
		})
		if got := merged.Results[1]; got.Comment != "earlier" {
			t.Errorf("expected the earlier chunk to win, got %q", got.Comment)
		}
	})
}

func TestMergePrecedence(t *testing.T) {
	cl := testChecklist(t)

	for i, winner := range Statuses {
		for _, loser := range Statuses[i+1:] {
			merged := Merge(cl, []ChunkResult{
				{Chunk: 0, Results: []CheckResult{result("client_goals_established", loser, 0.99, "x")}},
				{Chunk: 1, Results: []CheckResult{result("client_goals_established", winner, 0.1, "y")}},
			})
			if got := merged.Results[1].Status; got != winner {
				t.Errorf("expected %s to beat %s, got %s", winner, loser, got)
			}
		}
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	cl := testChecklist(t)
	chunks := []ChunkResult{
		{Chunk: 0, Results: []CheckResult{result("regulated_advice_given", StatusCompetent, 0.5, "a")}},
		{Chunk: 1, Results: []CheckResult{result("regulated_advice_given", StatusInconclusive, 0.5, "b")}},
		{Chunk: 2, Results: []CheckResult{result("regulated_advice_given", StatusCompetentWithDevelopment, 0.5, "c")}},
	}
	reversed := []ChunkResult{chunks[2], chunks[1], chunks[0]}

	a := Merge(cl, chunks)
	b := Merge(cl, reversed)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected chunk order not to matter:\n%+v\n%+v", a, b)
	}
	if a.Results[0].Status != StatusCompetent {
		t.Errorf("expected Competent, got %s", a.Results[0].Status)
	}
}

func TestMergeIdempotent(t *testing.T) {
	cl := testChecklist(t)
	chunks := []ChunkResult{
		fullChunk(0,
			result("regulated_advice_given", StatusFail, 0.8, "buy it"),
			result("client_goals_established", StatusCompetent, 0.7, "goals"),
			notApplicableByRule(cl.Checks()[2])),
		fullChunk(1,
			result("regulated_advice_given", StatusFail, 0.9, "really, buy it"),
			result("client_goals_established", StatusInconclusive, 0.4, ""),
			notApplicableByRule(cl.Checks()[2])),
	}

	first := Merge(cl, chunks)
	second := Merge(cl, chunks)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical output for identical input")
	}

	again := Merge(cl, []ChunkResult{{Chunk: 0, Results: first.Results}})
	if !reflect.DeepEqual(first.Results, again.Results) {
		t.Errorf("expected merging a merged result to be a no-op:\n%+v\n%+v", first.Results, again.Results)
	}
}

func TestMergeRuleExcludedChunks(t *testing.T) {
	cl := testChecklist(t)
	rule := notApplicableByRule(cl.Checks()[2])

	merged := Merge(cl, []ChunkResult{
		{Chunk: 0, Results: []CheckResult{rule}},
		{Chunk: 1, Results: []CheckResult{rule}},
	})
	got := merged.Results[2]
	if got.Status != StatusNotApplicable || !got.RuleApplied {
		t.Errorf("expected rule NotApplicable, got %+v", got)
	}

	merged = Merge(cl, []ChunkResult{
		{Chunk: 0, Results: []CheckResult{rule}},
		{Chunk: 1, Results: []CheckResult{result("pension_withdrawal_if_over_50", StatusCompetent, 0.8, "plans to draw down")}},
	})
	if got := merged.Results[2]; got.Status != StatusCompetent {
		t.Errorf("expected rule-excluded chunk not to contribute, got %s", got.Status)
	}
}

func TestMergeCoverageGap(t *testing.T) {
	cl := testChecklist(t)
	skipped := CheckResult{ID: "client_goals_established", Status: StatusInconclusive, Comment: notReturnedComment, Synthesized: true}

	merged := Merge(cl, []ChunkResult{
		{Chunk: 0, Results: []CheckResult{result("regulated_advice_given", StatusCompetent, 0.9, "q"), skipped}},
		{Chunk: 1, Results: []CheckResult{skipped}},
	})

	if len(merged.Gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %v", merged.Gaps)
	}
	if merged.Gaps[0].CheckID != "client_goals_established" || merged.Gaps[1].CheckID != "pension_withdrawal_if_over_50" {
		t.Errorf("unexpected gaps %v", merged.Gaps)
	}
	for _, r := range merged.Results[1:] {
		if r.Status != StatusInconclusive || r.Comment != coverageGapComment {
			t.Errorf("expected %s synthesized as Inconclusive, got %+v", r.ID, r)
		}
	}
}

func TestMergeSynthesizedDoesNotOutrankNotApplicable(t *testing.T) {
	cl := testChecklist(t)
	merged := Merge(cl, []ChunkResult{
		{Chunk: 0, Results: []CheckResult{result("client_goals_established", StatusNotApplicable, 0.9, "")}},
		{Chunk: 1, Results: []CheckResult{{ID: "client_goals_established", Status: StatusInconclusive, Synthesized: true}}},
	})
	if got := merged.Results[1].Status; got != StatusNotApplicable {
		t.Errorf("expected NotApplicable, got %s", got)
	}
}

func TestMergeEvidence(t *testing.T) {
	cl := testChecklist(t)
	long := strings.Repeat("a", 400)

	merged := Merge(cl, []ChunkResult{
		{Chunk: 0, Results: []CheckResult{{ID: "regulated_advice_given", Status: StatusFail, Confidence: 0.9, EvidenceQuote: long, EvidenceSpans: []Span{{10, 410}}}}},
		{Chunk: 1, Results: []CheckResult{{ID: "regulated_advice_given", Status: StatusFail, Confidence: 0.9, EvidenceQuote: long, EvidenceSpans: []Span{{10, 410}}}}},
		{Chunk: 2, Results: []CheckResult{{ID: "regulated_advice_given", Status: StatusCompetent, Confidence: 0.9, EvidenceQuote: "ignored"}}},
		{Chunk: 3, Results: []CheckResult{{ID: "regulated_advice_given", Status: StatusFail, Confidence: 0.5, EvidenceQuote: strings.Repeat("b", 300), EvidenceSpans: []Span{{5000, 5300}}}}},
	})

	got := merged.Results[0]
	if n := len([]rune(got.EvidenceQuote)); n != MaxEvidenceLength {
		t.Errorf("expected evidence truncated to %d, got %d", MaxEvidenceLength, n)
	}
	if !strings.HasPrefix(got.EvidenceQuote, long+EvidenceSeparator+"b") {
		t.Error("expected the duplicate overlap quote once, followed by the next contributor")
	}
	if strings.Contains(got.EvidenceQuote, "ignored") {
		t.Error("expected quotes of other statuses to be excluded")
	}
	if !reflect.DeepEqual(got.EvidenceSpans, []Span{{10, 410}, {5000, 5300}}) {
		t.Errorf("unexpected spans %v", got.EvidenceSpans)
	}
}
