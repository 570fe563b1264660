package assessment

import (
	"strings"
	"testing"
)

func TestBuildChunkPrompt(t *testing.T) {
	cl := testChecklist(t)
	chunk := Chunk{Index: 1, Start: 18000, End: 38000, Text: "COACH: hello"}

	prompt, err := BuildChunkPrompt(cl, chunk, 3, map[string][]Example{
		"client_goals_established": {{CheckID: "client_goals_established", Status: StatusCompetent, Quote: "what would success look like"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, want := range []string{
		`"id": "regulated_advice_given"`,
		`"question": "Was regulated advice given?"`,
		"what would success look like",
		"TRANSCRIPT PART 2 OF 3 (characters 18000 to 38000",
		"<transcript>\nCOACH: hello\n</transcript>",
		"CompetentWithDevelopment",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}

	single, err := BuildChunkPrompt(cl, Chunk{Text: "x"}, 1, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(single, "TRANSCRIPT PART") || !strings.Contains(single, "TRANSCRIPT:\n") {
		t.Error("expected an unnumbered transcript section for a single chunk")
	}
}
