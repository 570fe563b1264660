package assessment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
)

// Example is a reviewed reference verdict shown to the model alongside a check
type Example struct {
	CheckID string `json:"check_id"`
	Status  Status `json:"status"`
	Quote   string `json:"quote"`
	Comment string `json:"comment,omitempty"`
}

type promptCheck struct {
	ID       string             `json:"id"`
	Question string             `json:"question"`
	Severity checklist.Severity `json:"severity"`
	Required bool               `json:"required"`
	Examples []Example          `json:"examples,omitempty"`
}

// BuildChunkPrompt renders the per-chunk request: the checks to score, the
// expected reply shape and the delimited transcript text with its position
// in the full call. Instruction wording belongs to the completer.
func BuildChunkPrompt(cl *checklist.Checklist, chunk Chunk, total int, examples map[string][]Example) (string, error) {
	checks := make([]promptCheck, 0, cl.Len())
	for _, def := range cl.Checks() {
		checks = append(checks, promptCheck{
			ID:       def.ID,
			Question: def.Prompt,
			Severity: def.Severity,
			Required: def.Required,
			Examples: examples[def.ID],
		})
	}
	checksJSON, err := json.MarshalIndent(checks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode checks: %w", err)
	}

	statuses := make([]string, len(Statuses))
	for i, s := range Statuses {
		statuses[i] = string(s)
	}

	var b strings.Builder
	b.WriteString("CHECKS:\n")
	b.Write(checksJSON)
	b.WriteString("\n\nRESPONSE FORMAT:\n")
	fmt.Fprintf(&b, "A JSON object {\"results\": [...]} with exactly one entry per check id above. "+
		"Each entry has: id, status (one of %s), confidence (0.0 to 1.0), "+
		"evidence_quote (verbatim from the transcript, at most %d characters, empty only for NotApplicable), comment.\n\n",
		strings.Join(statuses, ", "), MaxEvidenceLength)

	if total > 1 {
		fmt.Fprintf(&b, "TRANSCRIPT PART %d OF %d (characters %d to %d of the full call). "+
			"Judge only what this part shows; use Inconclusive when the part does not cover a check.\n",
			chunk.Index+1, total, chunk.Start, chunk.End)
	} else {
		b.WriteString("TRANSCRIPT:\n")
	}
	b.WriteString("<transcript>\n")
	b.WriteString(chunk.Text)
	b.WriteString("\n</transcript>\n")
	return b.String(), nil
}
