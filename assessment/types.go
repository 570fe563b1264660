package assessment

import "github.com/Octopus-Moneycoach/coaching-ai/checklist"

// MaxEvidenceLength is the longest evidence quote kept, in characters
const MaxEvidenceLength = 500

// Span is a [start, end) character range in the full transcript
type Span [2]int

// CheckResult is the verdict for one check
type CheckResult struct {
	ID            string  `json:"id"`
	Status        Status  `json:"status"`
	Confidence    float64 `json:"confidence"`
	EvidenceQuote string  `json:"evidence_quote"`
	EvidenceSpans []Span  `json:"evidence_spans,omitempty"`
	Comment       string  `json:"comment"`

	// RuleApplied marks a NotApplicable forced by the check's applicability predicate
	RuleApplied bool `json:"-"`
	// Synthesized marks a result the model never returned
	Synthesized bool `json:"-"`
}

// Chunk is a window of the transcript. Offsets are in characters (runes).
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"-"`
}

// ChunkResult is the validated output for one chunk
type ChunkResult struct {
	Chunk   int
	Results []CheckResult
	Repairs RepairLog
}

// Overall holds the aggregate metrics of a merged assessment
type Overall struct {
	PassRate                float64  `json:"pass_rate"`
	FailedIDs               []string `json:"failed_ids"`
	HighSeverityFlags       []string `json:"high_severity_flags"`
	HasHighSeverityFailures bool     `json:"has_high_severity_failures"`
}

// MergedAssessment is the final per-transcript result, one entry per check
type MergedAssessment struct {
	Results []CheckResult `json:"results"`
	Overall Overall       `json:"overall"`
}

// Result returns the merged result for a check id
func (m *MergedAssessment) Result(id string) (CheckResult, bool) {
	for _, r := range m.Results {
		if r.ID == id {
			return r, true
		}
	}
	return CheckResult{}, false
}

// Request is a single transcript-processing request
type Request struct {
	Transcript string
	Checklist  *checklist.Checklist

	// Chunking overrides the pipeline's chunk configuration when set
	Chunking *ChunkConfig

	// Facts override facts extracted from the transcript
	Facts checklist.Facts
}
