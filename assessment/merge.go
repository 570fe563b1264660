package assessment

import (
	"sort"
	"strings"

	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
)

// EvidenceSeparator joins quotes from different chunks
const EvidenceSeparator = " … "

const coverageGapComment = "Check was not returned by the model for any part of the transcript."

// MergeOutcome is the merged result set plus any coverage gaps found
type MergeOutcome struct {
	Results []CheckResult
	Gaps    []CoverageGap
}

type contribution struct {
	chunk  int
	result CheckResult
}

// Merge reduces per-chunk results to one result per check, in checklist order.
//
// The most severe status wins: Fail, Competent, CompetentWithDevelopment,
// Inconclusive, NotApplicable. Ties go to the higher confidence, then the
// earlier chunk. Chunks where the check was ruled NotApplicable by its
// predicate and results synthesized for a check the model skipped do not
// contribute. A check no chunk returned is reported as a CoverageGap and
// merged as Inconclusive.
func Merge(cl *checklist.Checklist, chunks []ChunkResult) MergeOutcome {
	ordered := make([]ChunkResult, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Chunk < ordered[j].Chunk })

	outcome := MergeOutcome{Results: make([]CheckResult, 0, cl.Len())}

	for _, def := range cl.Checks() {
		var (
			contributors []contribution
			ruled        *CheckResult
		)
		for _, cr := range ordered {
			for _, r := range cr.Results {
				if r.ID != def.ID {
					continue
				}
				switch {
				case r.RuleApplied:
					if ruled == nil {
						rr := r
						ruled = &rr
					}
				case !r.Synthesized:
					contributors = append(contributors, contribution{chunk: cr.Chunk, result: r})
				}
			}
		}

		switch {
		case len(contributors) > 0:
			outcome.Results = append(outcome.Results, reduce(contributors))
		case ruled != nil:
			outcome.Results = append(outcome.Results, *ruled)
		default:
			outcome.Gaps = append(outcome.Gaps, CoverageGap{CheckID: def.ID})
			outcome.Results = append(outcome.Results, CheckResult{
				ID:          def.ID,
				Status:      StatusInconclusive,
				Confidence:  0,
				Comment:     coverageGapComment,
				Synthesized: true,
			})
		}
	}

	return outcome
}

// reduce picks the winning contribution and combines, in chunk order, the
// evidence of every contribution sharing its status. Truncation drops the
// tail so the first quote is kept whole where possible.
func reduce(contributors []contribution) CheckResult {
	best := contributors[0]
	for _, c := range contributors[1:] {
		if beats(c, best) {
			best = c
		}
	}

	var quotes []string
	var spans [][]Span
	seen := make(map[string]bool)
	for _, c := range contributors {
		if c.result.Status != best.result.Status {
			continue
		}
		spans = append(spans, c.result.EvidenceSpans)
		q := strings.TrimSpace(c.result.EvidenceQuote)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		quotes = append(quotes, q)
	}

	merged := best.result
	merged.EvidenceQuote = truncateRunes(strings.Join(quotes, EvidenceSeparator), MaxEvidenceLength)
	merged.EvidenceSpans = unionSpans(spans...)
	return merged
}

func beats(a, b contribution) bool {
	if a.result.Status.Rank() != b.result.Status.Rank() {
		return a.result.Status.Rank() > b.result.Status.Rank()
	}
	if a.result.Confidence != b.result.Confidence {
		return a.result.Confidence > b.result.Confidence
	}
	return a.chunk < b.chunk
}
