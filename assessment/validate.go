package assessment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
)

const (
	defaultConfidence  = 0.5
	placeholderComment = "No justification was provided by the model."
	notReturnedComment = "Check was not returned by the model for this part of the transcript."
)

// RepairKind names a correction applied to model output
type RepairKind string

const (
	RepairStructural         RepairKind = "structural_cleanup"
	RepairStringifiedResults RepairKind = "stringified_results"
	RepairEntryDropped       RepairKind = "entry_dropped"
	RepairDuplicate          RepairKind = "duplicate_entry"
	RepairStatusCase         RepairKind = "status_normalized"
	RepairStatusUnknown      RepairKind = "status_unrecognized"
	RepairConfidenceDefault  RepairKind = "confidence_defaulted"
	RepairConfidenceClamped  RepairKind = "confidence_clamped"
	RepairEvidenceTruncated  RepairKind = "evidence_truncated"
	RepairEvidenceMissing    RepairKind = "evidence_missing"
	RepairCommentMissing     RepairKind = "comment_missing"
	RepairMissingCheck       RepairKind = "check_missing"
	RepairRuleNotApplicable  RepairKind = "forced_not_applicable"
)

// Repair is one recorded correction
type Repair struct {
	Kind    RepairKind `json:"kind"`
	CheckID string     `json:"check_id,omitempty"`
	Detail  string     `json:"detail,omitempty"`
}

// RepairLog collects the corrections applied to one chunk's output
type RepairLog struct {
	// Passes is the number of structural cleanup passes that were needed
	Passes  int      `json:"structural_passes"`
	Entries []Repair `json:"entries,omitempty"`
}

func (l *RepairLog) add(kind RepairKind, checkID, detail string) {
	l.Entries = append(l.Entries, Repair{Kind: kind, CheckID: checkID, Detail: detail})
}

// Count returns how many repairs of kind were recorded
func (l RepairLog) Count(kind RepairKind) int {
	n := 0
	for _, r := range l.Entries {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// Counts returns the number of repairs per kind
func (l RepairLog) Counts() map[RepairKind]int {
	counts := make(map[RepairKind]int)
	for _, r := range l.Entries {
		counts[r.Kind]++
	}
	return counts
}

// Empty reports whether the output needed no repair at all
func (l RepairLog) Empty() bool {
	return len(l.Entries) == 0
}

// ValidatorConfig controls repair behaviour
type ValidatorConfig struct {
	// RepairPasses is the number of structural cleanup passes to attempt (0 to 2)
	RepairPasses int `json:"repair_passes"`
	// RequireEvidence downgrades verdicts without an evidence quote to Inconclusive
	RequireEvidence bool `json:"require_evidence"`
}

// DefaultValidatorConfig returns two repair passes with evidence required
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{RepairPasses: maxRepairPasses, RequireEvidence: true}
}

// Validation is the outcome of validating one chunk's output
type Validation struct {
	Results []CheckResult
	Repairs RepairLog
}

// Validator parses and repairs model output against a checklist
type Validator struct {
	checklist *checklist.Checklist
	cfg       ValidatorConfig
}

// NewValidator returns a validator for cl
func NewValidator(cl *checklist.Checklist, cfg ValidatorConfig) (*Validator, error) {
	if cl == nil {
		return nil, &ConfigurationError{Field: "checklist", Reason: "is required"}
	}
	if cfg.RepairPasses < 0 || cfg.RepairPasses > maxRepairPasses {
		return nil, &ConfigurationError{
			Field:  "repair_passes",
			Reason: fmt.Sprintf("must be between 0 and %d, got %d", maxRepairPasses, cfg.RepairPasses),
		}
	}
	return &Validator{checklist: cl, cfg: cfg}, nil
}

// Validate parses raw into exactly one result per check, in checklist order.
// It fails with *MalformedOutputError only when no structured list could be
// recovered; every other deviation is repaired and recorded.
func (v *Validator) Validate(raw string, facts checklist.Facts) (*Validation, error) {
	out := &Validation{}

	entries, err := parseEntries(raw, v.cfg.RepairPasses, &out.Repairs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]CheckResult, len(entries))
	for i, entry := range entries {
		id, ok := v.entryID(entry)
		if !ok {
			out.Repairs.add(RepairEntryDropped, "", fmt.Sprintf("entry %d has no known id (%v)", i, entry["id"]))
			continue
		}

		result := v.repairEntry(id, entry, &out.Repairs)
		if prev, dup := byID[id]; dup {
			out.Repairs.add(RepairDuplicate, id, "kept the more severe of duplicate entries")
			if !outranks(result, prev) {
				continue
			}
		}
		byID[id] = result
	}

	out.Results = v.reconcile(byID, facts, &out.Repairs)
	return out, nil
}

// entryID resolves the entry's id against the checklist, tolerating case and padding
func (v *Validator) entryID(entry map[string]any) (string, bool) {
	raw, ok := entry["id"].(string)
	if !ok {
		return "", false
	}
	if _, ok := v.checklist.Get(raw); ok {
		return raw, true
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := v.checklist.Get(normalized); ok {
		return normalized, true
	}
	return "", false
}

func (v *Validator) repairEntry(id string, entry map[string]any, repairs *RepairLog) CheckResult {
	result := CheckResult{ID: id}
	var notes []string

	// Status
	rawStatus, _ := entry["status"].(string)
	if status, ok := ParseStatus(rawStatus); ok {
		result.Status = status
		if rawStatus != string(status) {
			repairs.add(RepairStatusCase, id, fmt.Sprintf("%q normalized to %s", rawStatus, status))
		}
	} else {
		result.Status = StatusInconclusive
		detail := fmt.Sprintf("status %v not recognized", describe(entry["status"]))
		repairs.add(RepairStatusUnknown, id, detail)
		notes = append(notes, detail+"; recorded as Inconclusive")
	}

	// Confidence
	confidence, parsed := parseConfidence(entry["confidence"])
	switch {
	case !parsed:
		confidence = defaultConfidence
		repairs.add(RepairConfidenceDefault, id, fmt.Sprintf("confidence %v defaulted to %.1f", describe(entry["confidence"]), defaultConfidence))
	case confidence < 0 || confidence > 1:
		clamped := math.Min(1, math.Max(0, confidence))
		repairs.add(RepairConfidenceClamped, id, fmt.Sprintf("confidence %g clamped to %g", confidence, clamped))
		confidence = clamped
	}
	result.Confidence = confidence

	// Evidence
	quote, _ := entry["evidence_quote"].(string)
	quote = strings.TrimSpace(quote)
	if utf8.RuneCountInString(quote) > MaxEvidenceLength {
		quote = truncateRunes(quote, MaxEvidenceLength)
		repairs.add(RepairEvidenceTruncated, id, fmt.Sprintf("evidence truncated to %d characters", MaxEvidenceLength))
	}
	result.EvidenceQuote = quote
	if quote == "" && v.cfg.RequireEvidence && result.Status != StatusNotApplicable && result.Status != StatusInconclusive {
		notes = append(notes, fmt.Sprintf("verdict %s had no evidence quote; recorded as Inconclusive", result.Status))
		repairs.add(RepairEvidenceMissing, id, fmt.Sprintf("no evidence for %s", result.Status))
		result.Status = StatusInconclusive
	}

	// Comment
	comment, _ := entry["comment"].(string)
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = placeholderComment
		repairs.add(RepairCommentMissing, id, "comment replaced with placeholder")
	}
	for _, note := range notes {
		comment += " [Repaired: " + note + ".]"
	}
	result.Comment = comment

	return result
}

// reconcile emits one result per check: inapplicable checks are forced to
// NotApplicable and missing checks are synthesized as Inconclusive
func (v *Validator) reconcile(byID map[string]CheckResult, facts checklist.Facts, repairs *RepairLog) []CheckResult {
	results := make([]CheckResult, 0, v.checklist.Len())

	for _, def := range v.checklist.Checks() {
		got, found := byID[def.ID]

		if !def.Applicable(facts) {
			if found && got.Status != StatusNotApplicable {
				repairs.add(RepairRuleNotApplicable, def.ID, fmt.Sprintf("model answered %s but %s does not hold", got.Status, def.Applicability))
			}
			results = append(results, notApplicableByRule(def))
			continue
		}

		if !found {
			repairs.add(RepairMissingCheck, def.ID, "not returned by the model")
			results = append(results, CheckResult{
				ID:          def.ID,
				Status:      StatusInconclusive,
				Confidence:  0,
				Comment:     notReturnedComment,
				Synthesized: true,
			})
			continue
		}

		results = append(results, got)
	}
	return results
}

func notApplicableByRule(def checklist.CheckDefinition) CheckResult {
	return CheckResult{
		ID:          def.ID,
		Status:      StatusNotApplicable,
		Confidence:  1,
		Comment:     fmt.Sprintf("Not applicable: %s does not hold for this call.", def.Applicability),
		RuleApplied: true,
	}
}

// outranks reports whether a should replace b under merge precedence
func outranks(a, b CheckResult) bool {
	if a.Status.Rank() != b.Status.Rank() {
		return a.Status.Rank() > b.Status.Rank()
	}
	return a.Confidence > b.Confidence
}

func parseConfidence(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		s := strings.TrimSpace(n)
		percent := strings.HasSuffix(s, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		if percent {
			parsed /= 100
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func describe(v any) string {
	if v == nil {
		return "(missing)"
	}
	return fmt.Sprintf("%q", fmt.Sprint(v))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
