package assessment

import "strings"

// Status is a check verdict. The string values are part of the wire format.
type Status string

const (
	StatusCompetent                Status = "Competent"
	StatusCompetentWithDevelopment Status = "CompetentWithDevelopment"
	StatusFail                     Status = "Fail"
	StatusNotApplicable            Status = "NotApplicable"
	StatusInconclusive             Status = "Inconclusive"
)

// Statuses lists every status in merge precedence order, most severe first
var Statuses = []Status{
	StatusFail,
	StatusCompetent,
	StatusCompetentWithDevelopment,
	StatusInconclusive,
	StatusNotApplicable,
}

var statusByKey = map[string]Status{
	"competent":                StatusCompetent,
	"competentwithdevelopment": StatusCompetentWithDevelopment,
	"fail":                     StatusFail,
	"notapplicable":            StatusNotApplicable,
	"inconclusive":             StatusInconclusive,
}

// ParseStatus matches s case-insensitively against the canonical statuses.
// Spaces, underscores and hyphens are ignored, so "not_applicable" parses.
func ParseStatus(s string) (Status, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	status, ok := statusByKey[key]
	return status, ok
}

// Rank orders statuses for merging; higher wins
func (s Status) Rank() int {
	switch s {
	case StatusFail:
		return 5
	case StatusCompetent:
		return 4
	case StatusCompetentWithDevelopment:
		return 3
	case StatusInconclusive:
		return 2
	case StatusNotApplicable:
		return 1
	}
	return 0
}

// Valid reports whether s is one of the canonical statuses
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// Passing reports whether the status counts towards the pass rate
func (s Status) Passing() bool {
	return s == StatusCompetent || s == StatusCompetentWithDevelopment
}
