package assessment

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// evidencePrefixLength is how much of a quote is searched for when the
// full quote does not appear verbatim, since models often paraphrase the tail
const evidencePrefixLength = 50

// LocateEvidence finds quote in text and returns its character span shifted by
// offset. When the quote is not verbatim, its first 50 characters are tried.
// It returns nil when neither is found.
func LocateEvidence(text, quote string, offset int) []Span {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return nil
	}

	needle := quote
	idx := strings.Index(text, needle)
	if idx < 0 && utf8.RuneCountInString(quote) > evidencePrefixLength {
		needle = truncateRunes(quote, evidencePrefixLength)
		idx = strings.Index(text, needle)
	}
	if idx < 0 {
		return nil
	}

	start := offset + utf8.RuneCountInString(text[:idx])
	return []Span{{start, start + utf8.RuneCountInString(needle)}}
}

// unionSpans returns the distinct spans sorted by start
func unionSpans(groups ...[]Span) []Span {
	seen := make(map[Span]bool)
	var out []Span
	for _, g := range groups {
		for _, s := range g {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
