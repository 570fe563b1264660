package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// maxRepairPasses is the number of structural cleanup passes that exist
const maxRepairPasses = 2

var (
	codeFenceRe    = regexp.MustCompile("```(?:json|JSON)?[ \\t]*\\r?\\n?([\\s\\S]*?)\\r?\\n?```")
	openingFenceRe = regexp.MustCompile("^```(?:json|JSON)?[ \\t]*\\r?\\n?")
)

// parseEntries turns raw model output into result entries. It tries a direct
// decode first and then applies up to passes cleanup passes, each building on
// the previous one: (1) strip wrapper text and code fences, (2) cut truncated
// output back to its last complete value and close open brackets.
func parseEntries(raw string, passes int, repairs *RepairLog) ([]map[string]any, error) {
	if passes > maxRepairPasses {
		passes = maxRepairPasses
	}

	text := strings.TrimSpace(raw)
	entries, err := decodeEntries(text, repairs)
	if err == nil {
		return entries, nil
	}

	for pass := 1; pass <= passes; pass++ {
		switch pass {
		case 1:
			text = stripWrapper(text)
		case 2:
			text = closeBrackets(text)
		}

		entries, err = decodeEntries(text, repairs)
		if err == nil {
			repairs.Passes = pass
			repairs.add(RepairStructural, "", fmt.Sprintf("parsed after %d cleanup pass(es)", pass))
			return entries, nil
		}
	}

	return nil, &MalformedOutputError{Passes: passes, Cause: err}
}

// decodeEntries accepts a JSON array of results, an object with a "results"
// array (optionally stringified), or a single result object
func decodeEntries(text string, repairs *RepairLog) ([]map[string]any, error) {
	if text == "" {
		return nil, errors.New("empty output")
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}

	switch v := doc.(type) {
	case []any:
		return objectEntries(v, repairs), nil
	case map[string]any:
		results, ok := v["results"]
		if !ok {
			if _, hasID := v["id"]; hasID {
				return []map[string]any{v}, nil
			}
			return nil, errors.New(`object has no "results" field`)
		}
		switch r := results.(type) {
		case []any:
			return objectEntries(r, repairs), nil
		case string:
			var inner []any
			if err := json.Unmarshal([]byte(r), &inner); err != nil {
				return nil, fmt.Errorf("stringified results: %w", err)
			}
			repairs.add(RepairStringifiedResults, "", "results field was a JSON string")
			return objectEntries(inner, repairs), nil
		}
		return nil, fmt.Errorf(`"results" has unexpected type %T`, results)
	}
	return nil, fmt.Errorf("unexpected top-level JSON type %T", doc)
}

func objectEntries(items []any, repairs *RepairLog) []map[string]any {
	entries := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			repairs.add(RepairEntryDropped, "", fmt.Sprintf("entry %d is %T, not an object", i, item))
			continue
		}
		entries = append(entries, obj)
	}
	return entries
}

// stripWrapper removes markdown fences and prose around the JSON payload.
// It returns the first balanced value that parses, else everything from the
// first unterminated opener so the next pass can close it, else the longest
// balanced span for the next pass to clean up.
func stripWrapper(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	} else {
		text = openingFenceRe.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)

	fallback := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end, state := scanValue(text, i)
		switch state {
		case scanClosed:
			candidate := text[i:end]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
			if len(candidate) > len(fallback) {
				fallback = candidate
			}
			i = end - 1
		case scanOpen:
			return strings.TrimSpace(text[i:])
		}
	}
	if fallback != "" {
		return fallback
	}
	return text
}

type scanState int

const (
	scanClosed scanState = iota
	scanOpen
	scanBroken
)

// scanValue walks from the opener at start and reports where it closes
func scanValue(text string, start int) (int, scanState) {
	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1], c) {
				return i, scanBroken
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, scanClosed
			}
		}
	}
	return len(text), scanOpen
}

func matches(opener, closer byte) bool {
	return (opener == '{' && closer == '}') || (opener == '[' && closer == ']')
}

// closeBrackets repairs truncated JSON. When the text already ends on a
// complete value the open brackets are simply closed. Otherwise output is cut
// back to just after the last complete value (a closed object or array, or a
// member or element followed by a comma) and the brackets still open at that
// point are closed. Trailing commas before closers are removed everywhere.
func closeBrackets(text string) string {
	text = strings.TrimSpace(text)

	var stack, safeStack []byte
	inString, escaped := false, false
	lastSafe := -1

scan:
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case ',':
			if len(stack) > 0 {
				lastSafe = i
				safeStack = append(safeStack[:0], stack...)
			}
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			lastSafe = i + 1
			safeStack = append(safeStack[:0], stack...)
			if len(stack) == 0 {
				text = text[:i+1]
				break scan
			}
		}
	}

	if len(stack) == 0 && !inString {
		return removeTrailingCommas(text)
	}

	if !inString {
		if closed := closeOpen(text, stack); json.Valid([]byte(closed)) {
			return closed
		}
	}

	if lastSafe > 0 {
		return closeOpen(text[:lastSafe], safeStack)
	}
	if inString {
		text += `"`
	}
	return closeOpen(text, stack)
}

// closeOpen trims a dangling separator and appends closers for open, innermost first
func closeOpen(text string, open []byte) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(text, " \t\r\n,:"))
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return removeTrailingCommas(b.String())
}

// removeTrailingCommas drops commas that directly precede a closing bracket
func removeTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}

		if c == '"' {
			inString = true
		}
		if c == ',' {
			if next := nextNonSpace(text, i+1); next == '}' || next == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func nextNonSpace(text string, from int) byte {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return text[i]
	}
	return 0
}
