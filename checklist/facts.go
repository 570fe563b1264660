package checklist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Known fact names referenced by the built-in checklist
const (
	FactClientAge        = "client_age"
	FactHighInterestDebt = "has_high_interest_debt"
)

// Facts are known properties of the call, used to evaluate applicability predicates.
// Values are numbers, booleans or strings.
type Facts map[string]any

// Merge returns a copy of f with every key in override replacing f's value
func (f Facts) Merge(override Facts) Facts {
	out := make(Facts, len(f)+len(override))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Predicate compares a fact against a constant, e.g. client_age >= 50
type Predicate struct {
	Fact  string `json:"fact" yaml:"fact"`
	Op    string `json:"op" yaml:"op"`
	Value any    `json:"value" yaml:"value"`
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Fact, p.Op, p.Value)
}

func (p Predicate) validate() error {
	if p.Fact == "" {
		return fmt.Errorf("applicability predicate has no fact")
	}
	switch p.Op {
	case "==", "!=", ">", ">=", "<", "<=":
	default:
		return fmt.Errorf("applicability predicate has unsupported operator %q", p.Op)
	}
	if p.Value == nil {
		return fmt.Errorf("applicability predicate has no value")
	}
	return nil
}

// Evaluate returns whether the predicate holds and whether the fact was known.
// Facts whose type cannot be compared with the value count as unknown.
func (p Predicate) Evaluate(facts Facts) (holds bool, known bool) {
	actual, ok := facts[p.Fact]
	if !ok || actual == nil {
		return false, false
	}

	if a, ok := toFloat(actual); ok {
		if b, ok := toFloat(p.Value); ok {
			return compareFloat(a, p.Op, b)
		}
	}

	if a, ok := actual.(bool); ok {
		if b, ok := p.Value.(bool); ok {
			switch p.Op {
			case "==":
				return a == b, true
			case "!=":
				return a != b, true
			}
		}
		return false, false
	}

	a, aok := actual.(string)
	b, bok := p.Value.(string)
	if aok && bok {
		switch p.Op {
		case "==":
			return strings.EqualFold(a, b), true
		case "!=":
			return !strings.EqualFold(a, b), true
		}
	}
	return false, false
}

func compareFloat(a float64, op string, b float64) (bool, bool) {
	switch op {
	case "==":
		return a == b, true
	case "!=":
		return a != b, true
	case ">":
		return a > b, true
	case ">=":
		return a >= b, true
	case "<":
		return a < b, true
	case "<=":
		return a <= b, true
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

var (
	speakerLinePattern = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z .'-]{0,48}):\s*(.*)$`)

	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bI(?:'m|’m| am)\s+(\d{2})(?:\s+years?\s+old|\s+now|\s+this\s+year)?(?:[.,!?;]|\s*$|\s+(?:and|but|so)\b)`),
		regexp.MustCompile(`(?i)\b(?:my\s+age\s+is|I(?:'m|’m| am)\s+aged)\s+(\d{2})\b`),
		regexp.MustCompile(`(?i)\bI(?:'m|’m| am)\s+(\d{2})\s+years?\s+old\b`),
		regexp.MustCompile(`(?i)\bI\s+turned\s+(\d{2})\b`),
	}

	highInterestDebtPattern = regexp.MustCompile(`(?i)\b(credit\s+card\s+(?:debt|balance)s?|overdraft|payday\s+loans?|store\s+cards?|buy\s+now,?\s+pay\s+later)\b`)
)

// ExtractFacts derives facts from the transcript text.
// When speakers are labelled CLIENT, only the client's lines are searched for the age.
// Absence of a mention leaves the fact unknown.
func ExtractFacts(transcript string) Facts {
	facts := Facts{}

	if age, ok := findAge(clientText(transcript)); ok {
		facts[FactClientAge] = age
	}
	if highInterestDebtPattern.MatchString(transcript) {
		facts[FactHighInterestDebt] = true
	}
	return facts
}

func clientText(transcript string) string {
	var b strings.Builder
	for _, m := range speakerLinePattern.FindAllStringSubmatch(transcript, -1) {
		if strings.EqualFold(strings.TrimSpace(m[1]), "client") {
			b.WriteString(m[2])
			b.WriteByte('\n')
		}
	}
	if b.Len() == 0 {
		return transcript
	}
	return b.String()
}

func findAge(text string) (int, bool) {
	for _, p := range agePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		age, err := strconv.Atoi(m[1])
		if err != nil || age < 16 || age > 100 {
			continue
		}
		return age, true
	}
	return 0, false
}
