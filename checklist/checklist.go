// Package checklist holds the check definitions a transcript is scored against.
// A Checklist is immutable after construction and safe to share between requests.
package checklist

import (
	"fmt"
	"strings"
)

// Category groups checks into regulatory compliance and coaching-quality (macro) checks
type Category string

const (
	CategoryCompliance Category = "Compliance"
	CategoryMacro      Category = "Macro"
)

// Severity of a check failure
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Theme is the reporting bucket a failed check is grouped under
type Theme string

const (
	ThemeBusinessRisk       Theme = "businessRisk"
	ThemeCustomerExperience Theme = "customerExperience"
)

// CheckDefinition describes a single criterion
type CheckDefinition struct {
	ID            string     `json:"id" yaml:"id"`
	Category      Category   `json:"category" yaml:"category"`
	Severity      Severity   `json:"severity" yaml:"severity"`
	Theme         Theme      `json:"theme,omitempty" yaml:"theme"`
	Required      bool       `json:"required" yaml:"required"`
	Prompt        string     `json:"prompt,omitempty" yaml:"prompt"`
	Applicability *Predicate `json:"applicability,omitempty" yaml:"applicability"`

	// EscalateOn lists result statuses that trigger a detailed follow-up review
	EscalateOn []string `json:"escalate_on,omitempty" yaml:"escalate_on"`
}

// Label returns the human-readable question, the prompt up to its first '?'
func (d CheckDefinition) Label() string {
	if i := strings.Index(d.Prompt, "?"); i >= 0 {
		return d.Prompt[:i+1]
	}
	if d.Prompt != "" {
		return d.Prompt
	}
	return d.ID
}

// Applicable reports whether the check applies given the known facts.
// A check without a predicate, or whose fact is unknown, is applicable.
func (d CheckDefinition) Applicable(facts Facts) bool {
	if d.Applicability == nil {
		return true
	}
	applies, known := d.Applicability.Evaluate(facts)
	if !known {
		return true
	}
	return applies
}

// EscalatesOn reports whether a result status triggers escalation
func (d CheckDefinition) EscalatesOn(status string) bool {
	for _, s := range d.EscalateOn {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

// Checklist is an ordered, validated set of check definitions
type Checklist struct {
	Name    string
	Version string

	checks []CheckDefinition
	index  map[string]int
}

// New validates the definitions and builds a checklist.
// Severity, category and theme are normalized; category and theme derive from each other when one is missing.
func New(name string, checks []CheckDefinition) (*Checklist, error) {
	if len(checks) == 0 {
		return nil, fmt.Errorf("checklist %q has no checks", name)
	}

	c := &Checklist{
		Name:   name,
		checks: make([]CheckDefinition, 0, len(checks)),
		index:  make(map[string]int, len(checks)),
	}

	for i, def := range checks {
		def.ID = strings.TrimSpace(def.ID)
		if def.ID == "" {
			return nil, fmt.Errorf("check %d: missing id", i)
		}
		if _, dup := c.index[def.ID]; dup {
			return nil, fmt.Errorf("check %q: duplicate id", def.ID)
		}

		sev, err := parseSeverity(def.Severity)
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", def.ID, err)
		}
		def.Severity = sev

		if err := normalizeGrouping(&def); err != nil {
			return nil, fmt.Errorf("check %q: %w", def.ID, err)
		}

		if def.Applicability != nil {
			if err := def.Applicability.validate(); err != nil {
				return nil, fmt.Errorf("check %q: %w", def.ID, err)
			}
		}

		def.EscalateOn = append([]string(nil), def.EscalateOn...)

		c.index[def.ID] = len(c.checks)
		c.checks = append(c.checks, def)
	}

	return c, nil
}

// Checks returns the definitions in checklist order. Callers must not modify the slice.
func (c *Checklist) Checks() []CheckDefinition {
	return c.checks
}

// Len returns the number of checks
func (c *Checklist) Len() int {
	return len(c.checks)
}

// Get looks up a definition by id
func (c *Checklist) Get(id string) (CheckDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return CheckDefinition{}, false
	}
	return c.checks[i], true
}

// Position returns the checklist index of an id, or -1
func (c *Checklist) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// IDs returns the check ids in checklist order
func (c *Checklist) IDs() []string {
	ids := make([]string, len(c.checks))
	for i, def := range c.checks {
		ids[i] = def.ID
	}
	return ids
}

func parseSeverity(s Severity) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "high":
		return SeverityHigh, nil
	case "medium", "":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

func normalizeGrouping(def *CheckDefinition) error {
	switch strings.ToLower(strings.TrimSpace(string(def.Category))) {
	case "compliance":
		def.Category = CategoryCompliance
	case "macro":
		def.Category = CategoryMacro
	case "":
		def.Category = ""
	default:
		return fmt.Errorf("unknown category %q", def.Category)
	}

	switch strings.ToLower(strings.TrimSpace(string(def.Theme))) {
	case "businessrisk":
		def.Theme = ThemeBusinessRisk
	case "customerexperience":
		def.Theme = ThemeCustomerExperience
	case "":
		def.Theme = ""
	default:
		return fmt.Errorf("unknown theme %q", def.Theme)
	}

	switch {
	case def.Category == "" && def.Theme == ThemeCustomerExperience:
		def.Category = CategoryMacro
	case def.Category == "":
		def.Category = CategoryCompliance
	}
	if def.Theme == "" {
		if def.Category == CategoryMacro {
			def.Theme = ThemeCustomerExperience
		} else {
			def.Theme = ThemeBusinessRisk
		}
	}
	return nil
}
