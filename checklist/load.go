package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed starter_session.yaml
var starterSessionYAML []byte

var (
	starterSession     *Checklist
	starterSessionOnce sync.Once
)

// File is the on-disk checklist format (YAML, or JSON which YAML accepts)
type File struct {
	Name    string            `yaml:"name" json:"name"`
	Version string            `yaml:"version" json:"version"`
	Checks  []CheckDefinition `yaml:"checks" json:"checks"`
}

// Parse decodes a checklist from YAML or JSON
func Parse(data []byte) (*Checklist, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse checklist: %w", err)
	}

	c, err := New(f.Name, f.Checks)
	if err != nil {
		return nil, err
	}
	c.Version = f.Version
	return c, nil
}

// LoadFile reads a checklist file from disk
func LoadFile(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist %s: %w", path, err)
	}
	return Parse(data)
}

// StarterSession returns the built-in starter-session checklist
func StarterSession() *Checklist {
	starterSessionOnce.Do(func() {
		c, err := Parse(starterSessionYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded starter session checklist is invalid: %v", err))
		}
		starterSession = c
	})
	return starterSession
}

// Load returns the checklist at path, or the starter session when path is empty
func Load(path string) (*Checklist, error) {
	if path == "" {
		return StarterSession(), nil
	}
	return LoadFile(path)
}
