package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError
	ErrConfiguration = errors.New("configuration error")
	// ErrMalformedOutput is matched by every *MalformedOutputError
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrIncompleteCoverage is matched by every CoverageGap
	ErrIncompleteCoverage = errors.New("incomplete coverage")
)

// ConfigurationError reports invalid parameters. It is never worth retrying.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// MalformedOutputError reports model output that could not be repaired.
// Chunk is the index of the chunk whose reply failed; the pipeline fills it in.
type MalformedOutputError struct {
	Chunk  int
	Passes int
	Cause  error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output after %d repair passes: %v", e.Passes, e.Cause)
}

func (e *MalformedOutputError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrMalformedOutput}
	}
	return []error{ErrMalformedOutput, e.Cause}
}

// CoverageGap records a check that no chunk returned
type CoverageGap struct {
	CheckID string `json:"check_id"`
}

func (g CoverageGap) Error() string {
	return fmt.Sprintf("incomplete coverage: no chunk returned check %q", g.CheckID)
}

func (g CoverageGap) Unwrap() error {
	return ErrIncompleteCoverage
}

// ChunkError wraps the terminal failure of one chunk
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
