package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
	"golang.org/x/sync/errgroup"
)

// Completer sends a prompt to a language model and returns its raw reply
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ExampleSource supplies reviewed reference verdicts per check
type ExampleSource interface {
	Examples(ctx context.Context, checkIDs []string) (map[string][]Example, error)
}

// Observer receives per-chunk measurements. Implementations must be safe for concurrent use.
type Observer interface {
	ChunkCompleted(index int, elapsed time.Duration, err error)
	ChunkValidated(index int, repairs RepairLog)
}

type noopObserver struct{}

func (noopObserver) ChunkCompleted(int, time.Duration, error) {}
func (noopObserver) ChunkValidated(int, RepairLog)            {}

// Config holds pipeline settings
type Config struct {
	Chunking       ChunkConfig
	Validation     ValidatorConfig
	MaxConcurrency int
}

// DefaultConfig returns the default chunking and validation settings with up to 4 parallel calls
func DefaultConfig() Config {
	return Config{
		Chunking:       DefaultChunkConfig(),
		Validation:     DefaultValidatorConfig(),
		MaxConcurrency: 4,
	}
}

// Pipeline chunks a transcript, scores each chunk and merges the verdicts.
// It holds no per-request state and may serve concurrent requests.
type Pipeline struct {
	completer Completer
	examples  ExampleSource
	observer  Observer
	cfg       Config
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithExamples attaches reference examples to every chunk prompt
func WithExamples(src ExampleSource) Option {
	return func(p *Pipeline) { p.examples = src }
}

// WithObserver reports per-chunk timings and repairs to o
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// NewPipeline validates cfg and returns a pipeline calling completer for each chunk
func NewPipeline(completer Completer, cfg Config, opts ...Option) (*Pipeline, error) {
	if completer == nil {
		return nil, &ConfigurationError{Field: "completer", Reason: "is required"}
	}
	if err := cfg.Chunking.Validate(); err != nil {
		return nil, err
	}
	if cfg.Validation.RepairPasses < 0 || cfg.Validation.RepairPasses > maxRepairPasses {
		return nil, &ConfigurationError{
			Field:  "repair_passes",
			Reason: fmt.Sprintf("must be between 0 and %d, got %d", maxRepairPasses, cfg.Validation.RepairPasses),
		}
	}
	if cfg.MaxConcurrency <= 0 {
		return nil, &ConfigurationError{Field: "max_concurrency", Reason: fmt.Sprintf("must be positive, got %d", cfg.MaxConcurrency)}
	}

	p := &Pipeline{completer: completer, observer: noopObserver{}, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline's configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// ChunkSummary describes one processed chunk
type ChunkSummary struct {
	Index   int       `json:"index"`
	Start   int       `json:"start"`
	End     int       `json:"end"`
	Repairs RepairLog `json:"repairs"`
}

// Report is the outcome of one request: the merged assessment plus metadata
type Report struct {
	MergedAssessment
	Triage TriageSummary   `json:"triage"`
	Chunks []ChunkSummary  `json:"chunks"`
	Gaps   []CoverageGap   `json:"coverage_gaps,omitempty"`
	Facts  checklist.Facts `json:"facts,omitempty"`

	// ExamplesErr is set when reference examples could not be fetched; the
	// assessment ran without them
	ExamplesErr error `json:"-"`
}

// RepairCounts totals repairs across all chunks
func (r *Report) RepairCounts() map[RepairKind]int {
	counts := make(map[RepairKind]int)
	for _, c := range r.Chunks {
		for kind, n := range c.Repairs.Counts() {
			counts[kind] += n
		}
	}
	return counts
}

// Assess runs the full pipeline for one transcript. Chunks are scored in
// parallel, bounded by MaxConcurrency; merging starts only once every chunk
// has finished. Any chunk failure fails the request and no partial result is
// returned. Retrying is left to the caller.
func (p *Pipeline) Assess(ctx context.Context, req Request) (*Report, error) {
	if req.Checklist == nil {
		return nil, &ConfigurationError{Field: "checklist", Reason: "is required"}
	}

	chunkCfg := p.cfg.Chunking
	if req.Chunking != nil {
		chunkCfg = *req.Chunking
	}
	chunker, err := NewChunker(chunkCfg)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(req.Checklist, p.cfg.Validation)
	if err != nil {
		return nil, err
	}

	cl := req.Checklist
	facts := checklist.ExtractFacts(req.Transcript).Merge(req.Facts)
	chunks := chunker.Split(req.Transcript)
	report := &Report{Facts: facts}

	var examples map[string][]Example
	if p.examples != nil {
		examples, err = p.examples.Examples(ctx, cl.IDs())
		if err != nil {
			report.ExamplesErr = err
			examples = nil
		}
	}

	results := make([]ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(chunks), p.cfg.MaxConcurrency))

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ChunkError{Index: chunk.Index, Err: err}
			}

			prompt, err := BuildChunkPrompt(cl, chunk, len(chunks), examples)
			if err != nil {
				return &ChunkError{Index: chunk.Index, Err: err}
			}

			started := time.Now()
			raw, err := p.completer.Complete(gctx, prompt)
			if err != nil {
				p.observer.ChunkCompleted(chunk.Index, time.Since(started), err)
				return &ChunkError{Index: chunk.Index, Err: err}
			}

			v, err := validator.Validate(raw, facts)
			p.observer.ChunkCompleted(chunk.Index, time.Since(started), err)
			if err != nil {
				var malformed *MalformedOutputError
				if errors.As(err, &malformed) {
					malformed.Chunk = chunk.Index
				}
				return &ChunkError{Index: chunk.Index, Err: err}
			}
			p.observer.ChunkValidated(chunk.Index, v.Repairs)

			for j := range v.Results {
				v.Results[j].EvidenceSpans = LocateEvidence(chunk.Text, v.Results[j].EvidenceQuote, chunk.Start)
			}
			results[i] = ChunkResult{Chunk: chunk.Index, Results: v.Results, Repairs: v.Repairs}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(cl, results)
	report.Results = merged.Results
	report.Gaps = merged.Gaps
	report.Overall = Aggregate(cl, merged.Results)
	report.Triage = Triage(cl, merged.Results)

	report.Chunks = make([]ChunkSummary, len(chunks))
	for i, chunk := range chunks {
		report.Chunks[i] = ChunkSummary{
			Index:   chunk.Index,
			Start:   chunk.Start,
			End:     chunk.End,
			Repairs: results[i].Repairs,
		}
	}
	return report, nil
}
