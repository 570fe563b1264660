package assessment

import (
	"encoding/json"
	"fmt"
	"unicode"
)

// ChunkConfig controls how transcripts are windowed. All sizes are in characters (runes).
type ChunkConfig struct {
	Size     int `json:"chunk_size"`
	Overlap  int `json:"chunk_overlap"`
	Lookback int `json:"boundary_lookback"`
}

// DefaultChunkConfig returns 20,000 character windows overlapping by 2,000,
// with sentence boundaries searched up to 200 characters back
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:     20000,
		Overlap:  2000,
		Lookback: 200,
	}
}

// Overlay decodes a partial JSON config on top of c. Fields missing from data
// keep the values of c, so {"chunk_size":..,"chunk_overlap":..} retains the
// boundary lookback.
func (c ChunkConfig) Overlay(data []byte) (ChunkConfig, error) {
	if len(data) == 0 {
		return c, nil
	}
	out := c
	if err := json.Unmarshal(data, &out); err != nil {
		return c, &ConfigurationError{Field: "config", Reason: err.Error()}
	}
	return out, nil
}

// Validate rejects parameters the chunker cannot make progress with
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return &ConfigurationError{Field: "chunk_size", Reason: fmt.Sprintf("must be positive, got %d", c.Size)}
	}
	if c.Overlap < 0 {
		return &ConfigurationError{Field: "chunk_overlap", Reason: fmt.Sprintf("must not be negative, got %d", c.Overlap)}
	}
	if c.Overlap >= c.Size {
		return &ConfigurationError{
			Field:  "chunk_overlap",
			Reason: fmt.Sprintf("must be smaller than chunk_size (%d >= %d)", c.Overlap, c.Size),
		}
	}
	if c.Lookback < 0 {
		return &ConfigurationError{Field: "boundary_lookback", Reason: fmt.Sprintf("must not be negative, got %d", c.Lookback)}
	}
	return nil
}

// Chunker splits transcripts into overlapping, sentence-aligned windows
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker validates cfg and returns a chunker
func NewChunker(cfg ChunkConfig) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the chunker's configuration
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// Split returns a non-empty, ordered list of chunks.
//
// Text no longer than Size is a single chunk. Otherwise each window starts
// Overlap characters before the previous end. A window's end moves back to
// just after the nearest '.', '!' or '?' followed by whitespace within
// Lookback characters, but never to or before start+Overlap, so every
// window advances. Without a terminator the naive end is kept.
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)

	if n <= c.cfg.Size {
		return []Chunk{{Index: 0, Start: 0, End: n, Text: text}}
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.cfg.Size
		last := end >= n
		if last {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if last {
			return chunks
		}
		start = end - c.cfg.Overlap
	}
}

// boundary returns the rune offset just after the sentence terminator closest
// to naiveEnd, or naiveEnd when none lies in the lookback window
func (c *Chunker) boundary(runes []rune, start, naiveEnd int) int {
	lo := naiveEnd - c.cfg.Lookback
	if floor := start + c.cfg.Overlap + 1; lo < floor {
		lo = floor
	}

	for end := naiveEnd; end >= lo; end-- {
		if end < 1 || end >= len(runes) {
			continue
		}
		if isTerminator(runes[end-1]) && unicode.IsSpace(runes[end]) {
			return end
		}
	}
	return naiveEnd
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
