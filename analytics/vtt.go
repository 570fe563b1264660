// Package analytics computes deterministic call metrics from a transcript and
// its WebVTT caption file. No model calls are involved.
package analytics

import (
	"regexp"
	"strings"

	"github.com/asticode/go-astisub"
)

// Segment is one caption cue
type Segment struct {
	Start float64 // seconds
	End   float64
	Text  string
}

// Duration returns the cue length in seconds
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

var speakerRe = regexp.MustCompile(`^([^:]{2,50}):\s*(.*)$`)

// ParseVTT returns the cues of a WebVTT document in file order. Multi-line
// cue text is joined with spaces. A <v Name> voice tag becomes a "Name: "
// prefix so voice-tagged and labelled captions tally the same way.
// Unparseable documents yield nil.
func ParseVTT(content string) []Segment {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if !strings.HasPrefix(strings.TrimPrefix(content, "\ufeff"), "WEBVTT") {
		content = "WEBVTT\n\n" + content
	}

	subs, err := astisub.ReadFromWebVTT(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var segments []Segment
	for _, item := range subs.Items {
		var text []string
		for _, line := range item.Lines {
			s := strings.TrimSpace(line.String())
			if s == "" {
				continue
			}
			if line.VoiceName != "" && len(text) == 0 {
				s = line.VoiceName + ": " + s
			}
			text = append(text, s)
		}
		if len(text) == 0 {
			continue
		}
		segments = append(segments, Segment{
			Start: item.StartAt.Seconds(),
			End:   item.EndAt.Seconds(),
			Text:  strings.Join(text, " "),
		})
	}
	return segments
}

// SplitSpeaker separates a "Name: text" cue. ok is false when there is no prefix.
func SplitSpeaker(text string) (speaker, rest string, ok bool) {
	m := speakerRe.FindStringSubmatch(text)
	if m == nil {
		return "", text, false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}
