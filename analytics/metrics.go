package analytics

import (
	"math"
	"regexp"
	"strings"
)

// CallMetrics summarizes who spoke and for how long
type CallMetrics struct {
	TotalDurationMin      float64 `json:"total_duration_min"`
	CoachSpeakingTimeMin  float64 `json:"coach_speaking_time_min"`
	ClientSpeakingTimeMin float64 `json:"client_speaking_time_min"`
	CoachSpeakingPct      float64 `json:"coach_speaking_pct"`
	ClientSpeakingPct     float64 `json:"client_speaking_pct"`
	CoachWPM              float64 `json:"coach_wpm"`
	CoachTurns            int     `json:"coach_turns"`
	ClientTurns           int     `json:"client_turns"`
	AvgWordsPerTurn       float64 `json:"avg_words_per_turn"`

	// Timed is true when speaking time came from caption timestamps rather
	// than word-count estimates
	Timed bool `json:"timed"`
}

var labelledLineRe = regexp.MustCompile(`^(COACH|CLIENT):\s*(.*)$`)

type tally struct {
	coachSeconds, clientSeconds float64
	coachWords, clientWords     int
	coachTurns, clientTurns     int
}

// Extract computes call metrics. With a caption file and the coach's name,
// speaking time comes from cue timestamps and the coach is matched by name.
// Otherwise time is estimated from word counts on COACH:/CLIENT: lines,
// scaled to the caption duration when captions exist.
func Extract(transcript, vtt, coachName string) CallMetrics {
	segments := ParseVTT(vtt)
	var totalSeconds float64
	if len(segments) > 0 {
		totalSeconds = segments[len(segments)-1].End
	}
	totalMin := totalSeconds / 60

	var m CallMetrics
	m.TotalDurationMin = round1(totalMin)

	var t tally
	if len(segments) > 0 && strings.TrimSpace(coachName) != "" {
		t = tallySegments(segments, coachName)
		m.Timed = true

		coachMin, clientMin := t.coachSeconds/60, t.clientSeconds/60
		m.CoachSpeakingTimeMin = round1(coachMin)
		m.ClientSpeakingTimeMin = round1(clientMin)
		m.CoachSpeakingPct, m.ClientSpeakingPct = shares(t.coachSeconds, t.clientSeconds)
		if coachMin > 0 {
			m.CoachWPM = round1(float64(t.coachWords) / coachMin)
		}
	} else {
		t = tallyLines(transcript)

		totalWords := t.coachWords + t.clientWords
		m.CoachSpeakingPct, m.ClientSpeakingPct = shares(float64(t.coachWords), float64(t.clientWords))
		if totalWords > 0 {
			coachMin := round1(float64(t.coachWords) / float64(totalWords) * totalMin)
			m.CoachSpeakingTimeMin = coachMin
			m.ClientSpeakingTimeMin = round1(float64(t.clientWords) / float64(totalWords) * totalMin)
			if coachMin > 0 {
				m.CoachWPM = round1(float64(t.coachWords) / coachMin)
			}
		}
	}

	m.CoachTurns, m.ClientTurns = t.coachTurns, t.clientTurns
	if turns := t.coachTurns + t.clientTurns; turns > 0 {
		m.AvgWordsPerTurn = round1(float64(t.coachWords+t.clientWords) / float64(turns))
	}
	return m
}

// tallySegments attributes cues to the coach when the speaker name and
// coachName contain one another. Unattributed cues count for the client.
func tallySegments(segments []Segment, coachName string) tally {
	coach := strings.ToLower(strings.TrimSpace(coachName))
	var t tally
	for _, s := range segments {
		speaker, text, ok := SplitSpeaker(s.Text)
		words := len(strings.Fields(text))
		speaker = strings.ToLower(speaker)

		if ok && (strings.Contains(speaker, coach) || strings.Contains(coach, speaker)) {
			t.coachSeconds += s.Duration()
			t.coachWords += words
			t.coachTurns++
			continue
		}
		t.clientSeconds += s.Duration()
		t.clientWords += words
		t.clientTurns++
	}
	return t
}

func tallyLines(transcript string) tally {
	var t tally
	for _, line := range strings.Split(transcript, "\n") {
		m := labelledLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		words := len(strings.Fields(m[2]))
		if m[1] == "COACH" {
			t.coachWords += words
			t.coachTurns++
		} else {
			t.clientWords += words
			t.clientTurns++
		}
	}
	return t
}

// shares returns each side's percentage of the total, rounded to one decimal
func shares(coach, client float64) (float64, float64) {
	total := coach + client
	if total <= 0 {
		return 0, 0
	}
	return round1(coach / total * 100), round1(client / total * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
