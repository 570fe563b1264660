package analytics

import "testing"

const sampleVTT = `WEBVTT

1
00:00:00.000 --> 00:00:10.000
Jane Coach: Hello and welcome, this call is recorded.

2
00:00:10.000 --> 00:00:40.000
Sam Client: Thanks. I want to sort out my credit card
and start saving properly.

3
00:00:40.000 --> 00:01:00.000
Jane Coach: Great, let us start with your budget.

4
00:01:00.000 --> 00:02:00.000
mumbled audio
`

func TestParseVTT(t *testing.T) {
	segments := ParseVTT(sampleVTT)
	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}
	if segments[1].Text != "Sam Client: Thanks. I want to sort out my credit card and start saving properly." {
		t.Errorf("expected joined multi-line text, got %q", segments[1].Text)
	}
	if segments[3].End != 120 {
		t.Errorf("expected end 120, got %v", segments[3].End)
	}
	if ParseVTT("") != nil {
		t.Error("expected nil for empty content")
	}
}

func TestParseVTTCueSettingsAndVoiceTags(t *testing.T) {
	content := `WEBVTT

00:00:00.000 --> 00:00:10.000 align:start position:10%
<v Jane Coach>Hello and welcome.

00:00:10.000 --> 00:00:25.500 line:0
<v Sam Client>Thanks for having me.
`
	segments := ParseVTT(content)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].End != 10 {
		t.Errorf("expected cue settings to be ignored, got end %v", segments[0].End)
	}
	if segments[1].Duration() != 15.5 {
		t.Errorf("expected duration 15.5, got %v", segments[1].Duration())
	}
	speaker, rest, ok := SplitSpeaker(segments[0].Text)
	if !ok || speaker != "Jane Coach" || rest != "Hello and welcome." {
		t.Errorf("expected voice tag as speaker, got %q / %q / %v", speaker, rest, ok)
	}
}

func TestParseVTTWithoutHeader(t *testing.T) {
	segments := ParseVTT("00:00:01.000 --> 00:00:03.000\nJane Coach: Hi\n")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Start != 1 || segments[0].End != 3 {
		t.Errorf("expected 1s to 3s, got %v to %v", segments[0].Start, segments[0].End)
	}
}

func TestSplitSpeaker(t *testing.T) {
	speaker, rest, ok := SplitSpeaker("Jane Coach: Hello there")
	if !ok || speaker != "Jane Coach" || rest != "Hello there" {
		t.Errorf("unexpected split %q / %q / %v", speaker, rest, ok)
	}
	if _, _, ok := SplitSpeaker("no prefix here"); ok {
		t.Error("expected no speaker")
	}
}

func TestExtractTimed(t *testing.T) {
	m := Extract("", sampleVTT, "jane")

	if !m.Timed {
		t.Fatal("expected timed metrics")
	}
	if m.TotalDurationMin != 2.0 {
		t.Errorf("expected 2.0 minutes, got %v", m.TotalDurationMin)
	}
	// coach 10s + 20s, client 30s + 60s unattributed
	if m.CoachSpeakingTimeMin != 0.5 || m.ClientSpeakingTimeMin != 1.5 {
		t.Errorf("expected 0.5/1.5 minutes, got %v/%v", m.CoachSpeakingTimeMin, m.ClientSpeakingTimeMin)
	}
	if m.CoachSpeakingPct != 25 || m.ClientSpeakingPct != 75 {
		t.Errorf("expected 25/75 percent, got %v/%v", m.CoachSpeakingPct, m.ClientSpeakingPct)
	}
	// 14 coach words over half a minute
	if m.CoachWPM != 28 {
		t.Errorf("expected 28 wpm, got %v", m.CoachWPM)
	}
	if m.CoachTurns != 2 || m.ClientTurns != 2 {
		t.Errorf("expected 2/2 turns, got %d/%d", m.CoachTurns, m.ClientTurns)
	}
}

func TestExtractFromLabels(t *testing.T) {
	transcript := "COACH: one two three four\nCLIENT: five six six seven eight nine ten eleven twelve thirteen fourteen fifteen\n\nCOACH: a b c d\nnoise without label\n"

	m := Extract(transcript, "", "")
	if m.Timed {
		t.Error("expected estimated metrics")
	}
	if m.CoachSpeakingPct != 40 || m.ClientSpeakingPct != 60 {
		t.Errorf("expected 40/60 percent, got %v/%v", m.CoachSpeakingPct, m.ClientSpeakingPct)
	}
	if m.TotalDurationMin != 0 || m.CoachWPM != 0 {
		t.Errorf("expected no timing without captions, got %+v", m)
	}
	if m.CoachTurns != 2 || m.ClientTurns != 1 {
		t.Errorf("expected 2/1 turns, got %d/%d", m.CoachTurns, m.ClientTurns)
	}
	if m.AvgWordsPerTurn != 6.7 {
		t.Errorf("expected 6.7 words per turn, got %v", m.AvgWordsPerTurn)
	}
}

func TestExtractCaptionsWithoutCoachName(t *testing.T) {
	m := Extract("COACH: one two\nCLIENT: three four five six seven eight", sampleVTT, "")
	if m.Timed {
		t.Error("expected word-count estimate without a coach name")
	}
	if m.TotalDurationMin != 2.0 {
		t.Errorf("expected 2.0 minutes, got %v", m.TotalDurationMin)
	}
	if m.CoachSpeakingTimeMin != 0.5 || m.ClientSpeakingTimeMin != 1.5 {
		t.Errorf("expected 0.5/1.5 minutes, got %v/%v", m.CoachSpeakingTimeMin, m.ClientSpeakingTimeMin)
	}
	if m.CoachWPM != 4 {
		t.Errorf("expected 4 wpm, got %v", m.CoachWPM)
	}
}
