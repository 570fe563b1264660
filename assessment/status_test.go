package assessment

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
		ok       bool
	}{
		{"Competent", StatusCompetent, true},
		{"competent", StatusCompetent, true},
		{" FAIL ", StatusFail, true},
		{"Competent With Development", StatusCompetentWithDevelopment, true},
		{"competent-with-development", StatusCompetentWithDevelopment, true},
		{"not_applicable", StatusNotApplicable, true},
		{"inconclusive", StatusInconclusive, true},
		{"Pass", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseStatus(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.expected, tt.ok, got, ok)
			}
		})
	}
}

func TestStatusRank(t *testing.T) {
	for i := 1; i < len(Statuses); i++ {
		if Statuses[i-1].Rank() <= Statuses[i].Rank() {
			t.Errorf("expected %s to outrank %s", Statuses[i-1], Statuses[i])
		}
	}
	if Status("Pass").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}
