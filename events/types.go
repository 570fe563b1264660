package events

import (
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
)

// CaseCheckEvent is the payload of completed and escalation events
type CaseCheckEvent struct {
	MeetingID         string                  `json:"meetingId"`
	CaseCheckID       string                  `json:"caseCheckId"`
	Checklist         string                  `json:"checklist"`
	ChecklistVersion  string                  `json:"checklistVersion"`
	Outcome           string                  `json:"outcome"`
	PassRate          float64                 `json:"passRate"`
	FailedIDs         []string                `json:"failedIds"`
	HighSeverityFlags []string                `json:"highSeverityFlags"`
	Escalations       []assessment.Escalation `json:"escalations"`
	ArchiveKey        string                  `json:"archiveKey,omitempty"`
	CompletedAt       time.Time               `json:"completedAt"`
}

// NewCaseCheckEvent builds the event for a finished report
func NewCaseCheckEvent(meetingID, caseCheckID string, report *assessment.Report, at time.Time) CaseCheckEvent {
	return CaseCheckEvent{
		MeetingID:         meetingID,
		CaseCheckID:       caseCheckID,
		Outcome:           report.Triage.Outcome,
		PassRate:          report.Overall.PassRate,
		FailedIDs:         report.Overall.FailedIDs,
		HighSeverityFlags: report.Overall.HighSeverityFlags,
		Escalations:       report.Triage.Escalations,
		CompletedAt:       at.UTC(),
	}
}
