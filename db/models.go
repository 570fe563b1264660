package db

import "time"

// CaseCheckStatus is the processing state of a case check
type CaseCheckStatus string

const (
	CaseCheckQueued     CaseCheckStatus = "queued"
	CaseCheckInProgress CaseCheckStatus = "in-progress"
	CaseCheckCompleted  CaseCheckStatus = "completed"
	CaseCheckFailed     CaseCheckStatus = "failed"
)

// ReviewStatus is the human review state of a single check result
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewConfirmed  ReviewStatus = "confirmed"
	ReviewOverridden ReviewStatus = "overridden"
)

// CaseCheck is one transcript submitted for assessment
type CaseCheck struct {
	ID                      string          `json:"id"`
	MeetingID               string          `json:"meetingId"`
	Status                  CaseCheckStatus `json:"status"`
	Attempts                int             `json:"attempts"`
	Error                   *string         `json:"error,omitempty"`
	Transcript              string          `json:"-"`
	VTT                     *string         `json:"-"`
	CoachName               *string         `json:"coachName,omitempty"`
	Facts                   *string         `json:"facts,omitempty"` // JSON object
	Checklist               string          `json:"checklist"`
	ChecklistVersion        *string         `json:"checklistVersion,omitempty"`
	Outcome                 *string         `json:"outcome,omitempty"`
	PassRate                *float64        `json:"passRate,omitempty"`
	HasHighSeverityFailures bool            `json:"hasHighSeverityFailures"`
	NeedsEscalation         bool            `json:"needsEscalation"`
	Result                  *string         `json:"-"` // JSON report
	ArchiveKey              *string         `json:"archiveKey,omitempty"`
	CreatedAt               int64           `json:"createdAt"`
	UpdatedAt               int64           `json:"updatedAt"`
	CompletedAt             *int64          `json:"completedAt,omitempty"`
}

// NewCaseCheck holds the fields for submitting a case check
type NewCaseCheck struct {
	MeetingID        string
	Transcript       string
	VTT              string
	CoachName        string
	Facts            string
	Checklist        string
	ChecklistVersion string
}

// CheckResultRow is the stored verdict for one check of a case check
type CheckResultRow struct {
	CaseCheckID   string       `json:"caseCheckId"`
	CheckID       string       `json:"checkId"`
	Position      int          `json:"position"`
	Label         string       `json:"label"`
	Severity      string       `json:"severity"`
	Theme         string       `json:"theme"`
	Status        string       `json:"status"`
	Confidence    float64      `json:"confidence"`
	EvidenceQuote *string      `json:"evidenceQuote,omitempty"`
	Comment       *string      `json:"comment,omitempty"`
	ReviewStatus  ReviewStatus `json:"reviewStatus"`
	Reviewer      *string      `json:"reviewer,omitempty"`
	ReviewNote    *string      `json:"reviewNote,omitempty"`
	ReviewedAt    *int64       `json:"reviewedAt,omitempty"`
}

// CallAnalytics are the talk-time metrics stored with a completed case check
type CallAnalytics struct {
	CaseCheckID           string  `json:"caseCheckId"`
	TotalDurationMin      float64 `json:"totalDurationMin"`
	CoachSpeakingTimeMin  float64 `json:"coachSpeakingTimeMin"`
	ClientSpeakingTimeMin float64 `json:"clientSpeakingTimeMin"`
	CoachSpeakingPct      float64 `json:"coachSpeakingPct"`
	ClientSpeakingPct     float64 `json:"clientSpeakingPct"`
	CoachWPM              float64 `json:"coachWpm"`
	CoachTurns            int     `json:"coachTurns"`
	ClientTurns           int     `json:"clientTurns"`
	AvgWordsPerTurn       float64 `json:"avgWordsPerTurn"`
	Timed                 bool    `json:"timed"`
}

// Completion is everything written when a case check finishes successfully
type Completion struct {
	Outcome                 string
	PassRate                float64
	HasHighSeverityFailures bool
	NeedsEscalation         bool
	Result                  string
	Checks                  []CheckResultRow
	Analytics               *CallAnalytics
}

// Review is a human verdict on one check result
type Review struct {
	Status   string // overriding status, empty to confirm the model's verdict
	Reviewer string
	Note     string
}

// ListOptions filters case check listings
type ListOptions struct {
	Status CaseCheckStatus
	Limit  int
	Offset int
}

// Helper functions

// NowUTC returns the current time in UTC
func NowUTC() time.Time {
	return time.Now().UTC()
}

// NowMs returns the current time as Unix milliseconds
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// StringPtr returns a pointer to the string, nil when empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Float64Ptr returns a pointer to a float64
func Float64Ptr(f float64) *float64 {
	return &f
}

