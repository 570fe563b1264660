package casecheck

import (
	"context"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/analytics"
	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/events"
	"github.com/Octopus-Moneycoach/coaching-ai/vendors"
)

// Assessor scores one transcript. *assessment.Pipeline implements it.
type Assessor interface {
	Assess(ctx context.Context, req assessment.Request) (*assessment.Report, error)
}

// Archiver stores the finished case check document and returns its key
type Archiver interface {
	Archive(ctx context.Context, meetingID string, at time.Time, doc any) (string, error)
}

// Indexer makes merged check results searchable
type Indexer interface {
	IndexChecks(docs []vendors.CheckDocument) error
}

// Publisher emits completion and escalation events
type Publisher interface {
	PublishCompleted(ctx context.Context, event events.CaseCheckEvent) error
	PublishEscalation(ctx context.Context, event events.CaseCheckEvent) error
}

// Document is the archived and stored form of a finished case check
type Document struct {
	SchemaVersion    string                 `json:"schemaVersion"`
	CaseCheckID      string                 `json:"caseCheckId"`
	MeetingID        string                 `json:"meetingId"`
	Checklist        string                 `json:"checklist"`
	ChecklistVersion string                 `json:"checklistVersion,omitempty"`
	Report           *assessment.Report     `json:"report"`
	Analytics        *analytics.CallMetrics `json:"analytics,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}
