// Package casecheck runs submitted transcripts through the assessment pipeline
// in the background and stores, archives, indexes and announces the results.
package casecheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/analytics"
	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
	"github.com/Octopus-Moneycoach/coaching-ai/db"
	"github.com/Octopus-Moneycoach/coaching-ai/events"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/Octopus-Moneycoach/coaching-ai/metrics"
	"github.com/Octopus-Moneycoach/coaching-ai/notifications"
	"github.com/Octopus-Moneycoach/coaching-ai/vendors"
)

var logger = log.GetLogger("CaseCheck")

// ErrBusy is returned when a forced reprocess targets a case check that is
// being assessed right now
var ErrBusy = errors.New("case check is being processed")

// Deps are the collaborators of a worker. Archiver, Indexer and Publisher
// are optional.
type Deps struct {
	DB        *db.DB
	Notif     *notifications.Service
	Assessor  Assessor
	Checklist *checklist.Checklist
	Archiver  Archiver
	Indexer   Indexer
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// Worker manages case-check processing
type Worker struct {
	cfg  Config
	deps Deps

	ctx        context.Context
	cancel     context.CancelFunc
	stopChan   chan struct{}
	wg         sync.WaitGroup
	queue      chan string
	processing sync.Map // Case check ids currently being assessed
}

// NewWorker creates a new case-check worker with dependencies
func NewWorker(cfg Config, deps Deps) *Worker {
	cfg.applyDefaults()
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg:      cfg,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
		queue:    make(chan string, cfg.QueueSize),
	}
}

// Start begins processing case checks
func (w *Worker) Start() {
	logger.Info().Int("workers", w.cfg.Workers).Msg("starting case-check worker")

	// Work interrupted by a previous shutdown goes back on the queue
	if n, err := w.deps.DB.RequeueInProgress(); err != nil {
		logger.Error().Err(err).Msg("failed to requeue in-progress case checks")
	} else if n > 0 {
		logger.Info().Int64("count", n).Msg("requeued interrupted case checks")
	}
	w.checkPending()

	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.processLoop(i)
	}

	w.wg.Add(1)
	go w.supervisorLoop()
}

// Stop stops the worker, cancelling assessments in flight
func (w *Worker) Stop() {
	close(w.stopChan)
	w.cancel()
	w.wg.Wait()
	logger.Info().Msg("case-check worker stopped")
}

// Submission is a transcript to assess
type Submission struct {
	MeetingID  string
	Transcript string
	VTT        string
	CoachName  string
	Facts      checklist.Facts

	// ForceReprocess discards an existing result for the same meeting
	ForceReprocess bool
}

// Submit records a case check and queues it. Submitting a meeting that
// already has a case check returns the existing one unless ForceReprocess is
// set. A forced reprocess of a case check under assessment returns it with
// ErrBusy. created reports whether new work was queued.
func (w *Worker) Submit(s Submission) (cc *db.CaseCheck, created bool, err error) {
	if s.MeetingID == "" {
		return nil, false, errors.New("meeting id is required")
	}
	if s.Transcript == "" {
		return nil, false, errors.New("transcript is required")
	}

	in := db.NewCaseCheck{
		MeetingID:        s.MeetingID,
		Transcript:       s.Transcript,
		VTT:              s.VTT,
		CoachName:        s.CoachName,
		Checklist:        w.deps.Checklist.Name,
		ChecklistVersion: w.deps.Checklist.Version,
	}
	if len(s.Facts) > 0 {
		data, err := json.Marshal(s.Facts)
		if err != nil {
			return nil, false, fmt.Errorf("invalid facts: %w", err)
		}
		in.Facts = string(data)
	}

	existing, err := w.deps.DB.GetCaseCheckByMeeting(s.MeetingID)
	if err != nil {
		return nil, false, err
	}

	switch {
	case existing == nil:
		cc, err = w.deps.DB.CreateCaseCheck(in)
	case s.ForceReprocess:
		if _, busy := w.processing.Load(existing.ID); busy {
			return existing, false, ErrBusy
		}
		cc, err = w.deps.DB.ResetCaseCheck(existing.ID, in)
	default:
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	w.enqueue(cc.ID)
	w.notify(cc.MeetingID, db.CaseCheckQueued, nil)
	logger.Info().Str("meetingId", cc.MeetingID).Str("id", cc.ID).Bool("force", s.ForceReprocess).Msg("case check queued")
	return cc, true, nil
}

func (w *Worker) enqueue(id string) {
	select {
	case w.queue <- id:
		w.deps.Metrics.QueueDepth.Set(float64(len(w.queue)))
	default:
		// Queue full, the supervisor picks it up later
		logger.Warn().Str("id", id).Msg("case-check queue full, deferring")
	}
}

// processLoop processes case checks from the queue
func (w *Worker) processLoop(id int) {
	defer w.wg.Done()

	for {
		select {
		case caseCheckID := <-w.queue:
			w.deps.Metrics.QueueDepth.Set(float64(len(w.queue)))
			w.process(caseCheckID)
		case <-w.stopChan:
			return
		}
	}
}

// supervisorLoop periodically re-enqueues queued and retryable case checks
func (w *Worker) supervisorLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.SupervisorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkPending()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) checkPending() {
	pending, err := w.deps.DB.ListRetryable(w.cfg.MaxAttempts)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list retryable case checks")
		return
	}
	for _, cc := range pending {
		if _, busy := w.processing.Load(cc.ID); busy {
			continue
		}
		w.enqueue(cc.ID)
	}
}

// process assesses one case check end to end
func (w *Worker) process(id string) {
	if _, loaded := w.processing.LoadOrStore(id, true); loaded {
		logger.Debug().Str("id", id).Msg("already processing, skipping")
		return
	}
	defer w.processing.Delete(id)

	cc, err := w.deps.DB.GetCaseCheck(id)
	if err != nil || cc == nil {
		logger.Error().Err(err).Str("id", id).Msg("case check not found")
		return
	}
	if !w.runnable(cc) {
		logger.Debug().Str("id", id).Str("status", string(cc.Status)).Msg("nothing to do, skipping")
		return
	}

	if err := w.deps.DB.MarkInProgress(id); err != nil {
		logger.Error().Err(err).Str("id", id).Msg("failed to mark in-progress")
		return
	}
	w.notify(cc.MeetingID, db.CaseCheckInProgress, map[string]any{"attempt": cc.Attempts + 1})

	started := time.Now()
	report, err := w.assess(cc)
	w.deps.Metrics.RecordCaseCheck(report, err, time.Since(started))
	if err != nil {
		w.fail(cc, err)
		return
	}

	if err := w.complete(cc, report); err != nil {
		w.fail(cc, err)
		return
	}

	logger.Info().
		Str("meetingId", cc.MeetingID).
		Str("outcome", report.Triage.Outcome).
		Float64("passRate", report.Overall.PassRate).
		Int("gaps", len(report.Gaps)).
		Dur("elapsed", time.Since(started)).
		Msg("case check completed")
}

func (w *Worker) runnable(cc *db.CaseCheck) bool {
	switch cc.Status {
	case db.CaseCheckQueued:
		return true
	case db.CaseCheckFailed:
		return cc.Attempts < w.cfg.MaxAttempts
	}
	return false
}

func (w *Worker) assess(cc *db.CaseCheck) (*assessment.Report, error) {
	req := assessment.Request{
		Transcript: cc.Transcript,
		Checklist:  w.deps.Checklist,
	}
	if cc.Facts != nil {
		if err := json.Unmarshal([]byte(*cc.Facts), &req.Facts); err != nil {
			return nil, fmt.Errorf("stored facts: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.Timeout)
	defer cancel()

	report, err := w.deps.Assessor.Assess(ctx, req)
	if err != nil {
		return nil, err
	}
	if report.ExamplesErr != nil {
		logger.Warn().Err(report.ExamplesErr).Str("meetingId", cc.MeetingID).Msg("assessed without reference examples")
	}
	for _, gap := range report.Gaps {
		logger.Warn().Err(gap).Str("meetingId", cc.MeetingID).Msg("coverage gap")
	}
	return report, nil
}

// complete persists the report and fans it out. Only the database write is
// fatal; archive, index and event failures are logged.
func (w *Worker) complete(cc *db.CaseCheck, report *assessment.Report) error {
	now := db.NowUTC()
	metricsOut := analytics.Extract(cc.Transcript, deref(cc.VTT), deref(cc.CoachName))

	doc := Document{
		SchemaVersion:    vendors.CaseCheckSchemaVersion,
		CaseCheckID:      cc.ID,
		MeetingID:        cc.MeetingID,
		Checklist:        cc.Checklist,
		ChecklistVersion: deref(cc.ChecklistVersion),
		Report:           report,
		Analytics:        &metricsOut,
		CreatedAt:        now,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	needsEscalation := report.Triage.NeedsEscalation(report.Overall)
	err = w.deps.DB.CompleteCaseCheck(cc.ID, db.Completion{
		Outcome:                 report.Triage.Outcome,
		PassRate:                report.Overall.PassRate,
		HasHighSeverityFailures: report.Overall.HasHighSeverityFailures,
		NeedsEscalation:         needsEscalation,
		Result:                  string(data),
		Checks:                  w.checkRows(report),
		Analytics:               analyticsRow(metricsOut),
	})
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	// Archive only after the result is committed
	archiveKey := w.archive(cc.MeetingID, now, doc)
	if archiveKey != "" {
		if err := w.deps.DB.SetArchiveKey(cc.ID, archiveKey); err != nil {
			logger.Warn().Err(err).Str("meetingId", cc.MeetingID).Str("key", archiveKey).Msg("failed to record archive key")
		}
	}

	w.index(cc.MeetingID, report, now)
	w.publish(cc, report, archiveKey, now, needsEscalation)
	w.notify(cc.MeetingID, db.CaseCheckCompleted, map[string]any{
		"outcome":         report.Triage.Outcome,
		"passRate":        report.Overall.PassRate,
		"needsEscalation": needsEscalation,
	})
	return nil
}

func (w *Worker) fail(cc *db.CaseCheck, err error) {
	logger.Error().Err(err).Str("meetingId", cc.MeetingID).Int("attempt", cc.Attempts+1).Msg("case check failed")

	if dbErr := w.deps.DB.FailCaseCheck(cc.ID, err.Error()); dbErr != nil {
		logger.Error().Err(dbErr).Str("id", cc.ID).Msg("failed to record failure")
	}
	w.notify(cc.MeetingID, db.CaseCheckFailed, map[string]any{"error": err.Error()})
}

func (w *Worker) archive(meetingID string, at time.Time, doc Document) string {
	if w.deps.Archiver == nil {
		return ""
	}
	key, err := w.deps.Archiver.Archive(w.ctx, meetingID, at, doc)
	if errors.Is(err, vendors.ErrDisabled) {
		return ""
	}
	if err != nil {
		logger.Warn().Err(err).Str("meetingId", meetingID).Msg("failed to archive case check")
		return ""
	}
	return key
}

func (w *Worker) index(meetingID string, report *assessment.Report, at time.Time) {
	if w.deps.Indexer == nil {
		return
	}
	docs := make([]vendors.CheckDocument, 0, len(report.Results))
	for _, r := range report.Results {
		def, _ := w.deps.Checklist.Get(r.ID)
		docs = append(docs, vendors.CheckDocument{
			DocumentID:    vendors.CheckDocumentID(meetingID, r.ID),
			MeetingID:     meetingID,
			CheckID:       r.ID,
			Label:         def.Label(),
			Status:        string(r.Status),
			Severity:      string(def.Severity),
			Theme:         string(def.Theme),
			Confidence:    r.Confidence,
			EvidenceQuote: r.EvidenceQuote,
			Comment:       r.Comment,
			CreatedAt:     at.UnixMilli(),
		})
	}
	if err := w.deps.Indexer.IndexChecks(docs); err != nil {
		logger.Warn().Err(err).Str("meetingId", meetingID).Msg("failed to index check results")
	}
}

func (w *Worker) publish(cc *db.CaseCheck, report *assessment.Report, archiveKey string, at time.Time, escalate bool) {
	if w.deps.Publisher == nil {
		return
	}
	event := events.NewCaseCheckEvent(cc.MeetingID, cc.ID, report, at)
	event.Checklist = cc.Checklist
	event.ChecklistVersion = deref(cc.ChecklistVersion)
	event.ArchiveKey = archiveKey

	if err := w.deps.Publisher.PublishCompleted(w.ctx, event); err != nil {
		logger.Warn().Err(err).Str("meetingId", cc.MeetingID).Msg("failed to publish completed event")
	}
	if !escalate {
		return
	}
	if err := w.deps.Publisher.PublishEscalation(w.ctx, event); err != nil {
		logger.Warn().Err(err).Str("meetingId", cc.MeetingID).Msg("failed to publish escalation event")
	}
}

func (w *Worker) notify(meetingID string, status db.CaseCheckStatus, data map[string]any) {
	if w.deps.Notif == nil {
		return
	}
	w.deps.Notif.NotifyCaseCheckUpdated(meetingID, string(status), data)
}

func (w *Worker) checkRows(report *assessment.Report) []db.CheckResultRow {
	rows := make([]db.CheckResultRow, 0, len(report.Results))
	for i, r := range report.Results {
		def, _ := w.deps.Checklist.Get(r.ID)
		rows = append(rows, db.CheckResultRow{
			CheckID:       r.ID,
			Position:      i,
			Label:         def.Label(),
			Severity:      string(def.Severity),
			Theme:         string(def.Theme),
			Status:        string(r.Status),
			Confidence:    r.Confidence,
			EvidenceQuote: db.StringPtr(r.EvidenceQuote),
			Comment:       db.StringPtr(r.Comment),
		})
	}
	return rows
}

func analyticsRow(m analytics.CallMetrics) *db.CallAnalytics {
	return &db.CallAnalytics{
		TotalDurationMin:      m.TotalDurationMin,
		CoachSpeakingTimeMin:  m.CoachSpeakingTimeMin,
		ClientSpeakingTimeMin: m.ClientSpeakingTimeMin,
		CoachSpeakingPct:      m.CoachSpeakingPct,
		ClientSpeakingPct:     m.ClientSpeakingPct,
		CoachWPM:              m.CoachWPM,
		CoachTurns:            m.CoachTurns,
		ClientTurns:           m.ClientTurns,
		AvgWordsPerTurn:       m.AvgWordsPerTurn,
		Timed:                 m.Timed,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
