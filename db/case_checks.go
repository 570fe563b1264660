package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const caseCheckColumns = `id, meeting_id, status, attempts, error, transcript, vtt, coach_name, facts,
	checklist, checklist_version, outcome, pass_rate, has_high_severity_failures, needs_escalation,
	result, archive_key, created_at, updated_at, completed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCaseCheck(row rowScanner) (CaseCheck, error) {
	var c CaseCheck
	var errMsg, vtt, coach, facts, version, outcome, result, archiveKey sql.NullString
	var passRate sql.NullFloat64
	var completedAt sql.NullInt64
	var highSeverity, escalation int

	err := row.Scan(
		&c.ID, &c.MeetingID, &c.Status, &c.Attempts, &errMsg, &c.Transcript, &vtt, &coach, &facts,
		&c.Checklist, &version, &outcome, &passRate, &highSeverity, &escalation,
		&result, &archiveKey, &c.CreatedAt, &c.UpdatedAt, &completedAt,
	)
	if err != nil {
		return c, err
	}

	c.Error = nullString(errMsg)
	c.VTT = nullString(vtt)
	c.CoachName = nullString(coach)
	c.Facts = nullString(facts)
	c.ChecklistVersion = nullString(version)
	c.Outcome = nullString(outcome)
	c.Result = nullString(result)
	c.ArchiveKey = nullString(archiveKey)
	if passRate.Valid {
		c.PassRate = &passRate.Float64
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Int64
	}
	c.HasHighSeverityFailures = highSeverity == 1
	c.NeedsEscalation = escalation == 1
	return c, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CreateCaseCheck inserts a queued case check
func (d *DB) CreateCaseCheck(in NewCaseCheck) (*CaseCheck, error) {
	id := uuid.New().String()
	now := NowMs()

	_, err := d.Run(`
		INSERT INTO case_checks (id, meeting_id, status, attempts, transcript, vtt, coach_name, facts,
			checklist, checklist_version, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.MeetingID, CaseCheckQueued, in.Transcript, StringPtr(in.VTT), StringPtr(in.CoachName),
		StringPtr(in.Facts), in.Checklist, StringPtr(in.ChecklistVersion), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create case check: %w", err)
	}

	return d.GetCaseCheck(id)
}

// GetCaseCheck retrieves a case check by ID, nil when not found
func (d *DB) GetCaseCheck(id string) (*CaseCheck, error) {
	return SelectOne(d,
		"SELECT "+caseCheckColumns+" FROM case_checks WHERE id = ?",
		[]QueryParam{id},
		func(row *sql.Row) (CaseCheck, error) { return scanCaseCheck(row) },
	)
}

// GetCaseCheckByMeeting retrieves the case check for a meeting, nil when not found
func (d *DB) GetCaseCheckByMeeting(meetingID string) (*CaseCheck, error) {
	return SelectOne(d,
		"SELECT "+caseCheckColumns+" FROM case_checks WHERE meeting_id = ?",
		[]QueryParam{meetingID},
		func(row *sql.Row) (CaseCheck, error) { return scanCaseCheck(row) },
	)
}

// ResetCaseCheck replaces the inputs of an existing case check and queues it
// again, discarding previous results
func (d *DB) ResetCaseCheck(id string, in NewCaseCheck) (*CaseCheck, error) {
	err := d.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM check_results WHERE case_check_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM call_analytics WHERE case_check_id = ?", id); err != nil {
			return err
		}
		_, err := tx.Exec(`
			UPDATE case_checks SET
				status = ?, attempts = 0, error = NULL, transcript = ?, vtt = ?, coach_name = ?, facts = ?,
				checklist = ?, checklist_version = ?, outcome = NULL, pass_rate = NULL,
				has_high_severity_failures = 0, needs_escalation = 0, result = NULL, archive_key = NULL,
				updated_at = ?, completed_at = NULL
			WHERE id = ?`,
			CaseCheckQueued, in.Transcript, StringPtr(in.VTT), StringPtr(in.CoachName), StringPtr(in.Facts),
			in.Checklist, StringPtr(in.ChecklistVersion), NowMs(), id,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset case check: %w", err)
	}
	return d.GetCaseCheck(id)
}

// MarkInProgress moves a case check to in-progress and counts the attempt
func (d *DB) MarkInProgress(id string) error {
	_, err := d.Run(
		"UPDATE case_checks SET status = ?, attempts = attempts + 1, error = NULL, updated_at = ? WHERE id = ?",
		CaseCheckInProgress, NowMs(), id,
	)
	return err
}

// CompleteCaseCheck stores the final result, per-check rows and analytics in one transaction
func (d *DB) CompleteCaseCheck(id string, c Completion) error {
	now := NowMs()

	return d.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE case_checks SET
				status = ?, error = NULL, outcome = ?, pass_rate = ?, has_high_severity_failures = ?,
				needs_escalation = ?, result = ?, archive_key = NULL, updated_at = ?, completed_at = ?
			WHERE id = ?`,
			CaseCheckCompleted, c.Outcome, c.PassRate, boolInt(c.HasHighSeverityFailures),
			boolInt(c.NeedsEscalation), c.Result, now, now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update case check: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM check_results WHERE case_check_id = ?", id); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO check_results (case_check_id, check_id, position, label, severity, theme,
				status, confidence, evidence_quote, comment, review_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range c.Checks {
			_, err := stmt.Exec(id, r.CheckID, r.Position, r.Label, r.Severity, r.Theme,
				r.Status, r.Confidence, r.EvidenceQuote, r.Comment, ReviewPending)
			if err != nil {
				return fmt.Errorf("failed to insert check result %s: %w", r.CheckID, err)
			}
		}

		if c.Analytics == nil {
			return nil
		}
		a := c.Analytics
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO call_analytics (case_check_id, total_duration_min, coach_speaking_time_min,
				client_speaking_time_min, coach_speaking_pct, client_speaking_pct, coach_wpm,
				coach_turns, client_turns, avg_words_per_turn, timed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, a.TotalDurationMin, a.CoachSpeakingTimeMin, a.ClientSpeakingTimeMin, a.CoachSpeakingPct,
			a.ClientSpeakingPct, a.CoachWPM, a.CoachTurns, a.ClientTurns, a.AvgWordsPerTurn, boolInt(a.Timed),
		)
		return err
	})
}

// SetArchiveKey records where the completed result was archived
func (d *DB) SetArchiveKey(id, key string) error {
	_, err := d.Run(
		"UPDATE case_checks SET archive_key = ?, updated_at = ? WHERE id = ?",
		key, NowMs(), id,
	)
	return err
}

// FailCaseCheck records a failed attempt
func (d *DB) FailCaseCheck(id string, errMsg string) error {
	_, err := d.Run(
		"UPDATE case_checks SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		CaseCheckFailed, errMsg, NowMs(), id,
	)
	return err
}

// ListRetryable returns queued case checks and failed ones with attempts left, oldest first
func (d *DB) ListRetryable(maxAttempts int) ([]CaseCheck, error) {
	return Select(d,
		"SELECT "+caseCheckColumns+` FROM case_checks
		WHERE status = ? OR (status = ? AND attempts < ?)
		ORDER BY created_at ASC`,
		[]QueryParam{CaseCheckQueued, CaseCheckFailed, maxAttempts},
		func(rows *sql.Rows) (CaseCheck, error) { return scanCaseCheck(rows) },
	)
}

// RequeueInProgress returns case checks left in-progress by a previous run to the queue
func (d *DB) RequeueInProgress() (int64, error) {
	res, err := d.Run(
		"UPDATE case_checks SET status = ?, updated_at = ? WHERE status = ?",
		CaseCheckQueued, NowMs(), CaseCheckInProgress,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListCaseChecks returns a page of case checks, newest first, and the total matching count
func (d *DB) ListCaseChecks(opts ListOptions) ([]CaseCheck, int64, error) {
	where := ""
	var params []QueryParam
	if opts.Status != "" {
		where = " WHERE status = ?"
		params = append(params, opts.Status)
	}

	total, err := d.Count("SELECT COUNT(*) FROM case_checks"+where, params...)
	if err != nil {
		return nil, 0, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	items, err := Select(d,
		"SELECT "+caseCheckColumns+" FROM case_checks"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(params, limit, opts.Offset),
		func(rows *sql.Rows) (CaseCheck, error) { return scanCaseCheck(rows) },
	)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
