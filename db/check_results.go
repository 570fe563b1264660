package db

import (
	"database/sql"
	"fmt"
)

const checkResultColumns = `case_check_id, check_id, position, label, severity, theme, status, confidence,
	evidence_quote, comment, review_status, reviewer, review_note, reviewed_at`

func scanCheckResult(row rowScanner) (CheckResultRow, error) {
	var r CheckResultRow
	var quote, comment, reviewer, note sql.NullString
	var reviewedAt sql.NullInt64

	err := row.Scan(
		&r.CaseCheckID, &r.CheckID, &r.Position, &r.Label, &r.Severity, &r.Theme, &r.Status, &r.Confidence,
		&quote, &comment, &r.ReviewStatus, &reviewer, &note, &reviewedAt,
	)
	if err != nil {
		return r, err
	}

	r.EvidenceQuote = nullString(quote)
	r.Comment = nullString(comment)
	r.Reviewer = nullString(reviewer)
	r.ReviewNote = nullString(note)
	if reviewedAt.Valid {
		r.ReviewedAt = &reviewedAt.Int64
	}
	return r, nil
}

// ListCheckResults returns the stored verdicts of a case check in checklist order
func (d *DB) ListCheckResults(caseCheckID string) ([]CheckResultRow, error) {
	return Select(d,
		"SELECT "+checkResultColumns+" FROM check_results WHERE case_check_id = ? ORDER BY position ASC",
		[]QueryParam{caseCheckID},
		func(rows *sql.Rows) (CheckResultRow, error) { return scanCheckResult(rows) },
	)
}

// GetCheckResult retrieves one verdict, nil when not found
func (d *DB) GetCheckResult(caseCheckID, checkID string) (*CheckResultRow, error) {
	return SelectOne(d,
		"SELECT "+checkResultColumns+" FROM check_results WHERE case_check_id = ? AND check_id = ?",
		[]QueryParam{caseCheckID, checkID},
		func(row *sql.Row) (CheckResultRow, error) { return scanCheckResult(row) },
	)
}

// ReviewCheckResult records a reviewer's verdict. An empty review status
// confirms the model's verdict; any other status overrides it.
func (d *DB) ReviewCheckResult(caseCheckID, checkID string, review Review) (*CheckResultRow, error) {
	existing, err := d.GetCheckResult(caseCheckID, checkID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	reviewState := ReviewConfirmed
	status := existing.Status
	if review.Status != "" && review.Status != existing.Status {
		reviewState = ReviewOverridden
		status = review.Status
	}

	_, err = d.Run(`
		UPDATE check_results SET status = ?, review_status = ?, reviewer = ?, review_note = ?, reviewed_at = ?
		WHERE case_check_id = ? AND check_id = ?`,
		status, reviewState, StringPtr(review.Reviewer), StringPtr(review.Note), NowMs(), caseCheckID, checkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to review check result: %w", err)
	}
	return d.GetCheckResult(caseCheckID, checkID)
}

// CountPendingReviews returns how many verdicts await human review
func (d *DB) CountPendingReviews() (int64, error) {
	return d.Count("SELECT COUNT(*) FROM check_results WHERE review_status = ?", ReviewPending)
}

// GetCallAnalytics returns the talk-time metrics of a case check, nil when none were stored
func (d *DB) GetCallAnalytics(caseCheckID string) (*CallAnalytics, error) {
	return SelectOne(d, `
		SELECT case_check_id, total_duration_min, coach_speaking_time_min, client_speaking_time_min,
			coach_speaking_pct, client_speaking_pct, coach_wpm, coach_turns, client_turns,
			avg_words_per_turn, timed
		FROM call_analytics WHERE case_check_id = ?`,
		[]QueryParam{caseCheckID},
		func(row *sql.Row) (CallAnalytics, error) {
			var a CallAnalytics
			var timed int
			err := row.Scan(&a.CaseCheckID, &a.TotalDurationMin, &a.CoachSpeakingTimeMin, &a.ClientSpeakingTimeMin,
				&a.CoachSpeakingPct, &a.ClientSpeakingPct, &a.CoachWPM, &a.CoachTurns, &a.ClientTurns,
				&a.AvgWordsPerTurn, &timed)
			a.Timed = timed == 1
			return a, err
		},
	)
}
