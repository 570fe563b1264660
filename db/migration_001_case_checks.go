package db

import "database/sql"

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Case checks and per-check results",
		Up:          migration001_caseChecks,
	})
}

func migration001_caseChecks(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE case_checks (
			id TEXT PRIMARY KEY,
			meeting_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'queued',
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			transcript TEXT NOT NULL,
			vtt TEXT,
			coach_name TEXT,
			facts TEXT,
			checklist TEXT NOT NULL,
			checklist_version TEXT,
			outcome TEXT,
			pass_rate REAL,
			has_high_severity_failures INTEGER NOT NULL DEFAULT 0,
			needs_escalation INTEGER NOT NULL DEFAULT 0,
			result TEXT,
			archive_key TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);

		CREATE INDEX idx_case_checks_status ON case_checks(status);
		CREATE INDEX idx_case_checks_created_at ON case_checks(created_at);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE check_results (
			case_check_id TEXT NOT NULL REFERENCES case_checks(id) ON DELETE CASCADE,
			check_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			severity TEXT NOT NULL,
			theme TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence REAL NOT NULL,
			evidence_quote TEXT,
			comment TEXT,
			review_status TEXT NOT NULL DEFAULT 'pending',
			reviewer TEXT,
			review_note TEXT,
			reviewed_at INTEGER,
			PRIMARY KEY (case_check_id, check_id)
		);

		CREATE INDEX idx_check_results_status ON check_results(status);
		CREATE INDEX idx_check_results_review ON check_results(review_status);
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}
