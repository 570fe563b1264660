package db

import "database/sql"

func init() {
	RegisterMigration(Migration{
		Version:     2,
		Description: "Call analytics",
		Up:          migration002_callAnalytics,
	})
}

func migration002_callAnalytics(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE call_analytics (
			case_check_id TEXT PRIMARY KEY REFERENCES case_checks(id) ON DELETE CASCADE,
			total_duration_min REAL NOT NULL,
			coach_speaking_time_min REAL NOT NULL,
			client_speaking_time_min REAL NOT NULL,
			coach_speaking_pct REAL NOT NULL,
			client_speaking_pct REAL NOT NULL,
			coach_wpm REAL NOT NULL,
			coach_turns INTEGER NOT NULL,
			client_turns INTEGER NOT NULL,
			avg_words_per_turn REAL NOT NULL,
			timed INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}
