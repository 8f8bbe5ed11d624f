package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS app_state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		blob       TEXT     NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id           TEXT     PRIMARY KEY,
		visit_id     TEXT     NOT NULL,
		status_color TEXT     NOT NULL CHECK (status_color IN ('RED', 'YELLOW', 'GREEN')),
		payload      TEXT     NOT NULL,
		photo_count  INTEGER  NOT NULL DEFAULT 0,
		queued_at    DATETIME,
		submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_visit ON submissions(visit_id)`,
	`CREATE TABLE IF NOT EXISTS questionnaires (
		id         TEXT     PRIMARY KEY,
		language   TEXT     NOT NULL DEFAULT '',
		definition TEXT     NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
