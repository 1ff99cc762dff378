package history

import (
	"database/sql"
	"fmt"
)

// migrations contains the ordered list of schema changes to apply.
var migrations = []string{
	`CREATE TABLE runs (
		id          INTEGER PRIMARY KEY,
		run_id      TEXT UNIQUE NOT NULL,
		suite       TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		scenarios   INTEGER NOT NULL,
		passed      INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		errored     INTEGER NOT NULL,
		skipped     INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL
	)`,
	`CREATE TABLE scenario_results (
		id          INTEGER PRIMARY KEY,
		run_id      INTEGER NOT NULL REFERENCES runs(id),
		feature_uri TEXT NOT NULL,
		scenario_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		line        INTEGER NOT NULL,
		outcome     TEXT NOT NULL,
		incomplete  INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL
	)`,
	`CREATE INDEX scenario_results_by_scenario ON scenario_results (feature_uri, scenario_id)`,
}

// migrate applies the migrations past the database's user_version, each in
// its own transaction together with the version bump.
func migrate(db *sql.DB, all []string) error {
	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for version := current + 1; version <= len(all); version++ {
		if err := applyMigration(db, version, all[version-1]); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int, statement string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(statement); err != nil {
		return fmt.Errorf("migration %d failed: %w", version, err)
	}
	// PRAGMA arguments cannot be bound.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return fmt.Errorf("updating schema version to %d: %w", version, err)
	}
	return tx.Commit()
}
