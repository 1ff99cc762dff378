// Package history keeps the outcome of every reported scenario in a SQLite
// database so that consecutive runs can be compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/denizgursoy/cukexml/pkg/report"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one recorded report.
type Run struct {
	ID         string
	Suite      string
	RecordedAt time.Time
	Totals     report.Totals
}

// ScenarioResult is the outcome of one scenario in one run.
type ScenarioResult struct {
	RunID      string
	RecordedAt time.Time
	Name       string
	Outcome    report.Outcome
	Incomplete bool
	Duration   time.Duration
}

// Store is a run history backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create history directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database %q: %w", path, err)
	}
	if err := migrate(db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database %q: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the totals of r and the outcome of each of its scenarios as
// one run.
func (s *Store) Record(ctx context.Context, suite string, r *report.Report) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		Suite:      suite,
		RecordedAt: s.now().UTC(),
		Totals:     r.Totals,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("beginning history record: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, suite, recorded_at, scenarios, passed, failed, errored, skipped, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Suite, run.RecordedAt.Format(time.RFC3339Nano),
		run.Totals.Scenarios, run.Totals.Passed, run.Totals.Failed, run.Totals.Errored, run.Totals.Skipped,
		int64(run.Totals.Duration))
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return Run{}, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scenario_results (run_id, feature_uri, scenario_id, name, line, outcome, incomplete, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("preparing scenario insert: %w", err)
	}
	defer stmt.Close()

	for _, feature := range r.Features {
		for _, scenario := range feature.Elements {
			_, err := stmt.ExecContext(ctx,
				rowID, feature.URI, scenario.ID, scenario.Name, scenario.Line,
				string(scenario.Outcome), scenario.Incomplete, int64(scenario.Totals.Duration))
			if err != nil {
				return Run{}, fmt.Errorf("inserting scenario %q: %w", scenario.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing history record: %w", err)
	}
	return run, nil
}

// Runs returns up to limit runs, most recent first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, suite, recorded_at, scenarios, passed, failed, errored, skipped, duration_ns
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run        Run
			recordedAt string
			durationNS int64
		)
		err := rows.Scan(&run.ID, &run.Suite, &recordedAt,
			&run.Totals.Scenarios, &run.Totals.Passed, &run.Totals.Failed, &run.Totals.Errored, &run.Totals.Skipped,
			&durationNS)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at of run %s: %w", run.ID, err)
		}
		run.Totals.Duration = time.Duration(durationNS)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ScenarioHistory returns up to limit recorded outcomes of one scenario,
// most recent first.
func (s *Store) ScenarioHistory(ctx context.Context, featureURI, scenarioID string, limit int) ([]ScenarioResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.run_id, r.recorded_at, s.name, s.outcome, s.incomplete, s.duration_ns
		 FROM scenario_results s JOIN runs r ON r.id = s.run_id
		 WHERE s.feature_uri = ? AND s.scenario_id = ?
		 ORDER BY s.id DESC LIMIT ?`, featureURI, scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying scenario history: %w", err)
	}
	defer rows.Close()

	results := make([]ScenarioResult, 0)
	for rows.Next() {
		var (
			result     ScenarioResult
			recordedAt string
			outcome    string
			durationNS int64
		)
		if err := rows.Scan(&result.RunID, &recordedAt, &result.Name, &outcome, &result.Incomplete, &durationNS); err != nil {
			return nil, fmt.Errorf("scanning scenario result: %w", err)
		}
		if result.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at of run %s: %w", result.RunID, err)
		}
		result.Outcome = report.Outcome(outcome)
		result.Duration = time.Duration(durationNS)
		results = append(results, result)
	}
	return results, rows.Err()
}
