package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenario_runs (
    run_id TEXT PRIMARY KEY,
    name TEXT,
    mode TEXT,
    created INTEGER
);
CREATE TABLE IF NOT EXISTS scenario_rows (
    run_id TEXT,
    label TEXT,
    scenario TEXT,
    r0 REAL,
    day INTEGER,
    date TEXT,
    incidence REAL,
    PRIMARY KEY(run_id, label, day)
);
CREATE TABLE IF NOT EXISTS scenario_fits (
    run_id TEXT,
    rank INTEGER,
    label TEXT,
    scenario TEXT,
    r0 REAL,
    rmse REAL,
    days INTEGER,
    PRIMARY KEY(run_id, label)
);`

// SQLiteSink persists result tables in a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens or creates the database and ensures schema. The
// parent directory of a file path is created when missing; ":memory:" and
// "file:" sources are passed to the driver unchanged.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, model.ConfigErrorf("sqlite sink: path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite sink: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

// Write stores the run and its rows in one transaction. Rewriting a run
// replaces its rows.
func (s *SQLiteSink) Write(ctx context.Context, run coresink.Run, table model.Table) error {
	return s.inTx(ctx, run, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO scenario_rows
            (run_id, label, scenario, r0, day, date, incidence)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(run_id, label, day) DO UPDATE SET
                scenario = excluded.scenario,
                r0 = excluded.r0,
                date = excluded.date,
                incidence = excluded.incidence`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, r := range table.Rows {
			if _, err := stmt.ExecContext(ctx, run.ID.String(), string(r.Label), r.Scenario, r.R0,
				r.Day, r.Date.Format(time.DateOnly), r.Incidence); err != nil {
				return fmt.Errorf("insert %s day %d: %w", r.Label, r.Day, err)
			}
		}
		return nil
	})
}

// WriteFits implements sink.FitRecorder.
func (s *SQLiteSink) WriteFits(ctx context.Context, run coresink.Run, fits []calibrate.Fit) error {
	return s.inTx(ctx, run, func(tx *sql.Tx) error {
		for i, f := range fits {
			if _, err := tx.ExecContext(ctx, `INSERT INTO scenario_fits
                (run_id, rank, label, scenario, r0, rmse, days)
                VALUES (?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT(run_id, label) DO UPDATE SET
                    rank = excluded.rank,
                    rmse = excluded.rmse,
                    days = excluded.days`,
				run.ID.String(), i+1, string(f.Label), f.Scenario, f.R0, f.RMSE, f.Days); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteSink) inTx(ctx context.Context, run coresink.Run, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO scenario_runs (run_id, name, mode, created)
        VALUES (?, ?, ?, ?) ON CONFLICT(run_id) DO NOTHING`,
		run.ID.String(), run.Name, run.Mode, run.Created.Unix()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Rows returns the stored table of a run, ordered by label insertion and day.
func (s *SQLiteSink) Rows(ctx context.Context, runID string) (model.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, scenario, r0, day, date, incidence
        FROM scenario_rows WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return model.Table{}, err
	}
	defer func() { _ = rows.Close() }()
	var table model.Table
	for rows.Next() {
		var r model.Row
		var label, date string
		if err := rows.Scan(&label, &r.Scenario, &r.R0, &r.Day, &date, &r.Incidence); err != nil {
			return model.Table{}, err
		}
		r.Label = model.Label(label)
		if r.Date, err = time.Parse(time.DateOnly, date); err != nil {
			return model.Table{}, err
		}
		table.Rows = append(table.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return model.Table{}, err
	}
	return table, nil
}

// Fits returns the stored ranking of a run, best first.
func (s *SQLiteSink) Fits(ctx context.Context, runID string) ([]calibrate.Fit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, scenario, r0, rmse, days
        FROM scenario_fits WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var fits []calibrate.Fit
	for rows.Next() {
		var f calibrate.Fit
		var label string
		if err := rows.Scan(&label, &f.Scenario, &f.R0, &f.RMSE, &f.Days); err != nil {
			return nil, err
		}
		f.Label = model.Label(label)
		fits = append(fits, f)
	}
	return fits, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error { return s.db.Close() }
