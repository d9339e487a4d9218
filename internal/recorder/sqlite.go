package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so ad-hoc queries can read while a run is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_type       TEXT NOT NULL,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			sets_processed INTEGER,
			records_added  INTEGER,
			records_skip   INTEGER,
			unmatched      INTEGER,
			errors         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS set_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			run_type      TEXT NOT NULL,
			set_name      TEXT NOT NULL,
			records_added INTEGER,
			records_skip  INTEGER,
			note          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_set_events_ts ON set_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(sum *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(run_type, started_at, finished_at, sets_processed, records_added, records_skip, unmatched, errors)
		VALUES (?,?,?,?,?,?,?,?)`,
		sum.RunType, sum.StartedAt.Unix(), sum.FinishedAt.Unix(),
		sum.SetsProcessed, sum.RecordsAdded, sum.RecordsSkip,
		sum.Unmatched, sum.Errors,
	)
	return err
}

func (r *SQLiteRecorder) RecordSet(evt *SetEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO set_events
		(timestamp, run_type, set_name, records_added, records_skip, note)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.RunType, evt.SetName,
		evt.RecordsAdded, evt.RecordsSkip, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
