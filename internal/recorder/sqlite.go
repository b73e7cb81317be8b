package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
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

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logrus.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			code        TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			fetched     INTEGER,
			total       INTEGER,
			up_to_date  INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_code ON sync_runs(code, started_at)`,

		`CREATE TABLE IF NOT EXISTS deliveries (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			run_id    TEXT,
			kind      TEXT,
			code      TEXT,
			ok        INTEGER,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_ts ON deliveries(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSync(runs []SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO sync_runs
		(run_id, code, started_at, duration_ms, fetched, total, up_to_date, error)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, run := range runs {
		if _, err := stmt.Exec(run.RunID, run.Code, run.Started.Unix(), run.Duration.Milliseconds(),
			run.Fetched, run.Total, run.UpToDate, run.Err); err != nil {
			return fmt.Errorf("insert sync run %s: %w", run.Code, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordDelivery(d *Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO deliveries
		(timestamp, run_id, kind, code, ok, error)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), d.RunID, d.Kind, d.Code, d.OK, d.Err,
	)
	return err
}

func (r *SQLiteRecorder) LastSync(code string) (*SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run        = SyncRun{Code: code}
		started    int64
		durationMS int64
		msg        sql.NullString
	)
	err := r.db.QueryRow(`SELECT run_id, started_at, duration_ms, fetched, total, up_to_date, error
		FROM sync_runs WHERE code = ? ORDER BY id DESC LIMIT 1`, code).
		Scan(&run.RunID, &started, &durationMS, &run.Fetched, &run.Total, &run.UpToDate, &msg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last sync %s: %w", code, err)
	}
	run.Started = time.Unix(started, 0)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.Err = msg.String
	return &run, nil
}

func (r *SQLiteRecorder) Close() error {
	logrus.Info("closing sqlite recorder")
	return r.db.Close()
}
