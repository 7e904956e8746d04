// Package ledger keeps a local SQLite record of background tasks so an
// operator can see what happened to writes that the HTTP API only
// acknowledged. It is never consulted by the request path.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tonimelisma/gdrive-files/internal/tasks"
)

// Task status values stored in the status column.
const (
	StatusScheduled = "scheduled"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

const (
	sqlInsertTask = `INSERT INTO tasks (id, op, target, status, scheduled_at)
		VALUES (?, ?, ?, 'scheduled', ?)
		ON CONFLICT(id) DO NOTHING`

	// Upsert so a finish event recorded without its schedule event (ledger
	// enabled mid-flight) still lands.
	sqlFinishTask = `INSERT INTO tasks (id, op, target, status, error, scheduled_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 status = excluded.status,
		 error = excluded.error,
		 finished_at = excluded.finished_at`

	sqlListTasks = `SELECT id, op, target, status, error, scheduled_at, finished_at
		FROM tasks ORDER BY scheduled_at DESC, id LIMIT ?`
)

// Entry is one row of the ledger.
type Entry struct {
	ID          string     `json:"id"`
	Op          string     `json:"op"`
	Target      string     `json:"target"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Ledger is a tasks.Recorder backed by SQLite.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ tasks.Recorder = (*Ledger)(nil)

// Open opens (creating if needed) the ledger database at dbPath and applies
// migrations. WAL mode lets the CLI read while the server writes.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("ledger: creating directory for %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("task ledger opened", slog.String("db_path", dbPath))

	return &Ledger{db: db, logger: logger}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// TaskScheduled records a newly accepted task.
func (l *Ledger) TaskScheduled(ctx context.Context, h tasks.Handle) error {
	if _, err := l.db.ExecContext(ctx, sqlInsertTask,
		h.ID, h.Op, h.Target, h.ScheduledAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("ledger: recording task %s: %w", h.ID, err)
	}

	return nil
}

// TaskFinished records the outcome of a task.
func (l *Ledger) TaskFinished(ctx context.Context, o tasks.Outcome) error {
	status := StatusDone

	var errMsg sql.NullString
	if o.Err != nil {
		status = StatusFailed
		errMsg = sql.NullString{String: o.Err.Error(), Valid: true}
	}

	if _, err := l.db.ExecContext(ctx, sqlFinishTask,
		o.ID, o.Op, o.Target, status, errMsg,
		o.ScheduledAt.UnixNano(), o.FinishedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("ledger: finishing task %s: %w", o.ID, err)
	}

	return nil
}

// List returns the most recently scheduled tasks, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("ledger: limit must be positive, got %d", limit)
	}

	rows, err := l.db.QueryContext(ctx, sqlListTasks, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: listing tasks: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e          Entry
			errMsg     sql.NullString
			scheduled  int64
			finishedAt sql.NullInt64
		)

		if err := rows.Scan(&e.ID, &e.Op, &e.Target, &e.Status, &errMsg, &scheduled, &finishedAt); err != nil {
			return nil, fmt.Errorf("ledger: scanning task row: %w", err)
		}

		e.Error = errMsg.String
		e.ScheduledAt = time.Unix(0, scheduled).UTC()

		if finishedAt.Valid {
			t := time.Unix(0, finishedAt.Int64).UTC()
			e.FinishedAt = &t
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating task rows: %w", err)
	}

	return entries, nil
}
