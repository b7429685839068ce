package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"atelier-hq/beacon/pkg/usage"
)

// ErrBackendClosed is returned by operations on a closed backend.
var ErrBackendClosed = errors.New("usage storage backend is closed")

// SQLiteBackend implements usage.Backend on a SQLite database.
// It provides durable, append-only storage suitable for single-instance
// deployments where spend accounting must survive restarts.
//
// The backend opens the database in WAL mode for better concurrent
// read performance while the ledger appends.
type SQLiteBackend struct {
	db *sql.DB

	appendStmt *sql.Stmt
	monthStmt  *sql.Stmt
	pruneStmt  *sql.Stmt
}

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id         TEXT PRIMARY KEY,
	ts         INTEGER NOT NULL,
	resource   TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	units      INTEGER NOT NULL,
	cost       REAL NOT NULL,
	success    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_records_ts ON usage_records(ts);
`

// NewSQLiteBackend opens (or creates) the usage database at the given path
// and prepares the statements used on the hot path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	if _, err := db.Exec(usageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize usage schema: %w", err)
	}

	b := &SQLiteBackend{db: db}

	b.appendStmt, err = db.Prepare(
		`INSERT INTO usage_records (id, ts, resource, model, units, cost, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare append statement: %w", err)
	}

	b.monthStmt, err = db.Prepare(
		`SELECT id, ts, resource, model, units, cost, success
		 FROM usage_records WHERE ts >= ? AND ts < ? ORDER BY ts`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare month statement: %w", err)
	}

	b.pruneStmt, err = db.Prepare(`DELETE FROM usage_records WHERE ts < ?`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return b, nil
}

// Append inserts one usage record.
func (b *SQLiteBackend) Append(ctx context.Context, rec *usage.Record) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := b.appendStmt.ExecContext(ctx,
		rec.ID,
		rec.Timestamp.UTC().UnixNano(),
		string(rec.Resource),
		rec.Model,
		rec.Units,
		rec.Cost,
		success,
	)
	if err != nil {
		return fmt.Errorf("failed to append usage record: %w", err)
	}
	return nil
}

// LoadMonth returns all records within the given calendar month (UTC),
// ordered by timestamp.
func (b *SQLiteBackend) LoadMonth(ctx context.Context, year int, month time.Month) ([]*usage.Record, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := b.monthStmt.QueryContext(ctx, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query month records: %w", err)
	}
	defer rows.Close()

	var out []*usage.Record
	for rows.Next() {
		var (
			rec     usage.Record
			ts      int64
			res     string
			success int
		)
		if err := rows.Scan(&rec.ID, &ts, &res, &rec.Model, &rec.Units, &rec.Cost, &success); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		rec.Resource = usage.ResourceKind(res)
		rec.Success = success == 1
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage records: %w", err)
	}
	return out, nil
}

// Prune deletes records older than the cutoff and returns the number deleted.
func (b *SQLiteBackend) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := b.pruneStmt.ExecContext(ctx, olderThan.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned records: %w", err)
	}
	return int(n), nil
}

// Close releases the prepared statements and the database handle.
func (b *SQLiteBackend) Close() error {
	for _, stmt := range []*sql.Stmt{b.appendStmt, b.monthStmt, b.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return b.db.Close()
}
