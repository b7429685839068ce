package channel

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"atelier-hq/beacon/pkg/notify"
	"atelier-hq/beacon/pkg/notify/template"
)

const inboxSchema = `
CREATE TABLE IF NOT EXISTS inbox_entries (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	priority   TEXT NOT NULL,
	subject    TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	read_at    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_inbox_user ON inbox_entries(user_id, created_at);
`

// InboxEntry is a notification as it sits in a user's in-app inbox.
type InboxEntry struct {
	ID        string
	UserID    string
	Kind      notify.Kind
	Priority  notify.Priority
	Subject   string
	Body      string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// InAppSender writes notifications to a durable in-app inbox backed by
// sqlite. It doubles as the read model for the inbox: unread listing and
// read receipts live here too. Writes are idempotent on notification ID,
// so a retried delivery never duplicates an inbox entry.
type InAppSender struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time

	insertStmt *sql.Stmt
	unreadStmt *sql.Stmt
	readStmt   *sql.Stmt
}

// NewInAppSender opens (or creates) the inbox database at path.
func NewInAppSender(path string, logger *slog.Logger) (*InAppSender, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox database: %w", err)
	}

	if _, err := db.Exec(inboxSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize inbox schema: %w", err)
	}

	s := &InAppSender{
		db:    db,
		log:   logger.With("component", "notify.channel.in-app"),
		clock: time.Now,
	}

	if s.insertStmt, err = db.Prepare(
		`INSERT OR IGNORE INTO inbox_entries (id, user_id, kind, priority, subject, body, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare inbox insert: %w", err)
	}
	if s.unreadStmt, err = db.Prepare(
		`SELECT id, user_id, kind, priority, subject, body, created_at, read_at FROM inbox_entries WHERE user_id = ? AND read_at IS NULL ORDER BY created_at DESC LIMIT ?`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare inbox unread query: %w", err)
	}
	if s.readStmt, err = db.Prepare(
		`UPDATE inbox_entries SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare inbox read update: %w", err)
	}

	return s, nil
}

func (s *InAppSender) Channel() notify.Channel { return notify.ChannelInApp }

func (s *InAppSender) ChargedOnAttempt() bool { return false }

func (s *InAppSender) Deliver(ctx context.Context, userID string, content template.Rendered, meta notify.Metadata) (string, error) {
	_, err := s.insertStmt.ExecContext(ctx,
		meta.NotificationID,
		userID,
		string(meta.Kind),
		string(meta.Priority),
		content.Subject,
		content.Body,
		s.clock().UTC().UnixNano(),
	)
	if err != nil {
		return "", &notify.TransientDeliveryError{
			Channel: notify.ChannelInApp,
			Message: "failed to write inbox entry",
			Cause:   err,
		}
	}
	return meta.NotificationID, nil
}

// Unread returns up to limit unread entries for a user, newest first.
func (s *InAppSender) Unread(ctx context.Context, userID string, limit int) ([]InboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.unreadStmt.QueryContext(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unread entries: %w", err)
	}
	defer rows.Close()

	var entries []InboxEntry
	for rows.Next() {
		var e InboxEntry
		var kind, priority string
		var created int64
		var readAt sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &priority, &e.Subject, &e.Body, &created, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan inbox entry: %w", err)
		}
		e.Kind = notify.Kind(kind)
		e.Priority = notify.Priority(priority)
		e.CreatedAt = time.Unix(0, created).UTC()
		if readAt.Valid {
			t := time.Unix(0, readAt.Int64).UTC()
			e.ReadAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkRead records a read receipt for one inbox entry. Marking an entry
// that is already read (or not the user's) is a no-op.
func (s *InAppSender) MarkRead(ctx context.Context, userID, notificationID string) error {
	_, err := s.readStmt.ExecContext(ctx, s.clock().UTC().UnixNano(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark inbox entry read: %w", err)
	}
	return nil
}

// Prune deletes read entries older than the cutoff. Unread entries stay
// regardless of age. Returns the number of entries deleted.
func (s *InAppSender) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM inbox_entries WHERE read_at IS NOT NULL AND created_at < ?`,
		olderThan.UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune inbox entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned inbox entries: %w", err)
	}
	return int(n), nil
}

// Close releases the underlying database handle.
func (s *InAppSender) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.unreadStmt, s.readStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
