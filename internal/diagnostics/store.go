// Package diagnostics persists bridgeDebug messages from rendering surfaces
// in a small sqlite database so they can be inspected after the fact.
package diagnostics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ncviewer/ncviewer/internal/log"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("diagnostics: store closed")

const schema = `
CREATE TABLE IF NOT EXISTS debug_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	source TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_debug_messages_session ON debug_messages(session_id);
`

// Entry is one stored message.
type Entry struct {
	ID        int64
	SessionID string
	Source    string
	Message   string
	CreatedAt time.Time
}

// Store appends and lists debug messages. Every Store opened gets its own
// session id so messages from different runs can be told apart.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	session string
	closed  bool
	now     func() time.Time
}

// Open opens or creates the database at path, creating its directory.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating diagnostics directory: %w", err)
	}

	log.Debug(log.CatDB, "Opening database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("opening diagnostics db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		log.ErrorErr(log.CatDB, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("pinging diagnostics db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating diagnostics schema: %w", err)
	}

	s := &Store{db: db, path: path, session: uuid.NewString(), now: time.Now}
	log.Info(log.CatDB, "Connected to database", "path", path, "session", s.session)
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// SessionID identifies this store's run.
func (s *Store) SessionID() string {
	return s.session
}

// Append stores message under source.
func (s *Store) Append(ctx context.Context, source, message string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Entry{}, ErrClosed
	}

	e := Entry{
		SessionID: s.session,
		Source:    source,
		Message:   message,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO debug_messages (session_id, source, message, created_at) VALUES (?, ?, ?, ?)`,
		e.SessionID, e.Source, e.Message, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert debug message: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. A limit below 1 returns
// every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT id, session_id, source, message, created_at
		FROM debug_messages ORDER BY id DESC LIMIT ?`, limitArg(limit))
}

// Session returns up to limit entries of one session, newest first.
func (s *Store) Session(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT id, session_id, source, message, created_at
		FROM debug_messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limitArg(limit))
}

// Prune deletes entries older than cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM debug_messages WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune debug messages: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debug messages: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Source, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("failed to scan debug message: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func limitArg(limit int) int {
	if limit < 1 {
		return -1
	}
	return limit
}

// Close releases the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.db.Close()
}
