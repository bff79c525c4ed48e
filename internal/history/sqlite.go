package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SchemaVersion is recorded in schema_versions when the tables are created.
const SchemaVersion = 1

const defaultDirPerm = 0o755

const (
	createTablesSQL = `
	CREATE TABLE IF NOT EXISTS schema_versions (
	    version    INTEGER PRIMARY KEY,
	    applied_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS contact_history (
	    id     INTEGER PRIMARY KEY AUTOINCREMENT,
	    time   INTEGER,
	    status INTEGER CHECK (status IS NULL OR status IN (0, 1))
	);
	CREATE TABLE IF NOT EXISTS contact_meta (
	    key   TEXT PRIMARY KEY,
	    value INTEGER NOT NULL
	);`

	insertVersionSQL = `INSERT OR IGNORE INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`

	selectInitialSQL = `SELECT value FROM contact_meta WHERE key = 'initial_time'`

	selectEventsSQL = `SELECT time, status FROM contact_history ORDER BY id ASC`

	insertEventSQL = `INSERT INTO contact_history (time, status) VALUES (?, ?)`

	insertInitialSQL = `INSERT OR IGNORE INTO contact_meta (key, value) VALUES ('initial_time', ?)`
)

// SQLiteStore persists the log to SQLite and serves reads from memory.
// Every append is written through before it becomes visible to readers.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger

	mu  sync.Mutex
	mem *MemoryStore
}

// OpenSQLite opens (creating if needed) the database at path and loads the
// existing history.
func OpenSQLite(ctx context.Context, path string, log zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open history: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(ctx, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info().
		Str("path", path).
		Int("schema_version", SchemaVersion).
		Int("events", s.Len()).
		Msg("history store opened")
	return s, nil
}

// NewSQLiteStore prepares the schema on db and loads its contents.
// The store takes ownership of db.
func NewSQLiteStore(ctx context.Context, db *sql.DB, log zerolog.Logger) (*SQLiteStore, error) {
	if err := ensureSchema(ctx, db); err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:  db,
		log: log,
		mem: NewMemoryStore(),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, createTablesSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertVersionSQL, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context) error {
	var initial sql.NullInt64
	err := s.db.QueryRowContext(ctx, selectInitialSQL).Scan(&initial)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read initial time: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, selectEventsSQL)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, 64)
	for rows.Next() {
		var t, st sql.NullInt64
		if err := rows.Scan(&t, &st); err != nil {
			return fmt.Errorf("scan history row: %w", err)
		}
		events = append(events, Event{Time: decodeTime(t), Status: decodeStatus(st)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	s.mem.restore(events, initial.Int64, initial.Valid)
	return nil
}

// Append writes e to the database, then to memory. The event row and the
// initial time are committed together or not at all.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, insertEventSQL, encodeTime(e.Time), encodeStatus(e.Status)); err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	if _, ok := s.mem.InitialTime(); !ok && e.HasTime() {
		if _, err := tx.ExecContext(ctx, insertInitialSQL, e.Time); err != nil {
			return fmt.Errorf("record initial time: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history event: %w", err)
	}

	s.log.Debug().
		Int64("time", e.Time).
		Stringer("status", e.Status).
		Msg("history event stored")
	return s.mem.Append(ctx, e)
}

// Events returns a copy of the log.
func (s *SQLiteStore) Events() []Event {
	return s.mem.Events()
}

// InitialTime returns the time of the first recorded event.
func (s *SQLiteStore) InitialTime() (int64, bool) {
	return s.mem.InitialTime()
}

// Len returns the number of recorded events.
func (s *SQLiteStore) Len() int {
	return s.mem.Len()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	_ = s.mem.Close()
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close history database: %w", err)
	}
	return nil
}

func encodeStatus(st Status) any {
	switch st {
	case StatusOpen:
		return int64(1)
	case StatusClosed:
		return int64(0)
	default:
		return nil
	}
}

func decodeStatus(v sql.NullInt64) Status {
	if !v.Valid {
		return StatusUnknown
	}
	if v.Int64 != 0 {
		return StatusOpen
	}
	return StatusClosed
}

func encodeTime(t int64) any {
	if t == NoTime {
		return nil
	}
	return t
}

func decodeTime(v sql.NullInt64) int64 {
	if !v.Valid {
		return NoTime
	}
	return v.Int64
}
