package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/session"
)

const dbFile = "history.db"

// SQLiteStore is the durable tier for both messages and vectors. Each
// session owns its own database file inside the session directory; a session
// switch closes the handle and the next operation reopens against the new
// session's file. Nothing is ever cleared.
type SQLiteStore struct {
	sessions    session.Provider
	log         *bolt.Logger
	unsubscribe func()

	mu  sync.Mutex
	db  *sql.DB
	dir string
}

// NewSQLiteStore creates the durable store. The database is opened lazily on
// first use so construction never touches the filesystem.
func NewSQLiteStore(sessions session.Provider, obs *observe.Observer) *SQLiteStore {
	s := &SQLiteStore{
		sessions: sessions,
		log:      obs.Log(),
	}
	s.unsubscribe = sessions.Subscribe(s.onSessionChange)
	return s
}

func (s *SQLiteStore) onSessionChange(ev session.Event) {
	if ev.Kind != session.EventSwitched {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close previous session database")
		}
		s.db = nil
	}
	s.dir = ev.Active.Path
	s.log.Debug().Str("session", ev.Active.Name).Msg("durable store rebound to new session")
}

// Close releases the database handle and the session listener.
func (s *SQLiteStore) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the open database, resolving the session directory and
// initializing the schema on first use. Must be called with the mutex held.
func (s *SQLiteStore) handle() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	if s.dir == "" {
		d, err := s.sessions.Active()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session for durable store: %w", err)
		}
		s.dir = d.Path
	}

	path := filepath.Join(s.dir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return db, nil
}

func initSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			sender TEXT,
			created_at DATETIME NOT NULL,
			metadata TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);`,
		`CREATE TABLE IF NOT EXISTS vectors (
			message_id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			stored_at DATETIME NOT NULL
		);`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}
