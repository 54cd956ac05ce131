package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements RecordSource, QuotaStore and ConversationStore using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
	now     func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkins (
		id                  TEXT PRIMARY KEY,
		date                TEXT NOT NULL,
		mood                INTEGER NOT NULL,
		energy              INTEGER NOT NULL,
		focus               INTEGER NOT NULL,
		urges               INTEGER NOT NULL,
		faith               INTEGER NOT NULL,
		progress_reflection TEXT NOT NULL DEFAULT '',
		journey_reflection  TEXT NOT NULL DEFAULT '',
		created_at          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_checkins_date ON checkins(date DESC, created_at DESC);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id         TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_journal_created ON journal_entries(created_at DESC);

	CREATE TABLE IF NOT EXISTS why_entries (
		id         TEXT PRIMARY KEY,
		category   TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS streak (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		started_at      TEXT,
		longest_days    INTEGER NOT NULL DEFAULT 0,
		prior_days      INTEGER NOT NULL DEFAULT 0,
		commitment_date TEXT
	);

	CREATE TABLE IF NOT EXISTS quota (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		message_count INTEGER NOT NULL DEFAULT 0,
		reset_date    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id               TEXT PRIMARY KEY,
		conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender           TEXT NOT NULL CHECK (sender IN ('user', 'assistant')),
		content          TEXT NOT NULL,
		citations        TEXT,
		suggested_action TEXT,
		is_error         INTEGER NOT NULL DEFAULT 0,
		error_text       TEXT,
		created_at       TEXT NOT NULL,
		seq              INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		// Rows written by hand may carry plain RFC3339.
		t, _ = time.Parse(time.RFC3339, v)
	}
	return t
}

func nullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func encodeStrings(ss []string) *string {
	if len(ss) == 0 {
		return nil
	}
	b, _ := json.Marshal(ss)
	v := string(b)
	return &v
}

type scanner interface {
	Scan(dest ...interface{}) error
}
