// Package memory implements the four-tier memory system (spec.md §3,
// §4.4): L0 working (in-process, never persisted), L1 episodic (today's
// dialogue, day-scoped substring search), L2 semantic (learned
// account-preference rules with monotonic confidence), and L3 preference
// (DPO-style training pairs exported by the nightly scheduler). L0 is a
// plain in-process map; L1/L2/L3 persist in one SQLite database so they
// outlive any model swap, per spec.md §4.4: "All tiers persist
// independently of the model."
//
// Grounded on internal/pipeline/store.go's WAL-mode SQLite pattern: one
// mutex-guarded *sql.DB, one table per concern, JSON-encoded bodies where
// the row itself is not queried by field.
package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"

	_ "modernc.org/sqlite"
)

// Store is the persisted backing for L1/L2/L3.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (and migrates) the memory database at path.
func NewStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "NewStore")
	defer timer.Stop()

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS episodic (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_episodic_day ON episodic(day);

	CREATE TABLE IF NOT EXISTS semantic (
		client_id TEXT NOT NULL,
		supplier_tax_id TEXT NOT NULL,
		document_kind TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (client_id, supplier_tax_id, document_kind)
	);

	CREATE TABLE IF NOT EXISTS preference (
		id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		consumed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_preference_consumed ON preference(consumed);
	`)
	return err
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
