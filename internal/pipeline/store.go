// Package pipeline implements the booking pipeline (spec.md §4.1): the
// standard-form, human-in-the-loop state machine every module's output
// funnels through on its way to ERP export.
package pipeline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"

	_ "modernc.org/sqlite"
)

// Store persists BookingProposals and CorrectionRecords in a WAL-mode
// SQLite database, the way the teacher's internal/store package persists
// facts — one table per concern, one mutex-guarded *sql.DB per store.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	// exportMu serialises export_approved calls globally (spec.md §5:
	// "two concurrent export_approved calls see disjoint sets").
	exportMu sync.Mutex
}

// NewStore opens (and migrates) the pipeline database at path.
func NewStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "NewStore")
	defer timer.Stop()

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open pipeline store: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer; WAL still allows concurrent readers

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
	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		status TEXT NOT NULL,
		document_kind TEXT NOT NULL,
		erp_target TEXT NOT NULL,
		document_no TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
	CREATE INDEX IF NOT EXISTS idx_proposals_client ON proposals(client_id);

	CREATE TABLE IF NOT EXISTS corrections (
		id TEXT PRIMARY KEY,
		proposal_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`)
	return err
}

func encode(p *types.BookingProposal) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(body string) (*types.BookingProposal, error) {
	var p types.BookingProposal
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// insert stores a brand-new proposal row.
func (s *Store) insert(p *types.BookingProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO proposals (id, client_id, status, document_kind, erp_target, document_no, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClientID, string(p.Status), string(p.DocumentKind), string(p.ERPTarget), p.Meta.DocumentNo, body, p.CreatedAt,
	)
	return err
}

// get loads a proposal by id.
func (s *Store) get(id string) (*types.BookingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var body string
	err := s.db.QueryRow(`SELECT body FROM proposals WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(body)
}

// casUpdate performs a compare-and-swap status transition: it only applies
// mutate if the row's current status equals expectedStatus, and reports
// whether it did. This is how "two approvals for the same id race and at
// most one succeeds" (spec.md §5) is enforced without an explicit per-id
// lock: SQLite's single-writer transaction serialises the read-modify-write.
func (s *Store) casUpdate(id string, expectedStatus types.Status, mutate func(p *types.BookingProposal) error) (bool, *types.BookingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback()

	var body string
	var status string
	err = tx.QueryRow(`SELECT body, status FROM proposals WHERE id = ?`, id).Scan(&body, &status)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if types.Status(status) != expectedStatus {
		return false, nil, nil
	}

	p, err := decode(body)
	if err != nil {
		return false, nil, err
	}
	if err := mutate(p); err != nil {
		return false, nil, err
	}

	newBody, err := encode(p)
	if err != nil {
		return false, nil, err
	}
	if _, err := tx.Exec(`UPDATE proposals SET status = ?, body = ? WHERE id = ?`, string(p.Status), newBody, id); err != nil {
		return false, nil, err
	}
	if err := tx.Commit(); err != nil {
		return false, nil, err
	}
	return true, p, nil
}

// listByStatus returns every proposal in one of the given statuses,
// optionally filtered by client and ERP target.
func (s *Store) listByStatus(statuses []types.Status, clientID string, erp types.ERPTarget) ([]*types.BookingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := ""
	args := make([]interface{}, 0, len(statuses)+2)
	for i, st := range statuses {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, string(st))
	}
	query := fmt.Sprintf(`SELECT body FROM proposals WHERE status IN (%s)`, placeholders)
	if clientID != "" {
		query += " AND client_id = ?"
		args = append(args, clientID)
	}
	if erp != "" {
		query += " AND erp_target = ?"
		args = append(args, string(erp))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.BookingProposal
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		p, err := decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// markExported flips a set of ids to "exported" inside a single
// transaction — all-or-nothing with the file write that precedes it
// (spec.md §4.1: "Export is all-or-nothing").
func (s *Store) markExported(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE proposals SET status = ? WHERE id = ?`, string(types.StatusExported), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertCorrection(c *types.CorrectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO corrections (id, proposal_id, body, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.ProposalID, string(body), c.CreatedAt)
	return err
}
