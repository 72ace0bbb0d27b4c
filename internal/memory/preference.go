package memory

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// ExportThreshold is the pending-pair count at which the nightly scheduler
// exports an unused slice (spec.md §4.4: "When the dataset exceeds a
// threshold (e.g. 50 pairs) ...").
const ExportThreshold = 50

// RecordPreferencePair appends one DPO-style training triple (spec.md §3
// GLOSSARY "DPO pair", §4.4: "every correction also produces (prompt,
// chosen, rejected, correction_kind)").
func (s *Store) RecordPreferencePair(prompt, chosen, rejected, correctionKind string) (*types.PreferencePair, error) {
	pair := types.PreferencePair{
		ID: types.NewID("pref"), Prompt: prompt, Chosen: chosen, Rejected: rejected,
		CorrectionKind: correctionKind, Consumed: false, CreatedAt: time.Now().UTC(),
	}
	body, err := encode(pair)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "encode preference pair")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO preference (id, body, consumed, created_at) VALUES (?, ?, 0, ?)`,
		pair.ID, body, pair.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "insert preference pair")
	}
	return &pair, nil
}

// PendingCount reports how many preference pairs have not yet been
// exported, so the scheduler can check against ExportThreshold.
func (s *Store) PendingCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM preference WHERE consumed = 0`).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "count pending preference pairs")
	}
	return n, nil
}

// ExportUnconsumed writes every unconsumed pair to a JSONL file at path
// (one JSON object per line, the LoRA trainer's expected input shape) and
// marks them consumed in the same call, so a crash between write and mark
// can at worst re-export a batch, never silently drop one.
func (s *Store) ExportUnconsumed(path string) (int, error) {
	s.mu.Lock()
	rows, err := s.db.Query(`SELECT id, body FROM preference WHERE consumed = 0 ORDER BY created_at ASC`)
	s.mu.Unlock()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "query unconsumed preference pairs")
	}

	type row struct {
		id   string
		body string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.body); err != nil {
			rows.Close()
			return 0, apperr.Wrap(apperr.KindFatal, err, "scan preference pair")
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "iterate preference pairs")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "create export file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		var pair types.PreferencePair
		if err := json.Unmarshal([]byte(r.body), &pair); err != nil {
			return 0, apperr.Wrap(apperr.KindFatal, err, "decode preference pair")
		}
		if err := enc.Encode(pair); err != nil {
			return 0, apperr.Wrap(apperr.KindFatal, err, "write preference pair")
		}
		ids = append(ids, r.id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "begin consume transaction")
	}
	stmt, err := tx.Prepare(`UPDATE preference SET consumed = 1 WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return 0, apperr.Wrap(apperr.KindFatal, err, "prepare consume statement")
	}
	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, apperr.Wrap(apperr.KindFatal, err, "mark preference pair consumed")
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "commit consume transaction")
	}
	return len(ids), nil
}
