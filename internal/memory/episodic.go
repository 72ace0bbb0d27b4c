package memory

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// dayFormat is the YYYY-MM-DD key spec.md §4.4 scopes episodic search and
// roll-off to ("today's dialogue ... searchable by substring ... older
// entries roll off by day").
const dayFormat = "2006-01-02"

// RecordTurn inserts one completed chat turn into L1 (spec.md §4.4:
// "inserted on every completed chat turn").
func (s *Store) RecordTurn(userID, sessionID, query, responseDigest string) (*types.EpisodicEntry, error) {
	now := time.Now().UTC()
	entry := types.EpisodicEntry{
		ID:             types.NewID("epi"),
		Query:          query,
		ResponseDigest: responseDigest,
		UserID:         userID,
		SessionID:      sessionID,
		Day:            now.Format(dayFormat),
		CreatedAt:      now,
	}
	body, err := encode(entry)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "encode episodic entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO episodic (id, day, user_id, session_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Day, entry.UserID, entry.SessionID, body, entry.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "insert episodic entry")
	}
	return &entry, nil
}

// SearchToday performs a substring search over today's episodic entries
// for the given user (spec.md §4.4: "let the chat answer 'what did I say
// earlier today'"). Matching is case-insensitive over the query text.
func (s *Store) SearchToday(userID, substring string) ([]types.EpisodicEntry, error) {
	today := time.Now().UTC().Format(dayFormat)
	return s.searchDay(userID, today, substring)
}

func (s *Store) searchDay(userID, day, substring string) ([]types.EpisodicEntry, error) {
	s.mu.Lock()
	rows, err := s.db.Query(
		`SELECT body FROM episodic WHERE user_id = ? AND day = ? ORDER BY created_at ASC`,
		userID, day,
	)
	s.mu.Unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "query episodic entries")
	}
	defer rows.Close()

	lowerNeedle := strings.ToLower(substring)
	var out []types.EpisodicEntry
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "scan episodic entry")
		}
		var entry types.EpisodicEntry
		if err := json.Unmarshal([]byte(body), &entry); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "decode episodic entry")
		}
		if lowerNeedle == "" || strings.Contains(strings.ToLower(entry.Query), lowerNeedle) {
			out = append(out, entry)
		}
	}
	return out, rows.Err()
}

// RollOff deletes every episodic entry older than retainDays full calendar
// days (spec.md §4.4: "older entries roll off by day"), called by the
// nightly scheduler.
func (s *Store) RollOff(retainDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retainDays).Format(dayFormat)

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM episodic WHERE day < ?`, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "roll off episodic entries")
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "rows affected")
	}
	return n, nil
}
