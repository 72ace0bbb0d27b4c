package vault

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// RegisterAdapter records a newly-trained LoRA adapter in the registry
// with status Ready (spec.md §3 AdapterRecord, §4.5 "register_adapter").
func (v *Vault) RegisterAdapter(baseModelID, archFingerprint string, rank, alpha int, targetModules []string, pairCount int, path string) (*types.AdapterRecord, error) {
	rec := &types.AdapterRecord{
		ID: types.NewID("adapter"), BaseModelID: baseModelID, ArchFingerprint: archFingerprint,
		Rank: rank, Alpha: alpha, TargetModules: targetModules, PairCount: pairCount,
		Status: types.AdapterReady, Path: path, CreatedAt: time.Now().UTC(),
	}
	if err := v.upsertAdapter(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (v *Vault) upsertAdapter(rec *types.AdapterRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "encode adapter record")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, err = v.db.Exec(
		`INSERT INTO adapters (id, status, body, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, body = excluded.body`,
		rec.ID, string(rec.Status), body, rec.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "upsert adapter record")
	}
	return nil
}

// ActiveAdapter returns the single adapter currently marked Active, or nil
// if none is (spec.md §3 invariant: "at most one adapter is active").
func (v *Vault) ActiveAdapter() (*types.AdapterRecord, error) {
	return v.queryOne(`SELECT body FROM adapters WHERE status = ? ORDER BY created_at DESC LIMIT 1`, string(types.AdapterActive))
}

// LatestAdapter returns the most recently created Ready or Active
// adapter, optionally scoped to a base model id.
func (v *Vault) LatestAdapter(baseModelID string) (*types.AdapterRecord, error) {
	v.mu.Lock()
	rows, err := v.db.Query(`SELECT body FROM adapters WHERE status IN (?, ?) ORDER BY created_at DESC`, string(types.AdapterReady), string(types.AdapterActive))
	v.mu.Unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "query latest adapter")
	}
	defer rows.Close()
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "scan adapter")
		}
		var rec types.AdapterRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "decode adapter")
		}
		if baseModelID == "" || rec.BaseModelID == baseModelID {
			return &rec, nil
		}
	}
	return nil, rows.Err()
}

func (v *Vault) queryOne(query string, args ...interface{}) (*types.AdapterRecord, error) {
	v.mu.Lock()
	var body string
	err := v.db.QueryRow(query, args...).Scan(&body)
	v.mu.Unlock()
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "query adapter")
	}
	var rec types.AdapterRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "decode adapter")
	}
	return &rec, nil
}

// ModelArchFingerprint derives the coarse architecture fingerprint used
// for LoRA compatibility checks (spec.md §4.5: "family + parameter count,
// e.g. qwen3_235b") from a model id such as "Qwen3-235B-Instruct".
func ModelArchFingerprint(modelID string) string {
	s := strings.ToLower(modelID)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "")
	parts := strings.Split(s, "_")
	if len(parts) >= 2 {
		return parts[0] + "_" + parts[1]
	}
	return s
}

// CheckLoRACompatibility compares the active (or, failing that, latest)
// adapter's architecture fingerprint against newArch (spec.md §4.5).
func (v *Vault) CheckLoRACompatibility(newModelID, newArch string) (types.LoRACompatibility, error) {
	active, err := v.ActiveAdapter()
	if err != nil {
		return "", err
	}
	if active == nil {
		active, err = v.LatestAdapter("")
		if err != nil {
			return "", err
		}
	}
	if active == nil {
		return types.NoAdapters, nil
	}
	if newArch == "" {
		newArch = ModelArchFingerprint(newModelID)
	}
	if active.ArchFingerprint == newArch {
		return types.Compatible, nil
	}
	return types.RetrainNeeded, nil
}

// ArchiveAdaptersForModel flips every Ready/Active adapter trained on
// baseModelID to Archived (spec.md §4.5: "retired (never deleted) on the
// next model swap").
func (v *Vault) ArchiveAdaptersForModel(baseModelID string) (int, error) {
	v.mu.Lock()
	rows, err := v.db.Query(`SELECT body FROM adapters WHERE status IN (?, ?)`, string(types.AdapterReady), string(types.AdapterActive))
	v.mu.Unlock()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "query adapters to archive")
	}
	var toArchive []types.AdapterRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			rows.Close()
			return 0, apperr.Wrap(apperr.KindFatal, err, "scan adapter")
		}
		var rec types.AdapterRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			rows.Close()
			return 0, apperr.Wrap(apperr.KindFatal, err, "decode adapter")
		}
		if rec.BaseModelID == baseModelID {
			toArchive = append(toArchive, rec)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperr.Wrap(apperr.KindFatal, err, "iterate adapters")
	}

	for i := range toArchive {
		toArchive[i].Status = types.AdapterArchived
		if err := v.upsertAdapter(&toArchive[i]); err != nil {
			return 0, err
		}
	}
	return len(toArchive), nil
}

// Activate marks id Active. Any previously-Active adapter is left
// Archived first, preserving the "at most one active" invariant.
func (v *Vault) Activate(id string) error {
	v.mu.Lock()
	rows, err := v.db.Query(`SELECT body FROM adapters WHERE status = ?`, string(types.AdapterActive))
	v.mu.Unlock()
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "query active adapter")
	}
	var current []types.AdapterRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			rows.Close()
			return apperr.Wrap(apperr.KindFatal, err, "scan adapter")
		}
		var rec types.AdapterRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			rows.Close()
			return apperr.Wrap(apperr.KindFatal, err, "decode adapter")
		}
		current = append(current, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "iterate active adapters")
	}
	for i := range current {
		current[i].Status = types.AdapterArchived
		if err := v.upsertAdapter(&current[i]); err != nil {
			return err
		}
	}

	v.mu.Lock()
	var body string
	err = v.db.QueryRow(`SELECT body FROM adapters WHERE id = ?`, id).Scan(&body)
	v.mu.Unlock()
	if err == sql.ErrNoRows {
		return apperr.New(apperr.KindNotFound, "adapter not found: "+id)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "load adapter to activate")
	}
	var rec types.AdapterRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "decode adapter to activate")
	}
	rec.Status = types.AdapterActive
	return v.upsertAdapter(&rec)
}
