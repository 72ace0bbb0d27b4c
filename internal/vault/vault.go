// Package vault implements the Knowledge Vault (spec.md §4.5): the
// guardian of every piece of learned state — memory tiers, preference
// pairs, the RAG corpus, LoRA adapters, configuration and backups —
// across an LLM base-model swap.
//
// Grounded on original_source/src/nyx_light/silicon/knowledge_vault.py's
// KnowledgeVault class: the protected-path manifest walk, the
// architecture-fingerprint LoRA compatibility check, and the ten-phase
// safe_swap pipeline are ported verbatim in shape, with the Python
// dataclass registry turned into a small SQLite table following the same
// WAL-mode pattern internal/pipeline and internal/memory already use.
package vault

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"

	_ "modernc.org/sqlite"
)

// Vault is the guardian of all persistent, model-independent state.
type Vault struct {
	baseDir        string
	protectedPaths []string

	db *sql.DB
	mu sync.Mutex
}

// New opens (and migrates) the adapter registry database at
// filepath.Join(baseDir, registryPath), guarding the set of
// protectedPaths named in config (spec.md §4.5 "a fixed list of
// protected paths").
func New(baseDir, registryPath string, protectedPaths []string) (*Vault, error) {
	timer := logging.StartTimer(logging.CategoryVault, "New")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(registryPath), 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "create vault registry dir")
	}
	db, err := sql.Open("sqlite", registryPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "open vault registry")
	}
	db.SetMaxOpenConns(1)

	v := &Vault{baseDir: baseDir, protectedPaths: protectedPaths, db: db}
	if err := v.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return v, nil
}

func (v *Vault) Close() error { return v.db.Close() }

func (v *Vault) migrate() error {
	_, err := v.db.Exec(`
	CREATE TABLE IF NOT EXISTS adapters (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS swap_log (
		id TEXT PRIMARY KEY,
		outcome TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`)
	return err
}

// CreateManifest walks every protected path, SHA-256-hashing each file it
// finds, and returns the resulting IntegrityManifest (spec.md §4.5).
func (v *Vault) CreateManifest() (*types.IntegrityManifest, error) {
	timer := logging.StartTimer(logging.CategoryVault, "CreateManifest")
	defer timer.Stop()

	m := &types.IntegrityManifest{
		ID:        types.NewID("manifest"),
		Timestamp: time.Now().UTC(),
		BaseDir:   v.baseDir,
		Hashes:    make(map[string]string),
	}

	for _, p := range v.protectedPaths {
		full := filepath.Join(v.baseDir, p)
		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue // a protected path may not exist yet on a fresh install
			}
			return nil, apperr.Wrap(apperr.KindFatal, err, "stat protected path "+p)
		}
		if info.IsDir() {
			if err := v.hashDir(full, m); err != nil {
				return nil, err
			}
			continue
		}
		h, size, err := hashFile(full)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "hash "+p)
		}
		m.Hashes[p] = h
		m.TotalFiles++
		m.TotalBytes += size
	}
	return m, nil
}

func (v *Vault) hashDir(dir string, m *types.IntegrityManifest) error {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "walk "+dir)
	}
	sort.Strings(files)
	for _, f := range files {
		rel, err := filepath.Rel(v.baseDir, f)
		if err != nil {
			return apperr.Wrap(apperr.KindFatal, err, "relativize "+f)
		}
		h, size, err := hashFile(f)
		if err != nil {
			return apperr.Wrap(apperr.KindFatal, err, "hash "+f)
		}
		m.Hashes[rel] = h
		m.TotalFiles++
		m.TotalBytes += size
	}
	return nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// SaveManifest writes m as JSON to path — used to snapshot a manifest to
// disk before a swap, per the round-trip property in spec.md §8.
func SaveManifest(m *types.IntegrityManifest, path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "marshal manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "create manifest dir")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "write manifest")
	}
	return nil
}

// LoadManifest reads a manifest previously written by SaveManifest.
func LoadManifest(path string) (*types.IntegrityManifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "read manifest")
	}
	var m types.IntegrityManifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "unmarshal manifest")
	}
	return &m, nil
}

// VerifyManifest re-hashes every path recorded in m and reports any
// mismatch (spec.md §4.5, §8 invariant 8). modelWeightPrefixes names path
// prefixes that are EXPECTED to change across a model swap (e.g.
// "data/models/"); a mismatch under one of those prefixes is still
// reported but the caller (safe_swap) treats it as non-fatal.
func (v *Vault) VerifyManifest(m *types.IntegrityManifest, modelWeightPrefixes ...string) (bool, []types.Mismatch) {
	timer := logging.StartTimer(logging.CategoryVault, "VerifyManifest")
	defer timer.Stop()

	var mismatches []types.Mismatch
	paths := make([]string, 0, len(m.Hashes))
	for p := range m.Hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		expected := m.Hashes[rel]
		full := filepath.Join(v.baseDir, rel)
		actual, _, err := hashFile(full)
		if err != nil {
			if isExpectedChange(rel, modelWeightPrefixes) {
				continue
			}
			mismatches = append(mismatches, types.Mismatch{Path: rel, Expected: expected, Reason: "missing"})
			continue
		}
		if actual != expected {
			if isExpectedChange(rel, modelWeightPrefixes) {
				continue
			}
			mismatches = append(mismatches, types.Mismatch{Path: rel, Expected: expected, Actual: actual, Reason: "changed"})
		}
	}
	return len(mismatches) == 0, mismatches
}

func isExpectedChange(rel string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(rel) >= len(p) && rel[:len(p)] == p {
			return true
		}
	}
	return false
}
