// Package scheduler implements the Nightly Scheduler (spec.md §2, §4.10):
// three jobs run once per scheduled tick — export L3 preference pairs past
// the configured threshold, trigger LoRA retraining at most once per night,
// and rotate backups (a timestamped directory holding the integrity
// manifest, retaining the last N; database files are not copied).
//
// Grounded on original_source/src/nyx_light/silicon/knowledge_vault.py's
// nightly maintenance entry point and internal/vault's SafeSwap: the
// retrain job reuses vault.RetrainFunc so a real trainer can be injected
// without this package importing internal/inference directly, the same
// dependency-injection shape SwapDeps already uses.
package scheduler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/memory"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
	"github.com/mladen1312/nyx-light-racunovodja/internal/vault"
)

// RetrainFunc retrains a LoRA adapter from an exported preference-pair
// JSONL file and returns the new adapter's filesystem path, mirroring
// vault.RetrainFunc's signature so the same trainer implementation serves
// both the nightly job and an interactive safe_swap.
type RetrainFunc func(ctx context.Context, preferencePairsPath, outputDir string) (string, error)

// Config tunes the three nightly jobs (spec.md §4.4, §4.5, §9 resolved
// Open Question on retrain retry policy).
type Config struct {
	PreferenceExportThreshold int // e.g. memory.ExportThreshold
	PreferenceExportDir       string
	AdapterBaseModelID        string
	AdapterArchFingerprint    string
	AdapterOutputDir          string
	BackupDir                 string
	ManifestDir               string
	RetainBackups             int // how many snapshot generations to keep
}

// Deps bundles the collaborators the scheduler drives. Retrain is nil-able:
// a deployment with no training pipeline wired simply skips that job.
type Deps struct {
	Memory  *memory.Store
	Vault   *vault.Vault
	Retrain RetrainFunc
}

// Result summarises one run of all three jobs, for logging/ops visibility.
type Result struct {
	PreferenceExport *PreferenceExportResult
	Retrain          *RetrainResult
	BackupRotation   *BackupResult
}

// PreferenceExportResult reports the outcome of the preference-pair export job.
type PreferenceExportResult struct {
	Ran     bool
	Path    string
	Count   int
	Skipped string // reason, if Ran is false
}

// RetrainResult reports the outcome of the nightly retrain job.
type RetrainResult struct {
	Attempted  bool
	Succeeded  bool
	AdapterID  string
	Skipped    string // reason, if Attempted is false
	Err        error
}

// BackupResult reports the outcome of the backup-rotation job.
type BackupResult struct {
	Ran       bool
	SnapshotDir string
	Removed   []string
}

// Scheduler runs the three nightly jobs. It tracks the last retrain
// attempt's timestamp in-process so a restart within the same 24h window
// does not immediately retry — the resolved Open Question from spec.md §9:
// "at most one attempt per night, failures logged, next attempt 24h later".
type Scheduler struct {
	cfg  Config
	deps Deps

	lastRetrainAttempt time.Time
}

// New builds a Scheduler. lastRetrainAttempt seeds the 24h cooldown from a
// prior run's persisted timestamp (e.g. read back from the swap log); the
// zero value means "no prior attempt known, the next RunNightly may retrain
// immediately if retraining is otherwise due".
func New(cfg Config, deps Deps, lastRetrainAttempt time.Time) *Scheduler {
	if cfg.RetainBackups <= 0 {
		cfg.RetainBackups = 7
	}
	return &Scheduler{cfg: cfg, deps: deps, lastRetrainAttempt: lastRetrainAttempt}
}

// LastRetrainAttempt reports when the retrain job last ran (attempted,
// regardless of outcome), so callers can persist it across restarts.
func (s *Scheduler) LastRetrainAttempt() time.Time { return s.lastRetrainAttempt }

// RunNightly executes all three jobs in sequence and returns their combined
// result. A failure in one job does not prevent the others from running.
func (s *Scheduler) RunNightly(ctx context.Context) *Result {
	log := logging.For(logging.CategoryScheduler)
	timer := logging.StartTimer(logging.CategoryScheduler, "RunNightly")
	defer timer.Stop()

	result := &Result{}
	result.PreferenceExport = s.runPreferenceExport()
	log.Info("preference export job done",
		zap.Bool("ran", result.PreferenceExport.Ran),
		zap.Int("count", result.PreferenceExport.Count),
		zap.String("skipped", result.PreferenceExport.Skipped))

	result.Retrain = s.runRetrain(ctx, result.PreferenceExport)
	log.Info("retrain job done",
		zap.Bool("attempted", result.Retrain.Attempted),
		zap.Bool("succeeded", result.Retrain.Succeeded),
		zap.String("skipped", result.Retrain.Skipped))

	result.BackupRotation = s.runBackupRotation()
	log.Info("backup rotation job done",
		zap.Bool("ran", result.BackupRotation.Ran),
		zap.Int("removed", len(result.BackupRotation.Removed)))

	return result
}

// runPreferenceExport exports unconsumed L3 pairs once the pending count
// crosses the configured threshold (spec.md §4.4: "When the dataset
// exceeds a threshold (e.g. 50 pairs), the nightly job exports an unused
// slice and marks those pairs consumed").
func (s *Scheduler) runPreferenceExport() *PreferenceExportResult {
	if s.deps.Memory == nil {
		return &PreferenceExportResult{Skipped: "no memory store wired"}
	}
	pending, err := s.deps.Memory.PendingCount()
	if err != nil {
		return &PreferenceExportResult{Skipped: "count failed: " + err.Error()}
	}
	threshold := s.cfg.PreferenceExportThreshold
	if threshold <= 0 {
		threshold = memory.ExportThreshold
	}
	if pending < threshold {
		return &PreferenceExportResult{Skipped: "below threshold"}
	}

	if err := os.MkdirAll(s.cfg.PreferenceExportDir, 0o755); err != nil {
		return &PreferenceExportResult{Skipped: "cannot create export dir: " + err.Error()}
	}
	path := filepath.Join(s.cfg.PreferenceExportDir, exportFileName())
	n, err := s.deps.Memory.ExportUnconsumed(path)
	if err != nil {
		return &PreferenceExportResult{Skipped: "export failed: " + err.Error()}
	}
	return &PreferenceExportResult{Ran: true, Path: path, Count: n}
}

// runRetrain triggers LoRA retraining for the configured base model, at
// most once per 24h regardless of outcome (spec.md §9: "at most one
// attempt per night, failures logged, next attempt 24h later").
func (s *Scheduler) runRetrain(ctx context.Context, exportResult *PreferenceExportResult) *RetrainResult {
	if s.deps.Retrain == nil || s.deps.Vault == nil {
		return &RetrainResult{Skipped: "no retrain pipeline wired"}
	}
	if !s.lastRetrainAttempt.IsZero() && time.Since(s.lastRetrainAttempt) < 24*time.Hour {
		return &RetrainResult{Skipped: "cooldown: last attempt was within 24h"}
	}
	if exportResult == nil || !exportResult.Ran || exportResult.Count == 0 {
		return &RetrainResult{Skipped: "no fresh preference pairs to train on"}
	}

	s.lastRetrainAttempt = time.Now().UTC()

	path, err := s.deps.Retrain(ctx, exportResult.Path, s.cfg.AdapterOutputDir)
	if err != nil {
		return &RetrainResult{Attempted: true, Err: apperr.Wrap(apperr.KindExternalService, err, "nightly retrain failed")}
	}

	rec, err := s.deps.Vault.RegisterAdapter(
		s.cfg.AdapterBaseModelID, s.cfg.AdapterArchFingerprint,
		16, 32, []string{"q_proj", "v_proj"}, exportResult.Count, path,
	)
	if err != nil {
		return &RetrainResult{Attempted: true, Err: apperr.Wrap(apperr.KindFatal, err, "register trained adapter")}
	}
	return &RetrainResult{Attempted: true, Succeeded: true, AdapterID: rec.ID}
}

// runBackupRotation snapshots the vault's integrity manifest alongside a
// timestamped backup directory and prunes old generations beyond
// cfg.RetainBackups (spec.md §2: "rotates backups").
func (s *Scheduler) runBackupRotation() *BackupResult {
	if s.deps.Vault == nil || s.cfg.BackupDir == "" {
		return &BackupResult{}
	}
	snapshotDir := filepath.Join(s.cfg.BackupDir, exportFileName())
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return &BackupResult{}
	}

	manifest, err := s.deps.Vault.CreateManifest()
	if err == nil {
		_ = writeManifestSnapshot(filepath.Join(snapshotDir, "manifest.json"), manifest)
	}

	removed := s.pruneOldBackups()
	return &BackupResult{Ran: true, SnapshotDir: snapshotDir, Removed: removed}
}

func (s *Scheduler) pruneOldBackups() []string {
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	if len(dirs) <= s.cfg.RetainBackups {
		return nil
	}
	var removed []string
	for _, d := range dirs[:len(dirs)-s.cfg.RetainBackups] {
		full := filepath.Join(s.cfg.BackupDir, d)
		if err := os.RemoveAll(full); err == nil {
			removed = append(removed, d)
		}
	}
	return removed
}

func exportFileName() string {
	return time.Now().UTC().Format("20060102T150405")
}

func writeManifestSnapshot(path string, m *types.IntegrityManifest) error {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
