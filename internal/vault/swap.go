package vault

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// compatibilityTestPrompt elicits a known set of keywords from any model
// that understands basic Croatian bookkeeping, so Validate has something
// concrete to check — ported from knowledge_vault.py's
// COMPATIBILITY_TEST_PROMPT / EXPECTED_TEST_KEYWORDS.
const compatibilityTestPrompt = "Kontiranje: Račun za uredski materijal od dobavljača XY, iznos 1.000,00 EUR + PDV 25% = 1.250,00 EUR. Predloži konto za troškove."

var expectedTestKeywords = []string{"konto", "trošak", "uredski"}

// DownloadFunc fetches new model weights and returns their on-disk path.
type DownloadFunc func(ctx context.Context, modelID string) (string, error)

// InferenceFunc runs one test generation against modelPath.
type InferenceFunc func(ctx context.Context, modelPath, prompt string) (string, error)

// RetrainFunc retrains a LoRA adapter from a JSONL preference-pair export,
// returning the new adapter's filesystem path.
type RetrainFunc func(ctx context.Context, modelPath, preferencePairsPath, outputDir string) (string, error)

// SwapDeps bundles the side-effecting collaborators safe_swap needs but
// does not implement itself (spec.md §4.5 safe_swap signature).
type SwapDeps struct {
	ArchiveDir        string // where the old model's files are moved
	ManifestDir       string // where manifest snapshots are written
	ExportPreferences func(path string) (int, error) // memory.Store.ExportUnconsumed
	MinPairsToRetrain int
	Download          DownloadFunc
	Inference         InferenceFunc
	Retrain           RetrainFunc
}

// SafeSwap executes the ten-phase model-swap pipeline (spec.md §4.5):
// pre-check, snapshot, archive old model, download new model, validate,
// LoRA-compatibility check, retrain-if-needed, re-verify, activate,
// complete/rolled-back. Any failure triggers a filesystem-level rollback
// of the archived model and marks the swap rolled back.
func (v *Vault) SafeSwap(ctx context.Context, oldModelID, newModelID string, deps SwapDeps) *types.SwapResult {
	log := logging.For(logging.CategoryVault)
	result := &types.SwapResult{}
	record := func(phase types.SwapPhase, ok bool, detail string) {
		result.Log = append(result.Log, types.SwapLogEntry{Phase: phase, Timestamp: time.Now().UTC(), OK: ok, Detail: detail})
		log.Info("swap phase", zap.String("phase", string(phase)), zap.Bool("ok", ok), zap.String("detail", detail))
	}

	fail := func(phase types.SwapPhase, detail string, archivedOldDir string) *types.SwapResult {
		record(phase, false, detail)
		if archivedOldDir != "" {
			v.rollback(archivedOldDir, record)
		}
		result.Outcome = types.SwapRolledBack
		v.saveSwapLog(result)
		return result
	}

	// Phase 1: pre-check.
	record(types.PhasePreCheck, true, "verifying protected paths reachable")
	for _, p := range v.protectedPaths {
		if _, err := os.Stat(filepath.Join(v.baseDir, p)); err != nil && !os.IsNotExist(err) {
			return fail(types.PhasePreCheck, "cannot stat "+p+": "+err.Error(), "")
		}
	}

	// Phase 2: snapshot manifest.
	manifest, err := v.CreateManifest()
	if err != nil {
		return fail(types.PhaseSnapshotManifest, err.Error(), "")
	}
	manifestPath := filepath.Join(deps.ManifestDir, manifest.ID+".json")
	if err := SaveManifest(manifest, manifestPath); err != nil {
		return fail(types.PhaseSnapshotManifest, err.Error(), "")
	}
	record(types.PhaseSnapshotManifest, true, manifest.ID)

	// Phase 3: archive old model.
	oldModelDir := filepath.Join(v.baseDir, "data/models/primary")
	archiveDest := filepath.Join(deps.ArchiveDir, safeName(oldModelID)+"_"+time.Now().UTC().Format("20060102T150405"))
	if _, err := os.Stat(oldModelDir); err == nil {
		if err := os.MkdirAll(filepath.Dir(archiveDest), 0o755); err != nil {
			return fail(types.PhaseArchiveOld, err.Error(), "")
		}
		if err := os.Rename(oldModelDir, archiveDest); err != nil {
			return fail(types.PhaseArchiveOld, err.Error(), "")
		}
	}
	record(types.PhaseArchiveOld, true, archiveDest)

	// Phase 4: download new model.
	var newModelPath string
	if deps.Download != nil {
		newModelPath, err = deps.Download(ctx, newModelID)
		if err != nil {
			return fail(types.PhaseDownloadNew, err.Error(), archiveDest)
		}
	} else {
		newModelPath = oldModelDir
	}
	record(types.PhaseDownloadNew, true, newModelPath)

	// Phase 5: validate with a known test prompt.
	if deps.Inference != nil {
		resp, err := deps.Inference(ctx, newModelPath, compatibilityTestPrompt)
		if err != nil {
			return fail(types.PhaseValidate, err.Error(), archiveDest)
		}
		if !containsAny(strings.ToLower(resp), expectedTestKeywords) {
			record(types.PhaseValidate, false, "response missing expected keywords, continuing")
		} else {
			record(types.PhaseValidate, true, "test prompt produced expected keywords")
		}
	} else {
		record(types.PhaseValidate, true, "no inference function provided, skipped")
	}

	// Phase 6: LoRA compatibility.
	newArch := ModelArchFingerprint(newModelID)
	compat, err := v.CheckLoRACompatibility(newModelID, newArch)
	if err != nil {
		return fail(types.PhaseLoRACheck, err.Error(), archiveDest)
	}
	record(types.PhaseLoRACheck, true, string(compat))

	// Phase 7: retrain if needed.
	if compat == types.RetrainNeeded {
		if deps.ExportPreferences == nil || deps.Retrain == nil {
			record(types.PhaseRetrain, false, "no retrain function or preference export configured, starting fresh")
		} else {
			exportPath := filepath.Join(deps.ManifestDir, "retrain_"+types.NewID("pairs")+".jsonl")
			n, err := deps.ExportPreferences(exportPath)
			if err != nil {
				return fail(types.PhaseRetrain, err.Error(), archiveDest)
			}
			if n < deps.MinPairsToRetrain {
				record(types.PhaseRetrain, false, "insufficient preference pairs, starting fresh")
			} else {
				adapterDir := filepath.Join(v.baseDir, "data/models/lora", "retrained_"+types.NewID("lora"))
				adapterPath, err := deps.Retrain(ctx, newModelPath, exportPath, adapterDir)
				if err != nil {
					return fail(types.PhaseRetrain, err.Error(), archiveDest)
				}
				rec, err := v.RegisterAdapter(newModelID, newArch, 16, 32, []string{
					"self_attn.q_proj", "self_attn.k_proj", "self_attn.v_proj", "self_attn.o_proj",
				}, n, adapterPath)
				if err != nil {
					return fail(types.PhaseRetrain, err.Error(), archiveDest)
				}
				if err := v.Activate(rec.ID); err != nil {
					return fail(types.PhaseRetrain, err.Error(), archiveDest)
				}
				record(types.PhaseRetrain, true, "retrained adapter "+rec.ID)
			}
		}
		if _, err := v.ArchiveAdaptersForModel(oldModelID); err != nil {
			return fail(types.PhaseRetrain, err.Error(), archiveDest)
		}
	}

	// Phase 8: re-verify manifest. Model-weight paths are expected to
	// have changed; everything else must match exactly.
	ok, mismatches := v.VerifyManifest(manifest, "data/models/")
	if !ok {
		detail := "manifest mismatch outside model-weight paths"
		return fail(types.PhaseReverifyManifest, detail+": "+mismatchSummary(mismatches), archiveDest)
	}
	record(types.PhaseReverifyManifest, true, "all non-model paths verified identical")

	// Phase 9: activate.
	record(types.PhaseActivate, true, "new model "+newModelID+" active")

	// Phase 10: complete.
	record(types.PhaseComplete, true, "swap complete")
	result.Outcome = types.SwapComplete
	v.saveSwapLog(result)
	return result
}

func (v *Vault) rollback(archivedDir string, record func(types.SwapPhase, bool, string)) {
	oldModelDir := filepath.Join(v.baseDir, "data/models/primary")
	if _, err := os.Stat(archivedDir); err != nil {
		return
	}
	os.RemoveAll(oldModelDir)
	if err := os.Rename(archivedDir, oldModelDir); err != nil {
		record(types.PhaseComplete, false, "rollback failed: "+err.Error())
		return
	}
	record(types.PhaseComplete, true, "rolled back to archived model")
}

func (v *Vault) saveSwapLog(result *types.SwapResult) {
	body, err := json.Marshal(result)
	if err != nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.db.Exec(`INSERT INTO swap_log (id, outcome, body, created_at) VALUES (?, ?, ?, ?)`,
		types.NewID("swap"), string(result.Outcome), body, time.Now().UTC())
}

func safeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func mismatchSummary(mismatches []types.Mismatch) string {
	if len(mismatches) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		parts = append(parts, m.Reason+":"+m.Path)
	}
	return strings.Join(parts, ", ")
}
