package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// TestSafeSwapRetrainsAndCompletes exercises spec.md §8 scenario 6: an
// active adapter for "qwen3_235b" swapped to a "llama3_70b" model triggers
// RETRAIN_NEEDED, a fresh adapter is registered and activated, the old one
// is archived (not deleted), and the swap ends COMPLETE.
func TestSafeSwapRetrainsAndCompletes(t *testing.T) {
	v, dir := newTestVault(t)

	old, err := v.RegisterAdapter("qwen3-235b", "qwen3_235b", 16, 32, nil, 100, filepath.Join(dir, "data/models/lora/old"))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Activate(old.ID); err != nil {
		t.Fatal(err)
	}

	archiveDir := filepath.Join(dir, "data/models/archive")
	manifestDir := filepath.Join(dir, "data/manifests")

	exported := false
	deps := SwapDeps{
		ArchiveDir:        archiveDir,
		ManifestDir:       manifestDir,
		MinPairsToRetrain: 10,
		ExportPreferences: func(path string) (int, error) {
			exported = true
			if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
				return 0, err
			}
			return 50, nil
		},
		Inference: func(ctx context.Context, modelPath, prompt string) (string, error) {
			return "Predloženi konto za trošak uredski materijal je 4010.", nil
		},
		Retrain: func(ctx context.Context, modelPath, pairsPath, outDir string) (string, error) {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return "", err
			}
			return filepath.Join(outDir, "adapter.safetensors"), nil
		},
	}

	result := v.SafeSwap(context.Background(), "qwen3-235b", "llama3-70b", deps)
	if result.Outcome != types.SwapComplete {
		t.Fatalf("expected COMPLETE, got %s (log=%+v)", result.Outcome, result.Log)
	}
	if !exported {
		t.Fatal("expected preference pairs to be exported for retraining")
	}

	active, err := v.ActiveAdapter()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID == old.ID {
		t.Fatalf("expected a new active adapter distinct from the original, got %+v", active)
	}
	if active.ArchFingerprint != "llama3_70b" {
		t.Fatalf("expected new adapter fingerprint llama3_70b, got %s", active.ArchFingerprint)
	}

	reloaded, err := v.queryOne(`SELECT body FROM adapters WHERE id = ?`, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != types.AdapterArchived {
		t.Fatalf("expected original adapter archived (not deleted), got %s", reloaded.Status)
	}
}

func TestSafeSwapCompatibleSkipsRetrain(t *testing.T) {
	v, dir := newTestVault(t)
	old, err := v.RegisterAdapter("qwen3-235b", "qwen3_235b", 16, 32, nil, 100, filepath.Join(dir, "data/models/lora/old"))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Activate(old.ID); err != nil {
		t.Fatal(err)
	}

	deps := SwapDeps{
		ArchiveDir:  filepath.Join(dir, "data/models/archive"),
		ManifestDir: filepath.Join(dir, "data/manifests"),
	}
	result := v.SafeSwap(context.Background(), "qwen3-235b", "qwen3-235b-v2", deps)
	if result.Outcome != types.SwapComplete {
		t.Fatalf("expected COMPLETE, got %s (log=%+v)", result.Outcome, result.Log)
	}

	active, err := v.ActiveAdapter()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != old.ID {
		t.Fatal("expected the original adapter to remain active on a COMPATIBLE swap")
	}
}
