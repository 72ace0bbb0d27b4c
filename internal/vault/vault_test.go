package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func newTestVault(t *testing.T) (*Vault, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data/memory"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data/memory/memory.db"), []byte("fake-db-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := New(dir, filepath.Join(dir, "data/vault/registry.db"), []string{"data/memory", "config.json"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { v.Close() })
	return v, dir
}

// TestVerifyManifestImmediatelyAfterCreate is spec.md §8 invariant 8:
// "verify_manifest(create_manifest()) returns ok with zero mismatches
// immediately after creation."
func TestVerifyManifestImmediatelyAfterCreate(t *testing.T) {
	v, _ := newTestVault(t)
	m, err := v.CreateManifest()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalFiles != 2 {
		t.Fatalf("expected 2 hashed files, got %d", m.TotalFiles)
	}
	ok, mismatches := v.VerifyManifest(m)
	if !ok || len(mismatches) != 0 {
		t.Fatalf("expected clean verify, got ok=%v mismatches=%v", ok, mismatches)
	}
}

// TestManifestRoundTripsThroughDisk: "a manifest created, stored to disk,
// re-loaded, and re-verified yields zero mismatches" (spec.md §8).
func TestManifestRoundTripsThroughDisk(t *testing.T) {
	v, dir := newTestVault(t)
	m, err := v.CreateManifest()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "manifest.json")
	if err := SaveManifest(m, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	ok, mismatches := v.VerifyManifest(loaded)
	if !ok || len(mismatches) != 0 {
		t.Fatalf("round-tripped manifest failed to verify: %v", mismatches)
	}
}

func TestVerifyManifestDetectsTamper(t *testing.T) {
	v, dir := newTestVault(t)
	m, err := v.CreateManifest()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"a":2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, mismatches := v.VerifyManifest(m)
	if ok || len(mismatches) == 0 {
		t.Fatal("expected a mismatch after tampering with config.json")
	}
}

func TestAtMostOneActiveAdapter(t *testing.T) {
	v, _ := newTestVault(t)
	a, err := v.RegisterAdapter("qwen3-235b", "qwen3_235b", 16, 32, nil, 100, "/data/lora/a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.RegisterAdapter("qwen3-235b", "qwen3_235b", 16, 32, nil, 120, "/data/lora/b")
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Activate(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := v.Activate(b.ID); err != nil {
		t.Fatal(err)
	}
	active, err := v.ActiveAdapter()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != b.ID {
		t.Fatalf("expected adapter b active, got %+v", active)
	}
}

func TestLoRACompatibility(t *testing.T) {
	v, _ := newTestVault(t)
	rec, err := v.RegisterAdapter("qwen3-235b", "qwen3_235b", 16, 32, nil, 100, "/data/lora/a")
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Activate(rec.ID); err != nil {
		t.Fatal(err)
	}

	compat, err := v.CheckLoRACompatibility("qwen3-235b-v2", "")
	if err != nil {
		t.Fatal(err)
	}
	if compat != types.Compatible {
		t.Fatalf("expected COMPATIBLE for same family, got %s", compat)
	}

	compat, err = v.CheckLoRACompatibility("llama3-70b", "")
	if err != nil {
		t.Fatal(err)
	}
	if compat != types.RetrainNeeded {
		t.Fatalf("expected RETRAIN_NEEDED for different family, got %s", compat)
	}
}

func TestLoRACompatibilityNoAdapters(t *testing.T) {
	v, _ := newTestVault(t)
	compat, err := v.CheckLoRACompatibility("llama3-70b", "")
	if err != nil {
		t.Fatal(err)
	}
	if compat != types.NoAdapters {
		t.Fatalf("expected NO_ADAPTERS, got %s", compat)
	}
}
