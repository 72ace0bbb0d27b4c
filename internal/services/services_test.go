package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mladen1312/nyx-light-racunovodja/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Environment.DataDir = dir
	cfg.Environment.ModelsDir = filepath.Join(dir, "models")
	cfg.Environment.LogsDir = filepath.Join(dir, "logs")
	cfg.Environment.BackupsDir = filepath.Join(dir, "backups")
	cfg.Memory.DatabasePath = filepath.Join(dir, "memory.db")
	cfg.RAG.DatabasePath = filepath.Join(dir, "rag.db")
	cfg.Pipeline.DatabasePath = filepath.Join(dir, "pipeline.db")
	cfg.Pipeline.ExportDir = filepath.Join(dir, "exports")
	cfg.Vault.ManifestDir = filepath.Join(dir, "manifests")
	cfg.Vault.ProtectedPaths = []string{cfg.Memory.DatabasePath}
	cfg.LLM.DirectAPIKey = ""
	cfg.LLM.ServerBaseURL = ""
	return cfg
}

func TestBuildWiresEveryCollaborator(t *testing.T) {
	cfg := testConfig(t)
	svc, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer svc.Close()

	if svc.MemoryStore == nil || svc.RAGStore == nil || svc.PipelineStore == nil {
		t.Fatal("expected storage handles to be wired")
	}
	if svc.Pipeline == nil || svc.Vault == nil || svc.Overseer == nil || svc.Executor == nil {
		t.Fatal("expected pipeline/vault/overseer/executor to be wired")
	}
	if svc.Scheduler == nil || svc.Queue == nil || svc.Silicon == nil {
		t.Fatal("expected scheduler/queue/silicon to be wired")
	}
	if svc.Working == nil || svc.RAGMonitor == nil {
		t.Fatal("expected in-process collaborators to be wired")
	}
	// No direct API key and no server URL configured: the inference engine
	// is nil until an operator configures a backend, never a fatal error.
	if svc.Inference != nil {
		t.Fatal("expected nil inference engine with no backend configured")
	}
}

func TestBuildCreatesConfiguredDirectories(t *testing.T) {
	cfg := testConfig(t)
	svc, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer svc.Close()

	for _, dir := range []string{cfg.Environment.DataDir, cfg.Environment.ModelsDir, cfg.Pipeline.ExportDir, cfg.Vault.ManifestDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected dir %s to exist: %v", dir, err)
		}
	}
}

func TestCloseIsNilSafe(t *testing.T) {
	var svc *Services
	svc.Close() // must not panic
}
