// Package services builds the explicit, non-singleton Services record that
// is threaded through every collaborator at startup (spec.md §9 design
// note 3: "Global mutable singleton app state re-architects as an explicit
// Services record constructed at startup and threaded through every
// component: storage handle, inference engine, request queue, memory
// system, RAG, pipeline, overseer."). Nothing in this repo reaches for a
// package-level mutable global; every command and handler that needs a
// collaborator receives it through a *Services value.
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/config"
	"github.com/mladen1312/nyx-light-racunovodja/internal/erpexport"
	"github.com/mladen1312/nyx-light-racunovodja/internal/inference"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/memory"
	"github.com/mladen1312/nyx-light-racunovodja/internal/overseer"
	"github.com/mladen1312/nyx-light-racunovodja/internal/pipeline"
	"github.com/mladen1312/nyx-light-racunovodja/internal/queue"
	"github.com/mladen1312/nyx-light-racunovodja/internal/rag"
	"github.com/mladen1312/nyx-light-racunovodja/internal/router"
	"github.com/mladen1312/nyx-light-racunovodja/internal/scheduler"
	"github.com/mladen1312/nyx-light-racunovodja/internal/silicon"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
	"github.com/mladen1312/nyx-light-racunovodja/internal/vault"
)

// Services bundles every collaborator a command needs, constructed once at
// startup and passed down explicitly (spec.md §9 design note 3). Every
// field here has a fixed, documented operation set — no dynamic attribute
// lookup, no "if hasattr" fallback (design note 4).
type Services struct {
	Config *config.Config

	Silicon   *silicon.Runtime
	Inference inference.Engine
	Queue     *queue.Queue

	MemoryStore *memory.Store
	Working     *memory.Working

	RAGStore   *rag.Store
	RAGMonitor *rag.Monitor

	PipelineStore *pipeline.Store
	Pipeline      *pipeline.Pipeline
	Intake        *pipeline.Intake

	Vault *vault.Vault

	Overseer *overseer.Overseer
	Executor *router.Executor

	Scheduler *scheduler.Scheduler
}

// Build constructs every collaborator from cfg and wires them into one
// Services record. Inference backend selection happens here: in "auto"
// mode with a server configured, Build probes the server's /health once
// (spec.md §4.7 "auto" policy) to choose between server and direct.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logging.For(logging.CategoryBoot)

	for _, dir := range []string{
		cfg.Environment.DataDir, cfg.Environment.ModelsDir, cfg.Environment.LogsDir,
		cfg.Environment.BackupsDir, cfg.Pipeline.ExportDir, cfg.Vault.ManifestDir,
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	memStore, err := memory.NewStore(cfg.Memory.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	ragStore, err := rag.NewStore(cfg.RAG.DatabasePath)
	if err != nil {
		memStore.Close()
		return nil, fmt.Errorf("open rag store: %w", err)
	}

	pipeStore, err := pipeline.NewStore(cfg.Pipeline.DatabasePath)
	if err != nil {
		memStore.Close()
		ragStore.Close()
		return nil, fmt.Errorf("open pipeline store: %w", err)
	}
	pipe := pipeline.New(pipeStore, cfg.Pipeline.ExportDir, erpexport.Default())

	clients := make([]pipeline.ClientRecord, len(cfg.Pipeline.Clients))
	for i, c := range cfg.Pipeline.Clients {
		clients[i] = pipeline.ClientRecord{
			ClientID: c.ClientID, OIB: c.OIB, IBAN: c.IBAN,
			SenderDomain: c.SenderDomain, Folder: c.Folder,
		}
	}
	intake := pipeline.NewIntake(clients)

	registryPath := filepath.Join(cfg.Vault.ManifestDir, "registry.db")
	v, err := vault.New(".", registryPath, cfg.Vault.ProtectedPaths)
	if err != nil {
		memStore.Close()
		ragStore.Close()
		pipeStore.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	ov, err := overseer.New()
	if err != nil {
		memStore.Close()
		ragStore.Close()
		pipeStore.Close()
		v.Close()
		return nil, fmt.Errorf("build overseer: %w", err)
	}

	defaultERP := types.ERPTarget(cfg.Pipeline.DefaultERP)
	if defaultERP == "" {
		defaultERP = types.ERPCpp
	}
	executor := router.NewExecutor(ov, pipe, defaultERP)

	hw := silicon.Detect(workstationMemoryGB)
	rt := silicon.NewRuntime(hw, nil, nil, cfg.LLM.MaxBatch)

	q := queue.New(queue.Config{
		GlobalConcurrency: cfg.Queue.GlobalConcurrency,
		PerUserRatePerMin: cfg.Queue.PerUserRatePerMin,
	})

	engine, err := buildInferenceEngine(ctx, cfg)
	if err != nil {
		log.Warn("inference engine unavailable at startup, chat dispatch will fail until configured", zap.Error(err))
	}

	sched := scheduler.New(scheduler.Config{
		PreferenceExportThreshold: cfg.Memory.PreferenceExportEvery,
		PreferenceExportDir:       filepath.Join(cfg.Environment.DataDir, "preference_exports"),
		AdapterBaseModelID:        cfg.LLM.DirectModel,
		AdapterArchFingerprint:    cfg.LLM.DirectModel,
		AdapterOutputDir:          filepath.Join(cfg.Environment.ModelsDir, "adapters"),
		BackupDir:                 cfg.Environment.BackupsDir,
		ManifestDir:               cfg.Vault.ManifestDir,
	}, scheduler.Deps{Memory: memStore, Vault: v}, time.Time{})

	return &Services{
		Config:        cfg,
		Silicon:       rt,
		Inference:     engine,
		Queue:         q,
		MemoryStore:   memStore,
		Working:       memory.NewWorking(),
		RAGStore:      ragStore,
		RAGMonitor:    rag.NewMonitor(),
		PipelineStore: pipeStore,
		Pipeline:      pipe,
		Intake:        intake,
		Vault:         v,
		Overseer:      ov,
		Executor:      executor,
		Scheduler:     sched,
	}, nil
}

// Close releases every storage handle, in dependency order. Safe to call
// on a partially-built Services (nil fields are skipped).
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.PipelineStore != nil {
		s.PipelineStore.Close()
	}
	if s.RAGStore != nil {
		s.RAGStore.Close()
	}
	if s.MemoryStore != nil {
		s.MemoryStore.Close()
	}
	if s.Vault != nil {
		s.Vault.Close()
	}
}

// workstationMemoryGB is the assumed total unified memory for the single
// on-prem workstation this system targets (spec.md §1), used until an
// installer writes a detected figure into config.
const workstationMemoryGB = 128

// buildInferenceEngine selects a backend per spec.md §4.7's auto policy:
// probe the server's /health endpoint, else fall back to the direct
// in-process client. A misconfigured direct client (missing API key) is
// tolerated at Build time — commands that need Inference report their own
// clear error rather than failing the whole service wiring.
func buildInferenceEngine(ctx context.Context, cfg *config.Config) (inference.Engine, error) {
	cache := inference.NewPromptCache()

	chatTimeout, err := time.ParseDuration(cfg.LLM.ChatTimeout)
	if err != nil {
		chatTimeout = 120 * time.Second
	}

	var server *inference.ServerEngine
	if cfg.LLM.ServerBaseURL != "" {
		server = inference.NewServerEngine(cfg.LLM.ServerBaseURL, cfg.LLM.ServerAPIKey, cfg.LLM.ServerModel, cache, chatTimeout)
	}

	var direct inference.Engine
	var directErr error
	if cfg.LLM.DirectAPIKey != "" {
		d, err := inference.NewDirectEngine(ctx, cfg.LLM.DirectAPIKey, cfg.LLM.DirectModel, cache)
		if err != nil {
			directErr = err
		} else {
			direct = d
		}
	}

	return inference.Select(ctx, cfg.LLM.Mode, direct, server), directErr
}
