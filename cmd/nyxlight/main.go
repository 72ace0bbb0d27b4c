// Package main implements the nyxlight CLI, the single on-prem entry point
// for the booking pipeline, module router, deterministic accounting
// engines, memory system, legal knowledge vault and nightly scheduler.
//
// # File Index
//
// Entry Point & Global State:
//   - main.go        - Entry point, rootCmd, global flags, init()
//
// Booking Pipeline:
//   - cmd_pipeline.go - submitCmd, approveCmd, correctCmd, rejectCmd, exportCmd
//   - cmd_review.go   - reviewCmd (bubbletea human-in-the-loop console)
//
// Module Router & Chat:
//   - cmd_chat.go     - chatCmd, runLegalChat()
//
// Legal Knowledge Vault (RAG):
//   - cmd_rag.go      - ragCmd, ragQueryCmd, ragIngestCmd
//
// Knowledge Vault (model lifecycle):
//   - cmd_vault.go    - vaultCmd, vaultManifestCmd, vaultVerifyCmd, vaultAdaptersCmd
//
// Nightly Scheduler:
//   - cmd_scheduler.go - schedulerCmd, schedulerRunCmd
//
// Deterministic Engines (scripting access):
//   - cmd_engines.go  - engineCmd and its per-engine subcommands
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/config"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/services"
)

var (
	// Global flags
	configPath string
	clientID   string
	svcTimeout time.Duration

	// svc is built once in PersistentPreRunE and threaded into every
	// command's RunE; nothing in this package keeps its own copy of a
	// collaborator as a package-level mutable global (spec.md §9 design
	// note 3).
	svc *services.Services
)

var rootCmd = &cobra.Command{
	Use:   "nyxlight",
	Short: "nyxlight - on-prem Croatian accounting assistant",
	Long: `nyxlight runs the booking pipeline, module router, deterministic
accounting engines, 4-tier memory system and time-aware legal RAG for a
single on-prem accounting office.

Every document or instruction is classified by the module router,
checked against the Overseer's safety boundaries, and either executed by
a deterministic engine, booked through the human review pipeline, or
answered from the legal knowledge base - never by letting the model
invent a number.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "nyxlight" {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logging.Initialize(cfg.Environment.LogsDir, cfg.Logging.Debug, cfg.Logging.JSONFormat); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), svcTimeout)
		defer cancel()
		built, err := services.Build(ctx, cfg)
		if err != nil {
			return fmt.Errorf("build services: %w", err)
		}
		svc = built
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		svc.Close()
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file (defaults applied if absent)")
	rootCmd.PersistentFlags().StringVar(&clientID, "client", "", "Client id to scope the command to")
	rootCmd.PersistentFlags().DurationVar(&svcTimeout, "boot-timeout", 30*time.Second, "Timeout for building services at startup")

	rootCmd.AddCommand(
		submitCmd,
		ingestCmd,
		approveCmd,
		correctCmd,
		rejectCmd,
		exportCmd,
		reviewCmd,
		chatCmd,
		ragCmd,
		vaultCmd,
		schedulerCmd,
		engineCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
