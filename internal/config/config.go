// Package config loads nyx-light's configuration from a JSON file with
// environment-variable overrides, per spec.md §6 ("configuration is loaded
// from a JSON file and environment variables. No secrets in source.").
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration record threaded into
// services.Services at startup.
type Config struct {
	Environment EnvironmentConfig `json:"environment"`
	LLM         LLMConfig         `json:"llm"`
	Queue       QueueConfig       `json:"queue"`
	Memory      MemoryConfig      `json:"memory"`
	RAG         RAGConfig         `json:"rag"`
	Pipeline    PipelineConfig    `json:"pipeline"`
	Vault       VaultConfig       `json:"vault"`
	Logging     LoggingConfig     `json:"logging"`
}

// EnvironmentConfig holds filesystem paths, ports and sandbox flags —
// spec.md §6 "Environment".
type EnvironmentConfig struct {
	DataDir        string `json:"data_dir"`
	ModelsDir      string `json:"models_dir"`
	LogsDir        string `json:"logs_dir"`
	BackupsDir     string `json:"backups_dir"`
	HTTPPort       int    `json:"http_port"`
	MLXPort        int    `json:"mlx_port"`
	FiscalSandbox  bool   `json:"fiscalisation_sandbox"`
	PeppolSandbox  bool   `json:"peppol_sandbox"`
}

// LLMConfig configures the inference layer (spec.md §4.7).
type LLMConfig struct {
	Mode           string `json:"mode"` // "auto" | "direct" | "server"
	DirectAPIKey   string `json:"direct_api_key"`
	DirectModel    string `json:"direct_model"`
	ServerBaseURL  string `json:"server_base_url"`
	ServerAPIKey   string `json:"server_api_key"`
	ServerModel    string `json:"server_model"`
	HealthTimeout  string `json:"health_timeout"` // "2s"
	ChatTimeout    string `json:"chat_timeout"`   // "120s"
	MaxBatch       int    `json:"max_batch"`
	EmbeddingModel string `json:"embedding_model"`
}

// QueueConfig configures the fair-share request queue (spec.md §4.7, §5).
type QueueConfig struct {
	GlobalConcurrency int `json:"global_concurrency"` // e.g. 3
	PerUserRatePerMin  int `json:"per_user_rate_per_min"` // e.g. 10
}

// MemoryConfig configures the 4-tier memory store (spec.md §4.4).
type MemoryConfig struct {
	DatabasePath          string `json:"database_path"`
	PreferenceExportEvery int    `json:"preference_export_every"` // e.g. 50
}

// RAGConfig configures the time-aware legal RAG (spec.md §4.6).
type RAGConfig struct {
	DatabasePath   string `json:"database_path"`
	CataloguePath  string `json:"catalogue_path"`
	EmbeddingDims  int    `json:"embedding_dims"`
}

// PipelineConfig configures the booking pipeline and ERP export (spec.md §4.1, §6).
type PipelineConfig struct {
	DatabasePath string        `json:"database_path"`
	ExportDir    string        `json:"export_dir"`
	DefaultERP   string        `json:"default_erp"` // CPP | Synesis | eRacuni | Pantheon
	Clients      []ClientEntry `json:"clients"`
}

// ClientEntry is one row of the intake client directory: the keys an
// ingested document can be matched to a client by (spec.md §3
// PipelineDocument: tax-id / IBAN / sender domain / folder).
type ClientEntry struct {
	ClientID     string `json:"client_id"`
	OIB          string `json:"oib"`
	IBAN         string `json:"iban"`
	SenderDomain string `json:"sender_domain"`
	Folder       string `json:"folder"`
}

// VaultConfig configures the knowledge vault (spec.md §4.5).
type VaultConfig struct {
	ProtectedPaths []string `json:"protected_paths"`
	ManifestDir    string   `json:"manifest_dir"`
}

// LoggingConfig configures zap output (ambient stack, see SPEC_FULL.md).
type LoggingConfig struct {
	Debug      bool `json:"debug"`
	JSONFormat bool `json:"json_format"`
}

// Default returns the out-of-the-box configuration for a single on-prem
// workstation deployment.
func Default() *Config {
	return &Config{
		Environment: EnvironmentConfig{
			DataDir:       "data",
			ModelsDir:     "data/models",
			LogsDir:       "data/logs",
			BackupsDir:    "data/backups",
			HTTPPort:      8088,
			MLXPort:       8089,
			FiscalSandbox: true,
			PeppolSandbox: true,
		},
		LLM: LLMConfig{
			Mode:           "auto",
			DirectModel:    "qwen3-235b",
			ServerBaseURL:  "http://127.0.0.1:8089/v1",
			ServerModel:    "qwen3-235b",
			HealthTimeout:  "2s",
			ChatTimeout:    "120s",
			MaxBatch:       8,
			EmbeddingModel: "gemini-embedding-001",
		},
		Queue: QueueConfig{
			GlobalConcurrency: 3,
			PerUserRatePerMin: 10,
		},
		Memory: MemoryConfig{
			DatabasePath:          "data/memory.db",
			PreferenceExportEvery: 50,
		},
		RAG: RAGConfig{
			DatabasePath:  "data/rag.db",
			CataloguePath: "data/law_catalogue.yaml",
			EmbeddingDims: 768,
		},
		Pipeline: PipelineConfig{
			DatabasePath: "data/pipeline.db",
			ExportDir:    "data/exports",
			DefaultERP:   "CPP",
		},
		Vault: VaultConfig{
			ManifestDir: "data/manifests",
			ProtectedPaths: []string{
				"data/memory.db",
				"data/pipeline.db",
				"data/rag.db",
				"data/models",
				"data/law_catalogue.yaml",
				"data/backups",
			},
		},
		Logging: LoggingConfig{Debug: false, JSONFormat: true},
	}
}

// Load reads JSON configuration from path, falling back to defaults for any
// zero-valued field, then applies environment-variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides mirrors the teacher's precedence-chain override
// pattern (internal/config/env_override_test.go): explicit env vars win
// over file config, in a fixed precedence order, without clobbering a
// value the file already set for a field that isn't itself env-driven.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NYXLIGHT_DIRECT_API_KEY"); v != "" {
		c.LLM.DirectAPIKey = v
	}
	if v := os.Getenv("NYXLIGHT_SERVER_API_KEY"); v != "" {
		c.LLM.ServerAPIKey = v
	}
	if v := os.Getenv("NYXLIGHT_SERVER_BASE_URL"); v != "" {
		c.LLM.ServerBaseURL = v
	}
	if v := os.Getenv("NYXLIGHT_DATA_DIR"); v != "" {
		c.Environment.DataDir = v
	}
	if v := os.Getenv("NYXLIGHT_FISCAL_SANDBOX"); v == "false" {
		c.Environment.FiscalSandbox = false
	}
	if v := os.Getenv("NYXLIGHT_PEPPOL_SANDBOX"); v == "false" {
		c.Environment.PeppolSandbox = false
	}
}
