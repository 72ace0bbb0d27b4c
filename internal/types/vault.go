package types

import "time"

// AdapterStatus is an AdapterRecord's lifecycle state (spec.md §3, §4.5).
type AdapterStatus string

const (
	AdapterTraining  AdapterStatus = "training"
	AdapterEvaluating AdapterStatus = "evaluating"
	AdapterReady     AdapterStatus = "ready"
	AdapterActive    AdapterStatus = "active"
	AdapterArchived  AdapterStatus = "archived"
	AdapterRejected  AdapterStatus = "rejected"
	AdapterRetired   AdapterStatus = "retired"
)

// AdapterRecord is one LoRA fine-tune (spec.md §3).
type AdapterRecord struct {
	ID              string        `json:"id"`
	BaseModelID     string        `json:"base_model_id"`
	ArchFingerprint string        `json:"arch_fingerprint"` // e.g. "qwen3_235b"
	Rank            int           `json:"rank"`
	Alpha           int           `json:"alpha"`
	TargetModules   []string      `json:"target_modules"`
	PairCount       int           `json:"pair_count"`
	Status          AdapterStatus `json:"status"`
	Path            string        `json:"path"`
	CreatedAt       time.Time     `json:"created_at"`
}

// IntegrityManifest is a SHA-256 manifest of every protected path, created
// before every model swap and re-verified after (spec.md §3, §4.5).
type IntegrityManifest struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	BaseDir   string            `json:"base_dir"`
	Hashes    map[string]string `json:"hashes"` // relative path -> sha256 hex
	TotalFiles int              `json:"total_files"`
	TotalBytes int64            `json:"total_bytes"`
}

// Mismatch describes one file whose hash changed between manifests.
type Mismatch struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"` // "missing" | "changed"
}

// LoRACompatibility is the result of comparing an adapter's architecture
// fingerprint against a candidate base model (spec.md §4.5).
type LoRACompatibility string

const (
	Compatible    LoRACompatibility = "COMPATIBLE"
	RetrainNeeded LoRACompatibility = "RETRAIN_NEEDED"
	NoAdapters    LoRACompatibility = "NO_ADAPTERS"
)

// SwapPhase names one of safe_swap's ten phases (spec.md §4.5).
type SwapPhase string

const (
	PhasePreCheck          SwapPhase = "pre_check"
	PhaseSnapshotManifest  SwapPhase = "snapshot_manifest"
	PhaseArchiveOld        SwapPhase = "archive_old_model"
	PhaseDownloadNew       SwapPhase = "download_new_model"
	PhaseValidate          SwapPhase = "validate_new_model"
	PhaseLoRACheck         SwapPhase = "lora_compatibility_check"
	PhaseRetrain           SwapPhase = "retrain_adapter"
	PhaseReverifyManifest  SwapPhase = "reverify_manifest"
	PhaseActivate          SwapPhase = "activate"
	PhaseComplete          SwapPhase = "complete"
)

// SwapOutcome is the terminal state of a safe_swap run.
type SwapOutcome string

const (
	SwapComplete     SwapOutcome = "COMPLETE"
	SwapRolledBack   SwapOutcome = "ROLLED_BACK"
	SwapFailed       SwapOutcome = "FAILED"
)

// SwapLogEntry records one phase transition during a model swap.
type SwapLogEntry struct {
	Phase     SwapPhase `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail"`
}

// SwapResult is the outcome of a full safe_swap pipeline run.
type SwapResult struct {
	Outcome SwapOutcome    `json:"outcome"`
	Log     []SwapLogEntry `json:"log"`
}
