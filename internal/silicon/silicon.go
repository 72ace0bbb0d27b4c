// Package silicon is the hardware abstraction layer (spec.md §2 "L0 Silicon
// Runtime"): it detects the host machine, reports unified-memory pressure
// and thermal state, and scales the inference layer's batch size from those
// two signals. Ported from original_source/src/nyx_light/silicon/
// apple_silicon.py's PressureLevel/ThermalState tables and
// AdaptiveBatchController, in the teacher's plain-struct-plus-constructor
// idiom rather than a Python dataclass/enum hierarchy.
package silicon

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
)

// PressureLevel is a unified-memory pressure reading (spec.md §2, §8
// invariant 10).
type PressureLevel string

const (
	PressureNominal   PressureLevel = "nominal"
	PressureElevated  PressureLevel = "elevated"
	PressureWarning   PressureLevel = "warning"
	PressureCritical  PressureLevel = "critical"
	PressureEmergency PressureLevel = "emergency"
)

// ThermalState is a die thermal reading.
type ThermalState string

const (
	ThermalCool       ThermalState = "cool"
	ThermalNominal    ThermalState = "nominal"
	ThermalWarm       ThermalState = "warm"
	ThermalHot        ThermalState = "hot"
	ThermalThrottling ThermalState = "throttling"
	ThermalCritical   ThermalState = "critical"
)

// pressureRank orders severity so BatchFor's monotonicity invariant
// (spec.md §8.10: "batch(p1) >= batch(p2) whenever p1 less severe") can be
// tested directly against this ordering.
var pressureRank = map[PressureLevel]int{
	PressureNominal:   0,
	PressureElevated:  1,
	PressureWarning:   2,
	PressureCritical:  3,
	PressureEmergency: 4,
}

// MaxWiredFraction is the ceiling on wired (KV-cache) memory as a fraction
// of total unified memory (spec.md §5: "Wired memory ... must stay within
// 85% of total unified memory").
const MaxWiredFraction = 0.85

// HardwareInfo describes the detected host (spec.md §2 "Detects hardware").
type HardwareInfo struct {
	GOARCH        string
	NumCPU        int
	TotalMemoryGB float64
	IsAppleARM    bool
}

// Detect reports the Go-visible hardware facts. Go cannot query MLX/Metal
// directly (that lives in the out-of-process MLX/vLLM backends), so this
// mirrors only what apple_silicon.py's detect_hardware() derives from
// portable signals (arch, core count) plus an operator-supplied memory
// figure from config, rather than guessing at GPU core counts.
func Detect(totalMemoryGB float64) HardwareInfo {
	return HardwareInfo{
		GOARCH:        runtime.GOARCH,
		NumCPU:        runtime.NumCPU(),
		TotalMemoryGB: totalMemoryGB,
		IsAppleARM:    runtime.GOARCH == "arm64" && runtime.GOOS == "darwin",
	}
}

// MemorySnapshot is one reading of unified-memory utilisation.
type MemorySnapshot struct {
	TotalGB   float64
	UsedGB    float64
	WiredGB   float64
	Timestamp time.Time
}

// Utilization returns used/total, 0 if total is unset.
func (m MemorySnapshot) Utilization() float64 {
	if m.TotalGB <= 0 {
		return 0
	}
	return m.UsedGB / m.TotalGB
}

// Pressure classifies a snapshot's utilisation into a PressureLevel,
// following apple_silicon.py's UMAController.pressure thresholds:
// <70% nominal, 70-80% elevated, 80-88% warning, 88-95% critical, >95%
// emergency.
func (m MemorySnapshot) Pressure() PressureLevel {
	u := m.Utilization()
	switch {
	case u >= 0.95:
		return PressureEmergency
	case u >= 0.88:
		return PressureCritical
	case u >= 0.80:
		return PressureWarning
	case u >= 0.70:
		return PressureElevated
	default:
		return PressureNominal
	}
}

// WiredBudgetExceeded reports whether wired memory has crossed
// MaxWiredFraction of total (spec.md §5).
func (m MemorySnapshot) WiredBudgetExceeded() bool {
	if m.TotalGB <= 0 {
		return false
	}
	return m.WiredGB/m.TotalGB > MaxWiredFraction
}

// MemoryReader reports the current unified-memory snapshot. In production
// this is backed by an OS-specific sampler; tests and the simulation
// fallback use a StaticReader.
type MemoryReader interface {
	Read() MemorySnapshot
}

// StaticReader always returns the same snapshot; used when no OS-level
// memory sampler is wired (mirrors apple_silicon.py's psutil/fallback
// degradation path).
type StaticReader struct{ Snapshot MemorySnapshot }

func (r StaticReader) Read() MemorySnapshot { return r.Snapshot }

// ThermalReader reports the current thermal state. No portable Go API
// reads Apple Silicon die temperature; production deployments wire this to
// `powermetrics` output parsing (out of scope here per spec.md §1 "scanner/
// OCR hardware" style external collaborators) and tests use StaticThermal.
type ThermalReader interface {
	Read() ThermalState
}

type StaticThermal struct{ State ThermalState }

func (r StaticThermal) Read() ThermalState { return r.State }

// BatchConfig is the adaptive batch controller's current output (spec.md
// §4.7 "Adaptive batch").
type BatchConfig struct {
	BatchSize int
	MaxTokens int
}

// pressureScaling mirrors apple_silicon.py AdaptiveBatchController's
// PRESSURE_SCALING table exactly.
var pressureScaling = map[PressureLevel][2]int{
	PressureNominal:   {8, 4096},
	PressureElevated:  {6, 4096},
	PressureWarning:   {4, 2048},
	PressureCritical:  {2, 1024},
	PressureEmergency: {1, 512},
}

// thermalScaling mirrors THERMAL_SCALING exactly.
var thermalScaling = map[ThermalState]float64{
	ThermalCool:       1.0,
	ThermalNominal:    1.0,
	ThermalWarm:       0.85,
	ThermalHot:        0.65,
	ThermalThrottling: 0.40,
	ThermalCritical:   0.25,
}

// AdaptiveBatchController scales (batch_size, max_tokens) from the current
// pressure and thermal readings. The mapping is monotonic by construction:
// pressureScaling is already ordered by severity, and thermalFactor only
// ever shrinks the base values, never grows them.
type AdaptiveBatchController struct {
	maxBatchSize int

	mu      sync.Mutex
	history []historyEntry
}

type historyEntry struct {
	at       time.Time
	pressure PressureLevel
	thermal  ThermalState
}

// NewAdaptiveBatchController builds a controller capped at maxBatchSize
// (spec.md §4.7: "never increases batch beyond the configured maximum").
func NewAdaptiveBatchController(maxBatchSize int) *AdaptiveBatchController {
	if maxBatchSize <= 0 {
		maxBatchSize = 8
	}
	return &AdaptiveBatchController{maxBatchSize: maxBatchSize}
}

// Compute returns the batch config for the given pressure/thermal pair,
// clamped so batch size never exceeds the configured maximum and never
// drops below 1, and max tokens never drops below 256.
func (c *AdaptiveBatchController) Compute(pressure PressureLevel, thermal ThermalState) BatchConfig {
	base, ok := pressureScaling[pressure]
	if !ok {
		base = pressureScaling[PressureNominal]
	}
	factor, ok := thermalScaling[thermal]
	if !ok {
		factor = 1.0
	}

	batch := int(float64(base[0]) * factor)
	if batch < 1 {
		batch = 1
	}
	if batch > c.maxBatchSize {
		batch = c.maxBatchSize
	}
	tokens := int(float64(base[1]) * factor)
	if tokens < 256 {
		tokens = 256
	}

	c.mu.Lock()
	c.history = append(c.history, historyEntry{at: time.Now().UTC(), pressure: pressure, thermal: thermal})
	if len(c.history) > 1000 {
		c.history = c.history[len(c.history)-500:]
	}
	c.mu.Unlock()

	logging.For(logging.CategorySilicon).Debug("adaptive batch computed",
		zap.String("pressure", string(pressure)), zap.String("thermal", string(thermal)),
		zap.Int("batch_size", batch), zap.Int("max_tokens", tokens))

	return BatchConfig{BatchSize: batch, MaxTokens: tokens}
}

// Severity exposes pressureRank for callers (e.g. tests) that need to
// compare two PressureLevel values without hard-coding the table.
func Severity(p PressureLevel) int { return pressureRank[p] }

// Runtime binds hardware detection, memory/thermal sampling and the
// adaptive batch controller into the single object threaded through
// services.Services (spec.md §2 "L0 Silicon Runtime").
type Runtime struct {
	Hardware HardwareInfo
	memory   MemoryReader
	thermal  ThermalReader
	Batch    *AdaptiveBatchController
}

// NewRuntime builds a Runtime. memory/thermal may be nil, in which case
// Runtime falls back to a permanently-nominal reading, the same
// graceful-degradation behaviour apple_silicon.py exercises when psutil/
// powermetrics are unavailable.
func NewRuntime(hw HardwareInfo, memory MemoryReader, thermal ThermalReader, maxBatch int) *Runtime {
	if memory == nil {
		memory = StaticReader{Snapshot: MemorySnapshot{TotalGB: hw.TotalMemoryGB, Timestamp: time.Now().UTC()}}
	}
	if thermal == nil {
		thermal = StaticThermal{State: ThermalNominal}
	}
	return &Runtime{Hardware: hw, memory: memory, thermal: thermal, Batch: NewAdaptiveBatchController(maxBatch)}
}

// CurrentBatch samples memory+thermal and returns the adaptive batch config
// for right now.
func (r *Runtime) CurrentBatch() BatchConfig {
	snap := r.memory.Read()
	return r.Batch.Compute(snap.Pressure(), r.thermal.Read())
}

// HealthCheck reports a snapshot of runtime state, mirroring apple_silicon.py
// SiliconRuntime.health_check()'s summary dict.
func (r *Runtime) HealthCheck() map[string]interface{} {
	snap := r.memory.Read()
	batch := r.Batch.Compute(snap.Pressure(), r.thermal.Read())
	return map[string]interface{}{
		"arch":             r.Hardware.GOARCH,
		"num_cpu":          r.Hardware.NumCPU,
		"memory_total_gb":  snap.TotalGB,
		"memory_used_gb":   snap.UsedGB,
		"pressure":         string(snap.Pressure()),
		"thermal":          string(r.thermal.Read()),
		"max_batch":        batch.BatchSize,
		"max_tokens":       batch.MaxTokens,
		"wired_over_limit": snap.WiredBudgetExceeded(),
	}
}
