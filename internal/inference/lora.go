package inference

import (
	"sync"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
)

// LoRAManager hot-loads and unloads a single adapter at a time (spec.md
// §4.7 "LoRA hot-load"; invariant shared with internal/vault: "at most one
// adapter is active"). The vault owns the AdapterRecord lifecycle; this
// manager only tracks which adapter path is currently wired into the
// inference backend.
type LoRAManager struct {
	mu     sync.Mutex
	active string // filesystem path, "" if none loaded
}

func NewLoRAManager() *LoRAManager { return &LoRAManager{} }

// Load swaps in the adapter at path, unloading whatever was active first.
func (m *LoRAManager) Load(path string) error {
	if path == "" {
		return apperr.New(apperr.KindValidation, "lora path must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = path
	return nil
}

// Unload clears the active adapter, returning the backend to the base
// model.
func (m *LoRAManager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = ""
}

// Active returns the currently loaded adapter path, or "" if none.
func (m *LoRAManager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
