package memory

import (
	"sync"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// Working is the L0 tier: an in-process, per-session map cleared on
// session end (spec.md §4.4). It is never persisted — a process restart
// loses it, which is the spec'd behaviour, not a bug.
type Working struct {
	mu      sync.Mutex
	entries map[string]types.WorkingEntry
}

// NewWorking builds an empty L0 store.
func NewWorking() *Working {
	return &Working{entries: make(map[string]types.WorkingEntry)}
}

// Get returns the working entry for sessionID, or a zero-value entry if
// the session has not touched anything yet.
func (w *Working) Get(sessionID string) types.WorkingEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[sessionID]
	if !ok {
		return types.WorkingEntry{SessionID: sessionID}
	}
	return e
}

// Touch updates the session's active client/topic/document and bumps
// LastTouched; empty fields leave the existing value unchanged so a
// caller can update just one field at a time.
func (w *Working) Touch(sessionID string, activeClient, topic, document string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.entries[sessionID]
	e.SessionID = sessionID
	if activeClient != "" {
		e.ActiveClient = activeClient
	}
	if topic != "" {
		e.CurrentTopic = topic
	}
	if document != "" {
		e.LastDocument = document
	}
	e.LastTouched = time.Now().UTC()
	w.entries[sessionID] = e
}

// EndSession drops the session's L0 state (spec.md §4.4: "cleared on
// session end").
func (w *Working) EndSession(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, sessionID)
}
