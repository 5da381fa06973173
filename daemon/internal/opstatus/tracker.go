// Package opstatus provides the pollable progress record shared by the
// long-running exclusive operations. Each coordinator owns one Tracker and
// mutates it while clients read it concurrently.
package opstatus

import "sync"

// Progress is the externally visible state of one exclusive operation. An
// empty Error means the last run (if any) did not fail; a non-empty Error
// survives the terminal reset of a failed run until the next attempt starts,
// so clients can distinguish "never ran" from "last run failed".
type Progress struct {
	Running     bool   `json:"running"`
	Progress    int    `json:"progress"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// Patch is a partial Progress used for shallow merges. Fields left nil are
// not touched. It matches the JSON objects emitted by update scripts on
// their structured status lines.
type Patch struct {
	Running     *bool   `json:"running,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
	Description *string `json:"description,omitempty"`
	Error       *string `json:"error,omitempty"`
}

// Tracker is a mutex-guarded Progress holder
type Tracker struct {
	mu       sync.RWMutex
	progress Progress
}

// NewTracker creates a Tracker with default (idle, no error) progress
func NewTracker() *Tracker {
	return &Tracker{}
}

// Get returns a copy of the current progress
func (t *Tracker) Get() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Begin marks a new attempt as running, clearing any error left by a
// previous attempt
func (t *Tracker) Begin(progress int, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = Progress{
		Running:     true,
		Progress:    clamp(progress),
		Description: description,
	}
}

// SetProgress updates the completion percentage, clamped to 0-100
func (t *Tracker) SetProgress(progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Progress = clamp(progress)
}

// SetDescription updates the human-readable description
func (t *Tracker) SetDescription(description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Description = description
}

// SetError records an operation error without touching the other fields
func (t *Tracker) SetError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Error = message
}

// Apply shallow-merges a partial progress object into the current state
func (t *Tracker) Apply(patch Patch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if patch.Running != nil {
		t.progress.Running = *patch.Running
	}
	if patch.Progress != nil {
		t.progress.Progress = clamp(*patch.Progress)
	}
	if patch.Description != nil {
		t.progress.Description = *patch.Description
	}
	if patch.Error != nil {
		t.progress.Error = *patch.Error
	}
}

// FailAndReset terminates a failed attempt: every field returns to its
// default except the error, which is preserved when the operation already
// reported a specific one and otherwise set to the provided generic message.
func (t *Tracker) FailAndReset(generic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	message := t.progress.Error
	if message == "" {
		message = generic
	}
	t.progress = Progress{Error: message}
}

// Complete terminates a successful attempt
func (t *Tracker) Complete(progress int, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = Progress{
		Progress:    clamp(progress),
		Description: description,
	}
}

// Reset returns the tracker to its initial state, dropping any recorded error
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = Progress{}
}

func clamp(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
