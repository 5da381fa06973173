// Package sysstate holds the process-wide record of the exclusive machine
// operation currently in progress. At most one of update, migration, factory
// reset, shutdown and restart may run at a time; the registry is the single
// arbiter of whether a new one may begin.
package sysstate

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Status is the machine-wide state of the appliance
type Status string

const (
	StatusRunning      Status = "running"
	StatusUpdating     Status = "updating"
	StatusShuttingDown Status = "shutting-down"
	StatusRestarting   Status = "restarting"
	StatusMigrating    Status = "migrating"
	StatusResetting    Status = "resetting"
	StatusRestoring    Status = "restoring"
)

// Registry is a mutex-guarded holder of the current Status. It is not
// persisted: the appliance always boots into StatusRunning.
type Registry struct {
	mu      sync.Mutex
	current Status
}

// NewRegistry creates a Registry in the steady running state
func NewRegistry() *Registry {
	return &Registry{current: StatusRunning}
}

// Get returns the current status
func (r *Registry) Get() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Set unconditionally overwrites the current status. Callers that start
// exclusive operations must use TryBegin instead; Set exists for the
// failure-path revert to the running state.
func (r *Registry) Set(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != status {
		log.Debugf("system status transition: %s -> %s", r.current, status)
	}
	r.current = status
}

// TryBegin atomically claims the exclusive state for a new operation. It
// succeeds only when the appliance is in the steady running state and
// returns false otherwise, leaving the current status untouched.
func (r *Registry) TryBegin(status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != StatusRunning {
		log.Warnf("rejecting transition to %s: %s already in progress", status, r.current)
		return false
	}
	log.Infof("system status transition: %s -> %s", r.current, status)
	r.current = status
	return true
}

// Reset returns the registry to the steady running state after a failed
// operation. Success paths terminate the process via reboot or shutdown and
// never call it.
func (r *Registry) Reset() {
	r.Set(StatusRunning)
}
