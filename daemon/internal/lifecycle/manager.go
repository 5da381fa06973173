// Package lifecycle coordinates the mutually exclusive machine operations of
// the appliance: update, migration, factory reset, shutdown and restart. At
// most one runs at a time; the manager claims the exclusive state before any
// work starts, spawns the work on a background goroutine and leaves clients
// to poll the status surfaces.
package lifecycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/daemon/internal/opstatus"
	"github.com/livos-io/livos/daemon/internal/power"
	"github.com/livos-io/livos/daemon/internal/syserr"
	"github.com/livos-io/livos/daemon/internal/sysstate"
	"github.com/livos-io/livos/daemon/internal/updater"
)

// UpdateRunner runs update attempts and reports their progress
type UpdateRunner interface {
	Run(ctx context.Context) error
	Check(ctx context.Context) (*updater.ReleaseInfo, bool, error)
	Status() opstatus.Progress
}

// Migrator performs prior-installation migrations
type Migrator interface {
	FindExternalInstall() (string, error)
	RunPreflightChecks(currentPath, externalPath string) error
	UnmountExternalDrives(ctx context.Context, keep string)
	Migrate(ctx context.Context, currentPath, externalPath string) error
	Status() opstatus.Progress
}

// Resetter authorizes and performs factory resets
type Resetter interface {
	Authorize(password string) error
	Reset(ctx context.Context) error
	Status() opstatus.Progress
}

// Manager owns the exclusive-operation registry and the coordinators
type Manager struct {
	registry  *sysstate.Registry
	update    UpdateRunner
	migration Migrator
	reset     Resetter
	power     power.Controller

	dataDir string

	// stopServices shuts the serving layer down right before a reboot;
	// graceDelay gives polling clients a window to observe terminal progress
	stopServices func()
	graceDelay   time.Duration
}

// Config carries the collaborators of a Manager
type Config struct {
	Registry     *sysstate.Registry
	Update       UpdateRunner
	Migration    Migrator
	Reset        Resetter
	Power        power.Controller
	DataDir      string
	StopServices func()
	GraceDelay   time.Duration
}

// NewManager creates a Manager from the given collaborators
func NewManager(config Config) *Manager {
	return &Manager{
		registry:     config.Registry,
		update:       config.Update,
		migration:    config.Migration,
		reset:        config.Reset,
		power:        config.Power,
		dataDir:      config.DataDir,
		stopServices: config.StopServices,
		graceDelay:   config.GraceDelay,
	}
}

// Status returns the machine-wide status
func (m *Manager) Status() sysstate.Status {
	return m.registry.Get()
}

// UpdateStatus returns the progress of the in-flight or last update
func (m *Manager) UpdateStatus() opstatus.Progress {
	return m.update.Status()
}

// MigrationStatus returns the progress of the in-flight or last migration
func (m *Manager) MigrationStatus() opstatus.Progress {
	return m.migration.Status()
}

// FactoryResetStatus returns the progress of the in-flight or last reset
func (m *Manager) FactoryResetStatus() opstatus.Progress {
	return m.reset.Status()
}

// CheckUpdate resolves the latest release without starting an update
func (m *Manager) CheckUpdate(ctx context.Context) (*updater.ReleaseInfo, bool, error) {
	return m.update.Check(ctx)
}

// DetectExternalInstall reports whether an external prior installation is
// currently attached
func (m *Manager) DetectExternalInstall() (string, error) {
	return m.migration.FindExternalInstall()
}

// Update starts an OS update. It returns acceptance, not completion: clients
// poll UpdateStatus until the appliance reboots or the attempt fails.
func (m *Manager) Update() (bool, error) {
	if !m.registry.TryBegin(sysstate.StatusUpdating) {
		return false, syserr.NewStateConflictError(string(m.registry.Get()))
	}

	go func() {
		if err := m.update.Run(context.Background()); err != nil {
			m.registry.Reset()
			return
		}
		m.finalize(sysstate.StatusRestarting)
	}()
	return true, nil
}

// Migrate starts a migration from an attached prior installation. Pre-flight
// checks run synchronously under the claimed exclusive state, so a rejected
// migration leaves the appliance running and untouched.
func (m *Manager) Migrate() (bool, error) {
	if !m.registry.TryBegin(sysstate.StatusMigrating) {
		return false, syserr.NewStateConflictError(string(m.registry.Get()))
	}

	external, err := m.migration.FindExternalInstall()
	if err == nil && external == "" {
		err = syserr.NewPreflightError("no external installation found")
	}
	if err == nil {
		err = m.migration.RunPreflightChecks(m.dataDir, external)
	}
	if err != nil {
		m.registry.Reset()
		return false, err
	}

	go func() {
		m.migration.UnmountExternalDrives(context.Background(), external)
		if err := m.migration.Migrate(context.Background(), m.dataDir, external); err != nil {
			m.registry.Reset()
			return
		}
		m.finalize(sysstate.StatusRestarting)
	}()
	return true, nil
}

// FactoryReset authorizes and starts a factory reset. A wrong password is
// the one case where a caller gets a synchronous rejection and nothing else
// happens.
func (m *Manager) FactoryReset(password string) (bool, error) {
	if err := m.reset.Authorize(password); err != nil {
		return false, err
	}

	if !m.registry.TryBegin(sysstate.StatusResetting) {
		return false, syserr.NewStateConflictError(string(m.registry.Get()))
	}

	go func() {
		if err := m.reset.Reset(context.Background()); err != nil {
			m.registry.Reset()
			return
		}
		m.finalize(sysstate.StatusRestarting)
	}()
	return true, nil
}

// Shutdown halts the appliance
func (m *Manager) Shutdown() (bool, error) {
	if !m.registry.TryBegin(sysstate.StatusShuttingDown) {
		return false, syserr.NewStateConflictError(string(m.registry.Get()))
	}
	go m.finalize(sysstate.StatusShuttingDown)
	return true, nil
}

// Restart reboots the appliance
func (m *Manager) Restart() (bool, error) {
	if !m.registry.TryBegin(sysstate.StatusRestarting) {
		return false, syserr.NewStateConflictError(string(m.registry.Get()))
	}
	go m.finalize(sysstate.StatusRestarting)
	return true, nil
}

// finalize ends a successful operation: wait out the grace period, stop the
// serving layer and hand the machine to the power controller. On power
// failure the appliance returns to the running state instead of sticking in
// a non-terminal status.
func (m *Manager) finalize(action sysstate.Status) {
	time.Sleep(m.graceDelay)
	if m.stopServices != nil {
		m.stopServices()
	}

	ctx := context.Background()
	var err error
	if action == sysstate.StatusShuttingDown {
		err = m.power.Shutdown(ctx)
	} else {
		err = m.power.Restart(ctx)
	}
	if err != nil {
		log.Errorf("power action failed: %v", err)
		m.registry.Reset()
	}
}
