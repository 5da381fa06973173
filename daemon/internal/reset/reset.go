// Package reset wipes the appliance back to its factory state. The wipe is
// gated behind the appliance password and, like every destructive operation,
// runs under the exclusive machine state.
package reset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/daemon/internal/opstatus"
)

const resetFailure = "Factory reset failed"

// Authenticator validates the appliance password
type Authenticator interface {
	ValidatePassword(password string) error
}

// Coordinator authorizes and performs the factory reset
type Coordinator struct {
	tracker *opstatus.Tracker
	auth    Authenticator
	dataDir string

	wipe func(ctx context.Context, c *Coordinator) error
}

// NewCoordinator creates a Coordinator wiping the given data directory
func NewCoordinator(tracker *opstatus.Tracker, auth Authenticator, dataDir string) *Coordinator {
	return &Coordinator{
		tracker: tracker,
		auth:    auth,
		dataDir: dataDir,
		wipe:    wipeDataDir,
	}
}

// Status returns the progress of the in-flight or last reset attempt. Like
// migration status it stays reachable without authentication so first-boot
// recovery flows can observe it.
func (c *Coordinator) Status() opstatus.Progress {
	return c.tracker.Get()
}

// Authorize checks the password guarding the reset. On mismatch the reset
// must not start and no state changes.
func (c *Coordinator) Authorize(password string) error {
	return c.auth.ValidatePassword(password)
}

// Reset performs the destructive wipe. The caller claims the exclusive
// machine state first and reboots on success.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.tracker.Begin(5, "Resetting...")

	if err := c.wipe(ctx, c); err != nil {
		c.tracker.FailAndReset(resetFailure)
		log.Errorf("factory reset failed: %v", err)
		return err
	}

	c.tracker.Complete(100, "Restarting...")
	log.Info("factory reset completed")
	return nil
}

// wipeDataDir removes every entry of the data directory, keeping the
// directory itself as the mount point of the data filesystem. It keeps
// going past individual failures and reports them together.
func wipeDataDir(ctx context.Context, c *Coordinator) error {
	entries, err := os.ReadDir(c.dataDir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}

	var merr *multierror.Error
	for i, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		path := filepath.Join(c.dataDir, entry.Name())
		log.Debugf("removing %s", path)
		if err := os.RemoveAll(path); err != nil {
			merr = multierror.Append(merr, err)
		}
		c.tracker.SetProgress(5 + (i+1)*90/len(entries))
	}
	return merr.ErrorOrNil()
}
