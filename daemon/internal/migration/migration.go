// Package migration moves the data of a prior LivOS installation from an
// external volume onto this appliance.
package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/livos-io/livos/daemon/internal/opstatus"
	"github.com/livos-io/livos/daemon/internal/syserr"
	"github.com/livos-io/livos/util"
)

const (
	// MarkerFile identifies a LivOS installation at the root of a volume
	MarkerFile = "livos/livos.json"

	defaultMountsPath = "/proc/self/mounts"

	migrationFailure = "Migration failed"
)

var defaultMediaRoots = []string{"/media", "/mnt"}

// installMarker is the content of the marker file
type installMarker struct {
	Version string `json:"version"`
}

// Coordinator discovers prior installations on external volumes, validates
// them and performs the data copy
type Coordinator struct {
	tracker        *opstatus.Tracker
	currentVersion string
	mountsPath     string
	mediaRoots     []string

	unmount func(ctx context.Context, target string) error
}

// NewCoordinator creates a Coordinator scanning the standard media mount roots
func NewCoordinator(tracker *opstatus.Tracker, currentVersion string) *Coordinator {
	return &Coordinator{
		tracker:        tracker,
		currentVersion: currentVersion,
		mountsPath:     defaultMountsPath,
		mediaRoots:     defaultMediaRoots,
		unmount:        unmountTarget,
	}
}

// Status returns the progress of the in-flight or last migration attempt.
// It is readable before any user session exists: first-boot recovery flows
// poll it without authentication.
func (c *Coordinator) Status() opstatus.Progress {
	return c.tracker.Get()
}

// FindExternalInstall scans mounted external volumes for a prior
// installation marker and returns the volume mount point, or "" when no
// candidate is present
func (c *Coordinator) FindExternalInstall() (string, error) {
	mounts, err := c.externalMounts()
	if err != nil {
		return "", fmt.Errorf("enumerate mounts: %w", err)
	}

	for _, mount := range mounts {
		marker := filepath.Join(mount, MarkerFile)
		if _, err := os.Stat(marker); err == nil {
			log.Infof("found external installation at %s", mount)
			return mount, nil
		}
	}
	return "", nil
}

// RunPreflightChecks validates that the external installation can be
// migrated onto this appliance. It must be called immediately before the
// migration starts, never cached: mount state can change in between.
func (c *Coordinator) RunPreflightChecks(currentPath, externalPath string) error {
	marker, err := readMarker(filepath.Join(externalPath, MarkerFile))
	if err != nil {
		return syserr.NewPreflightError("external installation is unreadable: %s", err)
	}

	external, err := goversion.NewVersion(marker.Version)
	if err != nil {
		return syserr.NewPreflightError("external installation has an invalid version %q", marker.Version)
	}
	current, err := goversion.NewVersion(c.currentVersion)
	if err != nil {
		return fmt.Errorf("cannot parse running version %q: %w", c.currentVersion, err)
	}
	if external.GreaterThan(current) {
		return syserr.NewPreflightError("external installation version %s is newer than this appliance (%s)", marker.Version, c.currentVersion)
	}

	required, err := treeSize(externalPath)
	if err != nil {
		return syserr.NewPreflightError("cannot measure external installation: %s", err)
	}
	available, err := freeSpace(currentPath)
	if err != nil {
		return fmt.Errorf("cannot measure free space on %s: %w", currentPath, err)
	}
	if required > available {
		return syserr.NewPreflightError("insufficient free space: migration needs %d bytes, %d available", required, available)
	}

	return nil
}

// UnmountExternalDrives best-effort unmounts every external volume except
// the one being migrated from, so a loose drive cannot receive partial
// writes during the copy. Failures are logged, never fatal.
func (c *Coordinator) UnmountExternalDrives(ctx context.Context, keep string) {
	mounts, err := c.externalMounts()
	if err != nil {
		log.Warnf("cannot enumerate mounts for unmount: %v", err)
		return
	}

	var merr *multierror.Error
	for _, mount := range mounts {
		if mount == keep {
			continue
		}
		if err := c.unmount(ctx, mount); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("unmount %s: %w", mount, err))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		log.Warnf("some external drives could not be unmounted: %v", err)
	}
}

// Migrate copies the external installation data into currentPath, reporting
// progress by bytes copied. The caller claims the exclusive machine state
// and runs Migrate on a background goroutine; clients observe completion by
// polling Status.
func (c *Coordinator) Migrate(ctx context.Context, currentPath, externalPath string) error {
	c.tracker.Begin(0, "Migrating...")

	if err := c.copyInstall(ctx, currentPath, externalPath); err != nil {
		c.tracker.FailAndReset(migrationFailure)
		log.Errorf("migration from %s failed: %v", externalPath, err)
		return err
	}

	c.tracker.Complete(100, "Restarting...")
	log.Infof("migration from %s completed", externalPath)
	return nil
}

func (c *Coordinator) copyInstall(ctx context.Context, currentPath, externalPath string) error {
	source := filepath.Join(externalPath, "livos")
	total, err := treeSize(source)
	if err != nil {
		return err
	}

	var copied int64
	return filepath.WalkDir(source, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(currentPath, rel)

		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		n, err := copyFile(path, target)
		if err != nil {
			return err
		}
		copied += n
		if total > 0 {
			c.tracker.SetProgress(int(copied * 100 / total))
		}
		return nil
	})
}

// externalMounts returns the mount points of mounted volumes under the
// media roots, parsed from the mounts table
func (c *Coordinator) externalMounts() ([]string, error) {
	raw, err := os.ReadFile(c.mountsPath)
	if err != nil {
		return nil, err
	}

	var mounts []string
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		mountPoint := fields[1]
		for _, root := range c.mediaRoots {
			if strings.HasPrefix(mountPoint, root+string(os.PathSeparator)) {
				mounts = append(mounts, mountPoint)
				break
			}
		}
	}
	return mounts, nil
}

func readMarker(path string) (*installMarker, error) {
	var marker installMarker
	if _, err := util.ReadJson(path, &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

func treeSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}

func freeSpace(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Warnf("failed to close source file: %v", err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copy: %w", err)
	}
	return n, nil
}

func unmountTarget(ctx context.Context, target string) error {
	log.Debugf("unmounting %s", target)
	out, err := exec.CommandContext(ctx, "umount", target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
