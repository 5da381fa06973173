// Package updater resolves, downloads and runs OS update scripts, turning
// their output into a pollable progress record.
package updater

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/daemon/internal/opstatus"
	"github.com/livos-io/livos/daemon/internal/syserr"
	"github.com/livos-io/livos/daemon/internal/updater/downloader"
)

const (
	// statusLinePrefix marks structured status lines on the script's output:
	// "livos-status: {\"progress\": 40, \"description\": \"...\"}"
	statusLinePrefix = "livos-status:"

	// the installer phase of an update script reports progress as single-dot
	// lines; a full run emits expectedDots of them
	expectedDots = 70

	// the dot phase maps onto the 5-95% band of the overall progress
	baseProgress      = 5
	maxStreamProgress = 95

	genericFailure  = "Update failed"
	noScriptFailure = "No update script found"

	// maxOutputLine bounds a single line of script output; longer lines
	// cannot be status markers and are skipped
	maxOutputLine = 1024 * 1024
)

// Releases resolves the latest release metadata
type Releases interface {
	Resolve(ctx context.Context, currentVersion string) (*ReleaseInfo, error)
}

// Updater downloads the update script of the latest release, executes it as
// a subprocess and stream-parses its output into the progress tracker. One
// Updater serves the whole daemon; runs are serialized by the lifecycle
// manager's exclusive-state claim.
type Updater struct {
	tracker        *opstatus.Tracker
	releases       Releases
	currentVersion string

	download   func(ctx context.Context, url string) ([]byte, error)
	newCommand func(ctx context.Context, scriptPath string) *exec.Cmd

	mu   sync.Mutex
	dots int
}

// New creates an Updater reporting into the given tracker
func New(tracker *opstatus.Tracker, releases Releases, currentVersion string) *Updater {
	return &Updater{
		tracker:        tracker,
		releases:       releases,
		currentVersion: currentVersion,
		download: func(ctx context.Context, url string) ([]byte, error) {
			return downloader.DownloadWithRetry(ctx, url, downloader.DefaultRetryDelay)
		},
		newCommand: newScriptCommand,
	}
}

// Status returns the progress of the in-flight or last update attempt
func (u *Updater) Status() opstatus.Progress {
	return u.tracker.Get()
}

// Check resolves the latest release and reports whether it is newer than the
// running version
func (u *Updater) Check(ctx context.Context) (*ReleaseInfo, bool, error) {
	release, err := u.releases.Resolve(ctx, u.currentVersion)
	if err != nil {
		return nil, false, err
	}
	return release, UpdateAvailable(u.currentVersion, release), nil
}

// Run performs one complete update attempt. On failure the tracker retains
// the most specific error reported and every other field returns to its
// default; the caller reverts the machine-wide status. On success the
// tracker reads 100% and the caller is expected to reboot shortly after.
func (u *Updater) Run(ctx context.Context) error {
	u.tracker.Begin(baseProgress, "Updating...")
	u.mu.Lock()
	u.dots = 0
	u.mu.Unlock()

	if err := u.run(ctx); err != nil {
		u.tracker.FailAndReset(genericFailure)
		log.Errorf("update attempt failed: %v", err)
		return err
	}

	u.tracker.Complete(100, "Restarting...")
	log.Info("update completed successfully")
	return nil
}

func (u *Updater) run(ctx context.Context) error {
	release, err := u.releases.Resolve(ctx, u.currentVersion)
	if err != nil {
		return err
	}

	if release.UpdateScript == "" {
		u.tracker.SetError(noScriptFailure)
		return syserr.NewScriptMissingError()
	}

	log.Infof("updating to release %s (%s)", release.Version, release.Name)

	script, err := u.download(ctx, release.UpdateScript)
	if err != nil {
		return err
	}

	scriptPath, err := writeScript(script)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(filepath.Dir(scriptPath)); err != nil {
			log.Warnf("failed to remove update script %s: %v", scriptPath, err)
		}
	}()

	return u.execute(ctx, scriptPath)
}

// execute launches the script and consumes stdout and stderr line by line
// while it runs, so progress is visible during multi-minute installs
func (u *Updater) execute(ctx context.Context, scriptPath string) error {
	cmd := u.newCommand(ctx, scriptPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return syserr.NewScriptExecutionError(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return syserr.NewScriptExecutionError(err)
	}

	if err := cmd.Start(); err != nil {
		return syserr.NewScriptExecutionError(err)
	}
	log.Infof("update script started with PID %d", cmd.Process.Pid)

	var wg sync.WaitGroup
	wg.Add(2)
	go u.consumeOutput(stdout, &wg)
	go u.consumeOutput(stderr, &wg)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return syserr.NewScriptExecutionError(err)
	}
	return nil
}

func (u *Updater) consumeOutput(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for scanner.Scan() {
		u.parseLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("error reading update script output: %v", err)
		// keep draining until the script closes the stream: a full pipe
		// would block the script and the update would never finish
		if _, err := io.Copy(io.Discard, r); err != nil {
			log.Warnf("error draining update script output: %v", err)
		}
	}
}

// parseLine applies the script output protocol to one line: structured
// status lines are merged into the tracker, single-dot lines advance the
// installer-phase progress, everything else is ignored
func (u *Updater) parseLine(line string) {
	if strings.HasPrefix(line, statusLinePrefix) {
		payload := strings.TrimSpace(strings.TrimPrefix(line, statusLinePrefix))
		var patch opstatus.Patch
		if err := json.Unmarshal([]byte(payload), &patch); err != nil {
			// a malformed status line must never abort the update
			log.Debugf("ignoring malformed status line %q: %v", line, err)
			return
		}
		u.tracker.Apply(patch)
		return
	}

	if line == "." {
		u.mu.Lock()
		u.dots++
		dots := u.dots
		u.mu.Unlock()

		progress := dotProgress(dots)
		u.tracker.SetProgress(progress)
		log.Debugf("installer progress: %d/%d dots (%d%%)", dots, expectedDots, progress)
	}
}

// dotProgress maps 0-70 dots linearly onto the 5-95% band, capped at 95
// regardless of overshoot
func dotProgress(dots int) int {
	progress := dots*90/expectedDots + baseProgress
	if progress > maxStreamProgress {
		return maxStreamProgress
	}
	return progress
}

func writeScript(body []byte) (string, error) {
	dir, err := os.MkdirTemp("", "livos-update-*")
	if err != nil {
		return "", fmt.Errorf("error creating temporary directory: %w", err)
	}
	path := filepath.Join(dir, "update.sh")
	if err := os.WriteFile(path, body, 0o700); err != nil {
		return "", fmt.Errorf("error writing update script: %w", err)
	}
	return path, nil
}

func newScriptCommand(ctx context.Context, scriptPath string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "/bin/sh", scriptPath)
	cmd.Env = os.Environ()
	return cmd
}

// WaitBeforeReboot is the grace period between a successful update and the
// reboot that activates it, giving polling clients a chance to observe the
// terminal progress state
const WaitBeforeReboot = 5 * time.Second
