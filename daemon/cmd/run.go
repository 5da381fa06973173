package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/daemon/internal/device"
	"github.com/livos-io/livos/daemon/internal/lifecycle"
	"github.com/livos-io/livos/daemon/internal/migration"
	"github.com/livos-io/livos/daemon/internal/opstatus"
	"github.com/livos-io/livos/daemon/internal/power"
	"github.com/livos-io/livos/daemon/internal/reset"
	"github.com/livos-io/livos/daemon/internal/settings"
	"github.com/livos-io/livos/daemon/internal/sysstate"
	"github.com/livos-io/livos/daemon/internal/updater"
	"github.com/livos-io/livos/daemon/server"
	"github.com/livos-io/livos/util"
	"github.com/livos-io/livos/version"
)

// runDaemon wires the lifecycle core together and serves the HTTP API until
// the context is cancelled
func runDaemon(ctx context.Context) error {
	if err := util.InitLog(logLevel, logFile); err != nil {
		return err
	}
	log.Infof("starting LivOS lifecycle daemon %s", version.LivOSVersion())

	store := settings.NewStore(filepath.Join(dataDir, "settings.json"))
	detector := device.NewDetector()
	currentVersion := version.LivOSVersion()

	registry := sysstate.NewRegistry()
	resolver := updater.NewResolver(detector, store)
	update := updater.New(opstatus.NewTracker(), resolver, currentVersion)
	migrator := migration.NewCoordinator(opstatus.NewTracker(), currentVersion)
	resetter := reset.NewCoordinator(opstatus.NewTracker(), store, dataDir)

	var srv *server.Server
	manager := lifecycle.NewManager(lifecycle.Config{
		Registry:  registry,
		Update:    update,
		Migration: migrator,
		Reset:     resetter,
		Power:     power.NewController(),
		DataDir:   dataDir,
		StopServices: func() {
			if srv != nil {
				srv.Stop()
			}
		},
		GraceDelay: updater.WaitBeforeReboot,
	})
	srv = server.New(listenAddress, manager)

	go func() {
		if err := migrator.Watch(ctx, func(path string) {
			log.Infof("external installation available for migration at %s", path)
		}); err != nil && ctx.Err() == nil {
			log.Warnf("volume watcher stopped: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		srv.Stop()
		return nil
	}
}

// newDaemonContext cancels on the usual termination signals
func newDaemonContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
