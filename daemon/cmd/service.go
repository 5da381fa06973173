package cmd

import (
	"context"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type program struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newSVCConfig() *service.Config {
	return &service.Config{
		Name:        serviceName,
		DisplayName: "LivOS",
		Description: "LivOS appliance lifecycle daemon",
		Option:      make(service.KeyValue),
		Arguments: []string{
			"run",
			"--log-level", logLevel,
			"--log-file", logFile,
			"--listen-address", listenAddress,
			"--data-dir", dataDir,
		},
		// Respected only by systemd systems
		Dependencies: []string{"After=network.target syslog.target"},
	}
}

func newSVC(prg *program, conf *service.Config) (service.Service, error) {
	return service.New(prg, conf)
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	log.Info("starting service")
	go func() {
		if err := runDaemon(p.ctx); err != nil {
			log.Errorf("daemon stopped with error: %v", err)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.cancel()
	log.Info("stopped LivOS service")
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "runs livosd as a service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := newDaemonContext()
		defer cancel()

		s, err := newSVC(&program{ctx: ctx, cancel: cancel}, newSVCConfig())
		if err != nil {
			return err
		}
		return s.Run()
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the livosd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSVC(&program{}, newSVCConfig())
		if err != nil {
			return err
		}
		if err := s.Start(); err != nil {
			return err
		}
		cmd.Println("LivOS service has been started")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stops the livosd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSVC(&program{}, newSVCConfig())
		if err != nil {
			return err
		}
		if err := s.Stop(); err != nil {
			return err
		}
		cmd.Println("LivOS service has been stopped")
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "installs the livosd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSVC(&program{}, newSVCConfig())
		if err != nil {
			return err
		}
		if err := s.Install(); err != nil {
			return err
		}
		cmd.Println("LivOS service has been installed")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "uninstalls the livosd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSVC(&program{}, newSVCConfig())
		if err != nil {
			return err
		}
		if err := s.Uninstall(); err != nil {
			return err
		}
		cmd.Println("LivOS service has been uninstalled")
		return nil
	},
}
