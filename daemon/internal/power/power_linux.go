package power

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func (s *systemController) Shutdown(ctx context.Context) error {
	log.Info("powering off")
	if err := systemctl(ctx, "poweroff"); err == nil {
		return nil
	}
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF)
}

func (s *systemController) Restart(ctx context.Context) error {
	log.Info("rebooting")
	if err := systemctl(ctx, "reboot"); err == nil {
		return nil
	}
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}

// systemctl asks the service supervisor for an orderly shutdown first; the
// raw reboot syscall is the fallback on hosts without systemd
func systemctl(ctx context.Context, verb string) error {
	out, err := exec.CommandContext(ctx, "systemctl", verb).CombinedOutput()
	if err != nil {
		log.Warnf("systemctl %s failed, falling back to syscall: %v (%s)", verb, err, strings.TrimSpace(string(out)))
		return fmt.Errorf("systemctl %s: %w", verb, err)
	}
	return nil
}
