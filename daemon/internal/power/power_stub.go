//go:build !linux

package power

import (
	"context"
	"fmt"
	"runtime"
)

func (s *systemController) Shutdown(_ context.Context) error {
	return fmt.Errorf("shutdown is not supported on %s", runtime.GOOS)
}

func (s *systemController) Restart(_ context.Context) error {
	return fmt.Errorf("restart is not supported on %s", runtime.GOOS)
}
