// Package power shuts down or reboots the appliance
package power

import "context"

// Controller halts or restarts the machine. Both calls are expected to
// terminate the process shortly after returning.
type Controller interface {
	Shutdown(ctx context.Context) error
	Restart(ctx context.Context) error
}

// NewController creates the platform power controller
func NewController() Controller {
	return &systemController{}
}

type systemController struct{}
