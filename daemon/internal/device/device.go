// Package device identifies the appliance hardware and platform for release
// queries. Detection failures are never fatal: callers fall back to the
// "unknown" sentinel and keep going.
package device

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	// PlatformLivOS is reported when the host is a recognized LivOS appliance
	PlatformLivOS = "LivOS"
	// Unknown is the sentinel used when detection fails
	Unknown = "unknown"
)

const (
	defaultProductUUIDPath = "/sys/class/dmi/id/product_uuid"
	defaultMachineIDPath   = "/etc/machine-id"
	defaultReleasePath     = "/etc/livos-release"
)

// Detector reads hardware and platform identifiers from the host filesystem
type Detector struct {
	productUUIDPath string
	machineIDPath   string
	releasePath     string
}

// NewDetector creates a Detector reading the standard host paths
func NewDetector() *Detector {
	return &Detector{
		productUUIDPath: defaultProductUUIDPath,
		machineIDPath:   defaultMachineIDPath,
		releasePath:     defaultReleasePath,
	}
}

// NewDetectorWithPaths creates a Detector reading custom paths, used in tests
func NewDetectorWithPaths(productUUIDPath, machineIDPath, releasePath string) *Detector {
	return &Detector{
		productUUIDPath: productUUIDPath,
		machineIDPath:   machineIDPath,
		releasePath:     releasePath,
	}
}

// ID returns a stable identifier for this device. It prefers the DMI product
// UUID and falls back to the machine id.
func (d *Detector) ID() (string, error) {
	if id, err := d.readProductUUID(); err == nil {
		return id, nil
	}

	raw, err := os.ReadFile(d.machineIDPath)
	if err != nil {
		return "", fmt.Errorf("no device identifier available: %w", err)
	}
	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", fmt.Errorf("machine id file %s is empty", d.machineIDPath)
	}
	return id, nil
}

// Platform reports the platform label sent to the release server
func (d *Detector) Platform() string {
	if _, err := os.Stat(d.releasePath); err != nil {
		return Unknown
	}
	return PlatformLivOS
}

func (d *Detector) readProductUUID() (string, error) {
	raw, err := os.ReadFile(d.productUUIDPath)
	if err != nil {
		return "", err
	}
	// normalize the firmware-reported UUID, rejecting garbage values
	id, err := uuid.Parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return "", fmt.Errorf("invalid product uuid: %w", err)
	}
	return id.String(), nil
}
