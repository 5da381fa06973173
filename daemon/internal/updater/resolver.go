package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/daemon/internal/device"
	"github.com/livos-io/livos/daemon/internal/syserr"
)

const (
	defaultReleaseEndpoint = "https://api.livos.io/latest-release"
	resolveTimeout         = 10 * time.Second

	userAgent = "LivOS %s"
)

// ReleaseInfo is the metadata of the latest release on the configured
// channel, fetched fresh on every check and never persisted
type ReleaseInfo struct {
	Version      string `json:"version"`
	Name         string `json:"name"`
	ReleaseNotes string `json:"releaseNotes"`
	UpdateScript string `json:"updateScript,omitempty"`
}

// DeviceInfo identifies the appliance hardware for the release query
type DeviceInfo interface {
	ID() (string, error)
	Platform() string
}

// ChannelSource reports the release channel the updater follows
type ChannelSource interface {
	Channel() string
}

// Resolver queries the remote release endpoint for the latest version
// available to this device
type Resolver struct {
	endpoint string
	device   DeviceInfo
	channels ChannelSource
	client   *http.Client
}

// NewResolver creates a Resolver against the default release endpoint
func NewResolver(deviceInfo DeviceInfo, channels ChannelSource) *Resolver {
	return NewResolverWithEndpoint(defaultReleaseEndpoint, deviceInfo, channels)
}

// NewResolverWithEndpoint creates a Resolver against a custom endpoint
func NewResolverWithEndpoint(endpoint string, deviceInfo DeviceInfo, channels ChannelSource) *Resolver {
	return &Resolver{
		endpoint: endpoint,
		device:   deviceInfo,
		channels: channels,
		client:   &http.Client{Timeout: resolveTimeout},
	}
}

// Resolve fetches the latest release metadata for the given running version.
// Device and platform detection failures degrade to the "unknown" sentinel;
// network and decode errors propagate to the caller.
func (r *Resolver) Resolve(ctx context.Context, currentVersion string) (*ReleaseInfo, error) {
	deviceID, err := r.device.ID()
	if err != nil {
		log.Warnf("device detection failed, reporting %q: %v", device.Unknown, err)
		deviceID = device.Unknown
	}

	query := url.Values{}
	query.Set("version", currentVersion)
	query.Set("device", deviceID)
	query.Set("platform", r.device.Platform())
	query.Set("channel", r.channels.Channel())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create release request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, currentVersion))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, syserr.NewResolutionError(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, syserr.NewResolutionError(fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode))
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, syserr.NewResolutionError(fmt.Errorf("malformed release metadata: %w", err))
	}

	log.Debugf("resolved latest release %s (%s) on channel %s", release.Version, release.Name, query.Get("channel"))
	return &release, nil
}

// UpdateAvailable reports whether the resolved release is newer than the
// running version. Unparseable versions compare as not newer.
func UpdateAvailable(currentVersion string, release *ReleaseInfo) bool {
	current, err := goversion.NewVersion(currentVersion)
	if err != nil {
		log.Warnf("cannot parse running version %q: %v", currentVersion, err)
		return false
	}
	latest, err := goversion.NewVersion(release.Version)
	if err != nil {
		log.Warnf("cannot parse release version %q: %v", release.Version, err)
		return false
	}
	return latest.GreaterThan(current)
}
