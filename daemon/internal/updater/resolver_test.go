package updater

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	id  string
	err error
}

func (f *fakeDevice) ID() (string, error) { return f.id, f.err }
func (f *fakeDevice) Platform() string    { return "LivOS" }

type fakeChannels struct {
	channel string
}

func (f *fakeChannels) Channel() string { return f.channel }

func TestResolver_Resolve(t *testing.T) {
	var gotQuery map[string]string
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version": "1.2.0", "name": "Aurora", "releaseNotes": "Bug fixes", "updateScript": "https://releases.livos.io/1.2.0/update.sh"}`))
	}))
	defer srv.Close()

	resolver := NewResolverWithEndpoint(srv.URL, &fakeDevice{id: "device-1"}, &fakeChannels{channel: "beta"})
	release, err := resolver.Resolve(context.Background(), "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", release.Version)
	assert.Equal(t, "Aurora", release.Name)
	assert.Equal(t, "Bug fixes", release.ReleaseNotes)
	assert.Equal(t, "https://releases.livos.io/1.2.0/update.sh", release.UpdateScript)

	assert.Equal(t, map[string]string{
		"version":  "1.0.0",
		"device":   "device-1",
		"platform": "LivOS",
		"channel":  "beta",
	}, gotQuery)
	assert.Equal(t, "LivOS 1.0.0", gotUserAgent)
}

func TestResolver_DeviceDetectionFallsBackToUnknown(t *testing.T) {
	var gotDevice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDevice = r.URL.Query().Get("device")
		_, _ = w.Write([]byte(`{"version": "1.2.0"}`))
	}))
	defer srv.Close()

	resolver := NewResolverWithEndpoint(srv.URL, &fakeDevice{err: errors.New("no dmi")}, &fakeChannels{channel: "stable"})
	_, err := resolver.Resolve(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "unknown", gotDevice)
}

func TestResolver_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	resolver := NewResolverWithEndpoint(srv.URL, &fakeDevice{id: "device-1"}, &fakeChannels{channel: "stable"})
	_, err := resolver.Resolve(context.Background(), "1.0.0")
	assert.Error(t, err)
}

func TestResolver_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resolver := NewResolverWithEndpoint(srv.URL, &fakeDevice{id: "device-1"}, &fakeChannels{channel: "stable"})
	_, err := resolver.Resolve(context.Background(), "1.0.0")
	assert.Error(t, err)
}

func TestUpdateAvailable_UnparseableVersions(t *testing.T) {
	assert.False(t, UpdateAvailable("development", &ReleaseInfo{Version: "1.2.0"}))
	assert.False(t, UpdateAvailable("1.0.0", &ReleaseInfo{Version: "latest"}))
}
