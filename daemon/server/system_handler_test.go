package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livos-io/livos/daemon/internal/opstatus"
	"github.com/livos-io/livos/daemon/internal/syserr"
	"github.com/livos-io/livos/daemon/internal/sysstate"
	"github.com/livos-io/livos/daemon/internal/updater"
)

type stubManager struct {
	status        sysstate.Status
	updateStatus  opstatus.Progress
	busy          bool
	resetPassword string
}

func (s *stubManager) Status() sysstate.Status { return s.status }

func (s *stubManager) UpdateStatus() opstatus.Progress { return s.updateStatus }

func (s *stubManager) MigrationStatus() opstatus.Progress { return opstatus.Progress{} }

func (s *stubManager) FactoryResetStatus() opstatus.Progress {
	return opstatus.Progress{}
}

func (s *stubManager) CheckUpdate(_ context.Context) (*updater.ReleaseInfo, bool, error) {
	return &updater.ReleaseInfo{Version: "1.1.0", Name: "Aurora", ReleaseNotes: "Bug fixes"}, true, nil
}

func (s *stubManager) DetectExternalInstall() (string, error) { return "/media/usb1", nil }

func (s *stubManager) accept() (bool, error) {
	if s.busy {
		return false, syserr.NewStateConflictError("updating")
	}
	return true, nil
}

func (s *stubManager) Update() (bool, error)  { return s.accept() }
func (s *stubManager) Migrate() (bool, error) { return s.accept() }

func (s *stubManager) FactoryReset(password string) (bool, error) {
	if password != s.resetPassword {
		return false, syserr.NewAuthorizationError()
	}
	return s.accept()
}

func (s *stubManager) Shutdown() (bool, error) { return s.accept() }
func (s *stubManager) Restart() (bool, error)  { return s.accept() }

func doRequest(t *testing.T, manager LifecycleManager, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	NewSystemHandler(manager).AddEndpoints(router.PathPrefix("/api/v1").Subrouter())

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetStatus(t *testing.T) {
	manager := &stubManager{status: sysstate.StatusRunning}
	recorder := doRequest(t, manager, http.MethodGet, "/api/v1/system/status", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp["status"])
}

func TestGetUpdateStatus(t *testing.T) {
	manager := &stubManager{updateStatus: opstatus.Progress{Running: true, Progress: 50, Description: "Updating..."}}
	recorder := doRequest(t, manager, http.MethodGet, "/api/v1/system/update/status", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var progress opstatus.Progress
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &progress))
	assert.Equal(t, 50, progress.Progress)
	assert.True(t, progress.Running)
}

func TestCheckUpdate(t *testing.T) {
	recorder := doRequest(t, &stubManager{}, http.MethodGet, "/api/v1/system/check-update", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["available"])
	assert.Equal(t, "1.1.0", resp["version"])
}

func TestUpdateAccepted(t *testing.T) {
	recorder := doRequest(t, &stubManager{}, http.MethodPost, "/api/v1/system/update", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.True(t, resp["accepted"])
}

func TestUpdateConflict(t *testing.T) {
	recorder := doRequest(t, &stubManager{busy: true}, http.MethodPost, "/api/v1/system/update", nil)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestFactoryResetWrongPassword(t *testing.T) {
	manager := &stubManager{resetPassword: "moonbeam"}
	body := []byte(`{"password": "wrong-password"}`)
	recorder := doRequest(t, manager, http.MethodPost, "/api/v1/system/factory-reset", body)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestFactoryResetAccepted(t *testing.T) {
	manager := &stubManager{resetPassword: "moonbeam"}
	body := []byte(`{"password": "moonbeam"}`)
	recorder := doRequest(t, manager, http.MethodPost, "/api/v1/system/factory-reset", body)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.True(t, resp["accepted"])
}

func TestFactoryResetMalformedBody(t *testing.T) {
	recorder := doRequest(t, &stubManager{}, http.MethodPost, "/api/v1/system/factory-reset", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDetectMigration(t *testing.T) {
	recorder := doRequest(t, &stubManager{}, http.MethodGet, "/api/v1/system/migration/detect", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["found"])
	assert.Equal(t, "/media/usb1", resp["path"])
}

func TestShutdownAccepted(t *testing.T) {
	recorder := doRequest(t, &stubManager{}, http.MethodPost, "/api/v1/system/shutdown", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
