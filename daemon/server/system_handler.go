package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/livos-io/livos/daemon/internal/opstatus"
	"github.com/livos-io/livos/daemon/internal/sysstate"
	"github.com/livos-io/livos/daemon/internal/updater"
	"github.com/livos-io/livos/daemon/server/util"
)

// LifecycleManager is the command and polling surface the API exposes.
// Status reads never require authentication: first-boot recovery flows must
// be able to poll migration and reset progress before any session exists.
type LifecycleManager interface {
	Status() sysstate.Status
	UpdateStatus() opstatus.Progress
	MigrationStatus() opstatus.Progress
	FactoryResetStatus() opstatus.Progress
	CheckUpdate(ctx context.Context) (*updater.ReleaseInfo, bool, error)
	DetectExternalInstall() (string, error)
	Update() (bool, error)
	Migrate() (bool, error)
	FactoryReset(password string) (bool, error)
	Shutdown() (bool, error)
	Restart() (bool, error)
}

// SystemHandler serves the lifecycle endpoints
type SystemHandler struct {
	manager LifecycleManager
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(manager LifecycleManager) *SystemHandler {
	return &SystemHandler{manager: manager}
}

// AddEndpoints registers the lifecycle routes on the router
func (h *SystemHandler) AddEndpoints(router *mux.Router) {
	router.HandleFunc("/system/status", h.getStatus).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/system/update/status", h.getUpdateStatus).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/system/check-update", h.checkUpdate).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/system/migration/status", h.getMigrationStatus).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/system/migration/detect", h.detectMigration).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/system/factory-reset/status", h.getFactoryResetStatus).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/system/update", h.update).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/system/migrate", h.migrate).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/system/factory-reset", h.factoryReset).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/system/shutdown", h.shutdown).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/system/restart", h.restart).Methods(http.MethodPost, http.MethodOptions)
}

type statusResponse struct {
	Status string `json:"status"`
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type checkUpdateResponse struct {
	Available    bool   `json:"available"`
	Version      string `json:"version"`
	Name         string `json:"name"`
	ReleaseNotes string `json:"releaseNotes"`
}

type detectResponse struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

type factoryResetRequest struct {
	Password string `json:"password"`
}

func (h *SystemHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	util.WriteJSONObject(w, statusResponse{Status: string(h.manager.Status())})
}

func (h *SystemHandler) getUpdateStatus(w http.ResponseWriter, r *http.Request) {
	util.WriteJSONObject(w, h.manager.UpdateStatus())
}

func (h *SystemHandler) getMigrationStatus(w http.ResponseWriter, r *http.Request) {
	util.WriteJSONObject(w, h.manager.MigrationStatus())
}

func (h *SystemHandler) getFactoryResetStatus(w http.ResponseWriter, r *http.Request) {
	util.WriteJSONObject(w, h.manager.FactoryResetStatus())
}

func (h *SystemHandler) checkUpdate(w http.ResponseWriter, r *http.Request) {
	release, available, err := h.manager.CheckUpdate(r.Context())
	if err != nil {
		util.WriteError(err, w)
		return
	}
	util.WriteJSONObject(w, checkUpdateResponse{
		Available:    available,
		Version:      release.Version,
		Name:         release.Name,
		ReleaseNotes: release.ReleaseNotes,
	})
}

func (h *SystemHandler) detectMigration(w http.ResponseWriter, r *http.Request) {
	path, err := h.manager.DetectExternalInstall()
	if err != nil {
		util.WriteError(err, w)
		return
	}
	util.WriteJSONObject(w, detectResponse{Found: path != "", Path: path})
}

func (h *SystemHandler) update(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.manager.Update()
	h.writeAcceptance(w, accepted, err)
}

func (h *SystemHandler) migrate(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.manager.Migrate()
	h.writeAcceptance(w, accepted, err)
}

func (h *SystemHandler) factoryReset(w http.ResponseWriter, r *http.Request) {
	var req factoryResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteErrorResponse("couldn't parse JSON request", http.StatusBadRequest, w)
		return
	}
	accepted, err := h.manager.FactoryReset(req.Password)
	h.writeAcceptance(w, accepted, err)
}

func (h *SystemHandler) shutdown(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.manager.Shutdown()
	h.writeAcceptance(w, accepted, err)
}

func (h *SystemHandler) restart(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.manager.Restart()
	h.writeAcceptance(w, accepted, err)
}

func (h *SystemHandler) writeAcceptance(w http.ResponseWriter, accepted bool, err error) {
	if err != nil {
		util.WriteError(err, w)
		return
	}
	util.WriteJSONObject(w, acceptedResponse{Accepted: accepted})
}
