// Package util provides JSON helpers for the HTTP API
package util

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/daemon/internal/syserr"
)

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONObject simply writes object to the HTTP response in JSON format
func WriteJSONObject(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// WriteErrorResponse prepares and writes an error response in JSON
func WriteErrorResponse(errMsg string, httpStatus int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(httpStatus)
	err := json.NewEncoder(w).Encode(&ErrorResponse{
		Message: errMsg,
		Code:    httpStatus,
	})
	if err != nil {
		log.Errorf("failed to encode error response: %v", err)
	}
}

// WriteError converts an operation error into the matching HTTP response
func WriteError(err error, w http.ResponseWriter) {
	appErr, ok := syserr.FromError(err)
	if !ok || appErr == nil {
		WriteErrorResponse("internal server error", http.StatusInternalServerError, w)
		return
	}

	switch appErr.Type() {
	case syserr.Unauthorized:
		WriteErrorResponse(appErr.Error(), http.StatusUnauthorized, w)
	case syserr.Conflict:
		WriteErrorResponse(appErr.Error(), http.StatusConflict, w)
	case syserr.PreconditionFailed:
		WriteErrorResponse(appErr.Error(), http.StatusPreconditionFailed, w)
	case syserr.NotFound:
		WriteErrorResponse(appErr.Error(), http.StatusNotFound, w)
	case syserr.BadRequest:
		WriteErrorResponse(appErr.Error(), http.StatusBadRequest, w)
	default:
		WriteErrorResponse(appErr.Error(), http.StatusInternalServerError, w)
	}
}
