// Package server exposes the lifecycle daemon's HTTP API
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server is the HTTP front of the lifecycle daemon
type Server struct {
	httpServer *http.Server
}

// New creates a Server listening on addr and serving the lifecycle API
func New(addr string, manager LifecycleManager) *Server {
	rootRouter := mux.NewRouter()
	router := rootRouter.PathPrefix("/api/v1").Subrouter()
	router.Use(cors.AllowAll().Handler)

	NewSystemHandler(manager).AddEndpoints(router)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           rootRouter,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Run serves the API until Stop is called
func (s *Server) Run() error {
	log.Infof("HTTP API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}
}
