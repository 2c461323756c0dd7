// Package server is the live preview server: it serves the host page with
// the bound fragment, keeps one scene per browser connection and forwards
// browser events into it, pushing the container back whenever a binding
// changes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/errors"
	"github.com/conneroisu/wrap/internal/logging"
	"github.com/conneroisu/wrap/internal/middleware"
	"github.com/conneroisu/wrap/internal/scene"
	"github.com/conneroisu/wrap/internal/version"
	"github.com/conneroisu/wrap/internal/watcher"
	"github.com/conneroisu/wrap/internal/websocket"
)

const (
	clientPath = "/_wrap/client.js"
	wsPath     = "/_wrap/ws"
	healthPath = "/_wrap/health"
)

// SpecLoader reads the scene sources again after a file change.
type SpecLoader func() (scene.Spec, error)

// Server serves a scene with live updates.
type Server struct {
	config       *config.Config
	logger       logging.Logger
	manager      *websocket.Manager
	watcher      *watcher.FileWatcher
	loadSpec     SpecLoader
	httpServer   *http.Server
	stopped      bool
	serverMutex  sync.RWMutex
	spec         scene.Spec
	specMutex    sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a server for spec. load is used to re-read the sources when
// watching is enabled; it may be nil.
func New(cfg *config.Config, spec scene.Spec, load SpecLoader, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		config:   cfg,
		logger:   logger.WithComponent("server"),
		loadSpec: load,
		spec:     spec,
	}
	s.manager = websocket.NewManager(s.newSession, cfg.Server.AllowedOrigins, logger)

	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc(clientPath, s.handleClient)
	mux.HandleFunc(wsPath, s.manager.HandleWebSocket)
	mux.HandleFunc(healthPath, s.handleHealth)

	return middleware.Default(s.logger).Apply(mux)
}

// Start watches the scene sources if enabled and serves HTTP until the
// server is shut down.
func (s *Server) Start(ctx context.Context) error {
	if s.config.Watch.Enabled {
		if err := s.setupFileWatcher(ctx); err != nil {
			s.logger.Warn(ctx, err, "File watching disabled")
		}
	}

	addr := s.config.Addr()

	s.serverMutex.Lock()
	if s.stopped {
		s.serverMutex.Unlock()
		return nil
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Live server listening", "url", "http://"+addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.NewNetworkError(errors.ErrCodeServerFailed, "server error", err).WithContext("addr", addr)
	}

	return nil
}

func (s *Server) setupFileWatcher(ctx context.Context) error {
	if s.loadSpec == nil {
		return nil
	}

	fw, err := watcher.NewFileWatcher(s.config.Watch.Debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddHandler(s.handleFileChange)
	for _, path := range []string{s.config.Scene.Fragment, s.config.Scene.Page, s.config.Scene.ValuesFile} {
		if err := fw.AddFile(path); err != nil {
			_ = fw.Stop()
			return err
		}
	}

	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}

	s.serverMutex.Lock()
	defer s.serverMutex.Unlock()
	if s.stopped {
		return fw.Stop()
	}
	s.watcher = fw

	return nil
}

func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	spec, err := s.loadSpec()
	if err != nil {
		return fmt.Errorf("reloading scene: %w", err)
	}

	for _, e := range events {
		s.logger.Info(context.Background(), "Scene source changed", "path", e.Path, "change", e.Type.String())
	}
	s.Reload(spec)

	return nil
}

// Reload replaces the scene spec and rebuilds every live session from it.
func (s *Server) Reload(spec scene.Spec) {
	s.specMutex.Lock()
	s.spec = spec
	s.specMutex.Unlock()

	s.manager.Reload()
}

func (s *Server) currentSpec() scene.Spec {
	s.specMutex.RLock()
	defer s.specMutex.RUnlock()
	return s.spec
}

// Sessions returns the number of connected browsers.
func (s *Server) Sessions() int {
	return s.manager.ConnectedClients()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	w.Header().Set("Content-Type", "application/json")
	if s.manager.IsShutdown() {
		status = "shutting_down"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   status,
		"sessions": s.Sessions(),
		"version":  version.GetBuildInfo().Version,
	})
}

// Shutdown closes the live connections, stops watching and stops the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	s.shutdownOnce.Do(func() {
		errs = append(errs, s.manager.Shutdown(ctx))

		s.serverMutex.Lock()
		s.stopped = true
		fw, server := s.watcher, s.httpServer
		s.serverMutex.Unlock()

		if fw != nil {
			errs = append(errs, fw.Stop())
		}
		if server != nil {
			errs = append(errs, server.Shutdown(ctx))
		}

		s.logger.Info(ctx, "Live server stopped")
	})

	return errors.CombineErrors(errs...)
}
