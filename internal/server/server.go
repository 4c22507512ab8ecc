// Package server exposes conveyor to its triggering infrastructure: a small
// HTTP listener that accepts webhook events and a health endpoint. A newer
// event for the same branch supersedes the in-flight run for that branch,
// cancelling it before the replacement starts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/y0sshi/conveyor/internal/trigger"
)

// errSuperseded is the cancellation cause recorded when a newer event for
// the same branch replaces a run.
var errSuperseded = errors.New("superseded by a newer event")

// StartFunc launches one pipeline run for an event. It blocks until the run
// finishes and honours cancellation of its context.
type StartFunc func(ctx context.Context, ev trigger.Event) error

// Server is the webhook listener.
type Server struct {
	logger *slog.Logger
	addr   string
	start  StartFunc

	// baseCtx parents every run so shutdown can cancel them together. It is
	// replaced by ListenAndServe; the zero value serves router-only tests.
	baseCtx context.Context

	mu       sync.Mutex
	inflight map[string]*run
	runs     sync.WaitGroup
}

// run is the handle for one in-flight pipeline run.
type run struct {
	cancel context.CancelCauseFunc
}

// New creates a webhook server that dispatches matched events via start.
func New(logger *slog.Logger, addr string, start StartFunc) *Server {
	return &Server{
		logger:   logger,
		addr:     addr,
		start:    start,
		baseCtx:  context.Background(),
		inflight: make(map[string]*run),
	}
}

// Router returns the HTTP handler. Split out so tests can drive the server
// through httptest without binding a socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	return r
}

// ListenAndServe runs the listener until ctx is cancelled, then cancels all
// in-flight runs and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.baseCtx = ctx

	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 Webhook server starting", "address", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("🌐 Shutting down webhook server...")
	s.cancelAll(context.Cause(ctx))
	s.runs.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Webhook server shutdown failed", "error", err)
		return err
	}
	s.logger.Debug("Webhook server shut down gracefully.")
	return nil
}

// cancelAll cancels every in-flight run, e.g. on shutdown.
func (s *Server) cancelAll(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, handle := range s.inflight {
		s.logger.Warn("Cancelling in-flight run.", "key", key)
		handle.cancel(cause)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// handleWebhook accepts a triggering event and starts a run for it. An event
// for a branch that already has an in-flight run cancels that run first.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var ev trigger.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "malformed event payload", http.StatusBadRequest)
		return
	}
	if ev.Kind != trigger.Push && ev.Kind != trigger.PullRequest {
		http.Error(w, fmt.Sprintf("unsupported event kind %q", ev.Kind), http.StatusBadRequest)
		return
	}
	if ev.Branch == "" {
		http.Error(w, "event is missing a branch", http.StatusBadRequest)
		return
	}

	s.logger.Info("📨 Webhook event received", "event", ev.Kind, "branch", ev.Branch)
	s.dispatch(ev)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "accepted",
		"event":  string(ev.Kind),
		"branch": ev.Branch,
	})
}

// dispatch starts the run for an event, superseding any in-flight run keyed
// by the same event kind and branch.
func (s *Server) dispatch(ev trigger.Event) {
	key := string(ev.Kind) + "/" + ev.Branch

	runCtx, cancel := context.WithCancelCause(s.baseCtx)
	handle := &run{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		s.logger.Warn("Superseding in-flight run.", "key", key)
		prev.cancel(errSuperseded)
	}
	s.inflight[key] = handle
	s.mu.Unlock()

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.forget(key, handle)

		if err := s.start(runCtx, ev); err != nil {
			s.logger.Error("Run finished with error.", "key", key, "error", err)
			return
		}
		s.logger.Info("Run finished.", "key", key)
	}()
}

// forget releases the run's context and removes its handle, unless a newer
// run already replaced it.
func (s *Server) forget(key string, handle *run) {
	handle.cancel(nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[key] == handle {
		delete(s.inflight, key)
	}
}
