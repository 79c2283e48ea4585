// Package api exposes a small read-only HTTP mirror of the console
// state so dashboards can observe runs without attaching a terminal.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/benchtop/benchtop/internal/batchpoll"
	"github.com/benchtop/benchtop/internal/domain"
	"github.com/benchtop/benchtop/internal/resultstore"
)

// Backend is the slice of the run backend the mirror reads from.
// LatestResult lets the result endpoint serve tasks the console never
// selected, which is how the standalone mirror operates.
type Backend interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	LatestResult(ctx context.Context, id string) (*domain.RunResult, error)
}

// Server is the HTTP mirror server
type Server struct {
	backend Backend
	store   *resultstore.Store
	poller  *batchpoll.Poller
	addr    string
	mux     *http.ServeMux
	sseHub  *SSEHub
}

// NewServer creates a new mirror server
func NewServer(backend Backend, store *resultstore.Store, poller *batchpoll.Poller, addr string) *Server {
	s := &Server{
		backend: backend,
		store:   store,
		poller:  poller,
		addr:    addr,
		mux:     http.NewServeMux(),
		sseHub:  NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/tasks", s.listTasksHandler())
	s.mux.HandleFunc("/api/result", s.resultHandler())
	s.mux.HandleFunc("/api/report", s.reportHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

// BroadcastBatch pushes a batch progress snapshot to all SSE clients
func (s *Server) BroadcastBatch(status domain.BatchStatus) {
	s.Broadcast(SSEEvent{Type: "batch", Data: BatchStatusResponse{
		Running:   status.IsRunning,
		Processed: status.Processed,
		Total:     status.Total,
		Fraction:  status.Fraction(),
		Logs:      status.TailLogs(batchpoll.LogTail),
	}})
}

// Handler returns the mirror's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
