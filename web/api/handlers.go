package api

import (
	"net/http"

	"github.com/benchtop/benchtop/internal/batchpoll"
)

// StatusResponse is the API response for overall console state
type StatusResponse struct {
	SelectedTask string              `json:"selected_task,omitempty"`
	ViewMode     string              `json:"view_mode"`
	HasResult    bool                `json:"has_result"`
	HasReport    bool                `json:"has_report"`
	Batch        BatchStatusResponse `json:"batch"`
}

// BatchStatusResponse is the API response for batch progress
type BatchStatusResponse struct {
	Running   bool     `json:"running"`
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Fraction  float64  `json:"fraction"`
	Logs      []string `json:"logs,omitempty"`
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		batch := s.poller.Status()
		status := StatusResponse{
			SelectedTask: s.store.Owner(),
			ViewMode:     string(s.store.Mode()),
			HasResult:    s.store.Result() != nil,
			HasReport:    s.store.Report() != "",
			Batch: BatchStatusResponse{
				Running:   s.poller.State() == batchpoll.Running,
				Processed: batch.Processed,
				Total:     batch.Total,
				Fraction:  batch.Fraction(),
				Logs:      batch.TailLogs(batchpoll.LogTail),
			},
		}

		writeJSON(w, status)
	}
}

func (s *Server) listTasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		tasks, err := s.backend.ListTasks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, tasks)
	}
}

func (s *Server) resultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		// An explicit task parameter bypasses the console's selection
		// and proxies the backend directly.
		if id := r.URL.Query().Get("task"); id != "" {
			result, err := s.backend.LatestResult(r.Context(), id)
			if err != nil {
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			if result == nil {
				writeError(w, http.StatusNotFound, "no result for task "+id)
				return
			}
			writeJSON(w, result)
			return
		}

		result := s.store.Result()
		if result == nil {
			writeError(w, http.StatusNotFound, "no result for the selected task")
			return
		}

		writeJSON(w, result)
	}
}

func (s *Server) reportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		report := s.store.Report()
		if report == "" {
			// The standalone mirror has no console filling the store,
			// so fall back to a live fetch.
			if live, err := s.poller.Report(r.Context()); err == nil {
				report = live
			}
		}
		if report == "" {
			writeError(w, http.StatusNotFound, "no report available")
			return
		}

		writeJSON(w, map[string]string{"report": report})
	}
}
