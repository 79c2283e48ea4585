// Package resultstore holds the currently displayed run result and report.
package resultstore

import (
	"sync"

	"github.com/benchtop/benchtop/internal/domain"
)

// Store keeps at most one RunResult, one report text, and the active view
// mode for a single owner task. Writes carry the writer's task id and are
// dropped when it no longer matches the owner; that apply-time check is
// the only synchronization needed to keep stale fetches off the screen.
type Store struct {
	mu     sync.Mutex
	owner  string
	result *domain.RunResult
	report string
	mode   domain.ViewMode
}

// New creates an empty store with no owner
func New() *Store {
	return &Store{mode: domain.ViewDetails}
}

// SetOwner switches the store to a new owner task and clears the
// previously displayed result and report. The view falls back to details.
func (s *Store) SetOwner(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = taskID
	s.result = nil
	s.report = ""
	s.mode = domain.ViewDetails
}

// Owner returns the current owner task id
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Clear drops the stored result and report if taskID is still the owner
func (s *Store) Clear(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taskID != s.owner {
		return false
	}
	s.result = nil
	s.report = ""
	return true
}

// PutResult stores a result on behalf of taskID. Stale owners are
// silently dropped, not queued.
func (s *Store) PutResult(taskID string, r *domain.RunResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taskID != s.owner {
		return false
	}
	s.result = r
	return true
}

// PutReport stores report text on behalf of taskID
func (s *Store) PutReport(taskID, report string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taskID != s.owner {
		return false
	}
	s.report = report
	return true
}

// Result returns the displayed result, nil when none
func (s *Store) Result() *domain.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Report returns the displayed report text, empty when none
func (s *Store) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Mode returns the active view mode
func (s *Store) Mode() domain.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the view mode. Switching to result or report when the
// backing data is absent is a no-op; a tab without data is never shown.
func (s *Store) SetMode(mode domain.ViewMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case domain.ViewResult:
		if s.result == nil {
			return false
		}
	case domain.ViewReport:
		if s.report == "" {
			return false
		}
	}
	s.mode = mode
	return true
}
