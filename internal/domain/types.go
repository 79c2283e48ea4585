package domain

import "strings"

// RunStatus represents the terminal state of a run attempt
type RunStatus string

const (
	RunCompleted RunStatus = "Completed"
	RunError     RunStatus = "error"
)

// NormalizeRunStatus maps backend status strings onto the canonical
// casing. The backend is inconsistent ("completed" vs "Completed");
// everything that is not an error is treated as completed.
func NormalizeRunStatus(s string) RunStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(RunError)) {
		return RunError
	}
	return RunCompleted
}

// ViewMode selects which tab of a task's detail pane is active
type ViewMode string

const (
	ViewDetails ViewMode = "details"
	ViewResult  ViewMode = "result"
	ViewReport  ViewMode = "report"
)
