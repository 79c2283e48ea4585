package domain

// TokenUsage records token consumption for one run attempt
type TokenUsage struct {
	Total  int `json:"total"`
	Prompt int `json:"prompt"`
}

// TestGroup lists test ids that passed or failed within one scoring group
type TestGroup struct {
	Success []string `json:"success"`
	Fail    []string `json:"fail"`
}

// RunResult is the authoritative record of one run attempt for one task.
// Success is only meaningful when Status is RunCompleted; Step and Detail
// are only populated on error.
type RunResult struct {
	Status     RunStatus  `json:"status"`
	Success    bool       `json:"success"`
	Patch      string     `json:"patch,omitempty"`
	ReadFiles  []string   `json:"read_files,omitempty"`
	EvalOutput string     `json:"eval_output,omitempty"`
	TokenUsage TokenUsage `json:"token_usage"`
	F2P        TestGroup  `json:"f2p"`
	P2P        TestGroup  `json:"p2p"`
	Step       string     `json:"step,omitempty"`
	Detail     string     `json:"detail,omitempty"`
}

// ErrorResult builds a synthesized error result for a failed run trigger
func ErrorResult(detail string) *RunResult {
	return &RunResult{Status: RunError, Detail: detail}
}

// Failed reports whether the attempt ended in an error
func (r *RunResult) Failed() bool {
	return r.Status == RunError
}
