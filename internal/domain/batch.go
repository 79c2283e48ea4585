package domain

// BatchStatus is the polled snapshot of a backend batch job. It is only
// ever replaced wholesale, never mutated locally.
type BatchStatus struct {
	IsRunning bool     `json:"is_running"`
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Logs      []string `json:"logs"`
}

// Fraction returns progress in [0,1]; zero when the total is unknown
func (s BatchStatus) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total)
}

// TailLogs returns at most the n most recent log entries
func (s BatchStatus) TailLogs(n int) []string {
	if n <= 0 || len(s.Logs) == 0 {
		return nil
	}
	if len(s.Logs) <= n {
		return s.Logs
	}
	return s.Logs[len(s.Logs)-n:]
}
