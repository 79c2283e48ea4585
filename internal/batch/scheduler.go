// Package batch schedules unattended batch starts on cron expressions.
package batch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// StartFunc kicks off one batch run for a schedule entry
type StartFunc func(entry ScheduleEntry) error

// Scheduler fires batch starts when their cron expressions come due
type Scheduler struct {
	entries  map[string]ScheduleEntry
	parser   cron.Parser
	lastRun  map[string]time.Time
	running  map[string]bool
	logger   *slog.Logger
	mu       sync.RWMutex
	stopChan chan struct{}
}

// NewScheduler creates a scheduler for the given entries
func NewScheduler(entries []ScheduleEntry, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{
		entries:  make(map[string]ScheduleEntry),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:  make(map[string]time.Time),
		running:  make(map[string]bool),
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		s.entries[e.Name] = e
	}

	return s, nil
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextRun returns the next due time for a schedule entry
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(entry.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// ShouldRun returns true if an entry is due now
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return false
	}

	if s.running[name] {
		return false
	}

	sched, err := s.parser.Parse(entry.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}

	return time.Now().After(sched.Next(lastRun))
}

// MarkRunning marks an entry as currently running
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete marks an entry as done and records the run time
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// ListEntries returns all schedule names
func (s *Scheduler) ListEntries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Start begins the scheduler loop; it returns when Stop is called
func (s *Scheduler) Start(start StartFunc) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.RLock()
			entries := make([]ScheduleEntry, 0, len(s.entries))
			for _, entry := range s.entries {
				entries = append(entries, entry)
			}
			s.mu.RUnlock()

			for _, entry := range entries {
				if !s.ShouldRun(entry.Name) {
					continue
				}
				s.MarkRunning(entry.Name)
				go func(e ScheduleEntry) {
					if err := start(e); err != nil {
						s.logger.Warn("scheduled batch start failed", "schedule", e.Name, "err", err)
					}
					s.MarkComplete(e.Name)
				}(entry)
			}
		}
	}
}

// Stop stops the scheduler loop
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
