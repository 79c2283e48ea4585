// Package batchpoll drives the polling loop for a backend batch job.
package batchpoll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benchtop/benchtop/internal/domain"
)

// DefaultInterval is the fixed cadence between status polls
const DefaultInterval = 2 * time.Second

// LogTail is how many recent batch log entries are surfaced
const LogTail = 5

// Backend is the slice of the backend surface the poller needs
type Backend interface {
	StartBatch(ctx context.Context, limit int, ids []string) error
	StopBatch(ctx context.Context) error
	BatchStatus(ctx context.Context) (*domain.BatchStatus, error)
	Report(ctx context.Context) (string, error)
}

// State is the poller's lifecycle state
type State int

const (
	Idle State = iota
	Running
)

// Poller polls batch status on a fixed interval with strictly sequential
// ticks: the next tick is scheduled only after the previous request
// settles, so a slow backend never accumulates outstanding requests.
// Poll failures are logged and swallowed; polling stops when the backend
// reports completion or on Close.
type Poller struct {
	backend  Backend
	interval time.Duration
	logger   *slog.Logger
	notify   func(domain.BatchStatus)

	mu       sync.Mutex
	state    State
	starting bool
	status   domain.BatchStatus
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates an idle Poller. notify, when non-nil, is invoked after each
// successful status poll.
func New(backend Backend, interval time.Duration, logger *slog.Logger, notify func(domain.BatchStatus)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{backend: backend, interval: interval, logger: logger, notify: notify}
}

// State returns the current lifecycle state
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status returns the last polled snapshot
func (p *Poller) Status() domain.BatchStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// TailLogs returns the most recent LogTail entries of the last snapshot.
// The poller keeps no log history of its own beyond that snapshot.
func (p *Poller) TailLogs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.TailLogs(LogTail)
}

// Start issues the batch start request and, on success, begins polling.
// The busy gate is held across the start request, so a second Start is
// refused even while the first one is still in flight.
func (p *Poller) Start(ctx context.Context, limit int, ids []string) error {
	p.mu.Lock()
	if p.state == Running || p.starting {
		p.mu.Unlock()
		return fmt.Errorf("batch already running")
	}
	p.starting = true
	p.mu.Unlock()

	if err := p.backend.StartBatch(ctx, limit, ids); err != nil {
		p.mu.Lock()
		p.starting = false
		p.mu.Unlock()
		return fmt.Errorf("starting batch: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.starting = false
	p.state = Running
	p.status = domain.BatchStatus{IsRunning: true}
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.loop(loopCtx, done)
	return nil
}

// Follow begins polling without issuing a start request, mirroring a
// batch that was started elsewhere. Unlike Start, the loop does not end
// when the backend reports idle: it keeps observing so a batch started
// later is picked up too. Follow runs until Close.
func (p *Poller) Follow() error {
	p.mu.Lock()
	if p.cancel != nil || p.starting {
		p.mu.Unlock()
		return fmt.Errorf("poller already active")
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.followLoop(loopCtx, done)
	return nil
}

// Stop requests a halt. It is idempotent: the local snapshot is untouched
// and polling ceases once a poll observes is_running=false.
func (p *Poller) Stop(ctx context.Context) error {
	if err := p.backend.StopBatch(ctx); err != nil {
		return fmt.Errorf("stopping batch: %w", err)
	}
	return nil
}

// Report fetches the aggregate report on demand, outside the polling
// cadence. Absence is reported as an error the caller can match.
func (p *Poller) Report(ctx context.Context) (string, error) {
	return p.backend.Report(ctx)
}

// Close tears the poller down. No ticks fire after Close returns.
func (p *Poller) Close() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		p.mu.Lock()
		p.state = Idle
		p.mu.Unlock()
	}()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status, err := p.backend.BatchStatus(ctx)
		if err != nil {
			// Transient failures must not kill the loop
			p.logger.Warn("batch status poll failed", "err", err)
			timer.Reset(p.interval)
			continue
		}

		p.mu.Lock()
		p.status = *status
		p.mu.Unlock()

		if p.notify != nil {
			p.notify(*status)
		}

		if !status.IsRunning {
			return
		}
		timer.Reset(p.interval)
	}
}

// followLoop is the observe-only variant of loop: it polls on the same
// sequential cadence but derives state from the backend's is_running
// flag instead of owning the batch lifecycle.
func (p *Poller) followLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		p.mu.Lock()
		p.state = Idle
		p.mu.Unlock()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status, err := p.backend.BatchStatus(ctx)
		if err != nil {
			p.logger.Warn("batch status poll failed", "err", err)
			timer.Reset(p.interval)
			continue
		}

		p.mu.Lock()
		p.status = *status
		if status.IsRunning {
			p.state = Running
		} else {
			p.state = Idle
		}
		p.mu.Unlock()

		if p.notify != nil {
			p.notify(*status)
		}
		timer.Reset(p.interval)
	}
}
