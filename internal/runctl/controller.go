// Package runctl orchestrates single-task run-and-fetch sequences.
package runctl

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benchtop/benchtop/internal/client"
	"github.com/benchtop/benchtop/internal/domain"
	"github.com/benchtop/benchtop/internal/resultstore"
)

// Backend is the slice of the backend surface a run needs
type Backend interface {
	Run(ctx context.Context, id string) (*domain.RunResult, error)
	LatestResult(ctx context.Context, id string) (*domain.RunResult, error)
	Report(ctx context.Context) (string, error)
}

// Recorder receives completed run attempts for local history. A nil
// recorder disables recording.
type Recorder interface {
	Record(taskID string, result *domain.RunResult, elapsed time.Duration) error
}

// Controller triggers runs for one task at a time and feeds the store.
// The busy flag keeps at most one run in flight per controller; the UI is
// expected to disable the trigger while Busy reports true.
type Controller struct {
	backend  Backend
	store    *resultstore.Store
	recorder Recorder
	logger   *slog.Logger

	mu   sync.Mutex
	busy bool
}

// New creates a Controller feeding the given store
func New(backend Backend, store *resultstore.Store, recorder Recorder, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{backend: backend, store: store, recorder: recorder, logger: logger}
}

// Busy reports whether a run is currently in flight
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Run triggers a run for taskID, then fetches the latest persisted result
// and the aggregate report, and activates the result view. On a transport
// failure of the trigger it stores a synthesized error result instead and
// skips the follow-up fetches; the result tab is populated but not
// auto-activated for trigger-level failures.
func (c *Controller) Run(ctx context.Context, taskID string) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	// Never show the previous attempt's output as if it were fresh
	c.store.Clear(taskID)

	started := time.Now()
	result, err := c.backend.Run(ctx, taskID)
	if err != nil {
		c.logger.Warn("run trigger failed", "task", taskID, "err", err)
		synthesized := domain.ErrorResult(err.Error())
		c.store.PutResult(taskID, synthesized)
		c.record(taskID, synthesized, time.Since(started))
		return
	}

	c.record(taskID, result, time.Since(started))

	// The trigger settled; fetch what the backend persisted plus the
	// aggregate report, preferring the persisted copy over the inline one.
	latest, err := c.backend.LatestResult(ctx, taskID)
	if err != nil {
		c.logger.Warn("latest result fetch failed", "task", taskID, "err", err)
		latest = nil
	}
	if latest == nil {
		latest = result
	}
	c.store.PutResult(taskID, latest)

	report, err := c.backend.Report(ctx)
	if err != nil && !errors.Is(err, client.ErrReportUnavailable) {
		c.logger.Warn("report fetch failed", "err", err)
	}
	if report != "" {
		c.store.PutReport(taskID, report)
	}

	c.store.SetMode(domain.ViewResult)
}

func (c *Controller) record(taskID string, result *domain.RunResult, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(taskID, result, elapsed); err != nil {
		c.logger.Warn("recording run attempt failed", "task", taskID, "err", err)
	}
}
