// Package selection owns the currently selected task and reconciles
// asynchronously arriving fetch results against it.
package selection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/benchtop/benchtop/internal/client"
	"github.com/benchtop/benchtop/internal/domain"
	"github.com/benchtop/benchtop/internal/resultstore"
)

// Backend is the slice of the backend surface selection needs
type Backend interface {
	GetTask(ctx context.Context, id string) (*domain.TaskDetail, error)
	LatestResult(ctx context.Context, id string) (*domain.RunResult, error)
	Report(ctx context.Context) (string, error)
}

// Coordinator tracks which task is selected and issues the detail, latest
// result, and report fetches for it. Every fetch carries the task id it
// was issued under; arrivals are compared against the current selection
// at apply time and discarded when superseded (last-selection-wins).
// In-flight requests are never cancelled, only ignored.
type Coordinator struct {
	backend Backend
	store   *resultstore.Store
	logger  *slog.Logger
	notify  func()

	mu         sync.Mutex
	selected   string
	detail     *domain.TaskDetail
	banner     string
	refreshSeq int
}

// New creates a Coordinator feeding the given store. notify, when
// non-nil, fires after a fetch sequence settles.
func New(backend Backend, store *resultstore.Store, logger *slog.Logger, notify func()) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{backend: backend, store: store, logger: logger, notify: notify}
}

// Selected returns the currently selected task id, empty when none
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Detail returns the fetched detail for the selection, nil while pending
func (c *Coordinator) Detail() *domain.TaskDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detail
}

// Banner returns the visible error banner text, empty when healthy
func (c *Coordinator) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// RefreshSeq returns the number of refreshes issued so far; observers can
// watch it to learn that a re-fetch was requested without a selection
// change.
func (c *Coordinator) RefreshSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshSeq
}

// Select makes taskID the active task, clears the previously displayed
// result and report, and issues the fetch sequence for the new task.
func (c *Coordinator) Select(ctx context.Context, taskID string) {
	c.mu.Lock()
	c.selected = taskID
	c.detail = nil
	c.banner = ""
	c.mu.Unlock()

	c.store.SetOwner(taskID)
	go c.fetch(ctx, taskID)
}

// Refresh re-issues the fetch sequence for the current selection without
// changing it. Used when a batch run may have updated the open task.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.refreshSeq++
	taskID := c.selected
	c.mu.Unlock()

	if taskID == "" {
		return
	}
	go c.fetch(ctx, taskID)
}

func (c *Coordinator) fetch(ctx context.Context, taskID string) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		detail, err := c.backend.GetTask(ctx, taskID)
		if err != nil {
			c.logger.Warn("task detail fetch failed", "task", taskID, "err", err)
			c.applyBanner(taskID, "failed to load task: "+err.Error())
			return nil
		}
		c.applyDetail(taskID, detail)
		return nil
	})

	g.Go(func() error {
		result, err := c.backend.LatestResult(ctx, taskID)
		if err != nil {
			c.logger.Warn("latest result fetch failed", "task", taskID, "err", err)
			return nil
		}
		if result != nil {
			// Dropped by the store when the selection has moved on
			c.store.PutResult(taskID, result)
		}
		return nil
	})

	g.Go(func() error {
		report, err := c.backend.Report(ctx)
		if err != nil {
			if !errors.Is(err, client.ErrReportUnavailable) {
				c.logger.Warn("report fetch failed", "err", err)
			}
			return nil
		}
		c.store.PutReport(taskID, report)
		return nil
	})

	g.Wait()

	if c.notify != nil {
		c.notify()
	}
}

func (c *Coordinator) applyDetail(taskID string, detail *domain.TaskDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Compare against the selection at arrival time, not issue time
	if c.selected != taskID {
		return
	}
	c.detail = detail
}

func (c *Coordinator) applyBanner(taskID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != taskID {
		return
	}
	c.banner = text
}
