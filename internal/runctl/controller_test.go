package runctl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benchtop/benchtop/internal/client"
	"github.com/benchtop/benchtop/internal/domain"
	"github.com/benchtop/benchtop/internal/resultstore"
)

type fakeBackend struct {
	mu          sync.Mutex
	runErr      error
	runResult   *domain.RunResult
	latest      *domain.RunResult
	latestErr   error
	report      string
	reportErr   error
	runCalls    int
	latestCalls int
	reportCalls int
	block       chan struct{} // when set, Run blocks until closed
}

func (f *fakeBackend) Run(ctx context.Context, id string) (*domain.RunResult, error) {
	f.mu.Lock()
	f.runCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.runResult, nil
}

func (f *fakeBackend) LatestResult(ctx context.Context, id string) (*domain.RunResult, error) {
	f.mu.Lock()
	f.latestCalls++
	f.mu.Unlock()
	return f.latest, f.latestErr
}

func (f *fakeBackend) Report(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.reportCalls++
	f.mu.Unlock()
	return f.report, f.reportErr
}

func TestController_RunSuccess(t *testing.T) {
	backend := &fakeBackend{
		runResult: &domain.RunResult{Status: domain.RunCompleted, Success: true},
		latest:    &domain.RunResult{Status: domain.RunCompleted, Success: true, Patch: "+x"},
		report:    "summary",
	}
	store := resultstore.New()
	store.SetOwner("t1")

	c := New(backend, store, nil, nil)
	c.Run(context.Background(), "t1")

	result := store.Result()
	if result == nil {
		t.Fatal("result should be stored")
	}
	if result.Patch != "+x" {
		t.Error("persisted result should win over the inline trigger response")
	}
	if store.Report() != "summary" {
		t.Errorf("report = %q, want summary", store.Report())
	}
	if store.Mode() != domain.ViewResult {
		t.Errorf("mode = %q, want result view after a successful run", store.Mode())
	}
	if backend.latestCalls != 1 || backend.reportCalls != 1 {
		t.Errorf("follow-up fetches = %d/%d, want 1/1", backend.latestCalls, backend.reportCalls)
	}
}

func TestController_TriggerFailureSynthesizesError(t *testing.T) {
	backend := &fakeBackend{runErr: errors.New("POST /run: backend returned 500")}
	store := resultstore.New()
	store.SetOwner("t1")

	c := New(backend, store, nil, nil)
	c.Run(context.Background(), "t1")

	result := store.Result()
	if result == nil {
		t.Fatal("synthesized error result should be stored")
	}
	if result.Status != domain.RunError {
		t.Errorf("status = %q, want error", result.Status)
	}
	if result.Detail == "" {
		t.Error("detail should carry the failure message")
	}
	// No follow-up fetches on trigger failure
	if backend.latestCalls != 0 || backend.reportCalls != 0 {
		t.Errorf("follow-up fetches = %d/%d, want none", backend.latestCalls, backend.reportCalls)
	}
	// And no auto-switch to the result tab
	if store.Mode() != domain.ViewDetails {
		t.Errorf("mode = %q, want details after trigger failure", store.Mode())
	}
}

func TestController_ClearsStaleContentBeforeRun(t *testing.T) {
	backend := &fakeBackend{runErr: errors.New("down")}
	store := resultstore.New()
	store.SetOwner("t1")
	store.PutResult("t1", &domain.RunResult{Status: domain.RunCompleted, Patch: "old"})
	store.PutReport("t1", "old report")

	c := New(backend, store, nil, nil)
	c.Run(context.Background(), "t1")

	if store.Report() != "" {
		t.Error("previous report must be cleared before the new run")
	}
	if r := store.Result(); r == nil || r.Patch == "old" {
		t.Error("previous result must not survive into the new run")
	}
}

func TestController_BusyGate(t *testing.T) {
	block := make(chan struct{})
	backend := &fakeBackend{
		block:     block,
		runResult: &domain.RunResult{Status: domain.RunCompleted},
	}
	store := resultstore.New()
	store.SetOwner("t1")
	c := New(backend, store, nil, nil)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), "t1")
		close(done)
	}()

	// Wait for the first run to be in flight
	for !c.Busy() {
		time.Sleep(time.Millisecond)
	}

	// A second run while busy is refused outright
	c.Run(context.Background(), "t1")
	backend.mu.Lock()
	calls := backend.runCalls
	backend.mu.Unlock()
	if calls != 1 {
		t.Errorf("run calls = %d, want 1 while busy", calls)
	}

	close(block)
	<-done
	if c.Busy() {
		t.Error("busy flag should reset after the run settles")
	}
}

func TestController_ReportUnavailableIsNotFatal(t *testing.T) {
	backend := &fakeBackend{
		runResult: &domain.RunResult{Status: domain.RunCompleted},
		reportErr: client.ErrReportUnavailable,
	}
	store := resultstore.New()
	store.SetOwner("t1")

	c := New(backend, store, nil, nil)
	c.Run(context.Background(), "t1")

	if store.Result() == nil {
		t.Error("run result should be stored even when the report is unavailable")
	}
	if store.Report() != "" {
		t.Error("report should stay empty")
	}
}

type captureRecorder struct {
	taskID string
	result *domain.RunResult
}

func (r *captureRecorder) Record(taskID string, result *domain.RunResult, elapsed time.Duration) error {
	r.taskID = taskID
	r.result = result
	return nil
}

func TestController_RecordsAttempts(t *testing.T) {
	backend := &fakeBackend{runResult: &domain.RunResult{Status: domain.RunCompleted, Success: true}}
	store := resultstore.New()
	store.SetOwner("t1")
	rec := &captureRecorder{}

	c := New(backend, store, rec, nil)
	c.Run(context.Background(), "t1")

	if rec.taskID != "t1" || rec.result == nil {
		t.Errorf("recorder got task %q result %v", rec.taskID, rec.result)
	}
}
