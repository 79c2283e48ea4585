package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/benchtop/benchtop/internal/batchpoll"
	"github.com/benchtop/benchtop/internal/domain"
	"github.com/benchtop/benchtop/internal/resultstore"
	"github.com/benchtop/benchtop/internal/runctl"
	"github.com/benchtop/benchtop/internal/selection"
)

// Tab indices
const (
	tabTasks = iota
	tabDetails
	tabResult
	tabReport
	tabBatch
	tabCount
)

// Backend is the slice of the backend surface the model needs directly;
// everything else goes through the coordinator, controller, and poller.
type Backend interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
}

// Model is the TUI application model
type Model struct {
	backend     Backend
	store       *resultstore.Store
	coordinator *selection.Coordinator
	controller  *runctl.Controller
	poller      *batchpoll.Poller

	// Data
	tasks    []domain.Task
	tasksErr string

	// Batch parameters applied on 'b'
	batchLimit int
	batchIDs   []string

	// UI state
	width        int
	height       int
	activeTab    int
	selectedRow  int
	taskScroll   int
	resultScroll int
	reportScroll int
	statusMsg    string

	lastRefresh time.Time
}

// ModelConfig holds the wired components for the TUI model
type ModelConfig struct {
	Backend     Backend
	Store       *resultstore.Store
	Coordinator *selection.Coordinator
	Controller  *runctl.Controller
	Poller      *batchpoll.Poller
	BatchLimit  int
	BatchIDs    []string
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	return Model{
		backend:     cfg.Backend,
		store:       cfg.Store,
		coordinator: cfg.Coordinator,
		controller:  cfg.Controller,
		poller:      cfg.Poller,
		batchLimit:  cfg.BatchLimit,
		batchIDs:    cfg.BatchIDs,
		activeTab:   tabTasks,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadTasksCmd(m.backend),
		tickCmd(),
	)
}

// TickMsg triggers a re-render from the shared state objects
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// TasksLoadedMsg carries the refreshed task list
type TasksLoadedMsg struct {
	Tasks []domain.Task
	Err   error
}

func loadTasksCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		tasks, err := backend.ListTasks(context.Background())
		return TasksLoadedMsg{Tasks: tasks, Err: err}
	}
}

// ConfigReloadedMsg is sent when the config file changed on disk
type ConfigReloadedMsg struct {
	BatchLimit int
	BatchIDs   []string
}

// RunFinishedMsg is sent when a triggered run settles
type RunFinishedMsg struct {
	TaskID string
}

func runCmd(controller *runctl.Controller, taskID string) tea.Cmd {
	return func() tea.Msg {
		controller.Run(context.Background(), taskID)
		return RunFinishedMsg{TaskID: taskID}
	}
}

// BatchStartedMsg is sent after the batch start request settles
type BatchStartedMsg struct {
	Err error
}

func startBatchCmd(poller *batchpoll.Poller, limit int, ids []string) tea.Cmd {
	return func() tea.Msg {
		err := poller.Start(context.Background(), limit, ids)
		return BatchStartedMsg{Err: err}
	}
}

// BatchStoppedMsg is sent after the batch stop request settles
type BatchStoppedMsg struct {
	Err error
}

func stopBatchCmd(poller *batchpoll.Poller) tea.Cmd {
	return func() tea.Msg {
		err := poller.Stop(context.Background())
		return BatchStoppedMsg{Err: err}
	}
}
