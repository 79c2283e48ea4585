package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/benchtop/benchtop/internal/batchpoll"
	"github.com/benchtop/benchtop/internal/domain"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.lastRefresh = time.Time(msg)
		m = m.alignWithMode()
		return m, tickCmd()

	case TasksLoadedMsg:
		if msg.Err != nil {
			m.tasksErr = msg.Err.Error()
		} else {
			m.tasksErr = ""
			m.tasks = msg.Tasks
			if m.selectedRow >= len(m.tasks) {
				m.selectedRow = 0
				m.taskScroll = 0
			}
		}
		return m, nil

	case ConfigReloadedMsg:
		m.batchLimit = msg.BatchLimit
		if msg.BatchIDs != nil {
			m.batchIDs = msg.BatchIDs
		}
		m.statusMsg = "config reloaded"
		m.coordinator.Refresh(context.Background())
		return m, nil

	case RunFinishedMsg:
		m.statusMsg = ""
		m = m.alignWithMode()
		return m, nil

	case BatchStartedMsg:
		if msg.Err != nil {
			m.statusMsg = "batch start failed: " + msg.Err.Error()
		} else {
			m.statusMsg = "batch started"
			m.activeTab = tabBatch
		}
		return m, nil

	case BatchStoppedMsg:
		if msg.Err != nil {
			m.statusMsg = "batch stop failed: " + msg.Err.Error()
		} else {
			m.statusMsg = "batch stop requested"
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.poller != nil {
			m.poller.Close()
		}
		return m, tea.Quit

	case "j", "down":
		m = m.moveDown()

	case "k", "up":
		m = m.moveUp()

	case "enter":
		if m.activeTab == tabTasks && m.selectedRow < len(m.tasks) {
			task := m.tasks[m.selectedRow]
			m.coordinator.Select(context.Background(), task.ID)
			m.activeTab = tabDetails
			m.resultScroll = 0
			m.reportScroll = 0
		}

	case "r":
		id := m.coordinator.Selected()
		if id == "" {
			m.statusMsg = "no task selected"
			return m, nil
		}
		if m.controller.Busy() {
			m.statusMsg = "run already in flight"
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("running %s ...", id)
		return m, runCmd(m.controller, id)

	case "R":
		m.coordinator.Refresh(context.Background())
		return m, loadTasksCmd(m.backend)

	case "tab":
		m = m.cycleTab()

	case "1":
		m = m.switchTab(tabTasks)
	case "2":
		m = m.switchTab(tabDetails)
	case "3":
		m = m.switchTab(tabResult)
	case "4":
		m = m.switchTab(tabReport)
	case "5":
		m = m.switchTab(tabBatch)

	case "b":
		if m.poller.State() == batchpoll.Running {
			m.statusMsg = "batch already running"
			return m, nil
		}
		m.statusMsg = "starting batch ..."
		return m, startBatchCmd(m.poller, m.batchLimit, m.batchIDs)

	case "x":
		return m, stopBatchCmd(m.poller)
	}

	return m, nil
}

// cycleTab advances to the next tab, skipping result and report tabs
// whose backing data is absent.
func (m Model) cycleTab() Model {
	next := m.activeTab
	for i := 0; i < tabCount; i++ {
		next = (next + 1) % tabCount
		if m.tabAvailable(next) {
			break
		}
	}
	return m.switchTab(next)
}

func (m Model) tabAvailable(tab int) bool {
	switch tab {
	case tabResult:
		return m.store.Result() != nil
	case tabReport:
		return m.store.Report() != ""
	}
	return true
}

// switchTab activates a tab, routing details/result/report through the
// store's view mode so that a tab without data is never shown.
func (m Model) switchTab(tab int) Model {
	switch tab {
	case tabDetails:
		m.store.SetMode(domain.ViewDetails)
	case tabResult:
		if !m.store.SetMode(domain.ViewResult) {
			m.statusMsg = "no result yet"
			return m
		}
	case tabReport:
		if !m.store.SetMode(domain.ViewReport) {
			m.statusMsg = "no report yet"
			return m
		}
	}
	m.activeTab = tab
	return m
}

// alignWithMode follows store-driven view transitions, e.g. the switch
// to the result view after a run settles.
func (m Model) alignWithMode() Model {
	if m.activeTab == tabTasks || m.activeTab == tabBatch {
		return m
	}
	switch m.store.Mode() {
	case domain.ViewDetails:
		m.activeTab = tabDetails
	case domain.ViewResult:
		m.activeTab = tabResult
	case domain.ViewReport:
		m.activeTab = tabReport
	}
	return m
}

func (m Model) moveDown() Model {
	switch m.activeTab {
	case tabTasks:
		if m.selectedRow < len(m.tasks)-1 {
			m.selectedRow++
		}
		maxVisible := m.taskRows()
		if m.selectedRow >= m.taskScroll+maxVisible {
			m.taskScroll = m.selectedRow - maxVisible + 1
		}
	case tabResult:
		m.resultScroll++
	case tabReport:
		m.reportScroll++
	}
	return m
}

func (m Model) moveUp() Model {
	switch m.activeTab {
	case tabTasks:
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		if m.selectedRow < m.taskScroll {
			m.taskScroll = m.selectedRow
		}
	case tabResult:
		if m.resultScroll > 0 {
			m.resultScroll--
		}
	case tabReport:
		if m.reportScroll > 0 {
			m.reportScroll--
		}
	}
	return m
}

func (m Model) taskRows() int {
	rows := m.height - 9
	if rows < 5 {
		rows = 5
	}
	return rows
}
