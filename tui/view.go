package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/benchtop/benchtop/internal/batchpoll"
	"github.com/benchtop/benchtop/internal/diffview"
	"github.com/benchtop/benchtop/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	tabDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("238"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("238"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	passedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("124"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	diffHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	diffFileStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	diffAddStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	diffRemoveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	diffContextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250"))

	progressFillStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("238"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	selected := m.coordinator.Selected()
	if selected == "" {
		selected = "-"
	}
	batch := m.poller.Status()
	header := fmt.Sprintf(" benchtop │ Tasks: %d │ Selected: %s │ Batch: %s ",
		len(m.tasks), selected, batchStateLabel(m.poller.State(), batch))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	if banner := m.coordinator.Banner(); banner != "" {
		b.WriteString(bannerStyle.Width(m.width).Render(" " + banner + " "))
		b.WriteString("\n")
	}

	var content string
	switch m.activeTab {
	case tabTasks:
		content = m.renderTasks()
	case tabDetails:
		content = m.renderDetails()
	case tabResult:
		content = m.renderResult()
	case tabReport:
		content = m.renderReport()
	case tabBatch:
		content = m.renderBatch()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(content))
	b.WriteString("\n")

	if m.statusMsg != "" {
		b.WriteString(dimStyle.Width(m.width).Render(" " + m.statusMsg + " "))
		b.WriteString("\n")
	}

	b.WriteString(statusBarStyle.Width(m.width).Render(m.statusBar()))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Tasks", "Details", "Result", "Report", "Batch"}
	var parts []string

	for i, tab := range tabs {
		label := fmt.Sprintf(" %d:%s ", i+1, tab)
		switch {
		case i == m.activeTab:
			parts = append(parts, tabActiveStyle.Render(label))
		case !m.tabAvailable(i):
			parts = append(parts, tabDisabledStyle.Render(label))
		default:
			parts = append(parts, tabInactiveStyle.Render(label))
		}
	}

	return strings.Join(parts, "│")
}

func (m Model) renderTasks() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TASKS"))
	b.WriteString("\n")

	if m.tasksErr != "" {
		b.WriteString(failedStyle.Render("  failed to load tasks: " + m.tasksErr))
		return b.String()
	}
	if len(m.tasks) == 0 {
		b.WriteString(dimStyle.Render("  No tasks available"))
		return b.String()
	}

	maxVisible := m.taskRows()
	end := m.taskScroll + maxVisible
	if end > len(m.tasks) {
		end = len(m.tasks)
	}

	for i := m.taskScroll; i < end; i++ {
		task := m.tasks[i]
		line := fmt.Sprintf("  %-40s %-20s %s",
			truncate(task.ID, 40), truncate(task.Project, 20), task.Status)
		if i == m.selectedRow {
			b.WriteString(selectedStyle.Render("▸" + line[1:]))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if len(m.tasks) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", m.taskScroll+1, end, len(m.tasks))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderDetails() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("DETAILS"))
	b.WriteString("\n")

	if m.coordinator.Selected() == "" {
		b.WriteString(dimStyle.Render("  No task selected"))
		return b.String()
	}

	detail := m.coordinator.Detail()
	if detail == nil {
		b.WriteString(dimStyle.Render("  Loading " + m.coordinator.Selected() + " ..."))
		return b.String()
	}

	b.WriteString(labelStyle.Render("  Instance:    "))
	b.WriteString(detail.InstanceID)
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("  Repo:        "))
	b.WriteString(detail.Repo)
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("  Base commit: "))
	b.WriteString(detail.BaseCommit)
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("  Problem statement"))
	b.WriteString("\n")
	for _, line := range wrapLines(detail.ProblemStatement, m.width-8) {
		b.WriteString("    " + line + "\n")
	}

	if detail.DocChanges != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("  Doc changes"))
		b.WriteString("\n")
		for _, line := range wrapLines(detail.DocChanges, m.width-8) {
			b.WriteString("    " + line + "\n")
		}
	}

	if len(detail.Augmentations) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("  Augmentations"))
		b.WriteString("\n")
		keys := make([]string, 0, len(detail.Augmentations))
		for k := range detail.Augmentations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("    %-16s %s\n", k, truncate(detail.Augmentations[k], m.width-26)))
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderResult() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RESULT"))
	b.WriteString("\n")

	result := m.store.Result()
	if result == nil {
		b.WriteString(dimStyle.Render("  No result yet"))
		return b.String()
	}

	if result.Failed() {
		b.WriteString(failedStyle.Render("  ✗ ERROR"))
		if result.Step != "" {
			b.WriteString(failedStyle.Render(" at step " + result.Step))
		}
		b.WriteString("\n")
		if result.Detail != "" {
			for _, line := range wrapLines(result.Detail, m.width-8) {
				b.WriteString(warningStyle.Render("    " + line))
				b.WriteString("\n")
			}
		}
		return strings.TrimSuffix(b.String(), "\n")
	}

	if result.Success {
		b.WriteString(passedStyle.Render("  ✓ PASSED"))
	} else {
		b.WriteString(failedStyle.Render("  ✗ FAILED"))
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("   tokens: %s total / %s prompt   f2p: %d/%d   p2p: %d/%d",
		formatTokens(result.TokenUsage.Total), formatTokens(result.TokenUsage.Prompt),
		len(result.F2P.Success), len(result.F2P.Success)+len(result.F2P.Fail),
		len(result.P2P.Success), len(result.P2P.Success)+len(result.P2P.Fail))))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("  Patch"))
	b.WriteString("\n")
	b.WriteString(m.renderDiff(result.Patch))

	if result.EvalOutput != "" {
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render("  Eval output"))
		b.WriteString("\n")
		lines := strings.Split(result.EvalOutput, "\n")
		if len(lines) > 20 {
			lines = lines[len(lines)-20:]
		}
		for _, line := range lines {
			b.WriteString(dimStyle.Render("    " + truncate(line, m.width-8)))
			b.WriteString("\n")
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// renderDiff classifies the patch and colors each line by kind
func (m Model) renderDiff(patch string) string {
	diff := diffview.Classify(patch)
	if diff.Empty {
		return dimStyle.Render("    No patch produced")
	}

	lines := diff.Lines
	maxVisible := m.taskRows()
	start := m.resultScroll
	if start > len(lines)-1 {
		start = len(lines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + maxVisible
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for _, line := range lines[start:end] {
		text := "    " + truncate(line.Content, m.width-8)
		switch line.Kind {
		case diffview.KindHeader:
			b.WriteString(diffHeaderStyle.Render(text))
		case diffview.KindFileHeader:
			b.WriteString(diffFileStyle.Render(text))
		case diffview.KindAdd:
			b.WriteString(diffAddStyle.Render(text))
		case diffview.KindRemove:
			b.WriteString(diffRemoveStyle.Render(text))
		default:
			b.WriteString(diffContextStyle.Render(text))
		}
		b.WriteString("\n")
	}

	if len(lines) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("    %d-%d of %d lines", start+1, end, len(lines))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderReport() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("REPORT"))
	b.WriteString("\n")

	report := m.store.Report()
	if report == "" {
		b.WriteString(dimStyle.Render("  No report yet"))
		return b.String()
	}

	lines := strings.Split(report, "\n")
	maxVisible := m.taskRows()
	start := m.reportScroll
	if start > len(lines)-1 {
		start = len(lines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + maxVisible
	if end > len(lines) {
		end = len(lines)
	}

	for _, line := range lines[start:end] {
		b.WriteString("  " + truncate(line, m.width-6))
		b.WriteString("\n")
	}

	if len(lines) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d lines", start+1, end, len(lines))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderBatch() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BATCH"))
	b.WriteString("\n")

	status := m.poller.Status()
	state := m.poller.State()

	if state == batchpoll.Idle && status.Total == 0 {
		b.WriteString(dimStyle.Render("  No batch running. Press [b] to start."))
		return b.String()
	}

	b.WriteString(labelStyle.Render("  State:    "))
	if state == batchpoll.Running {
		b.WriteString(passedStyle.Render("running"))
	} else {
		b.WriteString(dimStyle.Render("idle"))
		b.WriteString(passedStyle.Render(fmt.Sprintf("   Completed: %d tasks", status.Processed)))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("  Progress: "))
	b.WriteString(renderProgressBar(status.Fraction(), 30))
	b.WriteString(fmt.Sprintf("  %d/%d (%.0f%%)", status.Processed, status.Total, status.Fraction()*100))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("  Recent activity"))
	b.WriteString("\n")
	tail := status.TailLogs(batchpoll.LogTail)
	if len(tail) == 0 {
		b.WriteString(dimStyle.Render("    (no log entries)"))
		return b.String()
	}
	for _, entry := range tail {
		b.WriteString(dimStyle.Render("    " + truncate(entry, m.width-8)))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func renderProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return progressFillStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func (m Model) statusBar() string {
	switch m.activeTab {
	case tabTasks:
		return " [j/k]navigate [enter]select [R]efresh [tab]switch [b]atch [q]uit "
	case tabDetails:
		if m.controller.Busy() {
			return " [tab]switch (run in flight) [q]uit "
		}
		return " [r]un [R]efresh [tab]switch [q]uit "
	case tabResult, tabReport:
		return " [j/k]scroll [r]un [tab]switch [q]uit "
	case tabBatch:
		if m.poller.State() == batchpoll.Running {
			return " [x]stop [tab]switch [q]uit "
		}
		return " [b]start [tab]switch [q]uit "
	}
	return " [tab]switch [q]uit "
}

func batchStateLabel(state batchpoll.State, status domain.BatchStatus) string {
	if state == batchpoll.Running {
		return fmt.Sprintf("running %d/%d", status.Processed, status.Total)
	}
	return "idle"
}

// truncate shortens s to max runes. Cutting on runes keeps multibyte
// text valid UTF-8.
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func formatTokens(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// wrapLines splits text into lines no wider than width, breaking on
// spaces where possible.
func wrapLines(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := []rune(raw)
		for len(line) > width {
			cut := -1
			for i := width - 1; i > 0; i-- {
				if line[i] == ' ' {
					cut = i
					break
				}
			}
			if cut <= 0 {
				cut = width
			}
			out = append(out, string(line[:cut]))
			line = line[cut:]
			for len(line) > 0 && line[0] == ' ' {
				line = line[1:]
			}
		}
		out = append(out, string(line))
	}
	return out
}
