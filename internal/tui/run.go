package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Konard/problem-solving/pkg/models"
)

// PhaseMsg is sent when the run moves to a new phase.
type PhaseMsg struct {
	Phase   models.Phase
	Message string
}

// SubtaskQueuedMsg is sent when a subtask search is about to start.
type SubtaskQueuedMsg struct {
	SubtaskID string
	Title     string
	Phase     models.Phase
}

// SubtaskFinishedMsg is sent when a subtask search concluded.
type SubtaskFinishedMsg struct {
	SubtaskID string
	Title     string
	Phase     models.Phase
	Status    models.SearchStatus
	Message   string
}

// RunLogMsg is sent when a log entry should be added.
type RunLogMsg struct {
	Timestamp time.Time
	Phase     string
	Message   string
}

// RunDoneMsg is sent when the run completes.
type RunDoneMsg struct {
	Err     error
	Message string
}

// runLogEntry represents a log entry in the activity log.
type runLogEntry struct {
	Timestamp time.Time
	Phase     string
	Message   string
}

// subtaskRow tracks the display state of one subtask.
type subtaskRow struct {
	ID       string
	Title    string
	Tests    models.SearchStatus
	Solution models.SearchStatus
}

// RunApp is the main bubbletea model for the run command TUI. It renders the
// phase pipeline, a per-subtask board, and an activity log, all driven by
// messages forwarded from the workflow coordinator.
type RunApp struct {
	taskText string
	phase    models.Phase
	progress int
	spinner  spinner.Model

	subtasks []*subtaskRow
	logs     []runLogEntry

	width    int
	height   int
	quitting bool
	done     bool
	err      error
	message  string

	startedAt time.Time

	// Styles
	headerStyle   lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	phaseDone     lipgloss.Style
	phaseActive   lipgloss.Style
	phasePending  lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
	successStyle  lipgloss.Style
	warnStyle     lipgloss.Style
	errorStyle    lipgloss.Style
	doneStyle     lipgloss.Style
	logStyle      lipgloss.Style
	logTimeStyle  lipgloss.Style
}

// NewRunApp creates a new RunApp instance.
func NewRunApp(taskText string) *RunApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &RunApp{
		taskText:  taskText,
		phase:     models.PhaseIdle,
		spinner:   sp,
		subtasks:  make([]*subtaskRow, 0),
		logs:      make([]runLogEntry, 0),
		startedAt: time.Now(),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		phaseDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		phaseActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),

		phasePending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		progressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		progressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),

		logStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		logTimeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (a *RunApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *RunApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case PhaseMsg:
		a.phase = msg.Phase
		// Progress never moves backwards; a failed run keeps its last value.
		if pct := msg.Phase.ProgressPercent(); pct > a.progress {
			a.progress = pct
		}
		a.appendLog(time.Now(), string(msg.Phase), msg.Message)

	case SubtaskQueuedMsg:
		a.findOrCreateRow(msg.SubtaskID, msg.Title)

	case SubtaskFinishedMsg:
		row := a.findOrCreateRow(msg.SubtaskID, msg.Title)
		switch msg.Phase {
		case models.PhaseTestGeneration:
			row.Tests = msg.Status
		case models.PhaseSolutionSearch:
			row.Solution = msg.Status
		}
		a.appendLog(time.Now(), string(msg.Phase), msg.Message)

	case RunLogMsg:
		a.appendLog(msg.Timestamp, msg.Phase, msg.Message)

	case RunDoneMsg:
		a.done = true
		a.err = msg.Err
		a.message = msg.Message
		if msg.Err != nil {
			a.phase = models.PhaseFailed
			a.appendLog(time.Now(), string(models.PhaseFailed), msg.Err.Error())
		}
		// Don't quit immediately - let user see the final board
	}

	return a, nil
}

// View implements tea.Model.
func (a *RunApp) View() string {
	if a.quitting {
		return "Run cancelled.\n"
	}

	var b strings.Builder

	b.WriteString(a.headerStyle.Render("=== psolve ==="))
	b.WriteString("\n\n")

	b.WriteString(a.labelStyle.Render("Task:"))
	b.WriteString(a.valueStyle.Render(a.taskText))
	b.WriteString("\n")

	b.WriteString(a.labelStyle.Render("Elapsed:"))
	b.WriteString(a.valueStyle.Render(formatDuration(time.Since(a.startedAt))))
	b.WriteString("\n\n")

	b.WriteString(a.renderPipeline())
	b.WriteString("\n")

	b.WriteString(a.renderSubtasks())
	b.WriteString("\n")

	b.WriteString(a.renderLogs())

	b.WriteString("\n")
	if a.done {
		if a.err != nil {
			b.WriteString(a.errorStyle.Render(fmt.Sprintf("Error: %v", a.err)))
		} else {
			b.WriteString(a.doneStyle.Render(a.message + " Press q to exit."))
		}
	} else {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Render("Press q to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// renderPipeline renders the phase ladder with a progress bar.
func (a *RunApp) renderPipeline() string {
	var b strings.Builder

	b.WriteString(a.labelStyle.Render("Pipeline:"))
	b.WriteString("\n")

	current := a.phase.Index()
	for _, phase := range models.PhaseSequence() {
		if phase == models.PhaseIdle || phase == models.PhaseCompleted {
			continue
		}
		label := strings.ReplaceAll(string(phase), "_", " ")

		var line string
		switch {
		case a.phase == models.PhaseCompleted || phase.Index() < current:
			line = "  " + a.phaseDone.Render("✓ "+label)
		case phase.Index() == current && !a.done:
			line = "  " + a.spinner.View() + a.phaseActive.Render(label)
		case phase.Index() == current:
			line = "  " + a.phaseActive.Render("▶ "+label)
		default:
			line = "  " + a.phasePending.Render("· "+label)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if a.phase == models.PhaseFailed {
		b.WriteString("  ")
		b.WriteString(a.errorStyle.Render("✗ failed"))
		b.WriteString("\n")
	}

	b.WriteString(a.renderProgressBar(float64(a.progress), 30))
	b.WriteString("\n")

	return b.String()
}

// renderSubtasks renders one row per subtask with search outcomes.
func (a *RunApp) renderSubtasks() string {
	var b strings.Builder

	b.WriteString(a.labelStyle.Render("Subtasks:"))
	b.WriteString(a.valueStyle.Render(fmt.Sprintf("%d", len(a.subtasks))))
	b.WriteString("\n")

	for _, row := range a.subtasks {
		title := row.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		b.WriteString(fmt.Sprintf("  %-12s %-40s tests %s  solution %s\n",
			row.ID, title,
			a.statusGlyph(row.Tests),
			a.statusGlyph(row.Solution)))
	}

	return b.String()
}

// statusGlyph maps a search status to a one-character marker.
func (a *RunApp) statusGlyph(status models.SearchStatus) string {
	switch status {
	case models.SearchSuccess:
		return a.successStyle.Render("✓")
	case models.SearchExhausted:
		return a.warnStyle.Render("!")
	case models.SearchSkipped:
		return a.warnStyle.Render("~")
	default:
		return a.phasePending.Render("·")
	}
}

// renderLogs renders the recent log entries.
func (a *RunApp) renderLogs() string {
	if len(a.logs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Render("Activity Log"))
	b.WriteString("\n")

	// Show last 8 log entries
	start := 0
	if len(a.logs) > 8 {
		start = len(a.logs) - 8
	}

	for _, entry := range a.logs[start:] {
		ts := a.logTimeStyle.Render(entry.Timestamp.Format("15:04:05"))
		phase := lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(20).
			Render(entry.Phase)
		msg := a.logStyle.Render(entry.Message)
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, phase, msg))
	}

	return b.String()
}

// renderProgressBar renders a progress bar.
func (a *RunApp) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	bar := a.progressFull.Render(strings.Repeat("█", filled)) +
		a.progressEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  %s %.0f%%", bar, pct)
}

// appendLog adds an entry to the activity log, skipping blank messages.
func (a *RunApp) appendLog(ts time.Time, phase, message string) {
	if message == "" {
		return
	}
	a.logs = append(a.logs, runLogEntry{
		Timestamp: ts,
		Phase:     phase,
		Message:   message,
	})
}

// findOrCreateRow finds a subtask row by ID or creates a new one.
func (a *RunApp) findOrCreateRow(id, title string) *subtaskRow {
	for _, row := range a.subtasks {
		if row.ID == id {
			if title != "" {
				row.Title = title
			}
			return row
		}
	}
	row := &subtaskRow{ID: id, Title: title}
	a.subtasks = append(a.subtasks, row)
	return row
}

// formatDuration formats a duration as a compact human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// NewRunProgram creates a new Bubbletea program for the run TUI.
func NewRunProgram(taskText string) (*tea.Program, *RunApp) {
	app := NewRunApp(taskText)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
