package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// Dashboard panel indices.
const (
	panelWorkspaces = iota
	panelTasks
	panelEvents
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	workspaces []workspaceSnapshot
	taskCounts map[string]int
	events     []eventSnapshot

	// State.
	loading bool
	err     error
}

type workspaceSnapshot struct {
	id     string
	title  string
	branch string
	status string
	server string
}

type eventSnapshot struct {
	eventType string
	actor     string
	time      string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	workspaces []workspaceSnapshot
	taskCounts map[string]int
	events     []eventSnapshot
	err        error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusNotStarted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	wsActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	wsArchivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	serverStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelWorkspaces,
		loading:     true,
		taskCounts:  make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.workspaces = msg.workspaces
		m.taskCounts = msg.taskCounts
		m.events = msg.events
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Warren Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	workspacesPanel := m.renderWorkspacesPanel()
	tasksPanel := m.renderTasksPanel()
	eventsPanel := m.renderEventsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		workspacesPanel = m.applyPanelStyle(panelWorkspaces, workspacesPanel, colWidth-4)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, workspacesPanel, tasksPanel, eventsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		workspacesPanel = m.applyPanelStyle(panelWorkspaces, workspacesPanel, panelWidth)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, workspacesPanel, tasksPanel, eventsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderWorkspacesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Workspaces"))
	b.WriteString("\n")

	if len(m.workspaces) == 0 {
		b.WriteString("  No workspaces found.")
		return b.String()
	}

	for _, ws := range m.workspaces {
		style := wsActiveStyle
		if ws.status == string(models.WorkspaceArchived) {
			style = wsArchivedStyle
		}
		line := fmt.Sprintf("  %-24s %s", ws.id, ws.status)
		b.WriteString(style.Render(line))
		if ws.server != "" {
			b.WriteString(serverStyle.Render(" " + ws.server))
		}
		b.WriteString("\n")

		detail := ws.branch
		if ws.title != "" {
			detail = ws.title + " (" + ws.branch + ")"
		}
		b.WriteString(helpStyle.Render("    " + truncate(detail, 48)))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d", len(m.workspaces)))

	return b.String()
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(m.taskCounts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	// Display in lifecycle order.
	order := []string{"in_progress", "blocked", "not_started", "done"}
	for _, status := range order {
		count, ok := m.taskCounts[status]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-14s %d", status, count)
		b.WriteString(styleForTaskStatus(status).Render(label))
		b.WriteString("\n")
	}

	total := 0
	for _, c := range m.taskCounts {
		total += c
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func (m dashboardModel) renderEventsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent Events"))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString("  No recent activity.")
		return b.String()
	}

	for _, e := range m.events {
		b.WriteString(fmt.Sprintf("  %s %-20s %s\n", e.time, e.eventType, e.actor))
	}

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func styleForTaskStatus(status string) lipgloss.Style {
	switch status {
	case "not_started":
		return statusNotStarted
	case "in_progress":
		return statusInProgress
	case "blocked":
		return statusBlocked
	case "done":
		return statusDone
	default:
		return lipgloss.NewStyle()
	}
}

const dashboardEventLimit = 10

func loadData() tea.Msg {
	result := dataLoadedMsg{
		taskCounts: make(map[string]int),
	}

	workspaces, err := WorkspaceMgr.List()
	if err != nil {
		result.err = fmt.Errorf("loading workspaces: %w", err)
		return result
	}

	for _, ws := range workspaces {
		snap := workspaceSnapshot{
			id:     ws.ID,
			title:  ws.Title,
			branch: ws.Branch,
			status: string(ws.Status),
		}
		if ServerMgr != nil {
			if state, err := ServerMgr.CheckStatus(ws.Path); err == nil && state == models.ServerRunning {
				if info, err := storage.LoadServerInfo(ws.Path); err == nil && info != nil {
					snap.server = fmt.Sprintf(":%d", info.Port)
				}
			}
		}
		result.workspaces = append(result.workspaces, snap)

		// Task counts aggregate across all workspaces.
		if Notes != nil {
			notes, err := Notes.List(ws.Path)
			if err != nil {
				continue
			}
			for _, n := range notes {
				if n.IsTask() {
					result.taskCounts[string(n.Task.Status)]++
				}
			}
		}
	}

	// Events panel shows the most recently active workspace's tail.
	if EventLog != nil && len(workspaces) > 0 {
		events, err := EventLog.Read(workspaces[len(workspaces)-1].Path, dashboardEventLimit)
		if err == nil {
			for _, e := range events {
				result.events = append(result.events, eventSnapshot{
					eventType: e.Type,
					actor:     string(e.Actor.Type) + "/" + e.Actor.ID,
					time:      e.Timestamp.Format("15:04:05"),
				})
			}
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for workspaces, tasks, and activity",
	Long: `Launch an interactive terminal dashboard showing workspace status, task
counts, and recent activity in a live view.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceMgr == nil {
			return fmt.Errorf("workspace manager not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
