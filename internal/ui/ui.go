package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/repositories"
	"github.com/calebmds/taskchain/internal/service"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProjectListView ViewState = iota
	OutlineView
)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	userID      string
	projects    *repositories.ProjectRepository
	tasks       *service.TaskService
	width       int
	height      int
	projectList list.Model
	selected    *models.Project
	outline     []models.Task
	cursor      int
	err         error
	help        help.Model
	keys        keyMap
}

type projectsFetchedMsg struct {
	projects []models.Project
	err      error
}

type outlineFetchedMsg struct {
	tasks []models.Task
	err   error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, userID string, projects *repositories.ProjectRepository, tasks *service.TaskService) *Model {
	return &Model{
		ctx:      ctx,
		view:     ProjectListView,
		userID:   userID,
		projects: projects,
		tasks:    tasks,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by fetching the user's projects.
func (m *Model) Init() tea.Cmd {
	return m.fetchProjects()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.projectList.Width() == 0 {
			m.projectList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ProjectListView:
			return m.handleProjectListKeys(msg)
		case OutlineView:
			return m.handleOutlineKeys(msg)
		}

	case projectsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = projectItem{project: p}
		}
		m.projectList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.projectList.Title = "Projects"
		m.projectList.SetSize(m.width-4, m.height-8)
		return m, nil

	case outlineFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ProjectListView
			return m, nil
		}
		m.outline = msg.tasks
		m.cursor = 0
		m.view = OutlineView
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ProjectListView:
		return m.renderProjectList()
	case OutlineView:
		return m.renderOutline()
	default:
		return ""
	}
}

func (m *Model) handleProjectListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.projectList.SelectedItem()
		if selected != nil {
			if p, ok := selected.(projectItem); ok {
				m.selected = &p.project
				return m, m.fetchOutline(p.project.ID)
			}
		}
	}

	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

func (m *Model) handleOutlineKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ProjectListView
		return m, nil
	case "r":
		return m, m.fetchOutline(m.selected.ID)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.outline)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == ProjectListView {
		m.projectList, cmd = m.projectList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchProjects() tea.Cmd {
	return func() tea.Msg {
		projects, err := m.projects.List(m.ctx, m.userID)
		return projectsFetchedMsg{projects: projects, err: err}
	}
}

func (m *Model) fetchOutline(projectID int64) tea.Cmd {
	return func() tea.Msg {
		chain, err := m.tasks.Outline(m.ctx, projectID)
		if err != nil {
			return outlineFetchedMsg{err: err}
		}
		return outlineFetchedMsg{tasks: chain.Tasks()}
	}
}

func (m *Model) renderProjectList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.projectList.View(), helpView)
}

func (m *Model) renderOutline() string {
	title := styles.title.Render(m.selected.Name)

	var body strings.Builder
	if len(m.outline) == 0 {
		body.WriteString(styles.help.Render("(empty outline)"))
	}
	for i, task := range m.outline {
		marker := "[ ]"
		line := styles.open
		if task.Completed {
			marker = "[x]"
			line = styles.done
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		indent := strings.Repeat("  ", task.Level)
		body.WriteString(fmt.Sprintf("%s%s%s %s\n", cursor, indent, marker, line.Render(task.Value)))
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, body.String(), helpView)
}
