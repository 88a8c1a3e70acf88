// Package tui is a terminal viewer for a running simulation: the map in
// glyphs, the robot roster, an event log and a command line.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(lipgloss.Color("#F9FAFB")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)
)

// maxLogLines bounds the event log.
const maxLogLines = 500

// Feed delivers snapshots. observer.Client and observer.Local implement it.
type Feed interface {
	Next() (*sim.Snapshot, error)
}

type snapshotMsg struct{ snap *sim.Snapshot }

type feedErrMsg struct{ err error }

var errReadOnly = errors.New("viewer is read-only")

// Model is the bubbletea model of the viewer.
type Model struct {
	feed   Feed
	ctl    Controller // nil: read-only
	roster Roster     // nil: no roster edits

	snap     *sim.Snapshot
	fog      bool
	selected core.RobotID

	cmdbar *CmdBar
	log    viewport.Model
	lines  []string

	width, height int
	feedErr       error
}

// New creates a viewer over feed. ctl and roster may be nil.
func New(feed Feed, ctl Controller, roster Roster) *Model {
	return &Model{
		feed:   feed,
		ctl:    ctl,
		roster: roster,
		fog:    true,
		cmdbar: NewCmdBar(),
		log:    viewport.New(80, 8),
	}
}

// Run starts the program on the alternate screen.
func (m *Model) Run() error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.feed.Next()
		if err != nil {
			return feedErrMsg{err}
		}
		return snapshotMsg{snap}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.cmdbar.focused {
			switch msg.String() {
			case "enter":
				if line := m.cmdbar.Submit(); line != "" {
					m.report(line, m.execute(line))
				}
				return m, nil
			case "esc":
				m.cmdbar.Blur()
				return m, nil
			}
			return m, m.cmdbar.Update(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case ":":
			return m, m.cmdbar.Focus()
		case " ":
			m.report("pause/resume", m.toggle())
		case "f":
			m.fog = !m.fog
		case "tab":
			m.selectNext()
		case "esc":
			m.selected = 0
		default:
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width = msg.Width - 4
		m.cmdbar.input.Width = msg.Width - 6

	case snapshotMsg:
		m.snap = msg.snap
		m.appendEvents(msg.snap.Events)
		return m, m.waitForSnapshot()

	case feedErrMsg:
		m.feedErr = msg.err
	}
	return m, nil
}

func (m *Model) report(what string, err error) {
	if err != nil {
		m.cmdbar.SetMessage("error: " + err.Error())
		return
	}
	m.cmdbar.SetMessage("ok: " + what)
}

func (m *Model) toggle() error {
	if m.ctl == nil {
		return errReadOnly
	}
	if m.snap != nil && m.snap.State == sim.Paused {
		return m.ctl.Control("resume")
	}
	return m.ctl.Control("pause")
}

func (m *Model) execute(line string) error {
	c, err := parseCommand(line, m.snap)
	if err != nil {
		return err
	}
	switch c.name {
	case "pause", "resume", "stop":
		if m.ctl == nil {
			return errReadOnly
		}
		return m.ctl.Control(c.name)
	case "fog":
		m.fog = !m.fog
	case "select":
		m.selected = c.robotID
	case "spawn", "remove", "terrain":
		if m.roster == nil {
			return errNoRoster
		}
		switch c.name {
		case "spawn":
			// ID 0: the clock numbers it when it joins.
			m.roster.AddRobot(core.NewRobot(0, c.typ, c.pos))
		case "remove":
			m.roster.RemoveRobot(c.robotID)
		default:
			m.roster.EditTerrain(c.pos, c.terrain)
		}
	}
	return nil
}

// selectNext cycles the selection through robots in ID order.
func (m *Model) selectNext() {
	if m.snap == nil || len(m.snap.Robots) == 0 {
		return
	}
	for _, r := range m.snap.Robots {
		if r.ID > m.selected {
			m.selected = r.ID
			return
		}
	}
	m.selected = m.snap.Robots[0].ID
}

func (m *Model) appendEvents(events []sim.Event) {
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		m.lines = append(m.lines, FormatEvent(e))
	}
	if over := len(m.lines) - maxLogLines; over > 0 {
		m.lines = m.lines[over:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m *Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("NOVA SWARM")
	if m.snap != nil {
		header += "  " + statusBarStyle.Render(fmt.Sprintf("%s  tick %d  robots %d  discovered %d/%d",
			m.snap.State, m.snap.Tick, len(m.snap.Robots), m.snap.DiscoveredCount, m.snap.Width*m.snap.Height))
	}
	if m.feedErr != nil {
		header += "  " + statusBarStyle.Render("feed ended: "+m.feedErr.Error())
	}
	b.WriteString(header + "\n\n")

	if m.snap == nil {
		b.WriteString(helpStyle.Render("waiting for simulation...") + "\n")
	} else {
		b.WriteString(RenderMap(m.snap, m.fog, m.selected) + "\n")
		b.WriteString(Legend() + "\n")
		totals := ResourceTotals(m.snap)
		b.WriteString(fmt.Sprintf("remaining: energy %d  mineral %d  science %d\n\n",
			totals[core.Energy], totals[core.Mineral], totals[core.ScientificInterest]))
		b.WriteString(panelStyle.Render(RobotTable(m.snap, m.selected)) + "\n")
	}
	b.WriteString(panelStyle.Render(m.log.View()) + "\n")
	b.WriteString(m.cmdbar.View() + "\n")
	b.WriteString(helpStyle.Render("space pause/resume • tab select • f fog • : command • q quit"))
	return b.String()
}
