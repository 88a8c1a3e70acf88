package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

var (
	cmdBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

const cmdHelp = "pause | resume | stop | spawn <type> <x> <y> | remove <id> | terrain <x> <y> <kind> | fog | select <id>"

// Controller forwards pause, resume and stop to the simulation.
type Controller interface {
	Control(action string) error
}

// Roster edits the running simulation. *sim.Clock implements it.
type Roster interface {
	AddRobot(r *core.Robot)
	RemoveRobot(id core.RobotID)
	EditTerrain(p core.Position, t core.TerrainType)
}

var errNoRoster = errors.New("roster edits need a local simulation")

type command struct {
	name    string
	robotID core.RobotID
	typ     core.RobotType
	pos     core.Position
	terrain core.TerrainType
}

// parseCommand validates a command line against the current snapshot.
func parseCommand(input string, snap *sim.Snapshot) (command, error) {
	f := strings.Fields(input)
	if len(f) == 0 {
		return command{}, errors.New("empty command")
	}
	c := command{name: f[0]}
	args := f[1:]
	switch c.name {
	case "pause", "resume", "stop", "fog":
		if len(args) != 0 {
			return c, fmt.Errorf("usage: %s", c.name)
		}
	case "spawn":
		if len(args) != 3 {
			return c, errors.New("usage: spawn <type> <x> <y>")
		}
		t, err := core.ParseRobotType(capitalize(args[0]))
		if err != nil {
			return c, err
		}
		p, err := parsePos(args[1], args[2], snap)
		if err != nil {
			return c, err
		}
		c.typ, c.pos = t, p
	case "remove", "select":
		if len(args) != 1 {
			return c, fmt.Errorf("usage: %s <id>", c.name)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return c, fmt.Errorf("robot id %q: %w", args[0], err)
		}
		if snap != nil {
			if _, ok := snap.Robot(core.RobotID(id)); !ok {
				return c, fmt.Errorf("no robot %d", id)
			}
		}
		c.robotID = core.RobotID(id)
	case "terrain":
		if len(args) != 3 {
			return c, errors.New("usage: terrain <x> <y> <plain|hill|mountain|canyon|crater>")
		}
		p, err := parsePos(args[0], args[1], snap)
		if err != nil {
			return c, err
		}
		t, err := parseTerrain(args[2])
		if err != nil {
			return c, err
		}
		c.pos, c.terrain = p, t
	default:
		return c, fmt.Errorf("unknown command %q", c.name)
	}
	return c, nil
}

func parsePos(xs, ys string, snap *sim.Snapshot) (core.Position, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return core.Position{}, fmt.Errorf("x %q: %w", xs, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return core.Position{}, fmt.Errorf("y %q: %w", ys, err)
	}
	p := core.Position{X: x, Y: y}
	if snap != nil && (x < 0 || y < 0 || x >= snap.Width || y >= snap.Height) {
		return p, fmt.Errorf("%v outside %dx%d map", p, snap.Width, snap.Height)
	}
	return p, nil
}

func parseTerrain(s string) (core.TerrainType, error) {
	for _, t := range []core.TerrainType{core.Plain, core.Hill, core.Mountain, core.Canyon, core.Crater} {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown terrain %q", s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// CmdBar is the ':' command line.
type CmdBar struct {
	input   textinput.Model
	focused bool
	message string
}

func NewCmdBar() *CmdBar {
	ti := textinput.New()
	ti.Placeholder = "command"
	ti.CharLimit = 128
	return &CmdBar{input: ti}
}

func (m *CmdBar) Focus() tea.Cmd {
	m.focused = true
	m.message = ""
	return m.input.Focus()
}

func (m *CmdBar) Blur() {
	m.focused = false
	m.input.Blur()
	m.input.SetValue("")
}

// Submit returns the entered line and blurs.
func (m *CmdBar) Submit() string {
	v := strings.TrimSpace(m.input.Value())
	m.Blur()
	return v
}

func (m *CmdBar) SetMessage(s string) {
	m.message = s
}

func (m *CmdBar) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *CmdBar) View() string {
	if m.focused {
		return cmdBarStyle.Render(promptStyle.Render(": ") + m.input.View())
	}
	if m.message != "" {
		return cmdBarStyle.Render(m.message)
	}
	return cmdBarStyle.Render("Press : for commands (" + cmdHelp + ")")
}
