package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

var (
	terrainGlyphs = [...]string{
		core.Plain:    ".",
		core.Hill:     "^",
		core.Mountain: "▲",
		core.Canyon:   "#",
		core.Crater:   "O",
	}
	terrainStyles = [...]lipgloss.Style{
		core.Plain:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		core.Hill:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		core.Mountain: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		core.Canyon:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		core.Crater:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}

	resourceGlyphs = [...]string{
		core.Energy:             "E",
		core.Mineral:            "M",
		core.ScientificInterest: "S",
	}
	resourceStyles = [...]lipgloss.Style{
		core.Energy:             lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		core.Mineral:            lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		core.ScientificInterest: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}

	robotGlyphs = [...]string{
		core.Explorer:  "x",
		core.Harvester: "h",
		core.Scientist: "s",
	}
	robotStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	strandedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	stationStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7"))
	fogStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

const (
	stationGlyph = "H"
	fogGlyph     = "░"
	crowdGlyph   = "*"
)

// cell is one rendered map cell before styling.
type cell struct {
	glyph string
	style lipgloss.Style
}

// cellAt picks what is drawn at p: robots over the station over resources
// over terrain. Fog hides terrain and resources of undiscovered cells.
func cellAt(snap *sim.Snapshot, p core.Position, occupants []sim.RobotView, res map[core.Position]core.Resource, fog bool, selected core.RobotID) cell {
	switch n := len(occupants); {
	case n > 1:
		st := robotStyle
		for _, r := range occupants {
			if r.ID == selected {
				st = selectedStyle
			}
		}
		return cell{crowdGlyph, st}
	case n == 1:
		r := occupants[0]
		st := robotStyle
		switch {
		case r.ID == selected:
			st = selectedStyle
		case r.Stranded:
			st = strandedStyle
		}
		return cell{robotGlyphs[r.Type], st}
	}
	if p == snap.Station {
		return cell{stationGlyph, stationStyle}
	}
	if fog && !snap.Discovered[p.Y][p.X] {
		return cell{fogGlyph, fogStyle}
	}
	if r, ok := res[p]; ok && r.Amount > 0 {
		return cell{resourceGlyphs[r.Kind], resourceStyles[r.Kind]}
	}
	t := snap.TerrainAt(p)
	return cell{terrainGlyphs[t], terrainStyles[t]}
}

func index(snap *sim.Snapshot) (map[core.Position][]sim.RobotView, map[core.Position]core.Resource) {
	robots := make(map[core.Position][]sim.RobotView, len(snap.Robots))
	for _, r := range snap.Robots {
		robots[r.Pos] = append(robots[r.Pos], r)
	}
	res := make(map[core.Position]core.Resource, len(snap.Resources))
	for _, s := range snap.Resources {
		res[s.Pos] = s.Resource
	}
	return robots, res
}

// Grid returns the unstyled glyph rows of a snapshot.
func Grid(snap *sim.Snapshot, fog bool) []string {
	robots, res := index(snap)
	rows := make([]string, snap.Height)
	for y := 0; y < snap.Height; y++ {
		var b strings.Builder
		for x := 0; x < snap.Width; x++ {
			p := core.Position{X: x, Y: y}
			b.WriteString(cellAt(snap, p, robots[p], res, fog, 0).glyph)
		}
		rows[y] = b.String()
	}
	return rows
}

// RenderMap draws the map with column and row indices and a border, one
// glyph per cell padded to three columns.
func RenderMap(snap *sim.Snapshot, fog bool, selected core.RobotID) string {
	robots, res := index(snap)
	var b strings.Builder

	b.WriteString("   ")
	for x := 0; x < snap.Width; x++ {
		fmt.Fprintf(&b, "%3d", x%100)
	}
	b.WriteString("\n   " + strings.Repeat("---", snap.Width) + "\n")

	for y := 0; y < snap.Height; y++ {
		fmt.Fprintf(&b, "%2d |", y%100)
		for x := 0; x < snap.Width; x++ {
			p := core.Position{X: x, Y: y}
			c := cellAt(snap, p, robots[p], res, fog, selected)
			b.WriteString(" " + c.style.Render(c.glyph) + " ")
		}
		b.WriteString("|\n")
	}
	b.WriteString("   " + strings.Repeat("---", snap.Width))
	return b.String()
}

// Legend explains the map glyphs.
func Legend() string {
	parts := []string{
		terrainStyles[core.Plain].Render(".") + " plain",
		terrainStyles[core.Hill].Render("^") + " hill",
		terrainStyles[core.Mountain].Render("▲") + " mountain",
		terrainStyles[core.Canyon].Render("#") + " canyon",
		terrainStyles[core.Crater].Render("O") + " crater",
		resourceStyles[core.Energy].Render("E") + " energy",
		resourceStyles[core.Mineral].Render("M") + " mineral",
		resourceStyles[core.ScientificInterest].Render("S") + " science",
		stationStyle.Render(stationGlyph) + " station",
		robotStyle.Render("x/h/s") + " explorer/harvester/scientist",
	}
	return strings.Join(parts, "  ")
}

// ResourceTotals sums the remaining amount per kind.
func ResourceTotals(snap *sim.Snapshot) map[core.ResourceKind]int {
	totals := make(map[core.ResourceKind]int)
	for _, s := range snap.Resources {
		totals[s.Kind] += s.Amount
	}
	return totals
}

// RobotTable lists each robot on one line in ID order.
func RobotTable(snap *sim.Snapshot, selected core.RobotID) string {
	var b strings.Builder
	for _, r := range snap.Robots {
		carry := "-"
		if r.Carrying != nil {
			carry = r.Carrying.Kind.String()
		}
		line := fmt.Sprintf("#%-3d %-9s %-8s E%3d/%-3d %-15s %-18s %s",
			r.ID, r.Type, r.Pos, r.Energy, r.Capacity, r.Task.Kind, carry, r.Outcome)
		switch {
		case r.ID == selected:
			line = selectedStyle.Render(line)
		case r.Stranded:
			line = strandedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatEvent renders one station event for the log pane.
func FormatEvent(e sim.Event) string {
	s := fmt.Sprintf("[%d] #%d %s", e.Tick, e.Robot, e.Kind)
	switch e.Kind {
	case sim.EventCollected, sim.EventDelivered:
		s += fmt.Sprintf(" %s", e.Resource)
	}
	return s + " at " + e.Pos.String()
}
