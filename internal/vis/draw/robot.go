package draw

import (
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/interact"
)

// Robot colors by type
var (
	ColorExplorer      = color.NRGBA{R: 100, G: 200, B: 255, A: 255}
	ColorHarvester     = color.NRGBA{R: 255, G: 150, B: 100, A: 255}
	ColorScientist     = color.NRGBA{R: 200, G: 100, B: 255, A: 255}
	ColorRobotSelected = color.NRGBA{R: 255, G: 255, B: 100, A: 255}
	ColorStranded      = color.NRGBA{R: 230, G: 40, B: 40, A: 255}
	ColorEnergyBar     = color.NRGBA{R: 90, G: 220, B: 90, A: 255}
	ColorEnergyLow     = color.NRGBA{R: 230, G: 160, B: 40, A: 255}
)

// RobotColor returns the color for a robot type.
func RobotColor(t core.RobotType) color.NRGBA {
	switch t {
	case core.Harvester:
		return ColorHarvester
	case core.Scientist:
		return ColorScientist
	default:
		return ColorExplorer
	}
}

// DrawRobot draws one robot in its cell: a triangle for explorers, a square
// for harvesters and a circle for scientists, with an energy bar below and
// the carried resource as a dot in the centre.
func DrawRobot(gtx layout.Context, r sim.RobotView, cam *interact.Camera, selected bool) {
	cell := cam.Cell()
	cx, cy := cam.CellCenter(r.Pos)
	size := cell * 0.6

	col := RobotColor(r.Type)
	if selected {
		col = ColorRobotSelected
	}

	h := size / 2
	switch r.Type {
	case core.Explorer:
		fillPolygon(gtx, col, f32.Pt(cx, cy-h), f32.Pt(cx+h, cy+h), f32.Pt(cx-h, cy+h))
	case core.Harvester:
		fillRect(gtx, cx-h, cy-h, cx+h, cy+h, col)
	default:
		fillCircle(gtx, cx, cy, h, col)
	}

	if r.Carrying != nil {
		fillCircle(gtx, cx, cy+h*0.2, size/6, ResourceColor(r.Carrying.Kind))
	}

	drawEnergyBar(gtx, cx-h, cy+h+cell*0.06, size, max(2, cell/12), r.Energy, r.Capacity)

	if r.Stranded {
		w := max(1.5, cell/10)
		drawLine(gtx, cx-h, cy-h, cx+h, cy+h, w, ColorStranded)
		drawLine(gtx, cx+h, cy-h, cx-h, cy+h, w, ColorStranded)
	}
}

func drawEnergyBar(gtx layout.Context, x, y, width, height float32, energy, capacity int) {
	if capacity <= 0 {
		return
	}
	frac := float32(energy) / float32(capacity)
	fillRect(gtx, x, y, x+width, y+height, color.NRGBA{A: 160})
	col := ColorEnergyBar
	if frac < 0.25 {
		col = ColorEnergyLow
	}
	fillRect(gtx, x, y, x+width*frac, y+height, col)
}

// DrawRobots draws every robot of a snapshot, the selected one last.
func DrawRobots(gtx layout.Context, robots []sim.RobotView, cam *interact.Camera, selected core.RobotID) {
	var sel *sim.RobotView
	for i := range robots {
		if robots[i].ID == selected {
			sel = &robots[i]
			continue
		}
		DrawRobot(gtx, robots[i], cam, false)
	}
	if sel != nil {
		DrawRobot(gtx, *sel, cam, true)
	}
}
