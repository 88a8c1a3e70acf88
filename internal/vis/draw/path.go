package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/interact"
)

// DrawPath draws the planned route from a robot's cell through path, with
// an arrow head on the final segment.
func DrawPath(gtx layout.Context, from core.Position, path core.Path, cam *interact.Camera, col color.NRGBA) {
	if len(path) == 0 {
		return
	}
	w := max(1, cam.Cell()/10)
	prev := from
	for _, p := range path {
		x1, y1 := cam.CellCenter(prev)
		x2, y2 := cam.CellCenter(p)
		drawLine(gtx, x1, y1, x2, y2, w, col)
		prev = p
	}
	before := from
	if len(path) > 1 {
		before = path[len(path)-2]
	}
	drawArrow(gtx, before, path[len(path)-1], cam, col)
}

// DrawTrail draws a fading trail through past positions, oldest first.
func DrawTrail(gtx layout.Context, trail []core.Position, cam *interact.Camera, base color.NRGBA) {
	n := len(trail)
	if n < 2 {
		return
	}
	maxW := cam.Cell() / 6
	for i := 0; i < n-1; i++ {
		t := float32(i+1) / float32(n)
		col := base
		col.A = uint8(40 + 160*t)
		x1, y1 := cam.CellCenter(trail[i])
		x2, y2 := cam.CellCenter(trail[i+1])
		drawLine(gtx, x1, y1, x2, y2, maxW*(0.3+0.7*t), col)
	}
}

// DrawPaths draws the planned path of every robot in its type colour.
func DrawPaths(gtx layout.Context, robots []sim.RobotView, cam *interact.Camera) {
	for _, r := range robots {
		col := RobotColor(r.Type)
		col.A = 120
		DrawPath(gtx, r.Pos, r.Path, cam, col)
	}
}

func drawArrow(gtx layout.Context, from, to core.Position, cam *interact.Camera, col color.NRGBA) {
	x1, y1 := cam.CellCenter(from)
	x2, y2 := cam.CellCenter(to)
	dx, dy := float64(x2-x1), float64(y2-y1)
	l := math.Hypot(dx, dy)
	if l < 0.1 {
		return
	}
	dx, dy = dx/l, dy/l
	size := float64(cam.Cell()) * 0.3
	back := f32.Pt(x2-float32(dx*size), y2-float32(dy*size))
	px, py := float32(-dy*size/2), float32(dx*size/2)
	fillPolygon(gtx, col, f32.Pt(x2, y2), f32.Pt(back.X+px, back.Y+py), f32.Pt(back.X-px, back.Y-py))
}
