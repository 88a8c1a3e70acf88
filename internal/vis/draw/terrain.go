package draw

import (
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/interact"
)

var (
	ColorBackground = color.NRGBA{R: 22, G: 24, B: 28, A: 255}
	ColorGridLine   = color.NRGBA{R: 0, G: 0, B: 0, A: 40}
	ColorFog        = color.NRGBA{R: 10, G: 10, B: 14, A: 170}
	ColorStation    = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
)

var terrainColors = [...]color.NRGBA{
	core.Plain:    {R: 176, G: 120, B: 84, A: 255},
	core.Hill:     {R: 150, G: 98, B: 66, A: 255},
	core.Mountain: {R: 118, G: 82, B: 62, A: 255},
	core.Canyon:   {R: 86, G: 58, B: 44, A: 255},
	core.Crater:   {R: 34, G: 30, B: 30, A: 255},
}

// TerrainColor returns the fill colour of a terrain type.
func TerrainColor(t core.TerrainType) color.NRGBA {
	if int(t) < len(terrainColors) {
		return terrainColors[t]
	}
	return ColorBackground
}

var resourceColors = [...]color.NRGBA{
	core.Energy:             {R: 255, G: 214, B: 64, A: 255},
	core.Mineral:            {R: 120, G: 200, B: 230, A: 255},
	core.ScientificInterest: {R: 120, G: 230, B: 140, A: 255},
}

// ResourceColor returns the marker colour of a resource kind.
func ResourceColor(k core.ResourceKind) color.NRGBA {
	if int(k) < len(resourceColors) {
		return resourceColors[k]
	}
	return ColorStation
}

// DrawTerrain fills every visible cell of snap. With fog set, cells no
// robot has sensed are darkened.
func DrawTerrain(gtx layout.Context, snap *sim.Snapshot, cam *interact.Camera, fog bool) {
	cell := cam.Cell()
	bounds := gtx.Constraints.Max
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			x0, y0 := cam.WorldToScreen(float32(x), float32(y))
			if x0+cell < 0 || y0+cell < 0 || x0 > float32(bounds.X) || y0 > float32(bounds.Y) {
				continue
			}
			p := core.Position{X: x, Y: y}
			fillRect(gtx, x0, y0, x0+cell, y0+cell, TerrainColor(snap.TerrainAt(p)))
			if fog && !snap.Discovered[y][x] {
				fillRect(gtx, x0, y0, x0+cell, y0+cell, ColorFog)
			}
		}
	}
	if cell >= 8 {
		drawGridLines(gtx, snap.Width, snap.Height, cam)
	}
}

func drawGridLines(gtx layout.Context, w, h int, cam *interact.Camera) {
	x0, y0 := cam.WorldToScreen(0, 0)
	x1, y1 := cam.WorldToScreen(float32(w), float32(h))
	for x := 0; x <= w; x++ {
		sx, _ := cam.WorldToScreen(float32(x), 0)
		fillRect(gtx, sx, y0, sx+1, y1, ColorGridLine)
	}
	for y := 0; y <= h; y++ {
		_, sy := cam.WorldToScreen(0, float32(y))
		fillRect(gtx, x0, sy, x1, sy+1, ColorGridLine)
	}
}

// DrawResources marks each remaining resource site with a diamond sized
// by the amount left.
func DrawResources(gtx layout.Context, sites []core.ResourceSite, cam *interact.Camera) {
	cell := cam.Cell()
	for _, s := range sites {
		if s.Amount <= 0 {
			continue
		}
		cx, cy := cam.CellCenter(s.Pos)
		r := cell * (0.15 + 0.05*float32(min(s.Amount, 5)))
		fillPolygon(gtx, ResourceColor(s.Kind),
			f32.Pt(cx, cy-r), f32.Pt(cx+r, cy), f32.Pt(cx, cy+r), f32.Pt(cx-r, cy))
	}
}

// DrawStation outlines the station cell and draws a cross in it.
func DrawStation(gtx layout.Context, p core.Position, cam *interact.Camera) {
	cell := cam.Cell()
	cx, cy := cam.CellCenter(p)
	w := max(1, cell/12)
	strokeRect(gtx, cx, cy, cell*0.9, w, ColorStation)
	drawLine(gtx, cx-cell/4, cy, cx+cell/4, cy, w, ColorStation)
	drawLine(gtx, cx, cy-cell/4, cx, cy+cell/4, w, ColorStation)
}
