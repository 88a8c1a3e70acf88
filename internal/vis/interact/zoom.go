// Package interact handles pan and zoom over the map grid.
package interact

import (
	"math"

	"gioui.org/io/pointer"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// CellSize is the edge of one grid cell in pixels at zoom 1.
const CellSize = 24

const (
	minZoom = 0.1
	maxZoom = 8
)

// Camera maps grid coordinates (in cells) to screen pixels.
type Camera struct {
	OffsetX float32 // screen position of cell (0,0)'s top-left corner
	OffsetY float32
	Zoom    float32

	dragging     bool
	lastX, lastY float32
}

func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.OffsetX = 16
	c.OffsetY = 16
	c.Zoom = 1
}

// Cell returns the on-screen edge of one cell.
func (c *Camera) Cell() float32 {
	return CellSize * c.Zoom
}

// WorldToScreen converts grid coordinates (fractional cells) to pixels.
func (c *Camera) WorldToScreen(x, y float32) (float32, float32) {
	return x*c.Cell() + c.OffsetX, y*c.Cell() + c.OffsetY
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c *Camera) ScreenToWorld(sx, sy float32) (float32, float32) {
	return (sx - c.OffsetX) / c.Cell(), (sy - c.OffsetY) / c.Cell()
}

// CellCenter returns the screen centre of cell p.
func (c *Camera) CellCenter(p core.Position) (float32, float32) {
	return c.WorldToScreen(float32(p.X)+0.5, float32(p.Y)+0.5)
}

// CellAt returns the cell under a screen point. The result may be out of
// the map's bounds.
func (c *Camera) CellAt(sx, sy float32) core.Position {
	x, y := c.ScreenToWorld(sx, sy)
	return core.Position{X: int(math.Floor(float64(x))), Y: int(math.Floor(float64(y)))}
}

// HandleEvent pans on secondary/middle drag and zooms on scroll around
// the pointer.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary)
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y
	case pointer.Drag:
		if c.dragging {
			c.Pan(ev.Position.X-c.lastX, ev.Position.Y-c.lastY)
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y
	case pointer.Release:
		c.dragging = false
	case pointer.Scroll:
		switch {
		case ev.Scroll.Y > 0:
			c.ZoomBy(1/1.1, ev.Position.X, ev.Position.Y)
		case ev.Scroll.Y < 0:
			c.ZoomBy(1.1, ev.Position.X, ev.Position.Y)
		}
	}
}

func (c *Camera) Pan(dx, dy float32) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomBy scales by factor keeping the grid point under (sx, sy) fixed.
func (c *Camera) ZoomBy(factor, sx, sy float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.Zoom = clampZoom(c.Zoom * factor)
	nx, ny := c.WorldToScreen(wx, wy)
	c.OffsetX += sx - nx
	c.OffsetY += sy - ny
}

// FitGrid zooms so a w x h grid fills the screen less margin and centres it.
func (c *Camera) FitGrid(w, h int, screenW, screenH, margin float32) {
	if w <= 0 || h <= 0 {
		return
	}
	zx := (screenW - 2*margin) / float32(w*CellSize)
	zy := (screenH - 2*margin) / float32(h*CellSize)
	c.Zoom = clampZoom(float32(math.Min(float64(zx), float64(zy))))
	c.OffsetX = (screenW - float32(w)*c.Cell()) / 2
	c.OffsetY = (screenH - float32(h)*c.Cell()) / 2
}

func clampZoom(z float32) float32 {
	if z < minZoom {
		return minZoom
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}
