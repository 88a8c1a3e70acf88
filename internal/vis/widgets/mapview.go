// Package widgets provides Gio UI widgets for the viewer.
package widgets

import (
	"image"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/nova-swarm/internal/vis/draw"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/interact"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/state"
)

// trailLength is how many past ticks the selected robot's trail covers.
const trailLength = 24

// MapView draws the snapshot under the playback cursor.
type MapView struct {
	state  *state.State
	camera *interact.Camera

	// fitted is the map size the camera was last fitted to.
	fitted image.Point
}

func NewMapView(st *state.State, camera *interact.Camera) *MapView {
	return &MapView{state: st, camera: camera}
}

// Refit makes the next frame fit the map to the view.
func (m *MapView) Refit() {
	m.fitted = image.Point{}
}

func (m *MapView) Layout(gtx layout.Context) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, draw.ColorBackground)

	m.handlePointerEvents(gtx)

	snap := m.state.Current()
	if snap == nil {
		return layout.Dimensions{Size: bounds}
	}
	if size := image.Pt(snap.Width, snap.Height); size != m.fitted {
		m.camera.FitGrid(snap.Width, snap.Height, float32(bounds.X), float32(bounds.Y), 16)
		m.fitted = size
	}

	draw.DrawTerrain(gtx, snap, m.camera, m.state.ShowFog)
	draw.DrawResources(gtx, snap.Resources, m.camera)
	draw.DrawStation(gtx, snap.Station, m.camera)

	if m.state.ShowPaths {
		draw.DrawPaths(gtx, snap.Robots, m.camera)
	}
	if sel := m.state.Selected; sel != 0 {
		if r, ok := snap.Robot(sel); ok {
			draw.DrawTrail(gtx, m.state.Trail(sel, trailLength), m.camera, draw.RobotColor(r.Type))
			draw.DrawPath(gtx, r.Pos, r.Path, m.camera, draw.ColorRobotSelected)
		}
	}
	draw.DrawRobots(gtx, snap.Robots, m.camera, m.state.Selected)

	return layout.Dimensions{Size: bounds}
}

func (m *MapView) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, m)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  m,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		m.camera.HandleEvent(pe)
		if pe.Kind == pointer.Press && pe.Buttons.Contain(pointer.ButtonPrimary) {
			m.state.SelectAt(m.camera.CellAt(pe.Position.X, pe.Position.Y))
		}
	}
}
