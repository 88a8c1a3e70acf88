// Package vis implements a Gio viewer for a running swarm simulation.
package vis

import (
	"image/color"
	"log/slog"
	"time"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/interact"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/state"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/widgets"
)

// App is the viewer window: map, toolbar and timeline over a snapshot feed.
type App struct {
	state    *state.State
	theme    *material.Theme
	mapView  *widgets.MapView
	timeline *widgets.Timeline
	toolbar  *widgets.Toolbar

	feed Feed
	log  *slog.Logger

	snaps   chan *sim.Snapshot
	feedErr chan error
}

// NewApp creates a viewer over feed. ctl may be nil for a read-only view.
func NewApp(feed Feed, ctl widgets.Controller, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	st := state.New(state.DefaultHistory)
	return &App{
		state:    st,
		theme:    material.NewTheme(),
		mapView:  widgets.NewMapView(st, interact.NewCamera()),
		timeline: widgets.NewTimeline(st),
		toolbar:  widgets.NewToolbar(st, ctl),
		feed:     feed,
		log:      logger,
		snaps:    make(chan *sim.Snapshot, 64),
		feedErr:  make(chan error, 1),
	}
}

// Run starts the event loop. It returns when the window is closed.
func (a *App) Run(w *app.Window) error {
	go a.pump(w)

	var ops op.Ops
	tag := new(int)
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			a.drain()

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKeyEvent(ke)
				}
			}
			event.Op(gtx.Ops, tag)

			a.state.Playback.Advance(time.Now())
			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.state.Playback.Playing {
				w.Invalidate()
			}
		}
	}
}

// pump reads the feed on its own goroutine and wakes the window for each
// snapshot.
func (a *App) pump(w *app.Window) {
	for {
		snap, err := a.feed.Next()
		if err != nil {
			a.feedErr <- err
			w.Invalidate()
			return
		}
		a.snaps <- snap
		w.Invalidate()
	}
}

func (a *App) drain() {
	for {
		select {
		case s := <-a.snaps:
			a.state.Push(s)
		case err := <-a.feedErr:
			a.log.Warn("snapshot feed ended", "error", err)
		default:
			return
		}
	}
}

func (a *App) handleKeyEvent(e key.Event) {
	pb := a.state.Playback
	switch e.Name {
	case key.NameSpace:
		pb.TogglePlay(time.Now())
	case key.NameLeftArrow:
		pb.StepBack()
	case key.NameRightArrow:
		pb.StepForward()
	case key.NameHome:
		pb.Seek(0)
	case key.NameEnd:
		pb.Live()
	case "R":
		a.mapView.Refit()
	case "P":
		a.toolbar.ToggleSimulation()
	case "F":
		a.state.ShowFog = !a.state.ShowFog
	case key.NameEscape:
		a.state.Selected = 0
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, a.mapView.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.timeline.Layout(gtx, a.theme)
		}),
	)
}
