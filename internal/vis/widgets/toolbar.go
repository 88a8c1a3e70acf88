package widgets

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/vis/state"
)

// Controller forwards pause, resume and stop to the simulation.
type Controller interface {
	Control(action string) error
}

// Toolbar holds playback buttons, view toggles, simulation controls and a
// status line for the current snapshot.
type Toolbar struct {
	state *state.State
	ctl   Controller // nil: the simulation cannot be controlled

	stepBackBtn  widget.Clickable
	playBtn      widget.Clickable
	stepFwdBtn   widget.Clickable
	liveBtn      widget.Clickable
	speedDownBtn widget.Clickable
	speedUpBtn   widget.Clickable

	pathsBtn widget.Clickable
	fogBtn   widget.Clickable

	pauseSimBtn widget.Clickable
	stopSimBtn  widget.Clickable

	lastErr error
}

func NewToolbar(st *state.State, ctl Controller) *Toolbar {
	return &Toolbar{state: st, ctl: ctl}
}

// ToggleSimulation pauses a running simulation or resumes a paused one.
func (t *Toolbar) ToggleSimulation() {
	if t.ctl == nil {
		return
	}
	action := "pause"
	if s := t.state.Latest(); s != nil && s.State == sim.Paused {
		action = "resume"
	}
	t.lastErr = t.ctl.Control(action)
}

func (t *Toolbar) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	height := gtx.Dp(unit.Dp(44))
	paint.FillShape(gtx.Ops, color.NRGBA{R: 40, G: 43, B: 48, A: 255}, clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, height)).Op())

	t.handleClicks(gtx)

	gtx.Constraints.Max.Y = height
	return layout.Inset{Left: unit.Dp(10), Right: unit.Dp(10), Top: unit.Dp(8), Bottom: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		children := []layout.FlexChild{
			t.button(th, &t.stepBackBtn, "|<", false),
			t.button(th, &t.playBtn, t.playLabel(), false),
			t.button(th, &t.stepFwdBtn, ">|", false),
			t.button(th, &t.liveBtn, "live", t.state.Playback.Follow),
			separator(),
			t.button(th, &t.speedDownBtn, "-", false),
			t.button(th, &t.speedUpBtn, "+", false),
			separator(),
			t.button(th, &t.pathsBtn, "paths", t.state.ShowPaths),
			t.button(th, &t.fogBtn, "fog", t.state.ShowFog),
		}
		if t.ctl != nil {
			children = append(children,
				separator(),
				t.button(th, &t.pauseSimBtn, t.simLabel(), false),
				t.button(th, &t.stopSimBtn, "stop", false),
			)
		}
		children = append(children,
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions { return layout.Dimensions{} }),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				l := material.Label(th, 12, t.status())
				l.Color = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
				return l.Layout(gtx)
			}),
		)
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx, children...)
	})
}

func (t *Toolbar) playLabel() string {
	if t.state.Playback.Playing {
		return "||"
	}
	return ">"
}

func (t *Toolbar) simLabel() string {
	if s := t.state.Latest(); s != nil && s.State == sim.Paused {
		return "resume sim"
	}
	return "pause sim"
}

// status summarises the snapshot under the cursor.
func (t *Toolbar) status() string {
	if t.lastErr != nil {
		return "control: " + t.lastErr.Error()
	}
	s := t.state.Current()
	if s == nil {
		return "waiting for simulation"
	}
	line := fmt.Sprintf("%s  tick %d  robots %d  discovered %d/%d", s.State, s.Tick, len(s.Robots), s.DiscoveredCount, s.Width*s.Height)
	if id := t.state.Selected; id != 0 {
		if r, ok := s.Robot(id); ok {
			line += fmt.Sprintf("  |  #%d %s %s E%d/%d %s", r.ID, r.Type, r.Pos, r.Energy, r.Capacity, r.Task.Kind)
		}
	}
	return line
}

func (t *Toolbar) handleClicks(gtx layout.Context) {
	pb := t.state.Playback
	for t.playBtn.Clicked(gtx) {
		pb.TogglePlay(time.Now())
	}
	for t.stepFwdBtn.Clicked(gtx) {
		pb.StepForward()
	}
	for t.stepBackBtn.Clicked(gtx) {
		pb.StepBack()
	}
	for t.liveBtn.Clicked(gtx) {
		pb.Live()
	}
	for t.speedUpBtn.Clicked(gtx) {
		pb.SetSpeed(pb.Speed * 2)
	}
	for t.speedDownBtn.Clicked(gtx) {
		pb.SetSpeed(pb.Speed / 2)
	}
	for t.pathsBtn.Clicked(gtx) {
		t.state.ShowPaths = !t.state.ShowPaths
	}
	for t.fogBtn.Clicked(gtx) {
		t.state.ShowFog = !t.state.ShowFog
	}
	for t.pauseSimBtn.Clicked(gtx) {
		t.ToggleSimulation()
	}
	for t.stopSimBtn.Clicked(gtx) {
		if t.ctl != nil {
			t.lastErr = t.ctl.Control("stop")
		}
	}
}

func separator() layout.FlexChild {
	return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 65, B: 70, A: 255}, clip.Rect(image.Rect(0, 0, 1, 24)).Op())
			return layout.Dimensions{Size: image.Pt(1, 24)}
		})
	})
}

func (t *Toolbar) button(th *material.Theme, btn *widget.Clickable, text string, active bool) layout.FlexChild {
	return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Right: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			bg := color.NRGBA{R: 55, G: 58, B: 65, A: 255}
			if active {
				bg = color.NRGBA{R: 80, G: 130, B: 180, A: 255}
			}
			if btn.Hovered() {
				bg.R, bg.G, bg.B = lighten(bg.R), lighten(bg.G), lighten(bg.B)
			}
			return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.Background{}.Layout(gtx,
					func(gtx layout.Context) layout.Dimensions {
						paint.FillShape(gtx.Ops, bg, clip.Rect(image.Rectangle{Max: gtx.Constraints.Min}).Op())
						return layout.Dimensions{Size: gtx.Constraints.Min}
					},
					func(gtx layout.Context) layout.Dimensions {
						gtx.Constraints.Min = image.Pt(32, 28)
						return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
							return layout.UniformInset(unit.Dp(4)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
								l := material.Label(th, 12, text)
								l.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
								return l.Layout(gtx)
							})
						})
					},
				)
			})
		})
	})
}

func lighten(c uint8) uint8 {
	if c > 240 {
		return 255
	}
	return c + 15
}
