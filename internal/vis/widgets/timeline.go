package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/nova-swarm/internal/vis/state"
)

const timelineMargin = 20

// Timeline scrubs through the snapshot history.
type Timeline struct {
	state    *state.State
	dragging bool
}

func NewTimeline(st *state.State) *Timeline {
	return &Timeline{state: st}
}

func (t *Timeline) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	height := gtx.Dp(unit.Dp(56))
	width := gtx.Constraints.Max.X
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(image.Rect(0, 0, width, height)).Op())

	trackWidth := width - 2*timelineMargin
	t.handlePointerEvents(gtx, height, trackWidth)

	trackY := height * 2 / 3
	track := image.Rect(timelineMargin, trackY-3, timelineMargin+trackWidth, trackY+3)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 65, B: 70, A: 255}, clip.Rect(track).Op())

	fill := int(float64(trackWidth) * t.state.Playback.Progress())
	if fill > 0 {
		r := image.Rect(timelineMargin, trackY-3, timelineMargin+fill, trackY+3)
		paint.FillShape(gtx.Ops, color.NRGBA{R: 100, G: 180, B: 255, A: 255}, clip.Rect(r).Op())
	}
	head := timelineMargin + fill
	paint.FillShape(gtx.Ops, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, clip.Rect(image.Rect(head-6, trackY-6, head+6, trackY+6)).Op())

	t.drawLabels(gtx, th)
	return layout.Dimensions{Size: image.Pt(width, height)}
}

func (t *Timeline) drawLabels(gtx layout.Context, th *material.Theme) {
	cur, first, last := "-", "-", "-"
	if s := t.state.Current(); s != nil {
		cur = fmt.Sprintf("tick %d", s.Tick)
	}
	if s := t.state.At(0); s != nil {
		first = fmt.Sprint(s.Tick)
	}
	if s := t.state.Latest(); s != nil {
		last = fmt.Sprint(s.Tick)
	}
	mode := fmt.Sprintf("%.1f t/s", t.state.Playback.Speed)
	if t.state.Playback.Follow {
		mode = "live"
	}

	label := func(txt string, col color.NRGBA) layout.Widget {
		return func(gtx layout.Context) layout.Dimensions {
			l := material.Label(th, 12, txt)
			l.Color = col
			return l.Layout(gtx)
		}
	}
	dim := color.NRGBA{R: 150, G: 150, B: 150, A: 255}
	layout.Inset{Top: unit.Dp(4), Left: unit.Dp(timelineMargin), Right: unit.Dp(timelineMargin)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceBetween}.Layout(gtx,
			layout.Rigid(label(first, dim)),
			layout.Rigid(label(cur, color.NRGBA{R: 220, G: 220, B: 220, A: 255})),
			layout.Rigid(label(mode, color.NRGBA{R: 150, G: 180, B: 200, A: 255})),
			layout.Rigid(label(last, dim)),
		)
	})
}

func (t *Timeline) handlePointerEvents(gtx layout.Context, height, trackWidth int) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, height)).Push(gtx.Ops)
	event.Op(gtx.Ops, t)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: t,
			Kinds:  pointer.Press | pointer.Drag | pointer.Release,
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Press:
			t.dragging = true
			t.seek(pe.Position.X, trackWidth)
		case pointer.Drag:
			if t.dragging {
				t.seek(pe.Position.X, trackWidth)
			}
		case pointer.Release:
			t.dragging = false
		}
	}
}

func (t *Timeline) seek(x float32, trackWidth int) {
	if trackWidth <= 0 {
		return
	}
	progress := (float64(x) - timelineMargin) / float64(trackWidth)
	t.state.Playback.Pause()
	t.state.Playback.Seek(progress * t.state.Playback.Max)
}
