// Package draw renders snapshots onto a gio op list.
package draw

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

func fillRect(gtx layout.Context, x0, y0, x1, y1 float32, col color.NRGBA) {
	r := image.Rect(int(x0), int(y0), int(math.Ceil(float64(x1))), int(math.Ceil(float64(y1))))
	paint.FillShape(gtx.Ops, col, clip.Rect(r).Op())
}

// fillPolygon fills the closed outline through pts.
func fillPolygon(gtx layout.Context, col color.NRGBA, pts ...f32.Point) {
	if len(pts) < 3 {
		return
	}
	var p clip.Path
	p.Begin(gtx.Ops)
	p.MoveTo(pts[0])
	for _, pt := range pts[1:] {
		p.LineTo(pt)
	}
	p.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: p.End()}.Op())
}

func drawLine(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx, dy := x2-x1, y2-y1
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length < 0.1 {
		return
	}
	px := -dy / length * width / 2
	py := dx / length * width / 2
	fillPolygon(gtx, col,
		f32.Pt(x1+px, y1+py),
		f32.Pt(x2+px, y2+py),
		f32.Pt(x2-px, y2-py),
		f32.Pt(x1-px, y1-py),
	)
}

func fillCircle(gtx layout.Context, cx, cy, r float32, col color.NRGBA) {
	const segments = 16
	pts := make([]f32.Point, segments)
	for i := range pts {
		a := float64(i) * 2 * math.Pi / segments
		pts[i] = f32.Pt(cx+r*float32(math.Cos(a)), cy+r*float32(math.Sin(a)))
	}
	fillPolygon(gtx, col, pts...)
}

// strokeRect outlines the axis-aligned square of edge size centred on (cx, cy).
func strokeRect(gtx layout.Context, cx, cy, size, width float32, col color.NRGBA) {
	h := size / 2
	drawLine(gtx, cx-h, cy-h, cx+h, cy-h, width, col)
	drawLine(gtx, cx+h, cy-h, cx+h, cy+h, width, col)
	drawLine(gtx, cx+h, cy+h, cx-h, cy+h, width, col)
	drawLine(gtx, cx-h, cy+h, cx-h, cy-h, width, col)
}
