package ink

import (
	"github.com/gogpu/gg"
)

// brush draws stroke pieces onto a gg canvas. Live drawing and undo replay
// both go through it, so a replayed history is pixel-identical to the
// strokes as they were drawn.
type brush struct {
	dc *gg.Context
}

func newCanvas(w, h int) *gg.Context {
	dc := gg.NewContext(w, h)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.Clear()
	return dc
}

func (b brush) paint(s Style, pressure float64) {
	c := s.Color
	b.dc.SetRGBA(
		float64(c.R)/255,
		float64(c.G)/255,
		float64(c.B)/255,
		float64(c.A)/255*s.Opacity,
	)
	b.dc.SetLineWidth(max(1, s.Width*pressure))
}

// dot marks a stroke's first sample: a 0.1 px line that the round caps turn
// into a disc.
func (b brush) dot(s Style, p Point) error {
	b.paint(s, p.Pressure)
	x, y := float64(p.X), float64(p.Y)
	b.dc.MoveTo(x, y)
	b.dc.LineTo(x+0.1, y+0.1)
	return b.dc.Stroke()
}

// segment draws the piece of the curve ending at pts[i]: a quadratic from
// the previous midpoint, through pts[i-1] as control, to the midpoint of
// pts[i-1] and pts[i]. The first segment starts at pts[0]. Width follows the
// average pressure of the two samples.
func (b brush) segment(s Style, pts []Point, i int) error {
	p0, p1 := pts[i-1], pts[i]

	sx, sy := float64(p0.X), float64(p0.Y)
	if i >= 2 {
		sx, sy = mid(pts[i-2], p0)
	}
	mx, my := mid(p0, p1)

	b.paint(s, (p0.Pressure+p1.Pressure)/2)
	b.dc.MoveTo(sx, sy)
	b.dc.QuadraticTo(float64(p0.X), float64(p0.Y), mx, my)
	return b.dc.Stroke()
}

// tail closes a stroke: a straight line from the last midpoint to the last
// sample, at the last sample's pressure.
func (b brush) tail(s Style, pts []Point) error {
	n := len(pts)
	if n < 2 {
		return nil
	}
	last := pts[n-1]
	mx, my := mid(pts[n-2], last)

	b.paint(s, last.Pressure)
	b.dc.MoveTo(mx, my)
	b.dc.LineTo(float64(last.X), float64(last.Y))
	return b.dc.Stroke()
}

// stroke renders a whole finished stroke.
func (b brush) stroke(st Stroke) error {
	pts := st.points
	if len(pts) == 0 {
		return nil
	}
	if err := b.dot(st.style, pts[0]); err != nil {
		return err
	}
	for i := 1; i < len(pts); i++ {
		if err := b.segment(st.style, pts, i); err != nil {
			return err
		}
	}
	return b.tail(st.style, pts)
}

func mid(a, b Point) (float64, float64) {
	return float64(a.X+b.X) / 2, float64(a.Y+b.Y) / 2
}
