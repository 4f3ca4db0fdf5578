package export

import (
	"math"

	"github.com/jung-kurt/gofpdf"
)

// bounds is the page-space box a shape was dragged out in.
type bounds struct{ x0, y0, x1, y1 float64 }

func (b bounds) w() float64 { return b.x1 - b.x0 }
func (b bounds) h() float64 { return b.y1 - b.y0 }

func (b bounds) center() (float64, float64) {
	return (b.x0 + b.x1) / 2, (b.y0 + b.y1) / 2
}

func (b bounds) triangle() []gofpdf.PointType {
	cx, _ := b.center()
	return []gofpdf.PointType{{X: cx, Y: b.y0}, {X: b.x1, Y: b.y1}, {X: b.x0, Y: b.y1}}
}

func (b bounds) diamond() []gofpdf.PointType {
	cx, cy := b.center()
	return []gofpdf.PointType{{X: cx, Y: b.y0}, {X: b.x1, Y: cy}, {X: cx, Y: b.y1}, {X: b.x0, Y: cy}}
}

// star is five-pointed with the inner radius at 40% of the outer.
func (b bounds) star() []gofpdf.PointType {
	cx, cy := b.center()
	rx, ry := b.w()/2, b.h()/2
	pts := make([]gofpdf.PointType, 0, 10)
	for i := 0; i < 10; i++ {
		k := 1.0
		if i%2 == 1 {
			k = 0.4
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		pts = append(pts, gofpdf.PointType{X: cx + k*rx*math.Cos(a), Y: cy + k*ry*math.Sin(a)})
	}
	return pts
}

func (b bounds) hexagon() []gofpdf.PointType {
	cx, cy := b.center()
	rx, ry := b.w()/2, b.h()/2
	pts := make([]gofpdf.PointType, 0, 6)
	for i := 0; i < 6; i++ {
		a := float64(i) * math.Pi / 3
		pts = append(pts, gofpdf.PointType{X: cx + rx*math.Cos(a), Y: cy + ry*math.Sin(a)})
	}
	return pts
}

// heart samples the classic parametric heart curve into the box.
func (b bounds) heart() []gofpdf.PointType {
	const steps = 48
	cx, cy := b.center()
	sx, sy := b.w()/34, b.h()/30
	pts := make([]gofpdf.PointType, 0, steps)
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / steps
		x := 16 * math.Pow(math.Sin(t), 3)
		y := 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)
		pts = append(pts, gofpdf.PointType{X: cx + x*sx, Y: cy - y*sy})
	}
	return pts
}
