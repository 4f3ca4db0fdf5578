package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"LiveBoard/internal/state"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 210.0 // A4 portrait, mm
	pageHeight = 297.0
	margin     = 10.0

	// Canvas pixels per millimetre at 100%; large drawings are shrunk to fit.
	pxPerMM = 3.0

	ptPerMM = 72 / 25.4
)

// WritePDF renders elements onto a single A4 page in insertion order, so
// later elements paint over earlier ones the way they do on the canvas.
func WritePDF(w io.Writer, title string, elements []state.DrawingElement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("LiveBoard", true)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	pdf.SetFont("Helvetica", "", 12)

	v := fitView(elements)
	for _, el := range elements {
		drawElement(pdf, v, el)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// view maps canvas coordinates onto the page.
type view struct {
	minX, minY float64
	scale      float64
}

func (v view) pt(p state.Point) (float64, float64) {
	return margin + (p.X-v.minX)*v.scale, margin + (p.Y-v.minY)*v.scale
}

func fitView(elements []state.DrawingElement) view {
	v := view{scale: 1 / pxPerMM}
	first := true
	var maxX, maxY float64
	for _, el := range elements {
		for _, p := range el.Points {
			if first {
				v.minX, v.minY, maxX, maxY = p.X, p.Y, p.X, p.Y
				first = false
				continue
			}
			v.minX, v.minY = math.Min(v.minX, p.X), math.Min(v.minY, p.Y)
			maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
		}
	}
	if w := maxX - v.minX; w > 0 {
		v.scale = math.Min(v.scale, (pageWidth-2*margin)/w)
	}
	if h := maxY - v.minY; h > 0 {
		v.scale = math.Min(v.scale, (pageHeight-2*margin)/h)
	}
	return v
}

func drawElement(pdf *gofpdf.Fpdf, v view, el state.DrawingElement) {
	if len(el.Points) == 0 {
		return
	}
	st := el.Style
	r, g, b := parseColor(st.StrokeColor)
	if el.Type == state.ElementEraser {
		r, g, b = 255, 255, 255
	}
	pdf.SetDrawColor(r, g, b)
	pdf.SetTextColor(r, g, b)
	pdf.SetLineWidth(math.Max(st.StrokeWidth*v.scale, 0.1))
	opacity := st.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	pdf.SetAlpha(opacity, "Normal")
	defer pdf.SetAlpha(1, "Normal")

	style := "D"
	if fill := strings.TrimSpace(st.Fill); fill != "" && fill != "transparent" && el.Type != state.ElementLine && el.Type != state.ElementArrow {
		fr, fg, fb := parseColor(fill)
		pdf.SetFillColor(fr, fg, fb)
		style = "FD"
	}

	if el.Type.IsFreehand() {
		polyline(pdf, v, el.Points)
		return
	}

	x0, y0 := v.pt(el.Points[0])
	x1, y1 := v.pt(el.Points[len(el.Points)-1])
	box := bounds{math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)}

	switch el.Type {
	case state.ElementRect:
		pdf.Rect(box.x0, box.y0, box.w(), box.h(), style)
	case state.ElementCircle:
		cx, cy := box.center()
		pdf.Ellipse(cx, cy, box.w()/2, box.h()/2, 0, style)
	case state.ElementLine:
		pdf.Line(x0, y0, x1, y1)
	case state.ElementArrow:
		pdf.Line(x0, y0, x1, y1)
		pdf.SetFillColor(r, g, b)
		pdf.Polygon(arrowHead(x0, y0, x1, y1, math.Max(st.StrokeWidth*v.scale*3, 2)), "FD")
	case state.ElementTriangle:
		pdf.Polygon(box.triangle(), style)
	case state.ElementDiamond:
		pdf.Polygon(box.diamond(), style)
	case state.ElementStar:
		pdf.Polygon(box.star(), style)
	case state.ElementHexagon:
		pdf.Polygon(box.hexagon(), style)
	case state.ElementHeart:
		pdf.Polygon(box.heart(), style)
	case state.ElementText:
		size := st.FontSize
		if size <= 0 {
			size = 16
		}
		pdf.SetFontSize(size * v.scale * ptPerMM)
		for i, line := range strings.Split(el.Text, "\n") {
			pdf.Text(x0, y0+float64(i+1)*size*v.scale, line)
		}
	}
}

func polyline(pdf *gofpdf.Fpdf, v view, pts []state.Point) {
	if len(pts) == 1 {
		x, y := v.pt(pts[0])
		pdf.Line(x, y, x, y)
		return
	}
	for i := 1; i < len(pts); i++ {
		xa, ya := v.pt(pts[i-1])
		xb, yb := v.pt(pts[i])
		pdf.Line(xa, ya, xb, yb)
	}
}

func arrowHead(x0, y0, x1, y1, size float64) []gofpdf.PointType {
	angle := math.Atan2(y1-y0, x1-x0)
	return []gofpdf.PointType{
		{X: x1, Y: y1},
		{X: x1 - size*math.Cos(angle-math.Pi/6), Y: y1 - size*math.Sin(angle-math.Pi/6)},
		{X: x1 - size*math.Cos(angle+math.Pi/6), Y: y1 - size*math.Sin(angle+math.Pi/6)},
	}
}

// parseColor accepts #rgb and #rrggbb; anything else is black.
func parseColor(s string) (int, int, int) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
