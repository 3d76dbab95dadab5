package graphicsstate

import "math"

// Segment is a straight piece of painted path in device space. Width is
// the stroke width in device units, zero for filled areas.
type Segment struct {
	X0, Y0, X1, Y1 float64
	Width          float64
}

// Horizontal reports whether the segment runs within tol of horizontal.
func (s Segment) Horizontal(tol float64) bool {
	return math.Abs(s.Y1-s.Y0) <= tol
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return math.Hypot(s.X1-s.X0, s.Y1-s.Y0)
}

// Rect is a filled rectangle in device space.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

type point struct{ x, y float64 }

// Path accumulates a path under construction and, when painted, the
// segments and filled rectangles it produced. Points are transformed with
// the CTM in force when they are added.
type Path struct {
	subpaths [][]point
	curve    []bool // subpath contains a curve
	closed   []bool

	Segments []Segment
	Rects    []Rect
}

// MoveTo starts a new subpath (m).
func (p *Path) MoveTo(ctm Matrix, x, y float64) {
	dx, dy := ctm.Apply(x, y)
	p.subpaths = append(p.subpaths, []point{{dx, dy}})
	p.curve = append(p.curve, false)
	p.closed = append(p.closed, false)
}

// LineTo appends a straight segment (l).
func (p *Path) LineTo(ctm Matrix, x, y float64) {
	if len(p.subpaths) == 0 {
		p.MoveTo(ctm, x, y)
		return
	}
	dx, dy := ctm.Apply(x, y)
	i := len(p.subpaths) - 1
	p.subpaths[i] = append(p.subpaths[i], point{dx, dy})
}

// CurveTo appends a curve ending at (x, y), approximated by its chord
// (c, v, y).
func (p *Path) CurveTo(ctm Matrix, x, y float64) {
	p.LineTo(ctm, x, y)
	if n := len(p.curve); n > 0 {
		p.curve[n-1] = true
	}
}

// Close closes the current subpath (h).
func (p *Path) Close() {
	if n := len(p.closed); n > 0 {
		p.closed[n-1] = true
	}
}

// Rectangle appends a closed rectangular subpath (re).
func (p *Path) Rectangle(ctm Matrix, x, y, w, h float64) {
	p.MoveTo(ctm, x, y)
	p.LineTo(ctm, x+w, y)
	p.LineTo(ctm, x+w, y+h)
	p.LineTo(ctm, x, y+h)
	p.Close()
}

// Stroke records every straight segment of the path and clears it.
func (p *Path) Stroke(width float64) {
	for i, sp := range p.subpaths {
		pts := sp
		if p.closed[i] && len(sp) > 2 {
			pts = append(pts[:len(pts):len(pts)], sp[0])
		}
		for j := 1; j < len(pts); j++ {
			a, b := pts[j-1], pts[j]
			if a == b {
				continue
			}
			p.Segments = append(p.Segments, Segment{X0: a.x, Y0: a.y, X1: b.x, Y1: b.y, Width: width})
		}
	}
	p.End()
}

// Fill records the axis-aligned rectangles of the path and clears it.
// Other filled shapes carry no rule information and are dropped.
func (p *Path) Fill() {
	for i, sp := range p.subpaths {
		if p.curve[i] {
			continue
		}
		if r, ok := axisRect(sp); ok {
			p.Rects = append(p.Rects, r)
		}
	}
	p.End()
}

// FillStroke paints the path both ways (B, b).
func (p *Path) FillStroke(width float64) {
	subpaths, curve, closed := p.subpaths, p.curve, p.closed
	p.Fill()
	p.subpaths, p.curve, p.closed = subpaths, curve, closed
	p.Stroke(width)
}

// End discards the path without painting it (n).
func (p *Path) End() {
	p.subpaths, p.curve, p.closed = nil, nil, nil
}

// axisRect recognizes four corners, optionally repeating the first, that
// bound an axis-aligned rectangle.
func axisRect(pts []point) (Rect, bool) {
	if len(pts) == 5 && pts[4] == pts[0] {
		pts = pts[:4]
	}
	if len(pts) != 4 {
		return Rect{}, false
	}
	const eps = 0.01
	r := Rect{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}
	for _, pt := range pts {
		r.X0, r.X1 = math.Min(r.X0, pt.x), math.Max(r.X1, pt.x)
		r.Y0, r.Y1 = math.Min(r.Y0, pt.y), math.Max(r.Y1, pt.y)
	}
	for _, pt := range pts {
		onX := math.Abs(pt.x-r.X0) < eps || math.Abs(pt.x-r.X1) < eps
		onY := math.Abs(pt.y-r.Y0) < eps || math.Abs(pt.y-r.Y1) < eps
		if !onX || !onY {
			return Rect{}, false
		}
	}
	return r, true
}
