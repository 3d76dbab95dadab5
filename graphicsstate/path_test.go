package graphicsstate

import "testing"

func TestStroke(t *testing.T) {
	var p Path
	ctm := Scale(2, 2)
	p.MoveTo(ctm, 10, 10)
	p.LineTo(ctm, 60, 10)
	p.LineTo(ctm, 60, 10)
	p.Stroke(1)

	if len(p.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(p.Segments))
	}
	s := p.Segments[0]
	if s.X0 != 20 || s.X1 != 120 || s.Y0 != 20 || !s.Horizontal(0.1) || s.Length() != 100 {
		t.Errorf("segment = %+v", s)
	}

	p.Rectangle(Identity(), 0, 0, 10, 5)
	p.Stroke(1)
	if len(p.Segments) != 5 {
		t.Errorf("closed rectangle added %d segments, want 4", len(p.Segments)-1)
	}
}

func TestFill(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *Path)
		want  int
	}{
		{"re", func(p *Path) { p.Rectangle(Identity(), 10, 100, 200, 0.5) }, 1},
		{"closed by lineto", func(p *Path) {
			p.MoveTo(Identity(), 0, 0)
			p.LineTo(Identity(), 10, 0)
			p.LineTo(Identity(), 10, 1)
			p.LineTo(Identity(), 0, 1)
			p.LineTo(Identity(), 0, 0)
		}, 1},
		{"triangle", func(p *Path) {
			p.MoveTo(Identity(), 0, 0)
			p.LineTo(Identity(), 10, 0)
			p.LineTo(Identity(), 5, 5)
			p.Close()
		}, 0},
		{"curve", func(p *Path) {
			p.MoveTo(Identity(), 0, 0)
			p.LineTo(Identity(), 10, 0)
			p.CurveTo(Identity(), 10, 1)
			p.LineTo(Identity(), 0, 1)
		}, 0},
		{"discarded", func(p *Path) {
			p.Rectangle(Identity(), 0, 0, 1, 1)
			p.End()
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Path
			tt.build(&p)
			p.Fill()
			if len(p.Rects) != tt.want {
				t.Errorf("got %d rects, want %d", len(p.Rects), tt.want)
			}
		})
	}
}

func TestFillStroke(t *testing.T) {
	var p Path
	p.Rectangle(Translate(5, 5), 0, 0, 20, 10)
	p.FillStroke(2)
	if len(p.Rects) != 1 || len(p.Segments) != 4 {
		t.Fatalf("rects = %d, segments = %d", len(p.Rects), len(p.Segments))
	}
	if r := p.Rects[0]; r != (Rect{X0: 5, Y0: 5, X1: 25, Y1: 15}) {
		t.Errorf("rect = %+v", r)
	}
}
