package graphicsstate

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMatrix(t *testing.T) {
	tests := []struct {
		name         string
		m            Matrix
		x, y         float64
		wantX, wantY float64
	}{
		{"identity", Identity(), 3, 4, 3, 4},
		{"translate", Translate(10, -2), 3, 4, 13, 2},
		{"scale then translate", Scale(2, 3).Multiply(Translate(1, 1)), 1, 1, 3, 4},
		{"translate then scale", Translate(1, 1).Multiply(Scale(2, 3)), 1, 1, 4, 6},
		{"rotate 90", Matrix{0, 1, -1, 0, 0, 0}, 1, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.m.Apply(tt.x, tt.y)
			if !near(x, tt.wantX) || !near(y, tt.wantY) {
				t.Errorf("Apply(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, x, y, tt.wantX, tt.wantY)
			}
		})
	}

	if s := (Matrix{0, 2, -2, 0, 5, 5}).ScaleY(); !near(s, 2) {
		t.Errorf("ScaleY() = %v", s)
	}
	if dx, dy := Translate(5, 5).ApplyVector(1, 2); dx != 1 || dy != 2 {
		t.Errorf("ApplyVector() = (%v, %v)", dx, dy)
	}
}

func TestSaveRestore(t *testing.T) {
	gs := NewGraphicsState(Identity())
	gs.Save()
	gs.Concat(Scale(2, 2))
	gs.LineWidth = 4
	gs.Text.FontSize = 9
	if gs.Depth() != 1 {
		t.Errorf("Depth() = %d", gs.Depth())
	}
	if err := gs.Restore(); err != nil {
		t.Fatal(err)
	}
	if gs.CTM != Identity() || gs.LineWidth != 1 || gs.Text.FontSize != 1 {
		t.Errorf("state not restored: %+v", gs)
	}
	if err := gs.Restore(); err == nil {
		t.Error("expected underflow error")
	}
}

func TestTextPositioning(t *testing.T) {
	gs := NewGraphicsState(Translate(0, 10))
	gs.BeginText()
	gs.Text.FontSize = 10
	gs.MoveTextSetLeading(72, -14)
	if gs.Text.Leading != 14 {
		t.Errorf("Leading = %v", gs.Text.Leading)
	}
	gs.Advance(gs.GlyphAdvance(500, false), 0)
	gs.NextLine()

	x, y := gs.RenderMatrix().Apply(0, 0)
	if !near(x, 72) || !near(y, 10-28) {
		t.Errorf("origin after T* = (%v, %v), want (72, -18)", x, y)
	}
}

func TestGlyphAdvance(t *testing.T) {
	tests := []struct {
		name  string
		state TextState
		w     float64
		space bool
		want  float64
	}{
		{"plain", TextState{FontSize: 10, HorizontalScaling: 100}, 500, false, 5},
		{"char spacing", TextState{FontSize: 10, HorizontalScaling: 100, CharSpacing: 1}, 500, false, 6},
		{"word spacing on space", TextState{FontSize: 10, HorizontalScaling: 100, WordSpacing: 2}, 250, true, 4.5},
		{"word spacing ignored", TextState{FontSize: 10, HorizontalScaling: 100, WordSpacing: 2}, 250, false, 2.5},
		{"scaled", TextState{FontSize: 10, HorizontalScaling: 50}, 500, false, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := &GraphicsState{Text: tt.state}
			if got := gs.GlyphAdvance(tt.w, tt.space); !near(got, tt.want) {
				t.Errorf("GlyphAdvance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKern(t *testing.T) {
	gs := NewGraphicsState(Identity())
	gs.Text.FontSize = 10
	gs.Kern(-1000, false)
	if !near(gs.Text.Matrix[4], 10) {
		t.Errorf("horizontal kern moved to %v", gs.Text.Matrix[4])
	}
	gs.Kern(1000, true)
	if !near(gs.Text.Matrix[5], -10) {
		t.Errorf("vertical kern moved to %v", gs.Text.Matrix[5])
	}
}
