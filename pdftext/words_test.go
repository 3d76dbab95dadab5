package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/graphicsstate"
	"github.com/tsawler/folio/pages"
)

type directResolver struct{}

func (directResolver) Resolve(obj core.Object) (core.Object, error) { return obj, nil }

func testPage(attrs core.Dict) *pages.Page {
	dict := core.Dict{"Type": core.Name("Page"), "MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(200), core.Int(100)}}
	for k, v := range attrs {
		dict[k] = v
	}
	return pages.NewPage(dict, core.Dict{}, directResolver{})
}

func glyph(text string, x0, top, x1, bottom float64) char {
	return char{text: text, x0: x0, top: top, x1: x1, bottom: bottom}
}

func texts(words [][]char) []string {
	var out []string
	for _, w := range words {
		s := ""
		for _, c := range w {
			s += c.text
		}
		out = append(out, s)
	}
	return out
}

func TestGroupWords(t *testing.T) {
	tests := []struct {
		name  string
		chars []char
		want  []string
	}{
		{
			name:  "adjacent glyphs",
			chars: []char{glyph("a", 0, 0, 5, 10), glyph("b", 5, 0, 10, 10), glyph("c", 10.5, 0, 15, 10)},
			want:  []string{"abc"},
		},
		{
			name:  "blank glyph splits",
			chars: []char{glyph("a", 0, 0, 5, 10), glyph(" ", 5, 0, 8, 10), glyph("b", 8, 0, 13, 10)},
			want:  []string{"a", "b"},
		},
		{
			name:  "gap beyond tolerance",
			chars: []char{glyph("a", 0, 0, 5, 10), glyph("b", 6.5, 0, 10, 10)},
			want:  []string{"a", "b"},
		},
		{
			name:  "baseline shift",
			chars: []char{glyph("a", 0, 0, 5, 10), glyph("b", 5, 2, 10, 12)},
			want:  []string{"a", "b"},
		},
		{
			name:  "next glyph moves back",
			chars: []char{glyph("a", 10, 0, 15, 10), glyph("b", 0, 0, 5, 10)},
			want:  []string{"a", "b"},
		},
		{
			name:  "only blanks",
			chars: []char{glyph(" ", 0, 0, 5, 10), glyph(" ", 5, 0, 10, 10)},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(groupWords(tt.chars, 1, 1)))
		})
	}
}

func TestGroupWordsVertical(t *testing.T) {
	a := glyph("a", 0, 0, 10, 5)
	b := glyph("b", 0, 5, 10, 10)
	c := glyph("c", 0, 20, 10, 25)
	h := glyph("h", 10, 25, 15, 35)
	a.vertical, b.vertical, c.vertical = true, true, true

	assert.Equal(t, []string{"ab", "c", "h"}, texts(groupWords([]char{a, b, c, h}, 1, 1)))
}

func TestPageGeometry(t *testing.T) {
	tests := []struct {
		name          string
		rotate        int
		width, height float64
		// display position of the user space point (10, 80)
		x, y float64
	}{
		{"upright", 0, 200, 100, 10, 20},
		{"rotate 90", 90, 100, 200, 80, 10},
		{"rotate 180", 180, 200, 100, 190, 80},
		{"rotate 270", 270, 100, 200, 20, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := pageGeometry(testPage(core.Dict{"Rotate": core.Int(tt.rotate)}))
			require.NoError(t, err)
			assert.Equal(t, tt.width, g.width)
			assert.Equal(t, tt.height, g.height)
			x, y := g.base.Apply(10, 80)
			assert.InDelta(t, tt.x, x, 1e-9)
			assert.InDelta(t, tt.y, y, 1e-9)
		})
	}
}

func TestPageGeometryCropBox(t *testing.T) {
	page := testPage(core.Dict{"CropBox": core.Array{core.Int(50), core.Int(0), core.Int(150), core.Int(100)}})
	g, err := pageGeometry(page)
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.width)

	x, _ := g.base.Apply(60, 0)
	assert.InDelta(t, 10, x, 1e-9)
}

func TestNormalize(t *testing.T) {
	g := geometry{width: 200, height: 100}

	box, ok := g.normalize(-20, 10, 100, 20)
	require.True(t, ok)
	assert.Equal(t, 0.0, box.X0, "clipped to the page")
	assert.InDelta(t, 0.5, box.X1, 1e-9)

	_, ok = g.normalize(210, 10, 230, 20)
	assert.False(t, ok, "box outside the page")

	_, ok = geometry{}.normalize(0, 0, 1, 1)
	assert.False(t, ok)
}

func TestRules(t *testing.T) {
	g := geometry{width: 200, height: 100, base: graphicsstate.Identity()}

	var p graphicsstate.Path
	p.MoveTo(g.base, 10, 50)
	p.LineTo(g.base, 110, 50)
	p.Stroke(1)
	p.Rectangle(g.base, 20, 70, 100, 1) // thin bar
	p.Rectangle(g.base, 20, 80, 100, 10) // box, not a rule
	p.Fill()

	got := rules(p, g, 3, 10, 2)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.05, got[0].X0, 1e-9)
	assert.InDelta(t, 0.55, got[0].X1, 1e-9)
	assert.InDelta(t, 0.51, got[0].Y1, 1e-9)
	assert.Equal(t, 3, got[0].Page)
	assert.InDelta(t, 0.7, got[1].Y0, 1e-9)
	assert.InDelta(t, 0.72, got[1].Y1, 1e-9)
}
