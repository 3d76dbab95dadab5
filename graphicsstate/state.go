package graphicsstate

import "fmt"

// TextState holds the text parameters of the graphics state together with
// the text and text line matrices of the current text object.
type TextState struct {
	FontName          string
	FontSize          float64
	CharSpacing       float64 // Tc
	WordSpacing       float64 // Tw
	HorizontalScaling float64 // Tz, percent
	Leading           float64 // TL
	Rise              float64 // Ts
	RenderingMode     int     // Tr

	Matrix     Matrix
	LineMatrix Matrix
}

// GraphicsState is the subset of the PDF graphics state that affects
// where text and rules land on the page.
type GraphicsState struct {
	CTM       Matrix
	LineWidth float64
	Text      TextState

	stack []savedState
}

type savedState struct {
	ctm       Matrix
	lineWidth float64
	text      TextState
}

// NewGraphicsState returns the initial state with base transform ctm.
func NewGraphicsState(ctm Matrix) *GraphicsState {
	return &GraphicsState{
		CTM:       ctm,
		LineWidth: 1,
		Text: TextState{
			FontSize:          1,
			HorizontalScaling: 100,
			Matrix:            Identity(),
			LineMatrix:        Identity(),
		},
	}
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int {
	return len(gs.stack)
}

// Save pushes a copy of the state (q).
func (gs *GraphicsState) Save() {
	gs.stack = append(gs.stack, savedState{ctm: gs.CTM, lineWidth: gs.LineWidth, text: gs.Text})
}

// Restore pops the last saved state (Q).
func (gs *GraphicsState) Restore() error {
	if len(gs.stack) == 0 {
		return fmt.Errorf("graphics state stack underflow")
	}
	s := gs.stack[len(gs.stack)-1]
	gs.stack = gs.stack[:len(gs.stack)-1]
	gs.CTM, gs.LineWidth, gs.Text = s.ctm, s.lineWidth, s.text
	return nil
}

// Concat prepends m to the current transform (cm).
func (gs *GraphicsState) Concat(m Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// BeginText resets the text matrices (BT).
func (gs *GraphicsState) BeginText() {
	gs.Text.Matrix = Identity()
	gs.Text.LineMatrix = Identity()
}

// SetTextMatrix sets both text matrices (Tm).
func (gs *GraphicsState) SetTextMatrix(m Matrix) {
	gs.Text.Matrix = m
	gs.Text.LineMatrix = m
}

// MoveText starts a new line offset from the start of the current one (Td).
func (gs *GraphicsState) MoveText(tx, ty float64) {
	gs.Text.LineMatrix = Translate(tx, ty).Multiply(gs.Text.LineMatrix)
	gs.Text.Matrix = gs.Text.LineMatrix
}

// MoveTextSetLeading is Td that also sets the leading to -ty (TD).
func (gs *GraphicsState) MoveTextSetLeading(tx, ty float64) {
	gs.Text.Leading = -ty
	gs.MoveText(tx, ty)
}

// NextLine moves to the start of the next line (T*).
func (gs *GraphicsState) NextLine() {
	gs.MoveText(0, -gs.Text.Leading)
}

// GlyphAdvance returns the horizontal displacement, in text space, of a
// glyph w thousandths of an em wide. Word spacing applies to single-byte
// code 32 only, which the caller signals with space.
func (gs *GraphicsState) GlyphAdvance(w float64, space bool) float64 {
	t := gs.Text
	adv := w/1000*t.FontSize + t.CharSpacing
	if space {
		adv += t.WordSpacing
	}
	return adv * t.HorizontalScaling / 100
}

// GlyphAdvanceVertical is the displacement of a glyph in vertical writing
// mode, where glyphs advance down by their vertical metric.
func (gs *GraphicsState) GlyphAdvanceVertical(w float64, space bool) float64 {
	t := gs.Text
	adv := w/1000*t.FontSize + t.CharSpacing
	if space {
		adv += t.WordSpacing
	}
	return adv
}

// Advance moves the text matrix by (tx, ty) in text space.
func (gs *GraphicsState) Advance(tx, ty float64) {
	gs.Text.Matrix = Translate(tx, ty).Multiply(gs.Text.Matrix)
}

// Kern applies a TJ adjustment of n thousandths of an em.
func (gs *GraphicsState) Kern(n float64, vertical bool) {
	d := -n / 1000 * gs.Text.FontSize
	if vertical {
		gs.Advance(0, d)
		return
	}
	gs.Advance(d*gs.Text.HorizontalScaling/100, 0)
}

// RenderMatrix maps glyph space, scaled to a unit em, onto the page.
func (gs *GraphicsState) RenderMatrix() Matrix {
	t := gs.Text
	params := Matrix{t.FontSize * t.HorizontalScaling / 100, 0, 0, t.FontSize, 0, t.Rise}
	return params.Multiply(t.Matrix).Multiply(gs.CTM)
}
