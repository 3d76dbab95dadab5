package pdftext

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/contentstream"
	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/font"
	"github.com/tsawler/folio/graphicsstate"
)

// maxFormDepth bounds nested form XObjects.
const maxFormDepth = 8

// char is a shown glyph in display space: points from the top-left corner
// of the visible page, y growing downwards.
type char struct {
	text                string
	x0, top, x1, bottom float64
	vertical            bool
	font                string
}

// Resolver is the part of reader.Reader the interpreter needs.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// interpreter runs the content streams of one page and records glyphs and
// painted paths.
type interpreter struct {
	resolver Resolver
	logger   zerolog.Logger

	gs    *graphicsstate.GraphicsState
	path  graphicsstate.Path
	font  *font.Font
	fonts map[int]*font.Font // by object number of the font dictionary

	chars []char
	depth int
}

func newInterpreter(resolver Resolver, base graphicsstate.Matrix, logger zerolog.Logger) *interpreter {
	return &interpreter{
		resolver: resolver,
		logger:   logger,
		gs:       graphicsstate.NewGraphicsState(base),
		fonts:    make(map[int]*font.Font),
	}
}

// fallbackFont stands in when a text operator runs before any usable Tf.
var fallbackFont, _ = font.Load(core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name("Helvetica")}, nil)

// run executes a content stream with the given resources. Parse errors
// end the stream but keep what was drawn before them.
func (in *interpreter) run(data []byte, resources core.Dict) {
	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		in.logger.Debug().Err(err).Int("operations", len(ops)).Msg("content stream truncated")
	}
	for _, op := range ops {
		if err := in.exec(op, resources); err != nil {
			in.logger.Debug().Err(err).Str("operator", op.Operator).Msg("operator skipped")
		}
	}
}

func (in *interpreter) exec(op contentstream.Operation, resources core.Dict) error {
	gs := in.gs
	args := op.Operands
	switch op.Operator {
	case "q":
		gs.Save()
	case "Q":
		return gs.Restore()
	case "cm":
		m, ok := matrixOf(args)
		if !ok {
			return errOperands
		}
		gs.Concat(m)
	case "w":
		if v, ok := numbers(args, 1); ok {
			gs.LineWidth = v[0]
		}

	case "BT":
		gs.BeginText()
	case "ET":
	case "Tf":
		if len(args) != 2 {
			return errOperands
		}
		name, _ := args[0].(core.Name)
		gs.Text.FontSize = number(args[1])
		gs.Text.FontName = string(name)
		in.font = in.loadFont(resources, string(name))
	case "Tc":
		if v, ok := numbers(args, 1); ok {
			gs.Text.CharSpacing = v[0]
		}
	case "Tw":
		if v, ok := numbers(args, 1); ok {
			gs.Text.WordSpacing = v[0]
		}
	case "Tz":
		if v, ok := numbers(args, 1); ok {
			gs.Text.HorizontalScaling = v[0]
		}
	case "TL":
		if v, ok := numbers(args, 1); ok {
			gs.Text.Leading = v[0]
		}
	case "Ts":
		if v, ok := numbers(args, 1); ok {
			gs.Text.Rise = v[0]
		}
	case "Tr":
		if v, ok := numbers(args, 1); ok {
			gs.Text.RenderingMode = int(v[0])
		}
	case "Td", "TD":
		v, ok := numbers(args, 2)
		if !ok {
			return errOperands
		}
		if op.Operator == "TD" {
			gs.MoveTextSetLeading(v[0], v[1])
		} else {
			gs.MoveText(v[0], v[1])
		}
	case "Tm":
		m, ok := matrixOf(args)
		if !ok {
			return errOperands
		}
		gs.SetTextMatrix(m)
	case "T*":
		gs.NextLine()
	case "Tj":
		if len(args) != 1 {
			return errOperands
		}
		in.show(stringBytes(args[0]))
	case "'":
		if len(args) != 1 {
			return errOperands
		}
		gs.NextLine()
		in.show(stringBytes(args[0]))
	case "\"":
		if len(args) != 3 {
			return errOperands
		}
		v, ok := numbers(args[:2], 2)
		if !ok {
			return errOperands
		}
		gs.Text.WordSpacing, gs.Text.CharSpacing = v[0], v[1]
		gs.NextLine()
		in.show(stringBytes(args[2]))
	case "TJ":
		if len(args) != 1 {
			return errOperands
		}
		arr, ok := args[0].(core.Array)
		if !ok {
			return errOperands
		}
		vertical := in.currentFont().IsVertical()
		for _, item := range arr {
			switch v := item.(type) {
			case core.String:
				in.show([]byte(v))
			case core.Int, core.Real:
				gs.Kern(number(v), vertical)
			}
		}

	case "m", "l":
		v, ok := numbers(args, 2)
		if !ok {
			return errOperands
		}
		if op.Operator == "m" {
			in.path.MoveTo(gs.CTM, v[0], v[1])
		} else {
			in.path.LineTo(gs.CTM, v[0], v[1])
		}
	case "c":
		if v, ok := numbers(args, 6); ok {
			in.path.CurveTo(gs.CTM, v[4], v[5])
		}
	case "v", "y":
		if v, ok := numbers(args, 4); ok {
			in.path.CurveTo(gs.CTM, v[2], v[3])
		}
	case "h":
		in.path.Close()
	case "re":
		v, ok := numbers(args, 4)
		if !ok {
			return errOperands
		}
		in.path.Rectangle(gs.CTM, v[0], v[1], v[2], v[3])
	case "S":
		in.path.Stroke(in.lineWidth())
	case "s":
		in.path.Close()
		in.path.Stroke(in.lineWidth())
	case "f", "F", "f*":
		in.path.Fill()
	case "B", "B*":
		in.path.FillStroke(in.lineWidth())
	case "b", "b*":
		in.path.Close()
		in.path.FillStroke(in.lineWidth())
	case "n":
		in.path.End()

	case "Do":
		if len(args) != 1 {
			return errOperands
		}
		name, _ := args[0].(core.Name)
		return in.doXObject(resources, string(name))
	}
	return nil
}

var errOperands = fmt.Errorf("wrong operands")

func (in *interpreter) currentFont() *font.Font {
	if in.font != nil {
		return in.font
	}
	return fallbackFont
}

// lineWidth converts the stroke width to display space. A zero width is
// the thinnest line the device can draw.
func (in *interpreter) lineWidth() float64 {
	return in.gs.LineWidth * in.gs.CTM.ScaleY()
}

// show decodes a string with the current font and records its glyphs.
func (in *interpreter) show(data []byte) {
	f := in.currentFont()
	gs := in.gs
	name := f.BaseFont
	if name == "" {
		name = gs.Text.FontName
	}

	for _, g := range f.Decode(data) {
		rm := gs.RenderMatrix()
		if f.IsVertical() {
			in.addChar(g.Text, name, true, rm, -0.5, -1, 0.5, 0)
			gs.Advance(0, -gs.GlyphAdvanceVertical(1000, g.Space))
			continue
		}
		w := g.Width / 1000
		dx, dy := rm.ApplyVector(1, 0)
		upright := dx > 0 && math.Abs(dy) <= 0.01*dx
		in.addChar(g.Text, name, !upright, rm, 0, f.Descent(), w, f.Descent()+1)
		gs.Advance(gs.GlyphAdvance(g.Width, g.Space), 0)
	}
}

func (in *interpreter) addChar(text, fontName string, vertical bool, rm graphicsstate.Matrix, x0, y0, x1, y1 float64) {
	c := char{
		text:     text,
		vertical: vertical,
		font:     fontName,
		x0:       math.Inf(1),
		top:      math.Inf(1),
		x1:       math.Inf(-1),
		bottom:   math.Inf(-1),
	}
	for _, p := range [4][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}} {
		x, y := rm.Apply(p[0], p[1])
		c.x0, c.x1 = math.Min(c.x0, x), math.Max(c.x1, x)
		c.top, c.bottom = math.Min(c.top, y), math.Max(c.bottom, y)
	}
	in.chars = append(in.chars, c)
}

func (in *interpreter) loadFont(resources core.Dict, name string) *font.Font {
	fonts, _ := in.resolver.Resolve(resources.Get("Font"))
	dict, ok := fonts.(core.Dict)
	if !ok {
		return nil
	}
	entry := dict.Get(name)
	ref, isRef := entry.(core.IndirectRef)
	if isRef {
		if f, ok := in.fonts[ref.Number]; ok {
			return f
		}
	}

	obj, err := in.resolver.Resolve(entry)
	if err != nil {
		in.logger.Debug().Err(err).Str("font", name).Msg("font not resolved")
		return nil
	}
	fontDict, ok := obj.(core.Dict)
	if !ok {
		return nil
	}
	f, err := font.Load(fontDict, in.resolver.Resolve)
	if err != nil {
		in.logger.Debug().Err(err).Str("font", name).Msg("font not loaded")
		return nil
	}
	if isRef {
		in.fonts[ref.Number] = f
	}
	return f
}

// doXObject runs a form XObject. Images are ignored: they carry no text
// and scanned pages are handled by the image extractors.
func (in *interpreter) doXObject(resources core.Dict, name string) error {
	xobjects, _ := in.resolver.Resolve(resources.Get("XObject"))
	dict, ok := xobjects.(core.Dict)
	if !ok {
		return fmt.Errorf("no XObject resources for %s", name)
	}
	obj, err := in.resolver.Resolve(dict.Get(name))
	if err != nil {
		return err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return fmt.Errorf("XObject %s is %T", name, obj)
	}
	if subtype, _ := stream.Dict.GetName("Subtype"); subtype != "Form" {
		return nil
	}
	if in.depth >= maxFormDepth {
		return fmt.Errorf("form XObjects nested deeper than %d", maxFormDepth)
	}

	data, err := stream.Decode()
	if err != nil {
		return fmt.Errorf("form %s: %w", name, err)
	}
	formResources := resources
	if res, _ := in.resolver.Resolve(stream.Dict.Get("Resources")); res != nil {
		if d, ok := res.(core.Dict); ok {
			formResources = d
		}
	}

	outer := in.gs.Depth()
	in.gs.Save()
	savedFont := in.font
	if mobj, _ := in.resolver.Resolve(stream.Dict.Get("Matrix")); mobj != nil {
		if arr, ok := mobj.(core.Array); ok {
			if m, ok := matrixOf(arr); ok {
				in.gs.Concat(m)
			}
		}
	}
	in.depth++
	in.run(data, formResources)
	in.depth--
	in.font = savedFont
	// an unbalanced q inside the form must not leak out of it
	for in.gs.Depth() > outer {
		if err := in.gs.Restore(); err != nil {
			break
		}
	}
	return nil
}

func number(obj core.Object) float64 {
	switch v := obj.(type) {
	case core.Int:
		return float64(v)
	case core.Real:
		return float64(v)
	}
	return 0
}

// numbers converts exactly n numeric operands.
func numbers(args []core.Object, n int) ([]float64, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, a := range args {
		switch a.(type) {
		case core.Int, core.Real:
			out[i] = number(a)
		default:
			return nil, false
		}
	}
	return out, true
}

func matrixOf(args []core.Object) (graphicsstate.Matrix, bool) {
	v, ok := numbers(args, 6)
	if !ok {
		return graphicsstate.Matrix{}, false
	}
	return graphicsstate.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

func stringBytes(obj core.Object) []byte {
	switch v := obj.(type) {
	case core.String:
		return []byte(v)
	case core.Name:
		return []byte(v)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
