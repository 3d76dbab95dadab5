package font

import (
	"fmt"
	"strings"

	"github.com/tsawler/folio/core"
)

// Resolver dereferences indirect objects; any other object is returned
// as it is.
type Resolver func(core.Object) (core.Object, error)

// Glyph is one decoded character code.
type Glyph struct {
	Code  uint32
	Text  string  // decoded text, "(cid:N)" when the code has no mapping
	Width float64 // horizontal advance in thousandths of text space
	Space bool    // single-byte code 32, which receives word spacing
}

// Font decodes the strings shown with one font resource.
type Font struct {
	BaseFont string
	Subtype  string

	encoding  Encoding
	toUnicode *CMap
	codes     *CMap // encoding CMap of a composite font
	composite bool
	vertical  bool

	widths       map[uint32]float64
	defaultWidth float64
	standard     map[rune]float64
	scale        float64 // glyph space to thousandths, Type 3 only
	descent      float64
}

// defaultDescent is used when a font has no descriptor, in thousandths.
const defaultDescent = -200

// Load builds a Font from a font dictionary.
func Load(dict core.Dict, resolve Resolver) (*Font, error) {
	if dict == nil {
		return nil, fmt.Errorf("font dictionary is nil")
	}
	if resolve == nil {
		resolve = func(o core.Object) (core.Object, error) { return o, nil }
	}

	f := &Font{widths: make(map[uint32]float64), scale: 1, descent: defaultDescent}
	if v, ok := dict.GetName("BaseFont"); ok {
		f.BaseFont = string(v)
	}
	if v, ok := dict.GetName("Subtype"); ok {
		f.Subtype = string(v)
	}

	if obj, err := resolve(dict.Get("ToUnicode")); err == nil {
		if stream, ok := obj.(*core.Stream); ok {
			if cm, err := ParseToUnicodeCMap(stream); err == nil {
				f.toUnicode = cm
			}
		}
	}

	if f.Subtype == "Type0" {
		return f, f.loadComposite(dict, resolve)
	}
	f.loadSimple(dict, resolve)
	return f, nil
}

func (f *Font) loadSimple(dict core.Dict, resolve Resolver) {
	switch f.Subtype {
	case "TrueType":
		f.encoding = WinAnsiEncoding
	default:
		f.encoding = StandardEncoding
	}
	if strings.HasPrefix(stripSubset(f.BaseFont), "Symbol") || strings.HasPrefix(stripSubset(f.BaseFont), "ZapfDingbats") {
		f.encoding = tableEncoding{name: "Builtin"}
	}

	encObj, _ := resolve(dict.Get("Encoding"))
	switch enc := encObj.(type) {
	case core.Name:
		if e := GetEncoding(string(enc)); e != nil {
			f.encoding = e
		}
	case core.Dict:
		base := f.encoding
		if name, ok := enc.GetName("BaseEncoding"); ok {
			if e := GetEncoding(string(name)); e != nil {
				base = e
			}
		}
		diffs, _ := resolve(enc.Get("Differences"))
		if arr, ok := diffs.(core.Array); ok {
			f.encoding = NewDifferencesEncoding(base, arr)
		} else {
			f.encoding = base
		}
	}

	if f.Subtype == "Type3" {
		if m, ok := dict.GetArray("FontMatrix"); ok && len(m) > 0 {
			f.scale = number(m[0]) * 1000
		}
	}

	first := 0
	if v, ok := dict.GetInt("FirstChar"); ok {
		first = int(v)
	}
	widthsObj, _ := resolve(dict.Get("Widths"))
	if arr, ok := widthsObj.(core.Array); ok {
		for i, w := range arr {
			w, _ = resolve(w)
			f.widths[uint32(first+i)] = number(w) * f.scale
		}
	}

	descObj, _ := resolve(dict.Get("FontDescriptor"))
	if desc, ok := descObj.(core.Dict); ok {
		f.defaultWidth = number(desc.Get("MissingWidth")) * f.scale
		f.readDescent(desc, resolve)
	}

	if len(f.widths) == 0 {
		f.standard = standardFonts[stripSubset(f.BaseFont)]
		if f.standard == nil {
			f.standard = helvetica
		}
	}
}

func (f *Font) loadComposite(dict core.Dict, resolve Resolver) error {
	f.composite = true
	f.defaultWidth = 1000

	encObj, _ := resolve(dict.Get("Encoding"))
	switch enc := encObj.(type) {
	case core.Name:
		f.vertical = strings.HasSuffix(string(enc), "-V")
	case *core.Stream:
		cm, err := ParseToUnicodeCMap(enc)
		if err != nil {
			return fmt.Errorf("font %s: encoding cmap: %w", f.BaseFont, err)
		}
		f.codes = cm
		f.vertical = cm.Vertical()
	}

	descendants, _ := resolve(dict.Get("DescendantFonts"))
	arr, ok := descendants.(core.Array)
	if !ok || len(arr) == 0 {
		return nil
	}
	descObj, err := resolve(arr[0])
	if err != nil {
		return fmt.Errorf("font %s: descendant font: %w", f.BaseFont, err)
	}
	desc, ok := descObj.(core.Dict)
	if !ok {
		return nil
	}

	if fd, _ := resolve(desc.Get("FontDescriptor")); fd != nil {
		if fd, ok := fd.(core.Dict); ok {
			f.readDescent(fd, resolve)
		}
	}
	if dw := desc.Get("DW"); dw != nil {
		f.defaultWidth = number(dw)
	}
	wObj, _ := resolve(desc.Get("W"))
	if w, ok := wObj.(core.Array); ok {
		f.parseCIDWidths(w, resolve)
	}
	return nil
}

// parseCIDWidths reads a /W array made of "c [w1 w2 ...]" and
// "cfirst clast w" groups.
func (f *Font) parseCIDWidths(w core.Array, resolve Resolver) {
	for i := 0; i < len(w); {
		start := uint32(number(w[i]))
		if i+1 >= len(w) {
			return
		}
		next, _ := resolve(w[i+1])
		if list, ok := next.(core.Array); ok {
			for j, v := range list {
				f.widths[start+uint32(j)] = number(v)
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			return
		}
		end := uint32(number(next))
		width := number(w[i+2])
		for c := start; c <= end && c-start < 0xFFFF; c++ {
			f.widths[c] = width
		}
		i += 3
	}
}

// Decode splits data into character codes and decodes each of them.
func (f *Font) Decode(data []byte) []Glyph {
	glyphs := make([]Glyph, 0, len(data))
	for len(data) > 0 {
		var code uint32
		var n int
		if f.composite {
			code, n = f.codes.NextCode(data, 2)
		} else {
			code, n = uint32(data[0]), 1
		}
		data = data[n:]

		g := Glyph{Code: code, Space: !f.composite && code == 32}
		if s, ok := f.toUnicode.Lookup(code); ok {
			g.Text = s
		} else if !f.composite && f.encoding != nil {
			if r := f.encoding.Decode(byte(code)); r != 0 {
				g.Text = string(r)
			}
		}
		if g.Text == "" {
			g.Text = fmt.Sprintf("(cid:%d)", code)
		}
		g.Width = f.width(code, g.Text)
		glyphs = append(glyphs, g)
	}
	return glyphs
}

func (f *Font) width(code uint32, text string) float64 {
	if w, ok := f.widths[code]; ok {
		return w
	}
	if f.standard != nil {
		for _, r := range text {
			if w, ok := f.standard[r]; ok {
				return w
			}
			break
		}
		return 500
	}
	return f.defaultWidth
}

func (f *Font) readDescent(desc core.Dict, resolve Resolver) {
	d, _ := resolve(desc.Get("Descent"))
	if v := number(d); v < 0 && v > -1000 {
		f.descent = v
	}
}

// Descent returns how far glyphs reach below the baseline, as a negative
// fraction of the em.
func (f *Font) Descent() float64 {
	return f.descent / 1000
}

// IsVertical reports whether the font uses vertical writing mode.
func (f *Font) IsVertical() bool {
	return f.vertical
}

// Composite reports whether the font is a Type 0 font with multi-byte codes.
func (f *Font) Composite() bool {
	return f.composite
}

// stripSubset removes the "ABCDEF+" prefix of an embedded subset name.
func stripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' {
		return name[7:]
	}
	return name
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
