package font

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/folio/core"
)

// Encoding maps single-byte character codes of a simple font to runes.
// Decode returns 0 for codes the encoding leaves undefined.
type Encoding interface {
	Name() string
	Decode(code byte) rune
}

// DecodeString decodes every byte of data with enc, dropping undefined codes.
func DecodeString(enc Encoding, data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if r := enc.Decode(c); r != 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type charmapEncoding struct {
	name string
	cm   *charmap.Charmap
}

func (e charmapEncoding) Name() string { return e.name }

func (e charmapEncoding) Decode(code byte) rune {
	r := e.cm.DecodeByte(code)
	if r == '�' || (r < 0x20 && code >= 0x20) {
		return 0
	}
	return r
}

// tableEncoding starts from Latin-1 and overrides the codes it lists.
type tableEncoding struct {
	name      string
	overrides map[byte]rune
	latin     bool // codes 0xA0-0xFF fall back to Latin-1
}

func (e tableEncoding) Name() string { return e.name }

func (e tableEncoding) Decode(code byte) rune {
	if r, ok := e.overrides[code]; ok {
		return r
	}
	switch {
	case code >= 0x20 && code < 0x7F:
		return rune(code)
	case code >= 0xA0 && e.latin:
		return rune(code)
	}
	return 0
}

var (
	// WinAnsiEncoding is the Windows code page 1252 encoding.
	WinAnsiEncoding Encoding = charmapEncoding{name: "WinAnsiEncoding", cm: charmap.Windows1252}

	// MacRomanEncoding is the classic Mac OS Roman encoding.
	MacRomanEncoding Encoding = charmapEncoding{name: "MacRomanEncoding", cm: charmap.Macintosh}

	// StandardEncoding is the Adobe standard Latin text encoding, the
	// default for Type 1 fonts.
	StandardEncoding Encoding = tableEncoding{name: "StandardEncoding", overrides: map[byte]rune{
		0x27: '’', 0x60: '‘',
		0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '⁄', 0xA5: '¥', 0xA6: 'ƒ',
		0xA7: '§', 0xA8: '¤', 0xA9: '\'', 0xAA: '“', 0xAB: '«', 0xAC: '‹',
		0xAD: '›', 0xAE: 'ﬁ', 0xAF: 'ﬂ', 0xB1: '–', 0xB2: '†',
		0xB3: '‡', 0xB4: '·', 0xB6: '¶', 0xB7: '•', 0xB8: '‚',
		0xB9: '„', 0xBA: '”', 0xBB: '»', 0xBC: '…', 0xBD: '‰',
		0xBF: '¿', 0xC1: '`', 0xC2: '´', 0xC3: 'ˆ', 0xC4: '˜', 0xC5: '¯',
		0xC6: '˘', 0xC7: '˙', 0xC8: '¨', 0xCA: '˚', 0xCB: '¸',
		0xCD: '˝', 0xCE: '˛', 0xCF: 'ˇ', 0xD0: '—', 0xE1: 'Æ',
		0xE3: 'ª', 0xE8: 'Ł', 0xE9: 'Ø', 0xEA: 'Œ', 0xEB: 'º', 0xF1: 'æ',
		0xF5: 'ı', 0xF8: 'ł', 0xF9: 'ø', 0xFA: 'œ', 0xFB: 'ß',
	}}

	// PDFDocEncoding is the encoding of PDF text strings outside content
	// streams.
	PDFDocEncoding Encoding = tableEncoding{name: "PDFDocEncoding", latin: true, overrides: map[byte]rune{
		0x18: '˘', 0x19: 'ˇ', 0x1A: 'ˆ', 0x1B: '˙', 0x1C: '˝',
		0x1D: '˛', 0x1E: '˚', 0x1F: '˜',
		0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…', 0x84: '—',
		0x85: '–', 0x86: 'ƒ', 0x87: '⁄', 0x88: '‹', 0x89: '›',
		0x8A: '−', 0x8B: '‰', 0x8C: '„', 0x8D: '“', 0x8E: '”',
		0x8F: '‘', 0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ',
		0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š', 0x98: 'Ÿ',
		0x99: 'Ž', 0x9A: 'ı', 0x9B: 'ł', 0x9C: 'œ', 0x9D: 'š',
		0x9E: 'ž', 0xA0: '€', 0xAD: 0,
	}}
)

// GetEncoding returns the named base encoding, or nil when the name is
// not one of the predefined simple-font encodings.
func GetEncoding(name string) Encoding {
	switch name {
	case "WinAnsiEncoding":
		return WinAnsiEncoding
	case "MacRomanEncoding", "MacExpertEncoding":
		return MacRomanEncoding
	case "StandardEncoding":
		return StandardEncoding
	case "PDFDocEncoding":
		return PDFDocEncoding
	}
	return nil
}

// differencesEncoding applies a font's /Differences array on top of a
// base encoding.
type differencesEncoding struct {
	base Encoding
	diff map[byte]rune
}

func (e differencesEncoding) Name() string { return e.base.Name() + "+Differences" }

func (e differencesEncoding) Decode(code byte) rune {
	if r, ok := e.diff[code]; ok {
		return r
	}
	return e.base.Decode(code)
}

// NewDifferencesEncoding builds an encoding from a /Differences array of
// the form [code /name /name ... code /name ...]. Glyph names that cannot
// be mapped leave their code undefined.
func NewDifferencesEncoding(base Encoding, diffs core.Array) Encoding {
	if base == nil {
		base = StandardEncoding
	}
	enc := differencesEncoding{base: base, diff: make(map[byte]rune)}
	code := -1
	for _, obj := range diffs {
		switch v := obj.(type) {
		case core.Int:
			code = int(v)
		case core.Name:
			if code < 0 || code > 255 {
				continue
			}
			r, _ := GlyphToRune(string(v))
			enc.diff[byte(code)] = r
			code++
		}
	}
	return enc
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": '’',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+', "comma": ',',
	"hyphen": '-', "period": '.', "slash": '/', "colon": ':', "semicolon": ';',
	"less": '<', "equal": '=', "greater": '>', "question": '?', "at": '@',
	"bracketleft": '[', "backslash": '\\', "bracketright": ']', "asciicircum": '^',
	"underscore": '_', "grave": '`', "quoteleft": '‘', "braceleft": '{',
	"bar": '|', "braceright": '}', "asciitilde": '~',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"bullet": '•', "endash": '–', "emdash": '—', "ellipsis": '…',
	"quotedblleft": '“', "quotedblright": '”', "quotesinglbase": '‚',
	"quotedblbase": '„', "dagger": '†', "daggerdbl": '‡',
	"fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ', "ffi": 'ﬃ', "ffl": 'ﬄ',
	"trademark": '™', "copyright": '©', "registered": '®', "degree": '°',
	"section": '§', "paragraph": '¶', "minus": '−', "multiply": '×',
	"divide": '÷', "plusminus": '±', "Euro": '€', "sterling": '£', "yen": '¥',
	"cent": '¢', "periodcentered": '·', "guillemotleft": '«', "guillemotright": '»',
	"nbspace": ' ', "germandbls": 'ß', "dotlessi": 'ı',
	"aacute": 'á', "agrave": 'à', "acircumflex": 'â', "adieresis": 'ä', "atilde": 'ã',
	"aring": 'å', "ae": 'æ', "ccedilla": 'ç', "eacute": 'é', "egrave": 'è',
	"ecircumflex": 'ê', "edieresis": 'ë', "iacute": 'í', "igrave": 'ì',
	"icircumflex": 'î', "idieresis": 'ï', "ntilde": 'ñ', "oacute": 'ó', "ograve": 'ò',
	"ocircumflex": 'ô', "odieresis": 'ö', "otilde": 'õ', "oslash": 'ø', "oe": 'œ',
	"uacute": 'ú', "ugrave": 'ù', "ucircumflex": 'û', "udieresis": 'ü', "yacute": 'ý',
	"ydieresis": 'ÿ', "Aacute": 'Á', "Agrave": 'À', "Acircumflex": 'Â',
	"Adieresis": 'Ä', "Atilde": 'Ã', "Aring": 'Å', "AE": 'Æ', "Ccedilla": 'Ç',
	"Eacute": 'É', "Egrave": 'È', "Ecircumflex": 'Ê', "Edieresis": 'Ë',
	"Iacute": 'Í', "Ntilde": 'Ñ', "Oacute": 'Ó', "Odieresis": 'Ö', "Oslash": 'Ø',
	"OE": 'Œ', "Uacute": 'Ú', "Udieresis": 'Ü',
}

// GlyphToRune maps an Adobe glyph name to a rune. Besides the common
// Latin names it understands single letters, the uniXXXX and uXXXX[XX]
// forms, and suffixed variants such as "a.sc" or "one_oldstyle".
func GlyphToRune(name string) (rune, bool) {
	if i := strings.IndexAny(name, "._"); i > 0 {
		name = name[:i]
	}
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 && (name[0] >= 'A' && name[0] <= 'Z' || name[0] >= 'a' && name[0] <= 'z') {
		return rune(name[0]), true
	}
	if strings.HasPrefix(name, "uni") && len(name) >= 7 {
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	return 0, false
}
