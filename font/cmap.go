package font

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf16"

	"github.com/tsawler/folio/core"
)

// CMap maps character codes to Unicode text. The same type also carries
// the codespace ranges of an embedded encoding CMap, which decide how many
// bytes each code of a composite font occupies.
type CMap struct {
	codespaces []codespace
	chars      map[uint32]string
	ranges     []CMapRange
	wmode      int
}

// CMapRange maps a contiguous run of codes to consecutive text. The last
// rune of Start is incremented by the code's offset in the run.
type CMapRange struct {
	StartCode uint32
	EndCode   uint32
	Start     []rune
}

type codespace struct {
	low, high uint32
	size      int
}

// NewCMap creates a new empty CMap
func NewCMap() *CMap {
	return &CMap{chars: make(map[uint32]string)}
}

// ParseToUnicodeCMap decodes and parses a CMap stream.
func ParseToUnicodeCMap(stream *core.Stream) (*CMap, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream: %w", err)
	}
	return ParseCMap(data), nil
}

// ParseCMap reads the codespace, bfchar, bfrange and WMode entries of a
// CMap program. Malformed sections are skipped.
func ParseCMap(data []byte) *CMap {
	cm := NewCMap()
	toks := tokenizeCMap(data)

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.kind == cmapName && t.text == "WMode" && i+1 < len(toks):
			if n, err := strconv.Atoi(toks[i+1].text); err == nil {
				cm.wmode = n
			}
		case t.kind == cmapKeyword && t.text == "begincodespacerange":
			i = cm.parseCodespaces(toks, i+1)
		case t.kind == cmapKeyword && t.text == "beginbfchar":
			i = cm.parseBfChar(toks, i+1)
		case t.kind == cmapKeyword && t.text == "beginbfrange":
			i = cm.parseBfRange(toks, i+1)
		}
	}
	return cm
}

func (cm *CMap) parseCodespaces(toks []cmapToken, i int) int {
	for ; i+1 < len(toks) && toks[i].kind == cmapHex; i += 2 {
		low, ok1 := toks[i].code()
		high, ok2 := toks[i+1].code()
		if ok1 && ok2 {
			cm.codespaces = append(cm.codespaces, codespace{low: low, high: high, size: len(toks[i].data)})
		}
	}
	return i
}

func (cm *CMap) parseBfChar(toks []cmapToken, i int) int {
	for ; i+1 < len(toks) && toks[i].kind == cmapHex; i += 2 {
		src, ok := toks[i].code()
		if !ok {
			continue
		}
		switch dst := toks[i+1]; dst.kind {
		case cmapHex:
			cm.chars[src] = decodeUTF16BE(dst.data)
		case cmapName:
			if r, ok := GlyphToRune(dst.text); ok {
				cm.chars[src] = string(r)
			}
		}
	}
	return i
}

func (cm *CMap) parseBfRange(toks []cmapToken, i int) int {
	for i+2 < len(toks) && toks[i].kind == cmapHex {
		lo, ok1 := toks[i].code()
		hi, ok2 := toks[i+1].code()
		dst := toks[i+2]
		i += 3

		if dst.kind == cmapArrayStart {
			code := lo
			for ; i < len(toks) && toks[i].kind != cmapArrayEnd; i++ {
				if toks[i].kind == cmapHex && ok1 && code <= hi {
					cm.chars[code] = decodeUTF16BE(toks[i].data)
				}
				code++
			}
			i++ // ]
			continue
		}
		if !ok1 || !ok2 || dst.kind != cmapHex || hi < lo {
			continue
		}
		start := []rune(decodeUTF16BE(dst.data))
		if len(start) == 0 {
			continue
		}
		cm.ranges = append(cm.ranges, CMapRange{StartCode: lo, EndCode: hi, Start: start})
	}
	return i
}

// Lookup returns the text mapped to code.
func (cm *CMap) Lookup(code uint32) (string, bool) {
	if cm == nil {
		return "", false
	}
	if s, ok := cm.chars[code]; ok {
		return s, true
	}
	for _, r := range cm.ranges {
		if code >= r.StartCode && code <= r.EndCode {
			out := make([]rune, len(r.Start))
			copy(out, r.Start)
			out[len(out)-1] += rune(code - r.StartCode)
			return string(out), true
		}
	}
	return "", false
}

// Vertical reports whether the CMap declares vertical writing mode.
func (cm *CMap) Vertical() bool {
	return cm != nil && cm.wmode == 1
}

// NextCode reads the code at the start of data. Without codespace ranges
// codes are fallback bytes wide.
func (cm *CMap) NextCode(data []byte, fallback int) (uint32, int) {
	if cm != nil && len(cm.codespaces) > 0 {
		for n := 1; n <= 4 && n <= len(data); n++ {
			code := readCode(data[:n])
			for _, cs := range cm.codespaces {
				if cs.size == n && code >= cs.low && code <= cs.high {
					return code, n
				}
			}
		}
		// not in any range: consume the shortest declared width
		n := cm.codespaces[0].size
		for _, cs := range cm.codespaces[1:] {
			if cs.size < n {
				n = cs.size
			}
		}
		if n > len(data) {
			n = len(data)
		}
		return readCode(data[:n]), n
	}

	n := fallback
	if n > len(data) {
		n = len(data)
	}
	return readCode(data[:n]), n
}

func readCode(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func decodeUTF16BE(data []byte) string {
	if len(data) == 1 {
		return string(rune(data[0]))
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	if len(units) > 0 && units[0] == 0xFEFF {
		units = units[1:]
	}
	return string(utf16.Decode(units))
}

type cmapTokenKind int

const (
	cmapKeyword cmapTokenKind = iota
	cmapHex
	cmapName
	cmapArrayStart
	cmapArrayEnd
	cmapOther
)

type cmapToken struct {
	kind cmapTokenKind
	text string
	data []byte // decoded bytes of a hex string
}

func (t cmapToken) code() (uint32, bool) {
	if t.kind != cmapHex || len(t.data) == 0 || len(t.data) > 4 {
		return 0, false
	}
	return readCode(t.data), true
}

// tokenizeCMap splits a CMap program into the few token kinds the parser
// needs. Dictionaries are reduced to cmapOther tokens and bytes the
// scanner rejects are skipped.
func tokenizeCMap(data []byte) []cmapToken {
	var toks []cmapToken
	sc := core.NewScanner(data)
	for {
		tok, err := sc.Next()
		if errors.Is(err, io.EOF) {
			return toks
		}
		var syntax *core.SyntaxError
		if errors.As(err, &syntax) {
			sc.Seek(syntax.Pos + 1)
			continue
		}
		if err != nil {
			return toks
		}

		switch tok.Kind {
		case core.TokenString:
			toks = append(toks, cmapToken{kind: cmapHex, data: tok.Text})
		case core.TokenName:
			toks = append(toks, cmapToken{kind: cmapName, text: string(tok.Text)})
		case core.TokenArrayStart:
			toks = append(toks, cmapToken{kind: cmapArrayStart})
		case core.TokenArrayEnd:
			toks = append(toks, cmapToken{kind: cmapArrayEnd})
		case core.TokenDictStart, core.TokenDictEnd:
			toks = append(toks, cmapToken{kind: cmapOther})
		default:
			toks = append(toks, cmapToken{kind: cmapKeyword, text: string(tok.Text)})
		}
	}
}
