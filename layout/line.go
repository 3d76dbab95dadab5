package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// LineMethod selects how words are grouped into lines
type LineMethod int

const (
	// LineMethodBBox groups words whose vertical extent matches a line's
	// running average
	LineMethodBBox LineMethod = iota
	// LineMethodOCROrder walks words in OCR emission order and breaks on
	// wraps, vertical jumps and orientation changes
	LineMethodOCROrder
)

// String returns a string representation of the method
func (m LineMethod) String() string {
	switch m {
	case LineMethodOCROrder:
		return "ocr_order"
	default:
		return "bbox"
	}
}

// ParseLineMethod returns the method for its name
func ParseLineMethod(s string) (LineMethod, error) {
	switch s {
	case "bbox", "":
		return LineMethodBBox, nil
	case "ocr_order":
		return LineMethodOCROrder, nil
	}
	return LineMethodBBox, fmt.Errorf("layout: unknown line method %q", s)
}

// MarshalText encodes the method by name
func (m LineMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a method name
func (m *LineMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseLineMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// LineConfig holds configuration for line building
type LineConfig struct {
	// Method selects the grouping strategy
	// Default: LineMethodBBox
	Method LineMethod `yaml:"method"`

	// WordInLine is the fraction of a word's height (width for vertical text)
	// that must overlap a line for the word to join it
	// Default: 0.6
	WordInLine float64 `yaml:"word_in_line"`
}

// DefaultLineConfig returns sensible default configuration
func DefaultLineConfig() LineConfig {
	return LineConfig{
		Method:     LineMethodBBox,
		WordInLine: 0.6,
	}
}

// LineBuilder groups OCR words into lines
type LineBuilder struct {
	config LineConfig
	log    zerolog.Logger
}

// NewLineBuilder creates a line builder with default configuration
func NewLineBuilder() *LineBuilder {
	return NewLineBuilderWithConfig(DefaultLineConfig())
}

// NewLineBuilderWithConfig creates a line builder with custom configuration
func NewLineBuilderWithConfig(config LineConfig) *LineBuilder {
	return &LineBuilder{
		config: config,
		log:    logger.WithComponent("layout"),
	}
}

// WithLogger replaces the builder's logger
func (b *LineBuilder) WithLogger(l zerolog.Logger) *LineBuilder {
	b.log = l
	return b
}

// Build turns a layout of words into a layout of lines. Visual elements pass
// through unchanged. columns, when non-nil, holds the column separators per
// page: a word never joins a line across a separator.
func (b *LineBuilder) Build(words *model.Layout, columns [][]model.Column) *model.Layout {
	var out *model.Layout
	if b.config.Method == LineMethodOCROrder {
		out = b.buildFromOCROrder(words)
	} else {
		out = b.buildFromBBox(words, columns)
	}
	for _, e := range out.Elements {
		if line, ok := e.(*model.Line); ok {
			if pair := line.Inconsistent(); pair != nil {
				b.log.Warn().Int("page", line.Page).Str("first", pair[0].Content).Str("second", pair[1].Content).
					Msg("line holds words that do not share its extent")
			}
		}
	}
	return out
}

func (b *LineBuilder) buildFromBBox(words *model.Layout, columns [][]model.Column) *model.Layout {
	var groups [][]*model.Word
	var visuals []model.Element
	for page, elements := range words.Pages() {
		var horizontal, vertical [][]*model.Word
		pageColumns := columnsOnPage(columns, page)
		for _, e := range elements {
			w, ok := e.(*model.Word)
			if !ok {
				if e.Type() == model.ElementTypeVisual {
					visuals = append(visuals, e)
				}
				continue
			}
			if w.Metadata.Vertical {
				if !b.joinLine(vertical, w, pageColumns, columns != nil, true) {
					vertical = append(vertical, []*model.Word{w})
				}
			} else if !b.joinLine(horizontal, w, pageColumns, columns != nil, false) {
				horizontal = append(horizontal, []*model.Word{w})
			}
		}
		groups = append(groups, horizontal...)
		groups = append(groups, vertical...)
	}

	out := &model.Layout{}
	for _, group := range groups {
		if line := newLine(group); line != nil {
			out.Append(line)
		}
	}
	out.Append(visuals...)
	return out.SortByBBox()
}

// joinLine appends w to the first group it matches, reporting success
func (b *LineBuilder) joinLine(groups [][]*model.Word, w *model.Word, columns []model.Column, useColumns, vertical bool) bool {
	for i, group := range groups {
		if !matchAverageInterval(group, w, b.config.WordInLine, vertical) {
			continue
		}
		if useColumns && !noColumnsBetweenWordAndLine(group, w, columns) {
			continue
		}
		groups[i] = append(group, w)
		return true
	}
	return false
}

// matchAverageInterval reports whether w overlaps the group's average y
// extent (x extent when vertical) by more than threshold of its own size.
func matchAverageInterval(group []*model.Word, w *model.Word, threshold float64, vertical bool) bool {
	var lo, hi float64
	for _, g := range group {
		if vertical {
			lo += g.X0
			hi += g.X1
		} else {
			lo += g.Y0
			hi += g.Y1
		}
	}
	n := float64(len(group))
	lo, hi = lo/n, hi/n

	start, end := w.Y0, w.Y1
	if vertical {
		start, end = w.X0, w.X1
	}
	if start > hi || lo > end {
		return false
	}
	overlap := math.Min(hi, end) - math.Max(lo, start)
	return overlap/(end-start) > threshold
}

func noColumnsBetweenWordAndLine(group []*model.Word, w *model.Word, columns []model.Column) bool {
	for _, g := range group {
		left, right := model.Element(w), model.Element(g)
		if g.X0 < w.X0 {
			left, right = right, left
		}
		if !noColumnsBetween(left.BoundingBox(), right.BoundingBox(), columns) {
			return false
		}
	}
	return true
}

// newLine builds a line spanning its words, sorted by x0
func newLine(words []*model.Word) *model.Line {
	if len(words) == 0 {
		return nil
	}
	sorted := append([]*model.Word(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X0 < sorted[j].X0 })

	bbox := sorted[0].BBox
	for _, w := range sorted[1:] {
		bbox = bbox.Union(w.BBox)
	}
	base, ok := model.NewBase(bbox.X0, bbox.Y0, bbox.X1, bbox.Y1, words[0].Page)
	if !ok {
		return nil
	}
	base.Metadata.Extractor = words[0].Metadata.Extractor
	return &model.Line{Base: base, Words: sorted}
}

// sameOCRLine reports whether w stays within prev's extent widened by
// threshold on both sides, along y (x for vertical words).
func sameOCRLine(w, prev *model.Word, threshold float64) bool {
	if w.Metadata.Vertical {
		width := prev.X1 - prev.X0
		return !(w.X0 > prev.X0+width*threshold || w.X1 < prev.X1-width*threshold)
	}
	height := prev.Y1 - prev.Y0
	return !(w.Y0 > prev.Y0+height*threshold || w.Y1 < prev.Y1-height*threshold)
}

func (b *LineBuilder) buildFromOCROrder(words *model.Layout) *model.Layout {
	out := &model.Layout{}
	for _, elements := range words.Pages() {
		var current []*model.Word
		var prev *model.Word
		flush := func() {
			if line := newLineInOrder(current); line != nil {
				out.Append(line)
			}
			current = nil
		}
		for _, e := range elements {
			w, ok := e.(*model.Word)
			if !ok {
				if e.Type() == model.ElementTypeVisual {
					out.Append(e)
				}
				continue
			}
			if prev != nil && (w.X1 < prev.X0 ||
				!sameOCRLine(w, prev, b.config.WordInLine) ||
				w.Metadata.Vertical != prev.Metadata.Vertical) {
				flush()
			}
			current = append(current, w)
			prev = w
		}
		flush()
	}
	return out
}

// newLineInOrder builds a line keeping the words in emission order
func newLineInOrder(words []*model.Word) *model.Line {
	if len(words) == 0 {
		return nil
	}
	bbox := words[0].BBox
	for _, w := range words[1:] {
		bbox = bbox.Union(w.BBox)
	}
	base, ok := model.NewBase(bbox.X0, bbox.Y0, bbox.X1, bbox.Y1, words[0].Page)
	if !ok {
		return nil
	}
	base.Metadata.Extractor = words[0].Metadata.Extractor
	return &model.Line{Base: base, Words: words}
}

// WordLines returns the words of an OCR layout grouped by line. A layout of
// words yields a single group holding every word.
func WordLines(ocr []model.Element) [][]*model.Word {
	var words []*model.Word
	var lines [][]*model.Word
	for _, e := range ocr {
		switch el := e.(type) {
		case *model.Word:
			words = append(words, el)
		case *model.Line:
			lines = append(lines, el.Words)
		}
	}
	if len(words) > 0 {
		return [][]*model.Word{words}
	}
	return lines
}
