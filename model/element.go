package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ElementType represents the type of a layout element
type ElementType int

const (
	ElementTypeUnknown ElementType = iota
	ElementTypeWord
	ElementTypeLine
	ElementTypeCell
	ElementTypeTable
	ElementTypeTableContent
	ElementTypeText
	ElementTypeList
	ElementTypeTitle
	ElementTypeExtra
	ElementTypeHeader
	ElementTypeFooter
	ElementTypeImage
	ElementTypeVisual
)

var elementTypeNames = map[ElementType]string{
	ElementTypeWord:         "word",
	ElementTypeLine:         "line",
	ElementTypeCell:         "cell",
	ElementTypeTable:        "table",
	ElementTypeTableContent: "tableContent",
	ElementTypeText:         "text",
	ElementTypeList:         "list",
	ElementTypeTitle:        "title",
	ElementTypeExtra:        "extra",
	ElementTypeHeader:       "header",
	ElementTypeFooter:       "footer",
	ElementTypeImage:        "image",
	ElementTypeVisual:       "visualElement",
}

func (et ElementType) String() string {
	if name, ok := elementTypeNames[et]; ok {
		return name
	}
	return "unknown"
}

// ParseElementType returns the element type for its serialized name
func ParseElementType(s string) (ElementType, error) {
	for et, name := range elementTypeNames {
		if name == s {
			return et, nil
		}
	}
	return ElementTypeUnknown, fmt.Errorf("model: unknown element type %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (et ElementType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (et *ElementType) UnmarshalText(b []byte) error {
	parsed, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*et = parsed
	return nil
}

// IsParagraph reports whether the type is one of the word-carrying
// structural variants (text, list, title, extra, header, footer, image).
func (et ElementType) IsParagraph() bool {
	switch et {
	case ElementTypeText, ElementTypeList, ElementTypeTitle, ElementTypeExtra,
		ElementTypeHeader, ElementTypeFooter, ElementTypeImage:
		return true
	}
	return false
}

// IsExtra reports whether the type is an extra or one of its header/footer
// refinements.
func (et ElementType) IsExtra() bool {
	return et == ElementTypeExtra || et == ElementTypeHeader || et == ElementTypeFooter
}

// IsTable reports whether the type is a detected table or a populated one
func (et ElementType) IsTable() bool {
	return et == ElementTypeTable || et == ElementTypeTableContent
}

// Extractor identifies which collaborator produced an element
type Extractor int

const (
	ExtractorUnknown Extractor = iota
	ExtractorTesseract
	ExtractorVision
	ExtractorDetectron2
	ExtractorYOLO
	ExtractorTATR
	ExtractorDocumentAI
	ExtractorRecords
	ExtractorPDFText
)

var extractorNames = map[Extractor]string{
	ExtractorTesseract:  "tesseract",
	ExtractorVision:     "vision",
	ExtractorDetectron2: "detectron2",
	ExtractorYOLO:       "yolov10",
	ExtractorTATR:       "tatr",
	ExtractorDocumentAI: "documentai",
	ExtractorRecords:    "records",
	ExtractorPDFText:    "pdftext",
}

func (e Extractor) String() string {
	if name, ok := extractorNames[e]; ok {
		return name
	}
	return ""
}

// ParseExtractor returns the extractor for its serialized name
func ParseExtractor(s string) (Extractor, error) {
	if s == "" {
		return ExtractorUnknown, nil
	}
	for e, name := range extractorNames {
		if name == s {
			return e, nil
		}
	}
	return ExtractorUnknown, fmt.Errorf("model: unknown extractor %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (e Extractor) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Extractor) UnmarshalText(b []byte) error {
	parsed, err := ParseExtractor(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Metadata holds the annotations later stages attach to an element.
// The set of keys is closed; zero values mean "not set".
type Metadata struct {
	Confidence float64   `json:"confidence,omitempty"`
	Label      string    `json:"label,omitempty"`
	Extractor  Extractor `json:"extractor,omitempty"`
	Inferred   bool      `json:"inferred,omitempty"`
	Vertical   bool      `json:"vertical,omitempty"`
	FontName   string    `json:"fontname,omitempty"`
	ID         string    `json:"id,omitempty"`

	// Pages and BBoxes are set together when elements from several pages
	// are merged; both have the same length.
	Pages  []int  `json:"pages,omitempty"`
	BBoxes []BBox `json:"bboxes,omitempty"`

	// Columns caches the gutters found below the element by column detection.
	Columns []Column `json:"columns,omitempty"`
	// ExtendedX widens a title horizontally for column detection only.
	ExtendedX *Interval `json:"extended_x,omitempty"`

	// ItemIdx and DescIdx split list content into items and descriptions.
	ItemIdx     []int `json:"item_idx,omitempty"`
	DescIdx     []int `json:"desc_idx,omitempty"`
	ListIndexed bool  `json:"-"`

	// Image holds the PNG crop of an image element awaiting transcription.
	Image []byte `json:"-"`
}

// Element is the interface for everything a Layout can hold
type Element interface {
	Type() ElementType
	BoundingBox() BBox
	PageIndex() int
	SetPage(page int)
	Meta() *Metadata
}

// Base carries the fields shared by every element
type Base struct {
	BBox
	Page     int      `json:"page"`
	Metadata Metadata `json:"metadata"`
}

// NewBase creates a Base, returning false when the box is invalid
func NewBase(x0, y0, x1, y1 float64, page int) (Base, bool) {
	b, ok := NewBBox(x0, y0, x1, y1)
	if !ok {
		return Base{}, false
	}
	return Base{BBox: b, Page: page}, true
}

func (b *Base) BoundingBox() BBox { return b.BBox }
func (b *Base) PageIndex() int    { return b.Page }
func (b *Base) SetPage(page int)  { b.Page = page }
func (b *Base) Meta() *Metadata   { return &b.Metadata }

// SetBoundingBox replaces the element geometry
func (b *Base) SetBoundingBox(bbox BBox) { b.BBox = bbox }

// ExtendedX0 returns the widened left edge if set, X0 otherwise
func (b *Base) ExtendedX0() float64 {
	if b.Metadata.ExtendedX != nil {
		return b.Metadata.ExtendedX.Start
	}
	return b.X0
}

// ExtendedX1 returns the widened right edge if set, X1 otherwise
func (b *Base) ExtendedX1() float64 {
	if b.Metadata.ExtendedX != nil {
		return b.Metadata.ExtendedX.End
	}
	return b.X1
}

// PageList returns every page the element spans: the merged pages if the
// element was joined across pages, its own page otherwise.
func (b *Base) PageList() []int {
	if len(b.Metadata.Pages) > 0 {
		return b.Metadata.Pages
	}
	return []int{b.Page}
}

// BBoxList returns the boxes matching PageList
func (b *Base) BBoxList() []BBox {
	if len(b.Metadata.BBoxes) > 0 {
		return b.Metadata.BBoxes
	}
	if !b.IsValid() {
		return nil
	}
	return []BBox{b.BBox}
}

// recordMerge keeps Pages and BBoxes in step when other is joined into b
func (b *Base) recordMerge(other *Base) {
	if len(b.Metadata.Pages) == 0 && b.IsValid() {
		b.Metadata.Pages = []int{b.Page}
		b.Metadata.BBoxes = []BBox{b.BBox}
	}
	if other.IsValid() && len(b.Metadata.Pages) > 0 {
		b.Metadata.Pages = append(b.Metadata.Pages, other.Page)
		b.Metadata.BBoxes = append(b.Metadata.BBoxes, other.BBox)
	}
}

// ErrMergeMismatch is returned when merging elements of different types
var ErrMergeMismatch = errors.New("model: cannot merge elements of different types")

// Word is a single OCR token
type Word struct {
	Base
	Content string `json:"content"`
}

// NewWord creates a word, returning nil when the box is invalid
func NewWord(content string, x0, y0, x1, y1 float64, page int) *Word {
	base, ok := NewBase(x0, y0, x1, y1, page)
	if !ok {
		return nil
	}
	return &Word{Base: base, Content: content}
}

func (w *Word) Type() ElementType { return ElementTypeWord }
func (w *Word) String() string    { return w.Content }

func (w *Word) fontName() string {
	name := w.Metadata.FontName
	if i := strings.LastIndex(name, "+"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// IsBold reports whether the font name marks the word as bold
func (w *Word) IsBold() bool {
	font := w.fontName()
	return strings.Contains(font, "Bold") || strings.Contains(font, "Black")
}

// IsItalic reports whether the font name marks the word as italic
func (w *Word) IsItalic() bool {
	font := w.fontName()
	return strings.Contains(font, "Italic") || strings.Contains(font, "Oblique") ||
		strings.Contains(font, "Slanted")
}

// Line is a run of words sharing a baseline, ordered by x0
type Line struct {
	Base
	Words []*Word `json:"content"`
}

func (l *Line) Type() ElementType { return ElementTypeLine }

func (l *Line) String() string {
	return joinWords(l.Words)
}

// IsVertical reports whether every word of the line is vertical
func (l *Line) IsVertical() bool {
	return allVertical(l.Words)
}

// Inconsistent returns the first pair of words that do not share the line's
// y-interval (x-interval for vertical lines), or nil.
func (l *Line) Inconsistent() []*Word {
	vertical := l.IsVertical()
	for i, w := range l.Words {
		for _, other := range l.Words[i+1:] {
			if vertical {
				if w.X1 < other.X0 || w.X0 > other.X1 {
					return []*Word{w, other}
				}
			} else if w.Y1 < other.Y0 || w.Y0 > other.Y1 {
				return []*Word{w, other}
			}
		}
	}
	return nil
}

// VisualElement is a non-textual mark (rule, figure stroke) that separates
// content but carries none.
type VisualElement struct {
	Base
}

func (v *VisualElement) Type() ElementType { return ElementTypeVisual }

// Paragraph is a word-carrying structural element: text, list, title,
// extra, header, footer or image.
type Paragraph struct {
	Base
	Kind  ElementType `json:"-"`
	Words []*Word     `json:"content"`
}

// NewParagraph creates a paragraph of the given kind, returning nil when the
// box is invalid or kind is not a paragraph type.
func NewParagraph(kind ElementType, x0, y0, x1, y1 float64, page int) *Paragraph {
	if !kind.IsParagraph() {
		return nil
	}
	base, ok := NewBase(x0, y0, x1, y1, page)
	if !ok {
		return nil
	}
	return &Paragraph{Base: base, Kind: kind}
}

func (p *Paragraph) Type() ElementType { return p.Kind }

func (p *Paragraph) String() string {
	return joinWords(p.Words)
}

// IsVertical reports whether the paragraph is non-empty and all its words are
// vertical.
func (p *Paragraph) IsVertical() bool {
	return len(p.Words) > 0 && allVertical(p.Words)
}

// Merge appends other's words to p and records other's page and box.
// List item and description indices are shifted by p's word count.
func (p *Paragraph) Merge(other *Paragraph) error {
	if other.Kind != p.Kind {
		return fmt.Errorf("%w: %s into %s", ErrMergeMismatch, other.Kind, p.Kind)
	}
	if p.Kind == ElementTypeList && p.Metadata.ListIndexed && other.Metadata.ListIndexed {
		offset := len(p.Words)
		for _, i := range other.Metadata.ItemIdx {
			p.Metadata.ItemIdx = append(p.Metadata.ItemIdx, i+offset)
		}
		for _, i := range other.Metadata.DescIdx {
			p.Metadata.DescIdx = append(p.Metadata.DescIdx, i+offset)
		}
	}
	p.Words = append(p.Words, other.Words...)
	p.recordMerge(&other.Base)
	return nil
}

// Items splits a list's words at its item and description indices
func (p *Paragraph) Items() [][]*Word {
	splits := make([]int, 0, len(p.Metadata.ItemIdx)+len(p.Metadata.DescIdx))
	splits = append(splits, p.Metadata.ItemIdx...)
	splits = append(splits, p.Metadata.DescIdx...)
	sort.Ints(splits)

	starts := append([]int{0}, splits...)
	ends := append(splits, len(p.Words))
	var items [][]*Word
	for k := range starts {
		i, j := starts[k], ends[k]
		if j > len(p.Words) {
			j = len(p.Words)
		}
		if i < j {
			items = append(items, p.Words[i:j])
		}
	}
	return items
}

// Retype returns a copy of the paragraph with a new kind; words and metadata
// are shared.
func (p *Paragraph) Retype(kind ElementType) *Paragraph {
	cp := *p
	cp.Kind = kind
	return &cp
}

func joinWords(words []*Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Content
	}
	return strings.Join(parts, " ")
}

func allVertical(words []*Word) bool {
	for _, w := range words {
		if !w.Metadata.Vertical {
			return false
		}
	}
	return true
}

// ContentOf returns the words carried by lines and paragraphs, nil otherwise
func ContentOf(e Element) []*Word {
	switch el := e.(type) {
	case *Line:
		return el.Words
	case *Paragraph:
		return el.Words
	}
	return nil
}

// HasContent reports whether the element carries any text
func HasContent(e Element) bool {
	switch el := e.(type) {
	case *Word:
		return el.Content != ""
	case *Line:
		return len(el.Words) > 0
	case *Paragraph:
		return len(el.Words) > 0
	case *TableContent:
		return len(el.Rows) > 0
	}
	return false
}
