package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tsawler/folio/internal/logger"
)

// Family is the homogeneous kind of elements a layout holds
type Family int

const (
	// FamilyEmpty is a layout holding nothing, or only visual elements
	FamilyEmpty Family = iota
	// FamilyWords holds words and visual elements
	FamilyWords
	// FamilyLines holds lines and visual elements
	FamilyLines
	// FamilyStructure holds tables, paragraphs and visual elements
	FamilyStructure
)

func (f Family) String() string {
	switch f {
	case FamilyWords:
		return "words"
	case FamilyLines:
		return "lines"
	case FamilyStructure:
		return "structure"
	default:
		return "empty"
	}
}

// ErrMixedLayout is returned when a layout mixes element families
var ErrMixedLayout = errors.New("model: layout must hold only words, only lines, or only tables and paragraphs (plus visual elements)")

func familyOf(t ElementType) Family {
	switch {
	case t == ElementTypeWord:
		return FamilyWords
	case t == ElementTypeLine:
		return FamilyLines
	case t.IsParagraph() || t.IsTable():
		return FamilyStructure
	}
	return FamilyEmpty
}

// Layout is the ordered sequence of elements for a set of pages.
// It holds exactly one family of elements at a time.
type Layout struct {
	Elements []Element
}

// NewLayout creates a layout holding the given elements
func NewLayout(elements ...Element) *Layout {
	return &Layout{Elements: append([]Element(nil), elements...)}
}

// Family returns the element family held by the layout
func (l *Layout) Family() Family {
	for _, e := range l.Elements {
		if f := familyOf(e.Type()); f != FamilyEmpty {
			return f
		}
	}
	return FamilyEmpty
}

// Validate checks that the layout holds a single element family
func (l *Layout) Validate() error {
	family := FamilyEmpty
	for i, e := range l.Elements {
		t := e.Type()
		if t == ElementTypeVisual {
			continue
		}
		f := familyOf(t)
		if f == FamilyEmpty {
			return fmt.Errorf("%w: element %d has type %s", ErrMixedLayout, i, t)
		}
		if family == FamilyEmpty {
			family = f
		} else if f != family {
			return fmt.Errorf("%w: element %d is %s in a %s layout", ErrMixedLayout, i, t, family)
		}
	}
	return nil
}

// Len returns the number of elements
func (l *Layout) Len() int {
	return len(l.Elements)
}

// Append adds elements at the end of the layout
func (l *Layout) Append(elements ...Element) {
	l.Elements = append(l.Elements, elements...)
}

// PageCount returns the highest page index plus one
func (l *Layout) PageCount() int {
	count := 0
	for _, e := range l.Elements {
		if p := e.PageIndex() + 1; p > count {
			count = p
		}
	}
	return count
}

// ElementsByPage returns the elements on page. With fromPages, elements
// merged across pages match every page they span.
func (l *Layout) ElementsByPage(page int, fromPages bool) []Element {
	var out []Element
	for _, e := range l.Elements {
		if fromPages {
			for _, p := range pagesOf(e) {
				if p == page {
					out = append(out, e)
					break
				}
			}
		} else if e.PageIndex() == page {
			out = append(out, e)
		}
	}
	return out
}

// Pages returns the elements grouped by page, one slice per page index.
// Elements with a negative page are left out.
func (l *Layout) Pages() [][]Element {
	pages := make([][]Element, l.PageCount())
	for _, e := range l.Elements {
		page := e.PageIndex()
		if page < 0 {
			log := logger.WithComponent("model")
			log.Warn().Int("page", page).Str("type", e.Type().String()).Msg("element has a negative page, skipped")
			continue
		}
		pages[page] = append(pages[page], e)
	}
	return pages
}

func pagesOf(e Element) []int {
	if pages := e.Meta().Pages; len(pages) > 0 {
		return pages
	}
	return []int{e.PageIndex()}
}

// SortByBBox orders elements by (page, y1, x1)
func (l *Layout) SortByBBox() *Layout {
	sort.SliceStable(l.Elements, func(i, j int) bool {
		a, b := l.Elements[i], l.Elements[j]
		if a.PageIndex() != b.PageIndex() {
			return a.PageIndex() < b.PageIndex()
		}
		ba, bb := a.BoundingBox(), b.BoundingBox()
		if ba.Y1 != bb.Y1 {
			return ba.Y1 < bb.Y1
		}
		return ba.X1 < bb.X1
	})
	return l
}

// SortByPage orders elements by page, keeping the order within a page
func (l *Layout) SortByPage() *Layout {
	sort.SliceStable(l.Elements, func(i, j int) bool {
		return l.Elements[i].PageIndex() < l.Elements[j].PageIndex()
	})
	return l
}

// Index returns the position of e in the layout, or -1
func (l *Layout) Index(e Element) int {
	for i, el := range l.Elements {
		if el == e {
			return i
		}
	}
	return -1
}

// Replace swaps old for replacement, reporting whether old was found
func (l *Layout) Replace(old, replacement Element) bool {
	i := l.Index(old)
	if i < 0 {
		return false
	}
	l.Elements[i] = replacement
	return true
}

// Tables returns detected and populated tables
func (l *Layout) Tables() []*Table {
	var out []*Table
	for _, e := range l.Elements {
		if t, ok := AsTable(e); ok {
			out = append(out, t)
		}
	}
	return out
}

// Words returns the word elements
func (l *Layout) Words() []*Word {
	var out []*Word
	for _, e := range l.Elements {
		if w, ok := e.(*Word); ok {
			out = append(out, w)
		}
	}
	return out
}

// Images returns the image paragraphs
func (l *Layout) Images() []*Paragraph {
	var out []*Paragraph
	for _, e := range l.Elements {
		if p, ok := e.(*Paragraph); ok && p.Kind == ElementTypeImage {
			out = append(out, p)
		}
	}
	return out
}

// extract returns the elements matching keep and removes them when pop is set
func (l *Layout) extract(keep func(Element) bool, pop bool) []Element {
	var matched, rest []Element
	for _, e := range l.Elements {
		if keep(e) {
			matched = append(matched, e)
		} else {
			rest = append(rest, e)
		}
	}
	if pop {
		l.Elements = rest
	}
	return matched
}

// VisualElements returns the visual elements, removing them when pop is set
func (l *Layout) VisualElements(pop bool) []*VisualElement {
	var out []*VisualElement
	for _, e := range l.extract(func(e Element) bool { return e.Type() == ElementTypeVisual }, pop) {
		out = append(out, e.(*VisualElement))
	}
	return out
}

// PopTables returns the tables and removes them from the layout
func (l *Layout) PopTables() []Element {
	return l.extract(func(e Element) bool { return e.Type().IsTable() }, true)
}

// ByExtractor returns the elements produced by ex, removing them when pop is
// set.
func (l *Layout) ByExtractor(ex Extractor, pop bool) []Element {
	return l.extract(func(e Element) bool { return e.Meta().Extractor == ex }, pop)
}

// RemoveTables drops every table element
func (l *Layout) RemoveTables() *Layout {
	l.PopTables()
	return l
}

// FilterEmpty drops elements without content. Visual elements are always
// kept, empty images only when keepEmptyImages is set; detected tables
// without content are dropped.
func (l *Layout) FilterEmpty(keepEmptyImages bool) *Layout {
	kept := l.Elements[:0]
	for _, e := range l.Elements {
		t := e.Type()
		switch {
		case t == ElementTypeVisual:
		case keepEmptyImages && t == ElementTypeImage:
		case t != ElementTypeTable && t != ElementTypeCell && HasContent(e):
		default:
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(l.Elements); i++ {
		l.Elements[i] = nil
	}
	l.Elements = kept
	return l
}

// String joins the text of every content-carrying element with blank lines
func (l *Layout) String() string {
	var parts []string
	for _, e := range l.Elements {
		if s, ok := e.(fmt.Stringer); ok && e.Type() != ElementTypeVisual {
			parts = append(parts, s.String())
		}
	}
	return strings.Join(parts, "\n\n")
}

// BatchLayout is a layout extracted from a sub-document along with the
// source page indices its local pages map to.
type BatchLayout struct {
	Layout *Layout
	Pages  []int
}

// MergeByPage concatenates batch layouts, remapping each batch's local page
// indices onto its sorted source pages, then sorts the result by page.
func MergeByPage(parts ...BatchLayout) *Layout {
	log := logger.WithComponent("model")
	merged := &Layout{}
	for _, part := range parts {
		if part.Layout == nil {
			continue
		}
		pages := append([]int(nil), part.Pages...)
		sort.Ints(pages)
		remap := func(p int) int {
			if p >= 0 && p < len(pages) {
				return pages[p]
			}
			log.Warn().Int("page", p).Int("batch_pages", len(pages)).Msg("page outside of batch, keeping local index")
			return p
		}

		seen := make(map[*Word]bool)
		for _, e := range part.Layout.Elements {
			meta := e.Meta()
			for i, p := range meta.Pages {
				meta.Pages[i] = remap(p)
			}
			e.SetPage(remap(e.PageIndex()))
			for _, w := range ContentOf(e) {
				if seen[w] {
					log.Warn().Str("word", w.Content).Msg("word appears twice in the layout")
					continue
				}
				w.SetPage(remap(w.Page))
				seen[w] = true
			}
			if tc, ok := e.(*TableContent); ok {
				for i := range tc.Cells {
					tc.Cells[i].Page = remap(tc.Cells[i].Page)
				}
			} else if t, ok := e.(*Table); ok {
				for i := range t.Cells {
					t.Cells[i].Page = remap(t.Cells[i].Page)
				}
			}
			merged.Append(e)
		}
	}
	return merged.SortByPage()
}

// MarshalJSON encodes the layout as a list of elements tagged with their
// type.
func (l *Layout) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(l.Elements))
	for _, e := range l.Elements {
		raw, err := marshalElement(e)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return json.Marshal(items)
}

func marshalElement(e Element) (json.RawMessage, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("model: encoding %s: %w", e.Type(), err)
	}
	head := fmt.Sprintf(`{"type":%q`, e.Type().String())
	if len(body) <= 2 {
		return json.RawMessage(head + "}"), nil
	}
	return json.RawMessage(head + "," + string(body[1:])), nil
}

// UnmarshalJSON decodes a list of type-tagged elements
func (l *Layout) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	elements := make([]Element, 0, len(items))
	for i, raw := range items {
		var head struct {
			Type ElementType `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("model: element %d: %w", i, err)
		}
		var e Element
		switch t := head.Type; {
		case t == ElementTypeWord:
			e = &Word{}
		case t == ElementTypeLine:
			e = &Line{}
		case t == ElementTypeVisual:
			e = &VisualElement{}
		case t == ElementTypeTable:
			e = &Table{}
		case t == ElementTypeTableContent:
			e = &TableContent{}
		case t.IsParagraph():
			e = &Paragraph{Kind: t}
		default:
			return fmt.Errorf("model: element %d: unsupported type %s", i, t)
		}
		if err := json.Unmarshal(raw, e); err != nil {
			return fmt.Errorf("model: element %d: %w", i, err)
		}
		elements = append(elements, e)
	}
	l.Elements = elements
	return l.Validate()
}
