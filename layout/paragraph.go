package layout

import (
	"github.com/rs/zerolog"
	"github.com/tidwall/rtree"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// ParagraphConfig holds configuration for paragraph population
type ParagraphConfig struct {
	// WordInParagraph is the fraction of a word's area that must lie within
	// a paragraph for the word to be assigned to it
	// Default: 0.25
	WordInParagraph float64 `yaml:"word_in_paragraph"`

	// VisualInElement is the fraction of a visual element's area that must
	// lie within an element for the visual element to be dropped
	// Default: 0.5
	VisualInElement float64 `yaml:"visual_in_element"`

	// LookForChapters lets a word matching a section number join the
	// paragraph of a later word on its line across a gutter
	// Default: true
	LookForChapters bool `yaml:"look_for_chapters"`
}

// DefaultParagraphConfig returns sensible default configuration
func DefaultParagraphConfig() ParagraphConfig {
	return ParagraphConfig{
		WordInParagraph: 0.25,
		VisualInElement: 0.5,
		LookForChapters: true,
	}
}

// Populator fills the paragraphs of a structural layout with OCR words
type Populator struct {
	config ParagraphConfig
	log    zerolog.Logger
}

// NewPopulator creates a populator with default configuration
func NewPopulator() *Populator {
	return NewPopulatorWithConfig(DefaultParagraphConfig())
}

// NewPopulatorWithConfig creates a populator with custom configuration
func NewPopulatorWithConfig(config ParagraphConfig) *Populator {
	return &Populator{
		config: config,
		log:    logger.WithComponent("layout"),
	}
}

// WithLogger replaces the populator's logger
func (p *Populator) WithLogger(l zerolog.Logger) *Populator {
	p.log = l
	return p
}

// paragraphIndex looks up the paragraphs of one page by position
type paragraphIndex struct {
	paragraphs []*model.Paragraph
	tr         rtree.RTreeG[int]
}

func newParagraphIndex(elements []model.Element) *paragraphIndex {
	idx := &paragraphIndex{}
	for _, e := range elements {
		if p, ok := e.(*model.Paragraph); ok {
			idx.tr.Insert([2]float64{p.X0, p.Y0}, [2]float64{p.X1, p.Y1}, len(idx.paragraphs))
			idx.paragraphs = append(idx.paragraphs, p)
		}
	}
	return idx
}

// containing returns the first paragraph, in layout order, holding at least
// threshold of w's area, or nil
func (idx *paragraphIndex) containing(w *model.Word, threshold float64) (*model.Paragraph, int) {
	best := -1
	idx.tr.Search([2]float64{w.X0, w.Y0}, [2]float64{w.X1, w.Y1}, func(_, _ [2]float64, i int) bool {
		if (best < 0 || i < best) && model.IsBBoxWithin(w.BBox, idx.paragraphs[i].BBox, threshold) {
			best = i
		}
		return true
	})
	if best < 0 {
		return nil, -1
	}
	return idx.paragraphs[best], best
}

// Populate assigns every word of ocr to a paragraph of l and returns the
// populated layout. ocr holds words or lines; columns, when non-nil, holds
// the gutters per page. For each word, in order:
//
//  1. the first paragraph of the page holding the word;
//  2. the paragraph of the previous word of the line, unless a gutter
//     separates the two words;
//  3. the paragraph holding a later word of the line, unless a gutter
//     separates the two words (ignored for section numbers when
//     LookForChapters is set);
//  4. a new inferred text paragraph.
//
// Inferred paragraphs are then inserted in l, above the first element of
// their page that starts lower and is not across a gutter, and consecutive
// inferred paragraphs that overlap horizontally are merged.
func (p *Populator) Populate(ocr *model.Layout, l *model.Layout, columns [][]model.Column) *model.Layout {
	if l == nil {
		l = &model.Layout{}
	}
	pageCount := l.PageCount()
	if n := ocr.PageCount(); n > pageCount {
		pageCount = n
	}

	var inferred []*model.Paragraph
	for page := 0; page < pageCount; page++ {
		idx := newParagraphIndex(l.ElementsByPage(page, false))
		pageColumns := columnsOnPage(columns, page)
		for _, line := range WordLines(ocr.ElementsByPage(page, false)) {
			var prev *model.Paragraph
			for n, w := range line {
				if target, pos := idx.containing(w, p.config.WordInParagraph); target != nil {
					p.checkReadingOrder(target, w, pos)
					target.Words = append(target.Words, w)
					prev = target
					continue
				}
				if prev != nil && n > 0 && noColumnsBetween(line[n-1].BBox, w.BBox, pageColumns) {
					prev.Words = append(prev.Words, w)
					continue
				}
				if target := p.anticipate(idx, pageColumns, line, w, n); target != nil {
					target.Words = append(target.Words, w)
					prev = target
					continue
				}
				para := model.NewParagraph(model.ElementTypeText, w.X0, w.Y0, w.X1, w.Y1, page)
				if para == nil {
					p.log.Warn().Str("word", w.Content).Int("page", page).
						Msg("word has a degenerate box, keeping it in a paragraph of the same box")
					para = &model.Paragraph{Base: model.Base{BBox: w.BBox, Page: page}, Kind: model.ElementTypeText}
				}
				para.Metadata.Inferred = true
				para.Words = []*model.Word{w}
				inferred = append(inferred, para)
				prev = para
			}
		}
	}

	if len(inferred) > 0 {
		p.log.Debug().Int("count", len(inferred)).Msg("inferred paragraphs created")
	}
	return p.insertInferred(l, inferred, ocr.VisualElements(false), columns)
}

// anticipate returns the paragraph holding a later word of the line that w
// may join
func (p *Populator) anticipate(idx *paragraphIndex, columns []model.Column, line []*model.Word, w *model.Word, n int) *model.Paragraph {
	chapter := p.config.LookForChapters && IsChapterNumber(w.Content)
	for _, next := range line[n:] {
		for _, para := range idx.paragraphs {
			if !model.IsBBoxWithin(next.BBox, para.BBox, p.config.WordInParagraph) {
				continue
			}
			if noColumnsBetween(w.BBox, next.BBox, columns) || chapter {
				return para
			}
		}
	}
	return nil
}

// checkReadingOrder warns when w lands above the last word of para, which
// points to a paragraph spanning columns or to OCR order errors
func (p *Populator) checkReadingOrder(para *model.Paragraph, w *model.Word, pos int) {
	if len(para.Words) == 0 || w.Metadata.Vertical {
		return
	}
	if last := para.Words[len(para.Words)-1]; last.Y0 > w.Y1 {
		p.log.Warn().Int("page", para.Page).Int("index", pos).Str("word", w.Content).
			Msg("word not in reading order, paragraph may span several columns")
	}
}

// fitToWords sets the paragraph box to the union of its words
func fitToWords(p *model.Paragraph) {
	if len(p.Words) == 0 {
		return
	}
	b := p.Words[0].BBox
	for _, w := range p.Words[1:] {
		b = b.Union(w.BBox)
	}
	p.SetBoundingBox(b)
}

// insertInferred places each inferred paragraph in l, then merges
// consecutive inferred paragraphs
func (p *Populator) insertInferred(l *model.Layout, inferred []*model.Paragraph, visuals []*model.VisualElement, columns [][]model.Column) *model.Layout {
	if l.Len() == 0 {
		for _, para := range inferred {
			fitToWords(para)
			l.Append(para)
		}
	} else {
		for _, para := range inferred {
			fitToWords(para)
			l.Elements = insertAt(l.Elements, insertPosition(l.Elements, para, columns), para)
		}
	}

	p.mergeInferred(l, visuals)
	for _, e := range l.Elements {
		if para, ok := e.(*model.Paragraph); ok && para.Metadata.Inferred {
			fitToWords(para)
		}
	}
	return l
}

// insertPosition returns where para goes in elements: before the first lower
// element of its page with no gutter in between, preferring one that overlaps
// it horizontally; otherwise after the last element of its page, before the
// trailing extras when para sits above them.
func insertPosition(elements []model.Element, para *model.Paragraph, columns [][]model.Column) int {
	first, lastNonExtra, last := -1, -1, -1
	lastNonExtraY0 := 0.0
	for pos, e := range elements {
		b := e.BoundingBox()
		page := e.PageIndex()
		if page == para.Page && b.Y0 > para.Y0 {
			pageColumns := columnsOnPage(columns, page)
			if len(pageColumns) == 0 || noColumnsBetween(b, para.BBox, pageColumns) {
				if model.MatchInterval(b.XInterval(), para.XInterval()) {
					return pos
				}
				if first < 0 {
					first = pos
				}
			}
		}
		if page == para.Page {
			if !e.Type().IsExtra() {
				lastNonExtra, lastNonExtraY0 = pos, b.Y0
			}
			last = pos
		} else if page > para.Page {
			if last < 0 {
				return pos
			}
			break
		}
	}
	switch {
	case first >= 0:
		return first
	case last >= 0:
		if lastNonExtra >= 0 && para.Y0 < lastNonExtraY0 {
			return lastNonExtra + 1
		}
		return last + 1
	}
	return len(elements)
}

func insertAt(elements []model.Element, pos int, e model.Element) []model.Element {
	elements = append(elements, nil)
	copy(elements[pos+1:], elements[pos:])
	elements[pos] = e
	return elements
}

// mergeInferred joins each inferred paragraph with the inferred paragraphs
// that follow it on the same page while they overlap it horizontally and no
// visual element separates them
func (p *Populator) mergeInferred(l *model.Layout, visuals []*model.VisualElement) {
	out := make([]model.Element, 0, l.Len())
	for i := 0; i < len(l.Elements); i++ {
		e := l.Elements[i]
		out = append(out, e)
		para, ok := e.(*model.Paragraph)
		if !ok || !para.Metadata.Inferred {
			continue
		}
		for i+1 < len(l.Elements) {
			next := l.Elements[i+1]
			if !next.Meta().Inferred || next.PageIndex() != para.Page {
				break
			}
			nextPara, ok := next.(*model.Paragraph)
			if !ok || !model.MatchInterval(para.XInterval(), nextPara.XInterval()) ||
				!noVisualBetween(para.BBox, nextPara.BBox, visuals) {
				break
			}
			para.Words = append(para.Words, nextPara.Words...)
			i++
		}
	}
	l.Elements = out
}

// noVisualBetween reports whether no visual element overlapping both boxes
// horizontally lies between the bottom of upper and the top of lower
func noVisualBetween(upper, lower model.BBox, visuals []*model.VisualElement) bool {
	for _, v := range visuals {
		if model.MatchInterval(upper.XInterval(), v.XInterval()) &&
			model.MatchInterval(lower.XInterval(), v.XInterval()) &&
			upper.Y1 < v.Y0 && v.Y0 < lower.Y0 {
			return false
		}
	}
	return true
}

// InsertVisualElements appends to l the visual elements of ocr that do not
// lie within an element of their page
func (p *Populator) InsertVisualElements(ocr *model.Layout, l *model.Layout) {
	for _, v := range ocr.VisualElements(false) {
		inside := false
		for _, e := range l.ElementsByPage(v.Page, false) {
			if model.IsBBoxWithin(v.BBox, e.BoundingBox(), p.config.VisualInElement) {
				inside = true
				break
			}
		}
		if !inside {
			l.Append(v)
		}
	}
}
