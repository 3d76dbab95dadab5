package layout

import (
	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// ReadingOrderConfig holds configuration for reading order detection
type ReadingOrderConfig struct {
	// ColumnOverlap is the fraction of an element's height that must fall
	// within a gutter's vertical range for the element to sit beside it
	// Default: 0.1
	ColumnOverlap float64 `yaml:"column_overlap"`

	// AnchorExtras moves the extras, headers and footers found at the top or
	// bottom of a page to the start or end of that page during Refine
	// Default: true
	AnchorExtras bool `yaml:"anchor_extras"`
}

// DefaultReadingOrderConfig returns sensible default configuration
func DefaultReadingOrderConfig() ReadingOrderConfig {
	return ReadingOrderConfig{
		ColumnOverlap: 0.1,
		AnchorExtras:  true,
	}
}

// ReadingOrderResult holds the result of reading order analysis
type ReadingOrderResult struct {
	// Layout is the input layout, reordered
	Layout *model.Layout

	// Unordered lists the elements no gutter reached. They were appended at
	// the end in their sorted order; a non-empty list points to a geometry
	// problem upstream.
	Unordered []model.Element
}

// ReadingOrderDetector orders the elements of a layout the way a person reads
// a multi-column page: down each gutter's left side before crossing it
type ReadingOrderDetector struct {
	config ReadingOrderConfig
	log    zerolog.Logger
}

// NewReadingOrderDetector creates a new reading order detector with default configuration
func NewReadingOrderDetector() *ReadingOrderDetector {
	return NewReadingOrderDetectorWithConfig(DefaultReadingOrderConfig())
}

// NewReadingOrderDetectorWithConfig creates a reading order detector with custom configuration
func NewReadingOrderDetectorWithConfig(config ReadingOrderConfig) *ReadingOrderDetector {
	return &ReadingOrderDetector{
		config: config,
		log:    logger.WithComponent("layout"),
	}
}

// WithLogger replaces the detector's logger
func (d *ReadingOrderDetector) WithLogger(l zerolog.Logger) *ReadingOrderDetector {
	d.log = l
	return d
}

// orderFrame is one level of the gutter traversal: the elements beside a
// gutter, the next one to visit and the gutters still to follow from the
// element last placed.
type orderFrame struct {
	candidates []model.Element
	next       int
	pending    []model.Column
}

// Sort reorders l following the gutters returned by ColumnDetector.Detect.
//
// For every gutter of a page, the elements left of it and beside it are
// placed in order; after placing an element, the gutters cached below the
// already placed elements of its page are followed first, newest element
// first. Gutters that sit beside none or all of the current candidates are
// ignored. The traversal uses an explicit stack, so its depth is bounded by
// memory only.
func (d *ReadingOrderDetector) Sort(l *model.Layout, columns [][]model.Column) *ReadingOrderResult {
	l.SortByBBox()
	ordered := make([]model.Element, 0, l.Len())
	placed := make(map[model.Element]bool, l.Len())

	for page, elements := range l.Pages() {
		pageColumns := columnsOnPage(columns, page)
		for _, col := range pageColumns {
			stack := []*orderFrame{{candidates: d.besideColumn(elements, col)}}
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if len(top.pending) > 0 {
					col := top.pending[0]
					top.pending = top.pending[1:]
					stack = append(stack, &orderFrame{candidates: d.besideColumn(top.candidates, col)})
					continue
				}
				if top.next >= len(top.candidates) {
					stack = stack[:len(stack)-1]
					continue
				}
				e := top.candidates[top.next]
				top.next++
				if placed[e] {
					continue
				}
				ordered = append(ordered, e)
				placed[e] = true
				top.pending = d.relevantColumns(previousColumns(ordered, e.PageIndex()), top.candidates)
			}
		}
		// Gutters from the top of the page are kept on the first element so
		// that they can be drawn; the traversal above must not see them.
		if len(elements) > 0 {
			meta := elements[0].Meta()
			kept := make([]model.Column, 0, len(meta.Columns))
			for _, col := range meta.Columns {
				if col.Y0 != 0 {
					kept = append(kept, col)
				}
			}
			for _, col := range pageColumns {
				if col.Y0 == 0 {
					kept = append(kept, col)
				}
			}
			meta.Columns = kept
		}
	}

	result := &ReadingOrderResult{}
	for _, e := range l.Elements {
		if placed[e] {
			continue
		}
		ordered = append(ordered, e)
		result.Unordered = append(result.Unordered, e)
		d.log.Warn().Int("page", e.PageIndex()).Str("type", e.Type().String()).
			Msg("element not reached by any column")
	}
	l.Elements = ordered
	result.Layout = l
	return result
}

// besideColumn returns the elements left of col whose height overlaps col
func (d *ReadingOrderDetector) besideColumn(elements []model.Element, col model.Column) []model.Element {
	var matching []model.Element
	for _, e := range elements {
		b := e.BoundingBox()
		if b.X0 < col.X && model.MatchIntervalRatio(b.YInterval(), col.YInterval(), d.config.ColumnOverlap) {
			matching = append(matching, e)
		}
	}
	return matching
}

// relevantColumns keeps the gutters beside some but not all of elements
func (d *ReadingOrderDetector) relevantColumns(columns []model.Column, elements []model.Element) []model.Column {
	var relevant []model.Column
	for _, col := range columns {
		n := len(d.besideColumn(elements, col))
		if n > 0 && n != len(elements) {
			relevant = append(relevant, col)
		}
	}
	return relevant
}

// previousColumns concatenates the gutters cached below the placed elements
// of page, most recently placed first
func previousColumns(ordered []model.Element, page int) []model.Column {
	var columns []model.Column
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].PageIndex() == page {
			columns = append(columns, ordered[i].Meta().Columns...)
		}
	}
	return columns
}

// Refine applies the ordering rules that gutters alone get wrong: inverted
// consecutive titles across a gutter are swapped back, then extras sitting
// at the top or bottom of a page are moved to the start or end of it.
func (d *ReadingOrderDetector) Refine(l *model.Layout, columns [][]model.Column) {
	for n := 0; n < l.Len(); {
		n = swapTitlesAcrossColumns(l, columns, n)
	}
	if d.config.AnchorExtras {
		AnchorExtrasToEdges(l, EdgeTop)
		AnchorExtrasToEdges(l, EdgeBottom)
	}
}
