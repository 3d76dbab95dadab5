package layout

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// ColumnConfig holds configuration for column detection
type ColumnConfig struct {
	// SignificantGap is the minimum width of a leftover gap beside a word, as a
	// multiple of the word height, for the gap to stay open as free space
	// Default: 1.0
	SignificantGap float64 `yaml:"significant_gap"`

	// XTolerance widens an element by this fraction of the smaller of its
	// width and the gap width when testing whether it covers a gap. Gaps
	// starting at the top of the page get no tolerance.
	// Default: 0.04
	XTolerance float64 `yaml:"x_tolerance"`

	// TitleYTolerance is the fraction of a title's height within which
	// elements below it count as starting on the same line
	// Default: 0.1
	TitleYTolerance float64 `yaml:"title_y_tolerance"`
}

// DefaultColumnConfig returns sensible default configuration
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		SignificantGap:  1.0,
		XTolerance:      0.04,
		TitleYTolerance: 0.1,
	}
}

// ColumnDetector finds vertical gutters of free space on each page. A gutter
// starts either at the top of the page or at the bottom edge of an element and
// runs down until an element closes it.
type ColumnDetector struct {
	config ColumnConfig
	log    zerolog.Logger
}

// NewColumnDetector creates a column detector with default configuration
func NewColumnDetector() *ColumnDetector {
	return NewColumnDetectorWithConfig(DefaultColumnConfig())
}

// NewColumnDetectorWithConfig creates a column detector with custom configuration
func NewColumnDetectorWithConfig(config ColumnConfig) *ColumnDetector {
	return &ColumnDetector{
		config: config,
		log:    logger.WithComponent("layout"),
	}
}

// WithLogger replaces the detector's logger
func (d *ColumnDetector) WithLogger(l zerolog.Logger) *ColumnDetector {
	d.log = l
	return d
}

// Detect returns the gutters of every page of l, sorted by (y0, x).
//
// Titles are first widened over the elements below them. The gutters that
// start below each element are also stored, sorted by x, in the element's
// Metadata.Columns. ocr, when non-nil, adds its words or lines as obstacles
// for the gutters starting below elements.
//
// The cached gutters are rebuilt on every call, so running Detect twice on
// the same layout yields the same result.
func (d *ColumnDetector) Detect(l *model.Layout, ocr *model.Layout) [][]model.Column {
	pages := l.Pages()
	byPage := make([][]model.Column, len(pages))
	total := 0
	for page, elements := range pages {
		d.extendTitles(elements)
		if len(elements) == 0 {
			continue
		}

		var columns []model.Column
		space := []model.Interval{{Start: 0, End: 1}}
		for _, e := range elements {
			if e.Type().IsExtra() || e.BoundingBox().Y0 <= 0 {
				continue
			}
			var found []model.Column
			space, found = d.splitInterval(space, e, 0)
			columns = append(columns, found...)
		}
		for _, s := range space {
			columns = append(columns, model.Column{X: s.Mid(), Y0: 0, Y1: 1})
		}

		obstacles := elements
		if ocr != nil {
			obstacles = append(append([]model.Element(nil), elements...), ocr.ElementsByPage(page, false)...)
			sort.SliceStable(obstacles, func(i, j int) bool {
				bi, bj := obstacles[i].BoundingBox(), obstacles[j].BoundingBox()
				if bi.Y0 != bj.Y0 {
					return bi.Y0 < bj.Y0
				}
				return bi.X0 < bj.X0
			})
		}

		for _, start := range elements {
			bbox := start.BoundingBox()
			meta := start.Meta()
			meta.Columns = nil
			space := []model.Interval{bbox.XInterval()}
			for _, e := range obstacles {
				if e.BoundingBox().Y0 <= bbox.Y1 {
					continue
				}
				var found []model.Column
				space, found = d.splitInterval(space, e, bbox.Y1)
				meta.Columns = append(meta.Columns, found...)
			}
			for _, s := range space {
				meta.Columns = append(meta.Columns, model.Column{X: s.Mid(), Y0: bbox.Y1, Y1: 1})
			}
			sort.SliceStable(meta.Columns, func(i, j int) bool { return meta.Columns[i].X < meta.Columns[j].X })
			columns = append(columns, meta.Columns...)
		}

		sort.SliceStable(columns, func(i, j int) bool {
			if columns[i].Y0 != columns[j].Y0 {
				return columns[i].Y0 < columns[j].Y0
			}
			return columns[i].X < columns[j].X
		})
		byPage[page] = columns
		total += len(columns)
	}
	d.log.Debug().Int("pages", len(byPage)).Int("count", total).Msg("columns detected")
	return byPage
}

// splitInterval narrows each free interval by e. Intervals that e closes
// become gutters running from yMin down to e's top edge; what stays free is
// returned as the new space.
func (d *ColumnDetector) splitInterval(space []model.Interval, e model.Element, yMin float64) ([]model.Interval, []model.Column) {
	var next []model.Interval
	var columns []model.Column
	ext := extendedX(e)
	y0 := e.BoundingBox().Y0
	closeGap := func(s model.Interval) {
		columns = append(columns, model.Column{X: s.Mid(), Y0: yMin, Y1: y0})
	}

	for _, s := range space {
		left := model.Interval{Start: s.Start, End: ext.Start}
		right := model.Interval{Start: ext.End, End: s.End}
		switch {
		case d.coversSpace(s, ext, yMin):
			closeGap(s)
		case s.Start <= ext.Start && ext.Start <= s.End && s.Start <= ext.End && ext.End <= s.End:
			if d.isSignificantGap(left, e) {
				next = append(next, left)
			} else {
				closeGap(s)
			}
			if d.isSignificantGap(right, e) {
				next = append(next, right)
			} else {
				closeGap(s)
			}
		case s.Start <= ext.Start && ext.Start <= s.End:
			if d.isSignificantGap(left, e) {
				next = append(next, left)
			} else {
				closeGap(s)
			}
		case s.Start <= ext.End && ext.End <= s.End:
			if d.isSignificantGap(right, e) {
				next = append(next, right)
			} else {
				closeGap(s)
			}
		default:
			next = append(next, s)
		}
	}
	return next, columns
}

// coversSpace reports whether ext contains s, with a tolerance for gutters
// that do not start at the top of the page
func (d *ColumnDetector) coversSpace(s, ext model.Interval, yMin float64) bool {
	tolerance := 0.0
	if yMin > 0 {
		tolerance = math.Min(s.Len(), ext.Len()) * d.config.XTolerance
	}
	return ext.Start-tolerance <= s.Start && s.Start <= ext.End &&
		ext.Start <= s.End && s.End <= ext.End+tolerance
}

// isSignificantGap reports whether the gap left beside a word is wide enough
// to stay free. Gaps beside structural elements always are.
func (d *ColumnDetector) isSignificantGap(gap model.Interval, e model.Element) bool {
	if w, ok := e.(*model.Word); ok {
		return gap.Len() > w.Height()*d.config.SignificantGap
	}
	return true
}

// extendedX returns the horizontal extent of e used for column detection
func extendedX(e model.Element) model.Interval {
	if x := e.Meta().ExtendedX; x != nil {
		return *x
	}
	return e.BoundingBox().XInterval()
}

// columnsOnPage returns the gutters of one page, or nil
func columnsOnPage(columns [][]model.Column, page int) []model.Column {
	if page < 0 || page >= len(columns) {
		return nil
	}
	return columns[page]
}

// noColumnsBetween reports whether no gutter separates left from right: a
// gutter separates them when it spans both vertically and lies strictly
// between left's right edge and right's left edge.
func noColumnsBetween(left, right model.BBox, columns []model.Column) bool {
	for _, c := range columns {
		if model.MatchInterval(left.YInterval(), c.YInterval()) &&
			model.MatchInterval(right.YInterval(), c.YInterval()) &&
			left.X1 < c.X && c.X < right.X0 {
			return false
		}
	}
	return true
}
