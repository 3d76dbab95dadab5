package layout

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/tidwall/rtree"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// AggregatorConfig holds configuration for layout aggregation
type AggregatorConfig struct {
	// ParagraphOverlap is the fraction of a paragraph's area that must lie
	// within a larger paragraph for the smaller one to be dropped
	// Default: 0.25
	ParagraphOverlap float64 `yaml:"paragraph_overlap"`

	// TableOverlap is the fraction of a table's area that must lie within
	// another table for both to be considered the same table
	// Default: 0.5
	TableOverlap float64 `yaml:"table_overlap"`
}

// DefaultAggregatorConfig returns sensible default configuration
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		ParagraphOverlap: 0.25,
		TableOverlap:     0.5,
	}
}

// Aggregator merges the layouts predicted by several detectors into one
// layout without duplicated paragraphs or tables
type Aggregator struct {
	config AggregatorConfig
	log    zerolog.Logger
}

// NewAggregator creates an aggregator with default configuration
func NewAggregator() *Aggregator {
	return NewAggregatorWithConfig(DefaultAggregatorConfig())
}

// NewAggregatorWithConfig creates an aggregator with custom configuration
func NewAggregatorWithConfig(config AggregatorConfig) *Aggregator {
	return &Aggregator{
		config: config,
		log:    logger.WithComponent("layout"),
	}
}

// WithLogger replaces the aggregator's logger
func (a *Aggregator) WithLogger(l zerolog.Logger) *Aggregator {
	a.log = l
	return a
}

// Aggregate merges layouts. Overlapping paragraphs are first filtered within
// each layout, then across the merged result, and overlapping tables are
// reduced to one per group. Layouts should be passed in order of trust:
// table groups take their reference extractor from the first table seen.
func (a *Aggregator) Aggregate(layouts ...*model.Layout) *model.Layout {
	nbLayouts := 0
	merged := &model.Layout{}
	for _, l := range layouts {
		if l == nil || l.Len() == 0 {
			continue
		}
		nbLayouts++
		merged.Append(a.filterParagraphs(l).Elements...)
	}
	before := merged.Len()
	merged = a.filterTables(merged, nbLayouts)
	merged = a.filterParagraphs(merged)
	a.log.Debug().Int("layouts", nbLayouts).Int("before", before).Int("count", merged.Len()).
		Msg("layouts aggregated")
	return merged
}

// filterParagraphs drops, page by page, every paragraph lying within a larger
// one, unless every larger paragraph holding it is itself within another.
func (a *Aggregator) filterParagraphs(l *model.Layout) *model.Layout {
	out := &model.Layout{}
	for _, elements := range l.Pages() {
		var tr rtree.RTreeG[int]
		for i, e := range elements {
			if _, ok := e.(*model.Paragraph); ok {
				b := e.BoundingBox()
				tr.Insert([2]float64{b.X0, b.Y0}, [2]float64{b.X1, b.Y1}, i)
			}
		}

		within := make(map[int][]int)
		for i, e := range elements {
			if _, ok := e.(*model.Paragraph); !ok {
				continue
			}
			b := e.BoundingBox()
			if b.Area() <= 0 {
				continue
			}
			tr.Search([2]float64{b.X0, b.Y0}, [2]float64{b.X1, b.Y1}, func(_, _ [2]float64, j int) bool {
				other := elements[j].BoundingBox()
				if b.Area() < other.Area() && model.IsBBoxWithin(b, other, a.config.ParagraphOverlap) {
					within[i] = append(within[i], j)
				}
				return true
			})
		}

		for i, e := range elements {
			containers, ok := within[i]
			if ok && !allContained(containers, within) {
				continue
			}
			out.Append(e)
		}
	}
	return out.SortByBBox()
}

func allContained(indexes []int, within map[int][]int) bool {
	for _, j := range indexes {
		if _, ok := within[j]; !ok {
			return false
		}
	}
	return true
}

// isTableCandidate reports whether e takes part in table deduplication
func isTableCandidate(e model.Element) bool {
	t := e.Type()
	return t.IsTable() || t == model.ElementTypeImage
}

// filterTables groups, page by page, the tables and images that overlap each
// other and keeps one table per group: the one with the most cells, then the
// largest. With several layouts a group is kept only when its first table
// comes from YOLO or when another detector agrees on it. Groups of images
// only are kept whole.
func (a *Aggregator) filterTables(l *model.Layout, nbLayouts int) *model.Layout {
	out := &model.Layout{}
	var kept []model.Element
	for _, elements := range l.Pages() {
		var groups [][]model.Element
		for _, e := range elements {
			if !isTableCandidate(e) {
				out.Append(e)
				continue
			}
			joined := false
			for g, group := range groups {
				if a.overlapsAny(e, group) {
					groups[g] = append(group, e)
					joined = true
					break
				}
			}
			if !joined {
				groups = append(groups, []model.Element{e})
			}
		}

		for _, group := range groups {
			if allImages(group) {
				kept = append(kept, group...)
				continue
			}
			first := group[0].Meta().Extractor
			agreed := false
			for _, e := range group {
				if e.Meta().Extractor != first && e.Type() != model.ElementTypeImage {
					agreed = true
					break
				}
			}
			if nbLayouts > 1 && first != model.ExtractorYOLO && !agreed {
				a.log.Debug().Int("page", group[0].PageIndex()).Str("extractor", first.String()).
					Msg("table predicted by a single detector dropped")
				continue
			}

			var tables []model.Element
			for _, e := range group {
				if e.Type() != model.ElementTypeImage {
					tables = append(tables, e)
				}
			}
			sort.SliceStable(tables, func(i, j int) bool {
				ci, cj := cellCount(tables[i]), cellCount(tables[j])
				if ci != cj {
					return ci > cj
				}
				return tables[i].BoundingBox().Area() > tables[j].BoundingBox().Area()
			})
			kept = append(kept, tables[0])
		}
	}
	out.Append(kept...)
	return out.SortByBBox()
}

func (a *Aggregator) overlapsAny(e model.Element, group []model.Element) bool {
	for _, other := range group {
		if model.IsBBoxWithin(e.BoundingBox(), other.BoundingBox(), a.config.TableOverlap) {
			return true
		}
	}
	return false
}

func allImages(elements []model.Element) bool {
	for _, e := range elements {
		if e.Type() != model.ElementTypeImage {
			return false
		}
	}
	return true
}

func cellCount(e model.Element) int {
	if t, ok := model.AsTable(e); ok {
		return len(t.Cells)
	}
	return 0
}
