package tables

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// Labels emitted by table-structure detectors
const (
	LabelRow                = "table row"
	LabelColumn             = "table column"
	LabelSpanningCell       = "table spanning cell"
	LabelProjectedRowHeader = "table projected row header"
	LabelColumnHeader       = "table column header"
)

// StructureBox is one box predicted inside a table: a row, a column, a
// header band or a spanning cell
type StructureBox struct {
	Label string     `json:"label" yaml:"label"`
	Score float64    `json:"score" yaml:"score"`
	BBox  model.BBox `json:"bbox" yaml:"bbox"`
}

// StructureConfig holds configuration for structure conversion
type StructureConfig struct {
	// SpanningOverlap is the overlap ratio above which two rows (or two
	// columns) are duplicates, a cell lies in a header band, or a spanning
	// cell covers a grid cell
	// Default: 0.5
	SpanningOverlap float64 `yaml:"spanning_overlap"`

	// HeaderScore is the minimum score of a header band
	// Default: 0.8
	HeaderScore float64 `yaml:"header_score"`

	// SnapEpsilon is the distance within which outer cell edges snap to the
	// table edges
	// Default: 0.01
	SnapEpsilon float64 `yaml:"snap_epsilon"`
}

// DefaultStructureConfig returns sensible default configuration
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		SpanningOverlap: 0.5,
		HeaderScore:     0.8,
		SnapEpsilon:     1e-2,
	}
}

// StructureConverter turns row, column, header and spanning cell boxes into
// the cell grid of a table
type StructureConverter struct {
	config StructureConfig
	log    zerolog.Logger
}

// NewStructureConverter creates a converter with default configuration
func NewStructureConverter() *StructureConverter {
	return NewStructureConverterWithConfig(DefaultStructureConfig())
}

// NewStructureConverterWithConfig creates a converter with custom configuration
func NewStructureConverterWithConfig(config StructureConfig) *StructureConverter {
	return &StructureConverter{
		config: config,
		log:    logger.WithComponent("tables"),
	}
}

// WithLogger replaces the converter's logger
func (c *StructureConverter) WithLogger(l zerolog.Logger) *StructureConverter {
	c.log = l
	return c
}

// Convert sets the cells of t from the structure boxes predicted for it.
//
// Duplicate rows and columns are dropped first. Each row crossed with each
// column gives a cell running to the start of the next row and column; its
// confidence is the mean of both scores. Cells inside a confident header
// band are header cells. A spanning cell replaces every grid cell it covers
// best, all copies sharing one SpanID; ids count from 1 within the table.
// Finally the outer cells snap to the table's horizontal edges and the
// table takes the vertical extent of its cells.
func (c *StructureConverter) Convert(t *model.Table, boxes []StructureBox) *model.Table {
	boxes = c.filterGrid(boxes)

	var rows, columns, spans []StructureBox
	var headers []model.BBox
	for _, b := range boxes {
		switch b.Label {
		case LabelRow:
			rows = append(rows, b)
		case LabelColumn:
			columns = append(columns, b)
		case LabelSpanningCell:
			spans = append(spans, b)
		case LabelColumnHeader, LabelProjectedRowHeader:
			if b.Score > c.config.HeaderScore && b.BBox.IsValid() {
				headers = append(headers, b.BBox)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].BBox.Y0 < rows[j].BBox.Y0 })
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].BBox.X0 < columns[j].BBox.X0 })
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].BBox.Y0 != spans[j].BBox.Y0 {
			return spans[i].BBox.Y0 < spans[j].BBox.Y0
		}
		return spans[i].BBox.X0 < spans[j].BBox.X0
	})

	cells := c.gridCells(rows, columns, headers, t.Page)
	cells = c.applySpans(cells, spans, t.Page)
	c.snap(t, cells)
	t.Cells = cells

	c.log.Debug().Int("page", t.Page).Int("rows", len(rows)).Int("columns", len(columns)).
		Int("spans", len(spans)).Int("cells", len(cells)).Msg("table structure converted")
	return t
}

// filterGrid drops, among each pair of overlapping rows or overlapping
// columns, the one with the lower score
func (c *StructureConverter) filterGrid(boxes []StructureBox) []StructureBox {
	removed := make([]bool, len(boxes))
	for i, a := range boxes {
		if !a.BBox.IsValid() {
			continue
		}
		for j := i + 1; j < len(boxes); j++ {
			b := boxes[j]
			if a.Label != b.Label || (a.Label != LabelRow && a.Label != LabelColumn) {
				continue
			}
			if !b.BBox.IsValid() || !model.IsBBoxWithin(a.BBox, b.BBox, c.config.SpanningOverlap) {
				continue
			}
			if a.Score < b.Score {
				removed[i] = true
			} else {
				removed[j] = true
			}
		}
	}

	kept := make([]StructureBox, 0, len(boxes))
	for i, b := range boxes {
		if !removed[i] {
			kept = append(kept, b)
		}
	}
	return kept
}

// gridCells crosses rows with columns in row-major order
func (c *StructureConverter) gridCells(rows, columns []StructureBox, headers []model.BBox, page int) []model.Cell {
	var cells []model.Cell
	for r, row := range rows {
		for k, col := range columns {
			x1 := col.BBox.X1
			if k+1 < len(columns) {
				x1 = columns[k+1].BBox.X0
			}
			y1 := row.BBox.Y1
			if r+1 < len(rows) {
				y1 = rows[r+1].BBox.Y0
			}
			cell, ok := model.NewCell(col.BBox.X0, row.BBox.Y0, x1, y1, page)
			if !ok {
				continue
			}
			cell.Confidence = (row.Score + col.Score) / 2
			cell.Extractor = model.ExtractorTATR
			for _, h := range headers {
				if model.IsBBoxWithin(cell.BBox, h, c.config.SpanningOverlap) {
					cell.Label = model.CellLabelHeader
					break
				}
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// applySpans replaces every cell covered by a spanning cell. Each cell goes
// to the span overlapping the largest share of its area; a span covering at
// least one header cell becomes a spanning header.
func (c *StructureConverter) applySpans(cells []model.Cell, spans []StructureBox, page int) []model.Cell {
	if len(spans) == 0 {
		return cells
	}

	type candidate struct {
		span    int
		overlap float64
	}
	best := make([]candidate, len(cells))
	for i := range best {
		best[i].span = -1
	}
	for s, span := range spans {
		if !span.BBox.IsValid() {
			continue
		}
		for i, cell := range cells {
			overlap := cell.IntersectionArea(span.BBox) / cell.Area()
			if overlap > c.config.SpanningOverlap && (best[i].span < 0 || overlap > best[i].overlap) {
				best[i] = candidate{span: s, overlap: overlap}
			}
		}
	}

	ids := make(map[int]model.SpanningCellID)
	header := make(map[int]bool)
	for i, b := range best {
		if b.span < 0 {
			continue
		}
		if _, ok := ids[b.span]; !ok {
			ids[b.span] = model.SpanningCellID(len(ids) + 1)
		}
		if cells[i].Label.IsHeader() {
			header[b.span] = true
		}
	}

	for i, b := range best {
		if b.span < 0 {
			continue
		}
		span := spans[b.span]
		label := model.CellLabelSpanning
		if header[b.span] {
			label = model.CellLabelSpanningHeader
		}
		cells[i] = model.Cell{
			BBox:       span.BBox,
			Page:       page,
			Label:      label,
			Confidence: span.Score,
			Extractor:  model.ExtractorTATR,
			SpanID:     ids[b.span],
		}
	}
	return cells
}

// snap moves the outermost cell edges onto the table's horizontal edges and
// fits the table vertically to its cells
func (c *StructureConverter) snap(t *model.Table, cells []model.Cell) {
	if len(cells) == 0 {
		return
	}
	minX0, maxX1 := math.Inf(1), math.Inf(-1)
	minY0, maxY1 := math.Inf(1), math.Inf(-1)
	for _, cell := range cells {
		minX0 = math.Min(minX0, cell.X0)
		maxX1 = math.Max(maxX1, cell.X1)
	}
	eps := c.config.SnapEpsilon
	for i := range cells {
		if minX0-eps < cells[i].X0 && cells[i].X0 < minX0+eps {
			cells[i].X0 = t.X0
		}
		if maxX1-eps < cells[i].X1 && cells[i].X1 < maxX1+eps {
			cells[i].X1 = t.X1
		}
		minY0 = math.Min(minY0, cells[i].Y0)
		maxY1 = math.Max(maxY1, cells[i].Y1)
	}
	if b, ok := model.NewBBox(t.X0, minY0, t.X1, maxY1); ok {
		t.SetBoundingBox(b)
	}
}
