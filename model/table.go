package model

import (
	"strings"

	"github.com/tsawler/folio/internal/logger"
)

// CellLabel classifies a table cell
type CellLabel string

const (
	CellLabelCell           CellLabel = "cell"
	CellLabelHeader         CellLabel = "cell_header"
	CellLabelSpanning       CellLabel = "spanning_cell"
	CellLabelSpanningHeader CellLabel = "spanning_header"
)

// IsSpanning reports whether the label marks a spanning cell
func (l CellLabel) IsSpanning() bool {
	return l == CellLabelSpanning || l == CellLabelSpanningHeader
}

// IsHeader reports whether the label marks a header cell
func (l CellLabel) IsHeader() bool {
	return l == CellLabelHeader || l == CellLabelSpanningHeader
}

// SpanningCellID identifies one spanning cell across every grid position it
// covers. Zero means the cell spans nothing.
type SpanningCellID int

// Cell represents a table cell. A spanning cell appears once per covered grid
// position; all copies share the same SpanID.
type Cell struct {
	BBox
	Page       int            `json:"page"`
	Label      CellLabel      `json:"label,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Extractor  Extractor      `json:"extractor,omitempty"`
	SpanID     SpanningCellID `json:"span_id,omitempty"`
}

// NewCell creates a cell, returning false when the box is invalid
func NewCell(x0, y0, x1, y1 float64, page int) (Cell, bool) {
	b, ok := NewBBox(x0, y0, x1, y1)
	if !ok {
		return Cell{}, false
	}
	return Cell{BBox: b, Page: page, Label: CellLabelCell}, true
}

func (c Cell) Type() ElementType { return ElementTypeCell }

// SameAs reports whether two grid positions hold the same cell: the same
// spanning cell, or the same geometry for plain cells.
func (c Cell) SameAs(other Cell) bool {
	if c.SpanID != 0 || other.SpanID != 0 {
		return c.SpanID == other.SpanID
	}
	return c.BBox == other.BBox
}

// Span describes the extent of a spanning cell anchored at a grid position
type Span struct {
	RowSpan int
	ColSpan int
	ID      SpanningCellID
}

// Table is a detected table region. Cells, when present, are in row-major
// grid order.
type Table struct {
	Base
	Cells []Cell `json:"cells"`
}

// NewTable creates a table without cells, returning nil when the box is
// invalid.
func NewTable(x0, y0, x1, y1 float64, page int) *Table {
	base, ok := NewBase(x0, y0, x1, y1, page)
	if !ok {
		return nil
	}
	return &Table{Base: base}
}

func (t *Table) Type() ElementType { return ElementTypeTable }

// TableContent is a table populated with text. Rows holds one string per
// grid position, row-major, aligned with Cells.
type TableContent struct {
	Table
	Headers []string   `json:"headers,omitempty"`
	Indexes []string   `json:"indexes,omitempty"`
	Rows    [][]string `json:"content"`

	// PartRows holds the row count of each table merged into this one, in
	// merge order. It is empty for a table that was never merged.
	PartRows []int `json:"part_rows,omitempty"`
}

func (tc *TableContent) Type() ElementType { return ElementTypeTableContent }

// NbColumns returns the number of columns, read from the first row
func (tc *TableContent) NbColumns() int {
	if len(tc.Rows) == 0 {
		log := logger.WithComponent("model")
		log.Warn().Int("page", tc.Page).Msg("table content is empty, cannot get number of columns")
		return 0
	}
	return len(tc.Rows[0])
}

// FirstRowIsHeader reports whether every cell of the first row is labelled as
// a header.
func (tc *TableContent) FirstRowIsHeader() bool {
	if len(tc.Rows) == 0 || len(tc.Cells) == 0 {
		log := logger.WithComponent("model")
		log.Warn().Int("page", tc.Page).Msg("table content or cells empty, cannot check header row")
		return false
	}
	n := tc.NbColumns()
	if n > len(tc.Cells) {
		n = len(tc.Cells)
	}
	for _, c := range tc.Cells[:n] {
		if !c.Label.IsHeader() {
			return false
		}
	}
	return true
}

// SpanningCells returns, for each grid position anchoring a spanning cell,
// its row and column span, plus the positions covered by those spans that
// must be skipped when rendering. A spanning cell whose copy count is not a
// multiple of its column span is not rectangular: it is logged and rendered
// with a row span of 1.
func (tc *TableContent) SpanningCells() (map[int]Span, []int) {
	spans := make(map[int]Span)
	var skip []int
	if tc.Cells == nil {
		log := logger.WithComponent("model")
		log.Warn().Int("page", tc.Page).Msg("table has no cells, cannot get spanning cells")
		return spans, skip
	}

	nbColumns := 0
	if len(tc.Rows) > 0 {
		nbColumns = len(tc.Rows[0])
	}
	counts := make(map[SpanningCellID]int)
	for _, c := range tc.Cells {
		if c.SpanID != 0 {
			counts[c.SpanID]++
		}
	}

	processed := make(map[SpanningCellID]bool)
	for pos, c := range tc.Cells {
		if c.SpanID != 0 && processed[c.SpanID] {
			skip = append(skip, pos)
			continue
		}
		if !c.Label.IsSpanning() || c.SpanID == 0 {
			continue
		}

		// The run of identical copies stops at the end of the grid row.
		rowEnd := len(tc.Cells)
		if nbColumns > 0 {
			rowEnd = (pos/nbColumns + 1) * nbColumns
			if rowEnd > len(tc.Cells) {
				rowEnd = len(tc.Cells)
			}
		}
		colspan := 1
		for next := pos + 1; next < rowEnd && tc.Cells[next].SpanID == c.SpanID; next++ {
			colspan++
		}

		rowspan := 1
		if counts[c.SpanID]%colspan == 0 {
			rowspan = counts[c.SpanID] / colspan
		} else {
			log := logger.WithComponent("model")
			log.Warn().Int("page", tc.Page).Msg("spanning cell is not rectangular, table may be corrupted")
		}
		spans[pos] = Span{RowSpan: rowspan, ColSpan: colspan, ID: c.SpanID}
		processed[c.SpanID] = true
	}
	return spans, skip
}

// Merge appends other's cells and rows to tc and records other's page, box
// and row count. Cells are dropped when either side has none.
func (tc *TableContent) Merge(other *TableContent) {
	tc.PartRows = append(tc.parts(), other.parts()...)
	if tc.Cells != nil && other.Cells != nil {
		// span ids are local to a table; shift other's past tc's
		var offset SpanningCellID
		for _, c := range tc.Cells {
			offset = max(offset, c.SpanID)
		}
		n := len(tc.Cells)
		tc.Cells = append(tc.Cells, other.Cells...)
		for i := n; i < len(tc.Cells); i++ {
			if tc.Cells[i].SpanID != 0 {
				tc.Cells[i].SpanID += offset
			}
		}
	} else {
		tc.Cells = nil
	}
	tc.Rows = append(tc.Rows, other.Rows...)
	tc.recordMerge(&other.Base)
}

func (tc *TableContent) parts() []int {
	if len(tc.PartRows) > 0 {
		return tc.PartRows
	}
	return []int{len(tc.Rows)}
}

// Split undoes Merge: it returns one table per merged part, holding that
// part's rows and cells and, when recorded, its page and box. A table that
// was never merged is returned alone.
func (tc *TableContent) Split() []*TableContent {
	if len(tc.PartRows) == 0 {
		return []*TableContent{tc}
	}
	recorded := len(tc.Metadata.Pages) == len(tc.PartRows) && len(tc.Metadata.BBoxes) == len(tc.PartRows)
	out := make([]*TableContent, 0, len(tc.PartRows))
	row, cell := 0, 0
	for i, n := range tc.PartRows {
		end := min(row+n, len(tc.Rows))
		part := &TableContent{Rows: tc.Rows[row:end]}
		part.Base = tc.Base
		part.Metadata.Pages = nil
		part.Metadata.BBoxes = nil
		if recorded {
			part.Page = tc.Metadata.Pages[i]
			part.BBox = tc.Metadata.BBoxes[i]
		}
		if tc.Cells != nil {
			count := 0
			for _, r := range part.Rows {
				count += len(r)
			}
			last := min(cell+count, len(tc.Cells))
			part.Cells = tc.Cells[cell:last]
			cell = last
		}
		out = append(out, part)
		row = end
	}
	return out
}

// String joins cells with " | " and rows with newlines, prefixing headers
// and indexes when set.
func (tc *TableContent) String() string {
	rows := tc.Rows
	if tc.Headers != nil {
		rows = append([][]string{tc.Headers}, rows...)
	}
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		if tc.Indexes != nil && i < len(tc.Indexes) {
			row = append([]string{tc.Indexes[i]}, row...)
		}
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// ToMarkdown renders the rows as a Markdown grid, the first row acting as
// the header.
func (tc *TableContent) ToMarkdown() string {
	if len(tc.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for _, cell := range row {
			sb.WriteString(strings.ReplaceAll(cell, "\n", " "))
			sb.WriteString("|")
		}
		sb.WriteString("\n")
	}
	writeRow(tc.Rows[0])
	sb.WriteString("|")
	sb.WriteString(strings.Repeat("---|", len(tc.Rows[0])))
	sb.WriteString("\n")
	for _, row := range tc.Rows[1:] {
		writeRow(row)
	}
	return sb.String()
}

// ToLatex renders the table as a standalone LaTeX document using multirow
// and multicolumn for spanning cells.
func (tc *TableContent) ToLatex() string {
	spans, skip := tc.SpanningCells()
	return FlatTableToLatex(MakeFlatTable(spans, skip, tc.Rows))
}

// AsTable returns the detected-table part of tables and populated tables
func AsTable(e Element) (*Table, bool) {
	switch t := e.(type) {
	case *Table:
		return t, true
	case *TableContent:
		return &t.Table, true
	}
	return nil, false
}
