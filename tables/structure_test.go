package tables

import (
	"math"
	"testing"

	"github.com/tsawler/folio/model"
)

func makeBox(label string, score, x0, y0, x1, y1 float64) StructureBox {
	return StructureBox{Label: label, Score: score, BBox: model.MustBBox(x0, y0, x1, y1)}
}

func makeTable(x0, y0, x1, y1 float64, page int) *model.Table {
	t := model.NewTable(x0, y0, x1, y1, page)
	if t == nil {
		panic("invalid test table")
	}
	return t
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// twoByTwo returns the boxes of a 2x2 table with a header row and a
// duplicated first row
func twoByTwo() []StructureBox {
	return []StructureBox{
		makeBox(LabelRow, 0.9, 0.1, 0.1, 0.9, 0.3),
		makeBox(LabelRow, 0.8, 0.1, 0.3, 0.9, 0.5),
		makeBox(LabelRow, 0.5, 0.1, 0.11, 0.9, 0.3),
		makeBox(LabelColumn, 0.9, 0.1, 0.1, 0.5, 0.5),
		makeBox(LabelColumn, 0.7, 0.5, 0.1, 0.9, 0.5),
		makeBox(LabelColumnHeader, 0.9, 0.1, 0.1, 0.9, 0.3),
	}
}

// ============================================================================
// Grid Tests
// ============================================================================

func TestConvertGrid(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 2)
	NewStructureConverter().Convert(table, twoByTwo())

	if len(table.Cells) != 4 {
		t.Fatalf("got %d cells, want 4", len(table.Cells))
	}
	tests := []struct {
		x0, y0, x1, y1 float64
		confidence     float64
		label          model.CellLabel
	}{
		{0.1, 0.1, 0.5, 0.3, 0.9, model.CellLabelHeader},
		{0.5, 0.1, 0.9, 0.3, 0.8, model.CellLabelHeader},
		{0.1, 0.3, 0.5, 0.5, 0.85, model.CellLabelCell},
		{0.5, 0.3, 0.9, 0.5, 0.75, model.CellLabelCell},
	}
	for i, tt := range tests {
		c := table.Cells[i]
		if !near(c.X0, tt.x0) || !near(c.Y0, tt.y0) || !near(c.X1, tt.x1) || !near(c.Y1, tt.y1) {
			t.Errorf("cell %d bbox = %+v, want (%v,%v,%v,%v)", i, c.BBox, tt.x0, tt.y0, tt.x1, tt.y1)
		}
		if !near(c.Confidence, tt.confidence) {
			t.Errorf("cell %d confidence = %v, want %v", i, c.Confidence, tt.confidence)
		}
		if c.Label != tt.label {
			t.Errorf("cell %d label = %q, want %q", i, c.Label, tt.label)
		}
		if c.Page != 2 || c.Extractor != model.ExtractorTATR {
			t.Errorf("cell %d page/extractor = %d/%v", i, c.Page, c.Extractor)
		}
	}
}

func TestConvertLowScoreHeaderIgnored(t *testing.T) {
	boxes := twoByTwo()
	boxes[5].Score = 0.8

	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	NewStructureConverter().Convert(table, boxes)
	for i, c := range table.Cells {
		if c.Label != model.CellLabelCell {
			t.Errorf("cell %d label = %q, want plain cell", i, c.Label)
		}
	}
}

func TestFilterGridKeepsHigherScore(t *testing.T) {
	c := NewStructureConverter()
	kept := c.filterGrid([]StructureBox{
		makeBox(LabelColumn, 0.4, 0.1, 0.1, 0.5, 0.9),
		makeBox(LabelColumn, 0.9, 0.12, 0.1, 0.5, 0.9),
		makeBox(LabelRow, 0.3, 0.1, 0.1, 0.5, 0.9),
	})
	if len(kept) != 2 {
		t.Fatalf("got %d boxes, want 2", len(kept))
	}
	if kept[0].Score != 0.9 || kept[1].Label != LabelRow {
		t.Errorf("unexpected boxes kept: %+v", kept)
	}
}

func TestConvertNoRows(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	NewStructureConverter().Convert(table, []StructureBox{
		makeBox(LabelColumn, 0.9, 0.1, 0.1, 0.5, 0.5),
	})
	if len(table.Cells) != 0 {
		t.Errorf("got %d cells, want 0", len(table.Cells))
	}
	if table.BBox != model.MustBBox(0.1, 0.1, 0.9, 0.5) {
		t.Errorf("table bbox changed to %+v", table.BBox)
	}
}

// ============================================================================
// Spanning Cell Tests
// ============================================================================

func TestConvertSpanningCell(t *testing.T) {
	boxes := append(twoByTwo(), makeBox(LabelSpanningCell, 0.6, 0.1, 0.3, 0.9, 0.5))
	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	NewStructureConverter().Convert(table, boxes)

	if len(table.Cells) != 4 {
		t.Fatalf("got %d cells, want 4", len(table.Cells))
	}
	a, b := table.Cells[2], table.Cells[3]
	if a.SpanID == 0 || a.SpanID != b.SpanID {
		t.Fatalf("span ids = %d, %d, want one shared non-zero id", a.SpanID, b.SpanID)
	}
	if a.Label != model.CellLabelSpanning || a.Confidence != 0.6 {
		t.Errorf("spanning cell = %+v", a)
	}
	if table.Cells[0].SpanID != 0 {
		t.Error("header cell should not be spanned")
	}

	tc := &model.TableContent{Table: *table, Rows: [][]string{{"h1", "h2"}, {"x", "x"}}}
	spans, skip := tc.SpanningCells()
	if s, ok := spans[2]; !ok || s.RowSpan != 1 || s.ColSpan != 2 {
		t.Errorf("spans = %+v, want colspan 2 at 2", spans)
	}
	if len(skip) != 1 || skip[0] != 3 {
		t.Errorf("skip = %v, want [3]", skip)
	}
}

func TestConvertSpanningHeader(t *testing.T) {
	boxes := append(twoByTwo(), makeBox(LabelSpanningCell, 0.95, 0.1, 0.1, 0.9, 0.3))
	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	NewStructureConverter().Convert(table, boxes)

	for i := 0; i < 2; i++ {
		if table.Cells[i].Label != model.CellLabelSpanningHeader {
			t.Errorf("cell %d label = %q, want spanning header", i, table.Cells[i].Label)
		}
	}
	if table.Cells[0].SpanID != table.Cells[1].SpanID {
		t.Error("header copies should share a span id")
	}
}

func TestSpanIDsLocalToTable(t *testing.T) {
	c := NewStructureConverter()
	span := makeBox(LabelSpanningCell, 0.6, 0.1, 0.3, 0.9, 0.5)
	t1 := c.Convert(makeTable(0.1, 0.1, 0.9, 0.5, 0), append(twoByTwo(), span))
	t2 := NewStructureConverter().Convert(makeTable(0.1, 0.1, 0.9, 0.5, 1), append(twoByTwo(), span))
	if t1.Cells[2].SpanID != 1 || t2.Cells[2].SpanID != 1 {
		t.Errorf("span ids = %d, %d, want 1 in both tables", t1.Cells[2].SpanID, t2.Cells[2].SpanID)
	}
}

// ============================================================================
// Snap Tests
// ============================================================================

func TestConvertSnapsToTable(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.6, 0)
	NewStructureConverter().Convert(table, []StructureBox{
		makeBox(LabelRow, 0.9, 0.1, 0.12, 0.9, 0.3),
		makeBox(LabelRow, 0.9, 0.1, 0.3, 0.9, 0.48),
		makeBox(LabelColumn, 0.9, 0.105, 0.1, 0.5, 0.6),
		makeBox(LabelColumn, 0.9, 0.5, 0.1, 0.895, 0.6),
	})

	for _, i := range []int{0, 2} {
		if table.Cells[i].X0 != 0.1 {
			t.Errorf("cell %d x0 = %v, want 0.1", i, table.Cells[i].X0)
		}
	}
	for _, i := range []int{1, 3} {
		if table.Cells[i].X1 != 0.9 {
			t.Errorf("cell %d x1 = %v, want 0.9", i, table.Cells[i].X1)
		}
	}
	if !near(table.Y0, 0.12) || !near(table.Y1, 0.48) {
		t.Errorf("table y = (%v, %v), want (0.12, 0.48)", table.Y0, table.Y1)
	}
}
