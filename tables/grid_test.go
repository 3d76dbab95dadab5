package tables

import (
	"testing"

	"github.com/tsawler/folio/model"
)

func makeWord(content string, x0, y0, x1, y1 float64, page int) *model.Word {
	w := model.NewWord(content, x0, y0, x1, y1, page)
	if w == nil {
		panic("invalid test word " + content)
	}
	return w
}

// gridWords returns four words laid out as a 2x2 grid inside
// (0.1, 0.1, 0.9, 0.5)
func gridWords(page int) []*model.Word {
	return []*model.Word{
		makeWord("a", 0.2, 0.2, 0.3, 0.25, page),
		makeWord("b", 0.6, 0.2, 0.7, 0.25, page),
		makeWord("c", 0.2, 0.35, 0.3, 0.4, page),
		makeWord("d", 0.6, 0.35, 0.7, 0.4, page),
	}
}

func TestSplitSpace(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
		want   []model.Interval
	}{
		{"inside", 0.4, 0.6, []model.Interval{{Start: 0.2, End: 0.4}, {Start: 0.6, End: 0.8}}},
		{"covers", 0.1, 0.9, nil},
		{"overlaps end", 0.7, 0.9, []model.Interval{{Start: 0.2, End: 0.7}}},
		{"overlaps start", 0.1, 0.3, []model.Interval{{Start: 0.3, End: 0.8}}},
		{"outside", 0.85, 0.95, []model.Interval{{Start: 0.2, End: 0.8}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSpace([]model.Interval{{Start: 0.2, End: 0.8}}, tt.lo, tt.hi)
			if len(got) != len(tt.want) {
				t.Fatalf("splitSpace() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !near(got[i].Start, tt.want[i].Start) || !near(got[i].End, tt.want[i].End) {
					t.Errorf("splitSpace()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDetectSpace(t *testing.T) {
	cols, rows := detectSpace(model.MustBBox(0.1, 0.1, 0.9, 0.5), gridWords(0))

	wantCols := []float64{0.15, 0.45, 0.8}
	wantRows := []float64{0.15, 0.3, 0.45}
	if len(cols) != len(wantCols) || len(rows) != len(wantRows) {
		t.Fatalf("detectSpace() = %v, %v", cols, rows)
	}
	for i := range wantCols {
		if !near(cols[i], wantCols[i]) {
			t.Errorf("cols[%d] = %v, want %v", i, cols[i], wantCols[i])
		}
	}
	for i := range wantRows {
		if !near(rows[i], wantRows[i]) {
			t.Errorf("rows[%d] = %v, want %v", i, rows[i], wantRows[i])
		}
	}
}

func TestBuildCells(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 3)
	BuildCells(table, gridWords(3))

	// Edge gaps give one narrow row and column on each side.
	if len(table.Cells) != 16 {
		t.Fatalf("got %d cells, want 16", len(table.Cells))
	}
	first, last := table.Cells[0], table.Cells[15]
	if first.X0 != 0.1 || first.Y0 != 0.1 || last.X1 != 0.9 || last.Y1 != 0.5 {
		t.Errorf("grid does not reach the table edges: %+v .. %+v", first.BBox, last.BBox)
	}
	for i, c := range table.Cells {
		if c.Page != 3 || c.Label != model.CellLabelCell {
			t.Errorf("cell %d = %+v", i, c)
		}
	}
}

func TestBuildCellsNoWords(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	BuildCells(table, nil)

	// The whole table is one gap: its middle splits it in two each way.
	if len(table.Cells) != 4 {
		t.Errorf("got %d cells, want 4", len(table.Cells))
	}
}
