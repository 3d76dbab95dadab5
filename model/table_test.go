package model

import (
	"reflect"
	"strings"
	"testing"
)

// makeGrid builds a TableContent with one plain cell per row entry on page 0
func makeGrid(rows [][]string) *TableContent {
	return makeGridOnPage(rows, 0)
}

func makeGridOnPage(rows [][]string, page int) *TableContent {
	tc := &TableContent{Rows: rows}
	tc.BBox = MustBBox(0, 0, 1, 1)
	tc.Page = page
	nbRows := len(rows)
	for i, row := range rows {
		nbCols := len(row)
		for j := range row {
			c, _ := NewCell(float64(j)/float64(nbCols), float64(i)/float64(nbRows),
				float64(j+1)/float64(nbCols), float64(i+1)/float64(nbRows), page)
			tc.Cells = append(tc.Cells, c)
		}
	}
	return tc
}

// span marks the given grid positions as copies of one spanning cell
func span(tc *TableContent, id SpanningCellID, label CellLabel, positions ...int) {
	for _, pos := range positions {
		tc.Cells[pos].SpanID = id
		tc.Cells[pos].Label = label
	}
}

// ============================================================================
// Spanning Cell Tests
// ============================================================================

func TestSpanningCells2x2(t *testing.T) {
	tc := makeGrid([][]string{
		{"a", "a", "b"},
		{"a", "a", "c"},
		{"d", "e", "f"},
	})
	span(tc, 1, CellLabelSpanning, 0, 1, 3, 4)

	spans, skip := tc.SpanningCells()
	if len(spans) != 1 {
		t.Fatalf("SpanningCells() returned %d spans, want 1", len(spans))
	}
	s, ok := spans[0]
	if !ok {
		t.Fatalf("SpanningCells() has no span anchored at 0: %v", spans)
	}
	if s.RowSpan != 2 || s.ColSpan != 2 {
		t.Errorf("span = (%d, %d), want (2, 2)", s.RowSpan, s.ColSpan)
	}
	wantSkip := []int{1, 3, 4}
	if len(skip) != len(wantSkip) {
		t.Fatalf("skip = %v, want %v", skip, wantSkip)
	}
	for i := range skip {
		if skip[i] != wantSkip[i] {
			t.Errorf("skip = %v, want %v", skip, wantSkip)
			break
		}
	}
}

func TestSpanningCellsRowSpan(t *testing.T) {
	tc := makeGrid([][]string{
		{"h", "x"},
		{"h", "y"},
		{"h", "z"},
	})
	span(tc, 7, CellLabelSpanningHeader, 0, 2, 4)

	spans, skip := tc.SpanningCells()
	if got := spans[0]; got.RowSpan != 3 || got.ColSpan != 1 || got.ID != 7 {
		t.Errorf("span = %+v, want rowspan 3 colspan 1 id 7", got)
	}
	if len(skip) != 2 {
		t.Errorf("skip = %v, want 2 entries", skip)
	}
}

func TestSpanningCellsColSpanStopsAtRowEnd(t *testing.T) {
	// The last cell of row 0 and the first of row 1 share a span: the run
	// must not continue across the row boundary.
	tc := makeGrid([][]string{
		{"a", "s"},
		{"s", "b"},
	})
	span(tc, 3, CellLabelSpanning, 1, 2)

	spans, _ := tc.SpanningCells()
	if got := spans[1]; got.ColSpan != 1 || got.RowSpan != 2 {
		t.Errorf("span = %+v, want colspan 1 rowspan 2", got)
	}
}

func TestSpanningCellsNotRectangular(t *testing.T) {
	tc := makeGrid([][]string{
		{"s", "s"},
		{"s", "b"},
	})
	span(tc, 1, CellLabelSpanning, 0, 1, 2)

	spans, skip := tc.SpanningCells()
	if got := spans[0]; got.RowSpan != 1 || got.ColSpan != 2 {
		t.Errorf("span = %+v, want rowspan 1 colspan 2", got)
	}
	if len(skip) != 2 {
		t.Errorf("skip = %v, want 2 entries", skip)
	}
}

func TestSpanningCellsWithoutCells(t *testing.T) {
	tc := &TableContent{Rows: [][]string{{"a"}}}
	spans, skip := tc.SpanningCells()
	if len(spans) != 0 || len(skip) != 0 {
		t.Errorf("SpanningCells() = %v, %v, want empty", spans, skip)
	}
}

// ============================================================================
// TableContent Tests
// ============================================================================

func TestFirstRowIsHeader(t *testing.T) {
	tests := []struct {
		name   string
		labels []CellLabel
		want   bool
	}{
		{"all headers", []CellLabel{CellLabelHeader, CellLabelSpanningHeader}, true},
		{"one plain", []CellLabel{CellLabelHeader, CellLabelCell}, false},
		{"spanning body", []CellLabel{CellLabelSpanning, CellLabelHeader}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := makeGrid([][]string{{"a", "b"}, {"c", "d"}})
			for i, l := range tt.labels {
				tc.Cells[i].Label = l
			}
			if got := tc.FirstRowIsHeader(); got != tt.want {
				t.Errorf("FirstRowIsHeader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableContentString(t *testing.T) {
	tc := makeGrid([][]string{{"a", "b"}, {"c", "d"}})
	if got, want := tc.String(), "a | b\nc | d"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := tc.NbColumns(); got != 2 {
		t.Errorf("NbColumns() = %d, want 2", got)
	}
}

func TestTableContentMerge(t *testing.T) {
	first := makeGrid([][]string{{"h1", "h2"}, {"a", "b"}})
	second := makeGridOnPage([][]string{{"c", "d"}}, 1)

	first.Merge(second)

	if len(first.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(first.Rows))
	}
	if len(first.Cells) != 6 {
		t.Errorf("cells = %d, want 6", len(first.Cells))
	}
	if got := first.PageList(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("PageList() = %v, want [0 1]", got)
	}
	if got := first.BBoxList(); len(got) != 2 {
		t.Errorf("BBoxList() has %d boxes, want 2", len(got))
	}
	if got := first.PartRows; !reflect.DeepEqual(got, []int{2, 1}) {
		t.Errorf("PartRows = %v, want [2 1]", got)
	}
}

func TestTableContentMergeShiftsSpanIDs(t *testing.T) {
	first := makeGrid([][]string{{"a", "a"}, {"b", "c"}})
	span(first, 1, CellLabelSpanning, 0, 1)
	second := makeGridOnPage([][]string{{"d", "d"}}, 1)
	span(second, 1, CellLabelSpanning, 0, 1)

	first.Merge(second)

	if first.Cells[4].SpanID != 2 || first.Cells[5].SpanID != 2 {
		t.Errorf("merged span ids = %d, %d, want 2", first.Cells[4].SpanID, first.Cells[5].SpanID)
	}
	if second.Cells[0].SpanID != 1 {
		t.Errorf("Merge changed the merged table: span id %d", second.Cells[0].SpanID)
	}
	spans, _ := first.SpanningCells()
	if len(spans) != 2 {
		t.Errorf("got %d spans after merge, want 2", len(spans))
	}
}

func TestTableContentSplit(t *testing.T) {
	partRows := [][][]string{
		{{"h1", "h2"}, {"a", "b"}},
		{{"c", "d"}, {"e", "f"}},
		{{"g", "h"}},
	}
	merged := makeGridOnPage(partRows[0], 0)
	for page, rows := range partRows[1:] {
		merged.Merge(makeGridOnPage(rows, page+1))
	}

	parts := merged.Split()
	if len(parts) != len(partRows) {
		t.Fatalf("Split() returned %d parts, want %d", len(parts), len(partRows))
	}
	for i, part := range parts {
		if !reflect.DeepEqual(part.Rows, partRows[i]) {
			t.Errorf("part %d rows = %v, want %v", i, part.Rows, partRows[i])
		}
		if part.Page != i {
			t.Errorf("part %d page = %d, want %d", i, part.Page, i)
		}
		if len(part.Cells) != 2*len(partRows[i]) {
			t.Fatalf("part %d has %d cells, want %d", i, len(part.Cells), 2*len(partRows[i]))
		}
		for _, c := range part.Cells {
			if c.Page != i {
				t.Errorf("part %d holds a cell of page %d", i, c.Page)
			}
		}
	}
}

func TestTableContentSplitUnmerged(t *testing.T) {
	tc := makeGrid([][]string{{"a"}})
	if parts := tc.Split(); len(parts) != 1 || parts[0] != tc {
		t.Errorf("Split() = %v, want the table itself", parts)
	}
}

func TestTableContentMergeDropsCells(t *testing.T) {
	first := makeGrid([][]string{{"a"}})
	second := &TableContent{Rows: [][]string{{"b"}}}
	second.BBox = MustBBox(0, 0, 1, 1)
	first.Merge(second)
	if first.Cells != nil {
		t.Errorf("Cells = %v, want nil when one side has none", first.Cells)
	}
}

func TestTableContentToMarkdown(t *testing.T) {
	tc := makeGrid([][]string{{"Name", "Age"}, {"Alice", "30"}})
	want := "|Name|Age|\n|---|---|\n|Alice|30|\n"
	if got := tc.ToMarkdown(); got != want {
		t.Errorf("ToMarkdown() = %q, want %q", got, want)
	}
}

// ============================================================================
// Flat Table / LaTeX Tests
// ============================================================================

func TestMakeFlatTable(t *testing.T) {
	tc := makeGrid([][]string{
		{"a", "a", "b"},
		{"a", "a", "c"},
	})
	span(tc, 1, CellLabelSpanning, 0, 1, 3, 4)
	spans, skip := tc.SpanningCells()
	flat := MakeFlatTable(spans, skip, tc.Rows)

	kinds := [][]FlatCellKind{
		{FlatCellText, FlatCellColCont, FlatCellText},
		{FlatCellRowCont, FlatCellColCont, FlatCellText},
	}
	for i := range kinds {
		for j := range kinds[i] {
			if flat[i][j].Kind != kinds[i][j] {
				t.Errorf("flat[%d][%d].Kind = %v, want %v", i, j, flat[i][j].Kind, kinds[i][j])
			}
		}
	}
	if flat[1][2].Text != "c" {
		t.Errorf("flat[1][2].Text = %q, want c", flat[1][2].Text)
	}

	rows := flat.Rows()
	if rows[1][1] != "a" || rows[0][1] != "a" {
		t.Errorf("Rows() = %v, want span text repeated", rows)
	}
}

func TestMakeFlatTableClipsOverflow(t *testing.T) {
	spans := map[int]Span{1: {RowSpan: 3, ColSpan: 3}}
	flat := MakeFlatTable(spans, nil, [][]string{{"a", "b"}, {"c", "d"}})
	if len(flat) != 2 || len(flat[0]) != 2 {
		t.Fatalf("flat table is %dx%d, want 2x2", len(flat), len(flat[0]))
	}
	if flat[0][1].Text != "b" || flat[1][1].Kind != FlatCellRowCont {
		t.Errorf("clipped span not placed: %+v", flat)
	}
}

func TestToLatex(t *testing.T) {
	tc := makeGrid([][]string{
		{"a", "a", "b_1"},
		{"a", "a", "c"},
	})
	span(tc, 1, CellLabelSpanning, 0, 1, 3, 4)
	latex := tc.ToLatex()

	for _, want := range []string{
		`\documentclass{standalone}`,
		`\usepackage{multirow}`,
		`\begin{tabular}{|c|c|c|}`,
		`\multicolumn{2}{|c|}{\multirow{2}{*}{a}}&b\_1\\`,
		`\cline{3-3}`,
		`\end{document}`,
	} {
		if !strings.Contains(latex, want) {
			t.Errorf("ToLatex() missing %q:\n%s", want, latex)
		}
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		ruled []bool
		want  string
	}{
		{[]bool{true, true}, "\\hline\n"},
		{[]bool{false, true, true}, "\\cline{2-3}\n"},
		{[]bool{true, false, true}, "\\cline{1-1}\n\\cline{3-3}\n"},
	}
	for _, tt := range tests {
		if got := rules(tt.ruled); got != tt.want {
			t.Errorf("rules(%v) = %q, want %q", tt.ruled, got, tt.want)
		}
	}
}
