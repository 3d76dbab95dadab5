package tables

import (
	"reflect"
	"testing"

	"github.com/tsawler/folio/model"
)

func TestPopulateInfersGrid(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	table.Metadata.Extractor = model.ExtractorYOLO
	outside := makeWord("below", 0.2, 0.7, 0.3, 0.75, 0)

	ocr := &model.Layout{}
	for _, w := range gridWords(0) {
		ocr.Append(w)
	}
	ocr.Append(outside)
	l := model.NewLayout(table)

	NewPopulator().Populate(ocr, l)

	tc, ok := l.Elements[0].(*model.TableContent)
	if !ok {
		t.Fatalf("element is %T, want *model.TableContent", l.Elements[0])
	}
	want := [][]string{
		{"", "", "", ""},
		{"", "a", "b", ""},
		{"", "c", "d", ""},
	}
	if !reflect.DeepEqual(tc.Rows, want) {
		t.Errorf("Rows = %q, want %q", tc.Rows, want)
	}
	if tc.Metadata.Extractor != model.ExtractorYOLO {
		t.Error("table metadata lost")
	}
	if ocr.Len() != 1 || ocr.Elements[0] != outside {
		t.Errorf("ocr keeps %d elements, want only the word outside the table", ocr.Len())
	}
}

func TestPopulateWithCellsFromLines(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 1)
	NewStructureConverter().Convert(table, twoByTwo())

	words := gridWords(1)
	words[0].Content = " a "
	tail := makeWord("tail", 0.92, 0.2, 0.98, 0.25, 1)
	line1 := &model.Line{Base: model.Base{BBox: model.MustBBox(0.2, 0.2, 0.98, 0.25), Page: 1},
		Words: []*model.Word{words[0], words[1], tail}}
	line2 := &model.Line{Base: model.Base{BBox: model.MustBBox(0.2, 0.35, 0.7, 0.4), Page: 1},
		Words: []*model.Word{words[2], words[3]}}
	ocr := model.NewLayout(line1, line2)
	l := model.NewLayout(table)

	NewPopulator().Populate(ocr, l)

	tc := l.Elements[0].(*model.TableContent)
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(tc.Rows, want) {
		t.Errorf("Rows = %q, want %q", tc.Rows, want)
	}
	if !tc.FirstRowIsHeader() {
		t.Error("first row should be a header row")
	}
	if len(line1.Words) != 1 || line1.Words[0] != tail {
		t.Errorf("line1 keeps %d words, want only the word outside the table", len(line1.Words))
	}
	if len(line2.Words) != 0 {
		t.Errorf("line2 keeps %d words, want 0", len(line2.Words))
	}
}

func TestPopulateSpanningRow(t *testing.T) {
	table := makeTable(0.1, 0.1, 0.9, 0.5, 0)
	boxes := append(twoByTwo(), makeBox(LabelSpanningCell, 0.6, 0.1, 0.3, 0.9, 0.5))
	NewStructureConverter().Convert(table, boxes)

	ocr := &model.Layout{}
	for _, w := range gridWords(0) {
		ocr.Append(w)
	}
	l := model.NewLayout(table)
	NewPopulator().Populate(ocr, l)

	tc := l.Elements[0].(*model.TableContent)
	want := [][]string{{"a", "b"}, {"c d", "c d"}}
	if !reflect.DeepEqual(tc.Rows, want) {
		t.Errorf("Rows = %q, want %q", tc.Rows, want)
	}
}

func TestPopulateWordInOneTableOnly(t *testing.T) {
	t1 := makeTable(0.1, 0.1, 0.5, 0.3, 0)
	t2 := makeTable(0.1, 0.1, 0.5, 0.3, 0)
	w := makeWord("x", 0.2, 0.15, 0.3, 0.2, 0)
	ocr := model.NewLayout(w)
	l := model.NewLayout(t1, t2)

	NewPopulator().Populate(ocr, l)

	first := l.Elements[0].(*model.TableContent)
	second := l.Elements[1].(*model.TableContent)
	if !holds(first, "x") {
		t.Error("first table should hold the word")
	}
	if holds(second, "x") {
		t.Error("second table should not hold the word")
	}
}

func holds(tc *model.TableContent, text string) bool {
	for _, row := range tc.Rows {
		for _, cell := range row {
			if cell == text {
				return true
			}
		}
	}
	return false
}

func TestPopulateSkipsPopulatedTables(t *testing.T) {
	tc := &model.TableContent{Table: *makeTable(0.1, 0.1, 0.5, 0.3, 0), Rows: [][]string{{"kept"}}}
	w := makeWord("x", 0.2, 0.15, 0.3, 0.2, 0)
	ocr := model.NewLayout(w)
	l := model.NewLayout(tc)

	NewPopulator().Populate(ocr, l)

	if l.Elements[0] != tc || ocr.Len() != 1 {
		t.Error("populated tables must be left alone")
	}
}
