package layout

import (
	"testing"

	"github.com/tsawler/folio/model"
)

func sortWithColumns(l *model.Layout) *ReadingOrderResult {
	columns := NewColumnDetector().Detect(l, nil)
	return NewReadingOrderDetector().Sort(l, columns)
}

// ============================================================================
// Sort Tests
// ============================================================================

func TestSortLeftBeforeRight(t *testing.T) {
	a := makeParagraph(model.ElementTypeText, 0, 0.05, 0.4, 0.15, 0)
	b := makeParagraph(model.ElementTypeText, 0.6, 0.05, 1.0, 0.15, 0)

	result := sortWithColumns(model.NewLayout(b, a))

	if len(result.Unordered) != 0 {
		t.Errorf("got %d unordered elements, want 0", len(result.Unordered))
	}
	if result.Layout.Index(a) > result.Layout.Index(b) {
		t.Error("a should come before b")
	}
}

func TestSortTwoColumns(t *testing.T) {
	a1, a2, b1, b2 := twoColumnPage()
	result := sortWithColumns(model.NewLayout(b2, a2, b1, a1))

	want := []model.Element{a1, a2, b1, b2}
	if result.Layout.Len() != len(want) {
		t.Fatalf("got %d elements, want %d", result.Layout.Len(), len(want))
	}
	for i, e := range want {
		if result.Layout.Elements[i] != e {
			t.Errorf("position %d holds %v, want %v", i, result.Layout.Elements[i].BoundingBox(), e.BoundingBox())
		}
	}
	if len(result.Unordered) != 0 {
		t.Errorf("got %d unordered elements, want 0", len(result.Unordered))
	}
}

func TestSortTitleAboveColumns(t *testing.T) {
	title := makeParagraph(model.ElementTypeTitle, 0.3, 0.02, 0.7, 0.06, 0)
	a1, a2, b1, b2 := twoColumnPage()

	result := sortWithColumns(model.NewLayout(a1, b1, title, a2, b2))

	l := result.Layout
	if l.Elements[0] != title {
		t.Errorf("title should come first, got %v", l.Elements[0].BoundingBox())
	}
	if l.Index(a2) > l.Index(b1) {
		t.Error("left column should be read before the right one")
	}
}

func TestSortLeftPrecedesRightAcrossGutter(t *testing.T) {
	a1, a2, b1, b2 := twoColumnPage()
	l := model.NewLayout(a1, a2, b1, b2)
	columns := NewColumnDetector().Detect(l, nil)
	result := NewReadingOrderDetector().Sort(l, columns)

	for _, col := range columns[0] {
		for _, left := range result.Layout.Elements {
			for _, right := range result.Layout.Elements {
				lb, rb := left.BoundingBox(), right.BoundingBox()
				if !noColumnsBetween(lb, rb, []model.Column{col}) &&
					result.Layout.Index(left) > result.Layout.Index(right) {
					t.Errorf("%v placed after %v across gutter %v", lb, rb, col)
				}
			}
		}
	}
}

func TestSortMultiplePages(t *testing.T) {
	p0 := makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.2, 0)
	p1 := makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.2, 1)

	result := sortWithColumns(model.NewLayout(p1, p0))
	if result.Layout.Elements[0] != p0 || result.Layout.Elements[1] != p1 {
		t.Error("pages out of order")
	}
}

func TestSortUnreachedElements(t *testing.T) {
	p := makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.2, 0)
	result := NewReadingOrderDetector().Sort(model.NewLayout(p), nil)

	if len(result.Unordered) != 1 || result.Unordered[0] != p {
		t.Fatalf("got %d unordered elements, want 1", len(result.Unordered))
	}
	if result.Layout.Len() != 1 {
		t.Error("unordered element must still be kept")
	}
}

func TestSortKeepsTopColumnsOnFirstElement(t *testing.T) {
	a := makeParagraph(model.ElementTypeText, 0, 0.05, 0.4, 0.15, 0)
	b := makeParagraph(model.ElementTypeText, 0.6, 0.05, 1.0, 0.15, 0)

	result := sortWithColumns(model.NewLayout(a, b))
	first := result.Layout.Elements[0]
	if !hasColumn(first.Meta().Columns, 0.5, 0, 1) {
		t.Errorf("top gutter not kept on the first element: %v", first.Meta().Columns)
	}
}

func TestSortTwiceKeepsOneTopColumn(t *testing.T) {
	a := makeParagraph(model.ElementTypeText, 0, 0.05, 0.4, 0.15, 0)
	b := makeParagraph(model.ElementTypeText, 0.6, 0.05, 1.0, 0.15, 0)
	l := model.NewLayout(a, b)
	columns := NewColumnDetector().Detect(l, nil)

	d := NewReadingOrderDetector()
	d.Sort(l, columns)
	before := len(l.Elements[0].Meta().Columns)
	d.Sort(l, columns)

	if got := len(l.Elements[0].Meta().Columns); got != before {
		t.Errorf("got %d cached gutters after a second sort, want %d", got, before)
	}
}

// ============================================================================
// Refine Tests
// ============================================================================

func TestRefineSwapsInvertedTitles(t *testing.T) {
	right := makeParagraph(model.ElementTypeTitle, 0.55, 0.2, 0.95, 0.25, 0)
	left := makeParagraph(model.ElementTypeTitle, 0.05, 0.1, 0.45, 0.15, 0)
	columns := [][]model.Column{{{X: 0.5, Y0: 0, Y1: 1}}}

	l := model.NewLayout(right, left)
	NewReadingOrderDetector().Refine(l, columns)

	if l.Elements[0] != left || l.Elements[1] != right {
		t.Error("titles not swapped")
	}
}

func TestRefineKeepsTitlesBesideText(t *testing.T) {
	right := makeParagraph(model.ElementTypeTitle, 0.55, 0.2, 0.95, 0.25, 0)
	left := makeParagraph(model.ElementTypeTitle, 0.05, 0.1, 0.45, 0.15, 0)
	body := makeParagraph(model.ElementTypeText, 0.05, 0.3, 0.45, 0.5, 0)
	columns := [][]model.Column{{{X: 0.5, Y0: 0, Y1: 1}}}

	l := model.NewLayout(right, left, body)
	NewReadingOrderDetector().Refine(l, columns)

	if l.Elements[0] != right {
		t.Error("titles swapped although text sits beside the gutter")
	}
}

func TestRefineAnchorsExtras(t *testing.T) {
	body := makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.8, 0)
	header := makeParagraph(model.ElementTypeExtra, 0.1, 0.02, 0.9, 0.05, 0)
	footer := makeParagraph(model.ElementTypeExtra, 0.1, 0.95, 0.9, 0.98, 0)

	l := model.NewLayout(footer, body, header)
	NewReadingOrderDetector().Refine(l, nil)

	if l.Elements[0] != header || l.Elements[1] != body || l.Elements[2] != footer {
		t.Error("extras not anchored to the page edges")
	}

	l = model.NewLayout(footer, body, header)
	NewReadingOrderDetectorWithConfig(ReadingOrderConfig{ColumnOverlap: 0.1}).Refine(l, nil)
	if l.Elements[0] != footer {
		t.Error("extras moved although anchoring is disabled")
	}
}
