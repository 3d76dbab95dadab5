package layout

import (
	"testing"

	"github.com/tsawler/folio/model"
)

// makeGridTable returns a table whose box is split into rows x cols cells
func makeGridTable(x0, y0, x1, y1 float64, rows, cols int, ex model.Extractor) *model.Table {
	t := model.NewTable(x0, y0, x1, y1, 0)
	if t == nil {
		panic("invalid test table")
	}
	t.Metadata.Extractor = ex
	w, h := (x1-x0)/float64(cols), (y1-y0)/float64(rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell, ok := model.NewCell(x0+float64(c)*w, y0+float64(r)*h, x0+float64(c+1)*w, y0+float64(r+1)*h, 0)
			if !ok {
				panic("invalid test cell")
			}
			t.Cells = append(t.Cells, cell)
		}
	}
	return t
}

func withExtractor(p *model.Paragraph, ex model.Extractor) *model.Paragraph {
	p.Metadata.Extractor = ex
	return p
}

// ============================================================================
// Paragraph Filtering Tests
// ============================================================================

func TestAggregateDropsContainedParagraph(t *testing.T) {
	big := makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.5, 0)
	small := makeParagraph(model.ElementTypeText, 0.2, 0.2, 0.4, 0.3, 0)
	other := makeParagraph(model.ElementTypeText, 0.1, 0.6, 0.9, 0.8, 0)

	out := NewAggregator().Aggregate(model.NewLayout(big, small, other))

	if out.Len() != 2 || out.Index(small) >= 0 {
		t.Errorf("got %d elements, want the small paragraph dropped", out.Len())
	}
}

func TestAggregateKeepsNestedChain(t *testing.T) {
	// middle lies in outer and inner lies in middle only: middle goes, inner
	// stays because its only container is itself contained.
	outer := makeParagraph(model.ElementTypeText, 0.45, 0.45, 0.9, 0.9, 0)
	middle := makeParagraph(model.ElementTypeText, 0.4, 0.4, 0.6, 0.6, 0)
	inner := makeParagraph(model.ElementTypeText, 0.41, 0.41, 0.44, 0.44, 0)

	out := NewAggregator().Aggregate(model.NewLayout(outer, middle, inner))
	if out.Index(middle) >= 0 {
		t.Error("middle paragraph should be dropped")
	}
	if out.Index(outer) < 0 || out.Index(inner) < 0 {
		t.Error("outer and inner paragraphs should be kept")
	}
}

func TestAggregateAcrossLayouts(t *testing.T) {
	yolo := withExtractor(makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.5, 0), model.ExtractorYOLO)
	d2 := withExtractor(makeParagraph(model.ElementTypeText, 0.15, 0.15, 0.85, 0.45, 0), model.ExtractorDetectron2)

	out := NewAggregator().Aggregate(model.NewLayout(yolo), model.NewLayout(d2))
	if out.Len() != 1 || out.Elements[0] != yolo {
		t.Errorf("got %d elements, want the larger paragraph only", out.Len())
	}
}

func TestAggregateSkipsEmptyLayouts(t *testing.T) {
	p := makeParagraph(model.ElementTypeText, 0.1, 0.1, 0.9, 0.5, 0)
	out := NewAggregator().Aggregate(nil, &model.Layout{}, model.NewLayout(p))
	if out.Len() != 1 {
		t.Errorf("got %d elements, want 1", out.Len())
	}
}

// ============================================================================
// Table Filtering Tests
// ============================================================================

func TestAggregateKeepsTableWithMoreCells(t *testing.T) {
	six := makeGridTable(0.1, 0.1, 0.9, 0.5, 2, 3, model.ExtractorDocumentAI)
	nine := makeGridTable(0.12, 0.1, 0.9, 0.52, 3, 3, model.ExtractorDetectron2)

	out := NewAggregator().Aggregate(model.NewLayout(six), model.NewLayout(nine))

	if out.Len() != 1 || out.Elements[0] != nine {
		t.Errorf("got %d elements, want the 9-cell table", out.Len())
	}
}

func TestAggregateTableTieBreakOnArea(t *testing.T) {
	small := makeGridTable(0.1, 0.1, 0.8, 0.5, 2, 2, model.ExtractorYOLO)
	large := makeGridTable(0.1, 0.1, 0.9, 0.5, 2, 2, model.ExtractorTATR)

	out := NewAggregator().Aggregate(model.NewLayout(small), model.NewLayout(large))
	if out.Len() != 1 || out.Elements[0] != large {
		t.Error("want the larger of two tables with the same cell count")
	}
}

func TestAggregateSingleDetectorTable(t *testing.T) {
	text := makeParagraph(model.ElementTypeText, 0.1, 0.6, 0.9, 0.8, 0)
	tests := []struct {
		name    string
		ex      model.Extractor
		layouts int
		kept    bool
	}{
		{"yolo with two layouts", model.ExtractorYOLO, 2, true},
		{"detectron2 with two layouts", model.ExtractorDetectron2, 2, false},
		{"detectron2 alone", model.ExtractorDetectron2, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := makeGridTable(0.1, 0.1, 0.9, 0.5, 2, 2, tt.ex)
			layouts := []*model.Layout{model.NewLayout(table)}
			if tt.layouts > 1 {
				layouts = append(layouts, model.NewLayout(text))
			}
			out := NewAggregator().Aggregate(layouts...)
			if kept := out.Index(table) >= 0; kept != tt.kept {
				t.Errorf("table kept = %v, want %v", kept, tt.kept)
			}
		})
	}
}

func TestAggregateKeepsImageGroups(t *testing.T) {
	img1 := withExtractor(makeParagraph(model.ElementTypeImage, 0.25, 0.25, 0.75, 0.75, 0), model.ExtractorYOLO)
	img2 := withExtractor(makeParagraph(model.ElementTypeImage, 0.375, 0.25, 0.875, 0.75, 0), model.ExtractorDetectron2)

	out := NewAggregator().Aggregate(model.NewLayout(img1), model.NewLayout(img2))
	if out.Len() != 2 {
		t.Errorf("got %d elements, want both images", out.Len())
	}
}

func TestAggregateImageAgainstTable(t *testing.T) {
	img := withExtractor(makeParagraph(model.ElementTypeImage, 0.1, 0.1, 0.9, 0.5, 0), model.ExtractorYOLO)
	table := makeGridTable(0.1, 0.1, 0.9, 0.5, 2, 2, model.ExtractorDetectron2)

	out := NewAggregator().Aggregate(model.NewLayout(img), model.NewLayout(table))
	if out.Len() != 1 || out.Elements[0] != table {
		t.Error("the table should win over the overlapping image")
	}
}
