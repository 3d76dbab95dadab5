package rag

import (
	"github.com/tsawler/folio/model"
)

func makeWord(content string, x0, y0, x1, y1 float64, page int) *model.Word {
	return &model.Word{
		Base:    model.Base{BBox: model.MustBBox(x0, y0, x1, y1), Page: page},
		Content: content,
	}
}

// makeLineWords lays words out left to right on one line at height y
func makeLineWords(y float64, page int, contents ...string) []*model.Word {
	words := make([]*model.Word, len(contents))
	x := 0.1
	for i, c := range contents {
		words[i] = makeWord(c, x, y, x+0.05, y+0.02, page)
		x += 0.06
	}
	return words
}

func makeParagraph(kind model.ElementType, page int, y0, y1 float64, words ...*model.Word) *model.Paragraph {
	return &model.Paragraph{
		Base:  model.Base{BBox: model.MustBBox(0.1, y0, 0.9, y1), Page: page},
		Kind:  kind,
		Words: words,
	}
}

// makeText builds a paragraph whose words are the space separated fields of
// text, all on one line
func makeText(kind model.ElementType, page int, y0, y1 float64, contents ...string) *model.Paragraph {
	return makeParagraph(kind, page, y0, y1, makeLineWords(y0, page, contents...)...)
}

// makeList builds a list paragraph with one line per item
func makeList(page int, y0 float64, lines ...[]string) *model.Paragraph {
	var words []*model.Word
	y := y0
	for _, line := range lines {
		words = append(words, makeLineWords(y, page, line...)...)
		y += 0.03
	}
	return makeParagraph(model.ElementTypeList, page, y0, y+0.01, words...)
}

// makeTable builds a populated table on a regular grid spanning x in
// [0.1, 0.9]
func makeTable(page int, y0 float64, rows ...[]string) *model.TableContent {
	ncols := len(rows[0])
	width := 0.8 / float64(ncols)
	tc := &model.TableContent{Rows: rows}
	y := y0
	for range rows {
		for j := 0; j < ncols; j++ {
			x := 0.1 + float64(j)*width
			tc.Cells = append(tc.Cells, model.Cell{
				BBox:  model.MustBBox(x, y, x+width, y+0.05),
				Page:  page,
				Label: model.CellLabelCell,
			})
		}
		y += 0.05
	}
	tc.Base = model.Base{BBox: model.MustBBox(0.1, y0, 0.9, y), Page: page}
	return tc
}
