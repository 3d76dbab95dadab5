package layout

import (
	"github.com/tsawler/folio/model"
)

func makeWord(content string, x0, y0, x1, y1 float64, page int) *model.Word {
	w := model.NewWord(content, x0, y0, x1, y1, page)
	if w == nil {
		panic("invalid test word " + content)
	}
	return w
}

func makeParagraph(kind model.ElementType, x0, y0, x1, y1 float64, page int, words ...*model.Word) *model.Paragraph {
	p := model.NewParagraph(kind, x0, y0, x1, y1, page)
	if p == nil {
		panic("invalid test paragraph")
	}
	p.Words = words
	return p
}

func makeVisual(x0, y0, x1, y1 float64, page int) *model.VisualElement {
	base, ok := model.NewBase(x0, y0, x1, y1, page)
	if !ok {
		panic("invalid test visual element")
	}
	return &model.VisualElement{Base: base}
}

func makeLine(words ...*model.Word) *model.Line {
	line := newLine(words)
	if line == nil {
		panic("invalid test line")
	}
	return line
}

func wordLayout(words ...*model.Word) *model.Layout {
	l := &model.Layout{}
	for _, w := range words {
		l.Append(w)
	}
	return l
}

func contents(words []*model.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Content
	}
	return out
}

func indexOf(l *model.Layout, e model.Element) int {
	return l.Index(e)
}
