package layout

import (
	"sort"

	"github.com/tsawler/folio/model"
)

// Edge names the top or bottom of a page
type Edge int

const (
	EdgeTop Edge = iota
	EdgeBottom
)

// String returns a string representation of the edge
func (e Edge) String() string {
	if e == EdgeBottom {
		return "bottom"
	}
	return "top"
}

// AnchorExtrasToEdges moves the extras, headers and footers that sit at the
// given edge of a page, before any other content when scanning from that edge,
// to the start (EdgeTop) or end (EdgeBottom) of that page's elements. Vertical
// paragraphs are skipped during the scan. Running heads thus never split the
// body text of a page.
func AnchorExtrasToEdges(l *model.Layout, edge Edge) {
	var toMove []model.Element
	for _, elements := range l.Pages() {
		byY := append([]model.Element(nil), elements...)
		sort.SliceStable(byY, func(i, j int) bool {
			bi, bj := byY[i].BoundingBox(), byY[j].BoundingBox()
			yi, yj := bi.Y0, bj.Y0
			if edge == EdgeBottom {
				yi, yj = -yi, -yj
			}
			if yi != yj {
				return yi < yj
			}
			return bi.X0 < bj.X0
		})
		for _, e := range byY {
			if p, ok := e.(*model.Paragraph); ok && p.IsVertical() {
				continue
			}
			if !e.Type().IsExtra() {
				break
			}
			toMove = append(toMove, e)
		}
	}
	if len(toMove) == 0 {
		return
	}

	moving := make(map[model.Element]bool, len(toMove))
	for _, e := range toMove {
		moving[e] = true
	}
	rest := make([]model.Element, 0, l.Len())
	for _, e := range l.Elements {
		if !moving[e] {
			rest = append(rest, e)
		}
	}
	if edge == EdgeTop {
		l.Elements = append(toMove, rest...)
	} else {
		reversed := make([]model.Element, len(toMove))
		for i, e := range toMove {
			reversed[len(toMove)-1-i] = e
		}
		l.Elements = append(rest, reversed...)
	}
	l.SortByPage()
}

// isEdgeExtra reports whether only extras, headers and footers come before
// target in elements
func isEdgeExtra(target model.Element, elements []model.Element) bool {
	for _, e := range elements {
		if !e.Type().IsExtra() {
			return false
		}
		if e == target {
			return true
		}
	}
	return false
}

// PromoteHeadersFooters retypes the extras that open a page as headers and
// those that close it as footers. An extra that is both becomes a footer when
// it sits in the lower half of the page.
func PromoteHeadersFooters(l *model.Layout) {
	for i, e := range l.Elements {
		p, ok := e.(*model.Paragraph)
		if !ok || p.Kind != model.ElementTypeExtra {
			continue
		}
		page := l.ElementsByPage(p.Page, false)
		reversed := make([]model.Element, len(page))
		for k, pe := range page {
			reversed[len(page)-1-k] = pe
		}

		header := isEdgeExtra(p, page)
		footer := isEdgeExtra(p, reversed)
		switch {
		case header && footer:
			if p.Y0 > 0.5 {
				l.Elements[i] = p.Retype(model.ElementTypeFooter)
			} else {
				l.Elements[i] = p.Retype(model.ElementTypeHeader)
			}
		case header:
			l.Elements[i] = p.Retype(model.ElementTypeHeader)
		case footer:
			l.Elements[i] = p.Retype(model.ElementTypeFooter)
		}
	}
}
