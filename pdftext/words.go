package pdftext

import (
	"math"
	"strings"

	"github.com/tsawler/folio/graphicsstate"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/pages"
)

// geometry maps user space onto display space for one page.
type geometry struct {
	width, height float64
	base          graphicsstate.Matrix
}

// pageGeometry flips the crop box so that the origin is its top-left
// corner, then applies the page rotation.
func pageGeometry(page *pages.Page) (geometry, error) {
	box, err := page.CropBox()
	if err != nil {
		return geometry{}, err
	}
	w, h := box[2]-box[0], box[3]-box[1]
	base := graphicsstate.Translate(-box[0], -box[3]).Multiply(graphicsstate.Scale(1, -1))

	switch page.Rotate() {
	case 90:
		base = base.Multiply(graphicsstate.Matrix{0, 1, -1, 0, h, 0})
		w, h = h, w
	case 180:
		base = base.Multiply(graphicsstate.Matrix{-1, 0, 0, -1, w, h})
	case 270:
		base = base.Multiply(graphicsstate.Matrix{0, -1, 1, 0, 0, w})
		w, h = h, w
	}
	return geometry{width: w, height: h, base: base}, nil
}

// normalize converts a display space box to page fractions, clipping it
// to the page. It returns false when nothing of the box is visible.
func (g geometry) normalize(x0, top, x1, bottom float64) (model.BBox, bool) {
	if g.width <= 0 || g.height <= 0 {
		return model.BBox{}, false
	}
	x0, x1 = math.Max(x0, 0), math.Min(x1, g.width)
	top, bottom = math.Max(top, 0), math.Min(bottom, g.height)
	return model.NewBBox(x0/g.width, top/g.height, x1/g.width, bottom/g.height)
}

// groupWords joins glyphs into words in content stream order. A word ends
// at a blank glyph, or when the next glyph does not directly follow the
// previous one in its writing direction.
func groupWords(chars []char, xTol, yTol float64) [][]char {
	var words [][]char
	var current []char
	flush := func() {
		if len(current) > 0 {
			words = append(words, current)
			current = nil
		}
	}
	for _, c := range chars {
		if isBlank(c.text) {
			flush()
			continue
		}
		if len(current) > 0 && beginsNewWord(current[len(current)-1], c, xTol, yTol) {
			flush()
		}
		current = append(current, c)
	}
	flush()
	return words
}

func beginsNewWord(prev, cur char, xTol, yTol float64) bool {
	if prev.vertical != cur.vertical {
		return true
	}
	ax, bx, cx := prev.x0, prev.x1, cur.x0
	ay, cy := prev.top, cur.top
	x, y := xTol, yTol
	if cur.vertical {
		ax, bx, cx = prev.top, prev.bottom, cur.top
		ay, cy = prev.x0, cur.x0
		x, y = yTol, xTol
	}
	return cx < ax || cx > bx+x || cy > ay+y || cy < ay-y
}

// toWord builds a model word from grouped glyphs.
func toWord(chars []char, g geometry, page int) *model.Word {
	var sb strings.Builder
	x0, top := math.Inf(1), math.Inf(1)
	x1, bottom := math.Inf(-1), math.Inf(-1)
	for _, c := range chars {
		sb.WriteString(c.text)
		x0, x1 = math.Min(x0, c.x0), math.Max(x1, c.x1)
		top, bottom = math.Min(top, c.top), math.Max(bottom, c.bottom)
	}
	box, ok := g.normalize(x0, top, x1, bottom)
	if !ok {
		return nil
	}
	w := model.NewWord(sb.String(), box.X0, box.Y0, box.X1, box.Y1, page)
	if w == nil {
		return nil
	}
	w.Metadata.FontName = chars[0].font
	w.Metadata.Vertical = chars[0].vertical
	w.Metadata.Extractor = model.ExtractorPDFText
	return w
}

// rules turns painted paths into visual elements: stroked segments at
// least minWidth wide, and filled rectangles of that width no thicker than
// maxThickness. The box is extended one point downwards so that even a
// hairline has an area.
func rules(path graphicsstate.Path, g geometry, page int, minWidth, maxThickness float64) []*model.VisualElement {
	var out []*model.VisualElement
	add := func(x0, top, x1, bottom float64) {
		if x1-x0 < minWidth {
			return
		}
		box, ok := g.normalize(x0, top, x1, bottom+1)
		if !ok {
			return
		}
		v := &model.VisualElement{Base: model.Base{BBox: box, Page: page}}
		v.Metadata.Extractor = model.ExtractorPDFText
		out = append(out, v)
	}
	for _, s := range path.Segments {
		add(math.Min(s.X0, s.X1), math.Min(s.Y0, s.Y1), math.Max(s.X0, s.X1), math.Max(s.Y0, s.Y1))
	}
	for _, r := range path.Rects {
		if r.Y1-r.Y0 <= maxThickness {
			add(r.X0, r.Y0, r.X1, r.Y1)
		}
	}
	return out
}
