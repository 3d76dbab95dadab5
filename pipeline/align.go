package pipeline

import (
	"github.com/tsawler/folio/model"
)

// emptyRatio returns the share of text, list, title and table elements of
// structure that have no word of words inside them, and their count
func emptyRatio(words, structure *model.Layout, within float64) (float64, int) {
	byPage := make(map[int][]model.BBox)
	if words != nil {
		for _, e := range words.Elements {
			switch el := e.(type) {
			case *model.Word:
				byPage[el.Page] = append(byPage[el.Page], el.BBox)
			case *model.Line:
				for _, w := range el.Words {
					byPage[w.Page] = append(byPage[w.Page], w.BBox)
				}
			}
		}
	}

	total, empty := 0, 0
	for _, e := range structure.Elements {
		switch e.Type() {
		case model.ElementTypeText, model.ElementTypeList, model.ElementTypeTitle, model.ElementTypeTable:
		default:
			continue
		}
		total++
		box := e.BoundingBox()
		found := false
		for _, w := range byPage[e.PageIndex()] {
			if model.IsBBoxWithin(w, box, within) {
				found = true
				break
			}
		}
		if !found {
			empty++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(empty) / float64(total), total
}
