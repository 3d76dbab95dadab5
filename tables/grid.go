package tables

import (
	"math"

	"github.com/tsawler/folio/model"
)

// BuildCells infers the cell grid of t from the words inside it. Column and
// row boundaries are the middles of the horizontal and vertical gaps left
// free by the words, completed with the table edges.
func BuildCells(t *model.Table, words []*model.Word) {
	cols, rows := detectSpace(t.BBox, words)
	cols = withEdges(cols, t.X0, t.X1)
	rows = withEdges(rows, t.Y0, t.Y1)

	t.Cells = []model.Cell{}
	for r := 0; r+1 < len(rows); r++ {
		for c := 0; c+1 < len(cols); c++ {
			if cell, ok := model.NewCell(cols[c], rows[r], cols[c+1], rows[r+1], t.Page); ok {
				t.Cells = append(t.Cells, cell)
			}
		}
	}
}

// detectSpace returns the middles of the free intervals along x and along y
// once every word is removed from the extent of the table and its words
func detectSpace(b model.BBox, words []*model.Word) (cols, rows []float64) {
	x := model.Interval{Start: b.X0, End: b.X1}
	y := model.Interval{Start: b.Y0, End: b.Y1}
	for _, w := range words {
		x.Start, x.End = math.Min(x.Start, w.X0), math.Max(x.End, w.X1)
		y.Start, y.End = math.Min(y.Start, w.Y0), math.Max(y.End, w.Y1)
	}

	xSpace := []model.Interval{x}
	ySpace := []model.Interval{y}
	for _, w := range words {
		xSpace = splitSpace(xSpace, round3(w.X0), round3(w.X1))
		ySpace = splitSpace(ySpace, round3(w.Y0), round3(w.Y1))
	}
	for _, s := range xSpace {
		cols = append(cols, s.Mid())
	}
	for _, s := range ySpace {
		rows = append(rows, s.Mid())
	}
	return cols, rows
}

// splitSpace removes [lo, hi] from every free interval
func splitSpace(space []model.Interval, lo, hi float64) []model.Interval {
	var next []model.Interval
	for _, s := range space {
		switch {
		case lo <= s.Start && s.Start <= hi && lo <= s.End && s.End <= hi:
			// covered
		case s.Start <= lo && lo <= s.End && s.Start <= hi && hi <= s.End:
			next = append(next, model.Interval{Start: s.Start, End: lo}, model.Interval{Start: hi, End: s.End})
		case s.Start <= lo && lo <= s.End:
			next = append(next, model.Interval{Start: s.Start, End: lo})
		case s.Start <= hi && hi <= s.End:
			next = append(next, model.Interval{Start: hi, End: s.End})
		default:
			next = append(next, s)
		}
	}
	return next
}

// withEdges adds lo before and hi after the boundaries when they do not
// already reach them
func withEdges(bounds []float64, lo, hi float64) []float64 {
	if len(bounds) == 0 {
		return bounds
	}
	if bounds[0] > lo {
		bounds = append([]float64{lo}, bounds...)
	}
	if bounds[len(bounds)-1] < hi {
		bounds = append(bounds, hi)
	}
	return bounds
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
