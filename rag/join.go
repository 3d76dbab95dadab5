package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tsawler/folio/model"
)

// nextCandidate returns the position of the element that continues the one
// at pos, skipping running heads and visual elements, or -1. Inferred
// elements are skipped only if a running head was skipped as well.
func nextCandidate(elements []model.Element, pos int) int {
	skippedExtra, skippedInferred := false, false
	for i := pos + 1; i < len(elements); i++ {
		e := elements[i]
		extra := e.Type().IsExtra()
		inferred := e.Meta().Inferred
		if !extra && e.Type() != model.ElementTypeVisual && !inferred {
			if skippedInferred && !skippedExtra {
				return -1
			}
			return i
		}
		if extra {
			skippedExtra = true
		}
		if inferred {
			skippedInferred = true
		}
	}
	return -1
}

// joinAcrossPages merges into each element the candidate that follows it on
// the next page when join accepts the pair, then removes the merged
// elements. It returns the number of merges.
func joinAcrossPages(l *model.Layout, join func(cur, next model.Element) bool) int {
	removed := make(map[int]bool)
	for i, e := range l.Elements {
		if removed[i] {
			continue
		}
		j := nextCandidate(l.Elements, i)
		if j < 0 || removed[j] {
			continue
		}
		next := l.Elements[j]
		if next.PageIndex() != e.PageIndex()+1 {
			continue
		}
		if join(e, next) {
			removed[j] = true
		}
	}
	if len(removed) == 0 {
		return 0
	}
	kept := make([]model.Element, 0, l.Len()-len(removed))
	for i, e := range l.Elements {
		if !removed[i] {
			kept = append(kept, e)
		}
	}
	l.Elements = kept
	return len(removed)
}

// JoinText merges a detected text paragraph with the text opening the next
// page when the sentence is not over: the first does not end with a period
// and the second does not start with a capital letter
func (m *Modifier) JoinText(l *model.Layout) int {
	return joinAcrossPages(l, func(cur, next model.Element) bool {
		p, ok := cur.(*model.Paragraph)
		if !ok || p.Kind != model.ElementTypeText || p.Metadata.Inferred || len(p.Words) == 0 {
			return false
		}
		q, ok := next.(*model.Paragraph)
		if !ok || q.Kind != model.ElementTypeText || len(q.Words) == 0 || q.Words[0].Content == "" {
			return false
		}
		if strings.HasSuffix(strings.TrimSpace(p.Words[len(p.Words)-1].Content), ".") {
			return false
		}
		first, _ := utf8.DecodeRuneInString(q.Words[0].Content)
		if unicode.IsUpper(first) {
			return false
		}
		return p.Merge(q) == nil
	})
}

// JoinLists merges a list with the list opening the next page when the
// latter starts with an item
func (m *Modifier) JoinLists(l *model.Layout) int {
	return joinAcrossPages(l, func(cur, next model.Element) bool {
		p, ok := cur.(*model.Paragraph)
		if !ok || p.Kind != model.ElementTypeList {
			return false
		}
		q, ok := next.(*model.Paragraph)
		if !ok || q.Kind != model.ElementTypeList || !m.startsWithItem(q) {
			return false
		}
		return p.Merge(q) == nil
	})
}

func (m *Modifier) startsWithItem(p *model.Paragraph) bool {
	if p.Metadata.ListIndexed {
		for _, i := range p.Metadata.ItemIdx {
			if i == 0 {
				return true
			}
		}
		return false
	}
	if len(p.Words) == 0 {
		return false
	}
	first := p.Words[0].Content
	return m.lists.HasStarter(first) || m.lists.IsNumberStarter(first)
}

// JoinTables merges a table with the table opening the next page when both
// have the same columns and the second does not repeat or restate the
// header
func (m *Modifier) JoinTables(l *model.Layout) int {
	tolerance := m.config.ColumnBoundariesTolerance
	return joinAcrossPages(l, func(cur, next model.Element) bool {
		t1, ok := cur.(*model.TableContent)
		if !ok || len(t1.Rows) == 0 {
			return false
		}
		t2, ok := next.(*model.TableContent)
		if !ok || len(t2.Rows) == 0 {
			return false
		}
		if t1.NbColumns() != t2.NbColumns() || equalRows(t1.Rows[0], t2.Rows[0]) || t2.FirstRowIsHeader() {
			return false
		}
		if !ColumnsMatching(t1, t2, tolerance) {
			return false
		}
		t1.Merge(t2)
		return true
	})
}

func equalRows(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ColumnsMatching reports whether the cells of the last row of t1 and of
// the first row of t2 have compatible column boundaries once both rows are
// shifted to start at x = 0. A boundary cuts a cell when it falls inside it
// by more than tolerance times the cell's width; spanning cells are ignored.
func ColumnsMatching(t1, t2 *model.TableContent, tolerance float64) bool {
	if t1.Cells == nil || t2.Cells == nil {
		return false
	}
	n1, n2 := t1.NbColumns(), t2.NbColumns()
	if n1 == 0 || n2 == 0 || len(t1.Cells) < n1 || len(t2.Cells) < n2 {
		return false
	}
	row1 := t1.Cells[len(t1.Cells)-n1:]
	row2 := t2.Cells[:n2]
	offset1, offset2 := row1[0].X0, row2[0].X0

	for _, c := range row1 {
		if cutsACell(c, row2, offset1, offset2, tolerance) {
			return false
		}
	}
	for _, c := range row2 {
		if cutsACell(c, row1, offset2, offset1, tolerance) {
			return false
		}
	}
	return true
}

func cutsACell(cur model.Cell, row []model.Cell, curOffset, rowOffset, tolerance float64) bool {
	x0, x1 := cur.X0-curOffset, cur.X1-curOffset
	for _, c := range row {
		if c.Label.IsSpanning() {
			continue
		}
		tol := tolerance * c.Width()
		lo, hi := c.X0+tol-rowOffset, c.X1-tol-rowOffset
		if (lo < x0 && x0 < hi) || (lo < x1 && x1 < hi) {
			return true
		}
	}
	return false
}
