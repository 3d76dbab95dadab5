package rag

import (
	"sort"

	"github.com/tsawler/folio/model"
)

const (
	// MaxTitleSplitCandidate is the weakest split candidate a title gets
	MaxTitleSplitCandidate = 6
	// MinParagraphSplitCandidate is the strongest split candidate an element
	// under a title gets, unless it opens a page
	MinParagraphSplitCandidate = 4

	// unsetSplitCandidate marks elements no rule ranked; compacted after
	// the scan
	unsetSplitCandidate = MaxTitleSplitCandidate + 1
)

// detector labels with a meaning for the hierarchy
const (
	labelTableCaption   = "table_caption"
	labelFigureCaption  = "figure_caption"
	labelFormulaCaption = "formula_caption"
	labelTableFootnote  = "table_footnote"
	labelFormula        = "isolate_formula"
)

func isCaption(label string) bool {
	return label == labelTableCaption || label == labelFigureCaption || label == labelFormulaCaption
}

// inTree reports whether elements of type t are nodes of the hierarchy
func inTree(t model.ElementType) bool {
	return t.IsParagraph() || t == model.ElementTypeTableContent
}

// Tree is the hierarchy of a document: titles own what follows them,
// captions own their table, figure or formula, and a paragraph ending with
// ':' owns the list after it. Nodes are positions in Elements.
type Tree struct {
	Elements []model.Element
	// Children lists the children of every node in position order
	Children map[int][]int
	// SplitCandidate ranks every node as a chunk boundary: 0 is the
	// strongest (a page break), higher values are weaker
	SplitCandidate map[int]int
	// Roots are the nodes that are nobody's child, in position order
	Roots []int
}

// BuildTree computes the hierarchy of l in one forward scan. When
// allowCrossPage is false, a node never has children on another page.
func BuildTree(l *model.Layout, allowCrossPage bool) *Tree {
	b := &treeBuilder{
		elements: l.Elements,
		children: make(map[int][]int),
		sc:       make(map[int]int),
		title:    -1,
	}
	b.scan()
	b.compact()
	if !allowCrossPage {
		b.dropCrossPage()
	}
	return &Tree{
		Elements:       b.elements,
		Children:       b.children,
		SplitCandidate: b.sc,
		Roots:          b.roots(),
	}
}

type treeBuilder struct {
	elements []model.Element
	children map[int][]int
	sc       map[int]int
	title    int // position of the open title, -1 when none
	level    int // nesting depth of consecutive titles
}

func (b *treeBuilder) label(pos int) string {
	if pos < 0 || pos >= len(b.elements) {
		return ""
	}
	return b.elements[pos].Meta().Label
}

func (b *treeBuilder) scan() {
	page := 0
	for pos, e := range b.elements {
		if !inTree(e.Type()) {
			continue
		}
		if _, ok := b.children[pos]; !ok {
			b.children[pos] = nil
		}
		if _, ok := b.sc[pos]; !ok {
			b.sc[pos] = unsetSplitCandidate
		}
		if e.PageIndex() != page {
			b.sc[pos] = 0
			if e.Type() == model.ElementTypeTitle {
				b.level = 1
			}
		}

		if e.Type() == model.ElementTypeTitle {
			b.addTitle(pos, e)
		} else {
			b.tableFootnote(pos, e)
			switch {
			case b.caption(pos, e):
			case b.listCaption(pos, e):
			case b.title >= 0:
				b.addUnderTitle(pos)
			}
			if b.level != 0 {
				b.level = 1
			}
		}
		page = e.PageIndex()
	}
}

// addTitle nests a title under the open one when it follows it directly,
// and a caption under the open title wherever it is
func (b *treeBuilder) addTitle(pos int, e model.Element) {
	caption := isCaption(e.Meta().Label)
	if b.title >= 0 && (b.title == pos-1 || caption) {
		b.children[b.title] = append(b.children[b.title], pos)
		b.sc[pos] = min(b.sc[pos], b.sc[b.title]+1)
		if !caption {
			b.level++
		}
	}
	b.sc[pos] = min(b.sc[pos], b.level, MaxTitleSplitCandidate)
	if b.title < 0 {
		b.level = 1
	}
	if !caption {
		b.title = pos
	}
}

func (b *treeBuilder) tableFootnote(pos int, e model.Element) {
	if e.Meta().Label == labelTableFootnote && pos > 0 &&
		b.elements[pos-1].Type() == model.ElementTypeTableContent {
		b.sc[pos] = b.sc[pos-1] + 1
	}
}

// caption links a table, image or formula to the caption just before or
// just after it. The caption becomes the parent, so it is written first.
func (b *treeBuilder) caption(pos int, e model.Element) bool {
	var want string
	switch {
	case e.Type() == model.ElementTypeTableContent:
		want = labelTableCaption
	case e.Type() == model.ElementTypeImage:
		want = labelFigureCaption
	case e.Meta().Label == labelFormula:
		want = labelFormulaCaption
	default:
		return false
	}

	if pos > 0 && b.label(pos-1) == want && !containsInt(b.children[pos-1], pos-2) {
		b.children[pos-1] = append(b.children[pos-1], pos)
		b.sc[pos] = b.sc[pos-1] + 1
		return true
	}
	if b.label(pos+1) == want {
		next := pos + 1
		b.children[next] = append(b.children[next], pos)
		b.sc[pos]++
		prev, ok := b.sc[next]
		if !ok {
			prev = unsetSplitCandidate
		}
		b.sc[next] = min(prev, b.sc[pos]-1)
		return true
	}
	return false
}

// listCaption makes a paragraph ending with ':' the parent of the list
// after it
func (b *treeBuilder) listCaption(pos int, e model.Element) bool {
	if e.Type() != model.ElementTypeList || pos == 0 {
		return false
	}
	prev, ok := b.elements[pos-1].(*model.Paragraph)
	if !ok || len(prev.Words) == 0 {
		return false
	}
	last := prev.Words[len(prev.Words)-1].Content
	if len(last) == 0 || last[len(last)-1] != ':' {
		return false
	}
	b.sc[pos] = b.sc[pos-1] + 1
	b.children[pos-1] = append(b.children[pos-1], pos)
	return true
}

func (b *treeBuilder) addUnderTitle(pos int) {
	b.children[b.title] = append(b.children[b.title], pos)
	if b.sc[pos] != 0 {
		b.sc[pos] = max(b.sc[b.title]+1, MinParagraphSplitCandidate)
	}
}

// compact closes the gap between the ranks set by the rules and the
// placeholder ranks of unranked elements
func (b *treeBuilder) compact() {
	top := -1
	for _, v := range b.sc {
		if v < unsetSplitCandidate && v > top {
			top = v
		}
	}
	for k, v := range b.sc {
		switch v {
		case unsetSplitCandidate:
			b.sc[k] = top + 1
		case unsetSplitCandidate + 1:
			b.sc[k] = top + 2
		}
	}
}

func (b *treeBuilder) dropCrossPage() {
	for parent, children := range b.children {
		kept := children[:0]
		page := b.elements[parent].PageIndex()
		for _, c := range children {
			if b.elements[c].PageIndex() == page {
				kept = append(kept, c)
			}
		}
		b.children[parent] = kept
	}
}

func (b *treeBuilder) roots() []int {
	isChild := make(map[int]bool)
	for parent, children := range b.children {
		sort.Ints(children)
		b.children[parent] = children
		for _, c := range children {
			isChild[c] = true
		}
	}
	var roots []int
	for pos := range b.children {
		if !isChild[pos] {
			roots = append(roots, pos)
		}
	}
	sort.Ints(roots)
	return roots
}

// Walk visits every node once in document order: a node, then its
// subtree. enter and leave bracket each node; a node reachable from two
// parents is visited under the first one.
func (t *Tree) Walk(enter, leave func(pos int) error) error {
	visited := make(map[int]bool)
	var visit func(pos int) error
	visit = func(pos int) error {
		if visited[pos] {
			return nil
		}
		visited[pos] = true
		if err := enter(pos); err != nil {
			return err
		}
		for _, c := range t.Children[pos] {
			if err := visit(c); err != nil {
				return err
			}
		}
		if leave != nil {
			return leave(pos)
		}
		return nil
	}
	for _, r := range t.Roots {
		if err := visit(r); err != nil {
			return err
		}
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
