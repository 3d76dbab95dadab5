package layout

import (
	"regexp"
	"strings"

	"github.com/tsawler/folio/model"
)

// HeadingLevel represents the hierarchical level of a heading (H1-H6)
type HeadingLevel int

const (
	HeadingLevelUnknown HeadingLevel = iota
	HeadingLevel1                    // H1 - Main title/chapter
	HeadingLevel2                    // H2 - Major section
	HeadingLevel3                    // H3 - Subsection
	HeadingLevel4                    // H4 - Sub-subsection
	HeadingLevel5                    // H5 - Minor heading
	HeadingLevel6                    // H6 - Lowest level heading
)

// HeadingLevelForDepth maps a title nesting depth (0 for top-level titles)
// to a heading level, saturating at H6
func HeadingLevelForDepth(depth int) HeadingLevel {
	switch {
	case depth < 0:
		return HeadingLevel1
	case depth >= 5:
		return HeadingLevel6
	}
	return HeadingLevel(depth + 1)
}

// String returns a string representation of the heading level
func (l HeadingLevel) String() string {
	if l >= HeadingLevel1 && l <= HeadingLevel6 {
		return "h" + string(rune('0'+int(l)))
	}
	return "unknown"
}

// MarkdownPrefix returns the run of '#' for this level
func (l HeadingLevel) MarkdownPrefix() string {
	if l < HeadingLevel1 {
		l = HeadingLevel1
	}
	return strings.Repeat("#", int(l))
}

// AnchorID returns a URL-safe anchor ID for a heading text
func AnchorID(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, " ", "-")

	var result strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}

	id := result.String()
	for strings.Contains(id, "--") {
		id = strings.ReplaceAll(id, "--", "-")
	}
	return strings.Trim(id, "-")
}

// chapterPattern matches section numbers such as "2.1" or "3.4.1"
var chapterPattern = regexp.MustCompile(`^\d+(\.\d+)+`)

// IsChapterNumber reports whether s starts with a dotted section number
func IsChapterNumber(s string) bool {
	return chapterPattern.MatchString(s)
}

// extendTitles widens each title of a page over the elements right below it,
// so that gutters stop on the title instead of running through it. The
// elements below are those overlapping the title horizontally with the
// smallest y0, within TitleYTolerance of the title height. The widening is
// skipped when the wider title would overlap another element on its line.
func (d *ColumnDetector) extendTitles(elements []model.Element) {
	for _, current := range elements {
		if current.Type() != model.ElementTypeTitle {
			continue
		}
		title := current.BoundingBox()
		tolerance := title.Height() * d.config.TitleYTolerance

		var candidates []model.BBox
		for _, next := range elements {
			b := next.BoundingBox()
			if b.Y0 <= title.Y1 || !model.MatchInterval(b.XInterval(), title.XInterval()) {
				continue
			}
			switch {
			case len(candidates) == 0:
				candidates = append(candidates, b)
			case allBoxes(candidates, func(c model.BBox) bool { return c.Y0-tolerance < b.Y0 && b.Y0 < c.Y0+tolerance }):
				candidates = append(candidates, b)
			case allBoxes(candidates, func(c model.BBox) bool { return b.Y0 < c.Y0 }):
				candidates = []model.BBox{b}
			}
		}
		if len(candidates) == 0 {
			continue
		}

		extended := title.XInterval()
		for _, c := range candidates {
			if c.X0 < extended.Start {
				extended.Start = c.X0
			}
			if c.X1 > extended.End {
				extended.End = c.X1
			}
		}

		overlaps := false
		for _, other := range elements {
			if other == current {
				continue
			}
			b := other.BoundingBox()
			if model.MatchInterval(extended, b.XInterval()) && model.MatchInterval(title.YInterval(), b.YInterval()) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			current.Meta().ExtendedX = &extended
		}
	}
}

func allBoxes(boxes []model.BBox, pred func(model.BBox) bool) bool {
	for _, b := range boxes {
		if !pred(b) {
			return false
		}
	}
	return true
}

// columnsBetween returns the gutters lying horizontally between a and b that
// span both vertically
func columnsBetween(columns []model.Column, a, b model.BBox) []model.Column {
	var between []model.Column
	for _, c := range columns {
		if ((a.X1 < c.X && c.X < b.X0) || (b.X1 < c.X && c.X < a.X0)) &&
			model.MatchInterval(c.YInterval(), a.YInterval()) &&
			model.MatchInterval(c.YInterval(), b.YInterval()) {
			between = append(between, c)
		}
	}
	return between
}

// elementsBesideColumn returns the elements of page on either side of col
// with no other gutter between them and col
func elementsBesideColumn(col model.Column, elements []model.Element, columns []model.Column, page int) []model.Element {
	var side []model.Element
	for _, e := range elements {
		b := e.BoundingBox()
		if e.PageIndex() != page || !(col.X < b.X0 || col.X > b.X1) ||
			!model.MatchInterval(b.YInterval(), col.YInterval()) {
			continue
		}
		blocked := false
		for _, c := range columns {
			if c != col &&
				((col.X < c.X && c.X < b.X0) || (b.X1 < c.X && c.X < col.X)) &&
				model.MatchInterval(b.YInterval(), c.YInterval()) &&
				model.MatchInterval(col.YInterval(), c.YInterval()) {
				blocked = true
				break
			}
		}
		if !blocked {
			side = append(side, e)
		}
	}
	return side
}

// swapTitlesAcrossColumns reorders two consecutive titles of a page when the
// second sits higher than the first and only titles or extras flank the
// gutters between them. It returns the position to resume from.
func swapTitlesAcrossColumns(l *model.Layout, columns [][]model.Column, start int) int {
	elements := l.Elements
	pos := start
	for ; pos < len(elements); pos++ {
		current := elements[pos]
		if current.Type() != model.ElementTypeTitle || pos+1 >= len(elements) {
			continue
		}
		next := elements[pos+1]
		if next.Type() != model.ElementTypeTitle || next.PageIndex() != current.PageIndex() ||
			current.BoundingBox().Y0 <= next.BoundingBox().Y0 {
			continue
		}

		pageColumns := columnsOnPage(columns, current.PageIndex())
		onlyTitles := true
		for _, col := range columnsBetween(pageColumns, current.BoundingBox(), next.BoundingBox()) {
			for _, side := range elementsBesideColumn(col, elements, pageColumns, current.PageIndex()) {
				if t := side.Type(); t != model.ElementTypeTitle && !t.IsExtra() {
					onlyTitles = false
				}
			}
		}
		if onlyTitles {
			elements[pos], elements[pos+1] = next, current
			return pos + 1
		}
	}
	return pos + 1
}
