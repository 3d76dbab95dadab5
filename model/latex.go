package model

import (
	"fmt"
	"strings"

	"github.com/tsawler/folio/internal/logger"
)

// FlatCellKind tells how a grid position relates to a spanning cell
type FlatCellKind int

const (
	// FlatCellText is a plain cell or the top-left anchor of a span
	FlatCellText FlatCellKind = iota
	// FlatCellRowCont is covered by a span from a row above, in the span's
	// first column
	FlatCellRowCont
	// FlatCellColCont is covered by a span from a column on the left
	FlatCellColCont
)

// FlatCell is one grid position of a flattened table
type FlatCell struct {
	Text    string
	Kind    FlatCellKind
	RowSpan int
	ColSpan int
	set     bool
}

// FlatTable is a rectangular grid where spanning cells are expanded into
// continuation markers.
type FlatTable [][]FlatCell

// SpanCell is a cell as written in a row: its text and extent. Positions
// covered by a span from an earlier cell are not written.
type SpanCell struct {
	Text    string
	RowSpan int
	ColSpan int
}

// MakeFlatTable places the rows of a table into a rectangular grid using the
// spans from SpanningCells. Spans overflowing the grid are clipped with a
// warning.
func MakeFlatTable(spans map[int]Span, skip []int, rows [][]string) FlatTable {
	if len(rows) == 0 {
		return nil
	}
	skipped := make(map[int]bool, len(skip))
	for _, pos := range skip {
		skipped[pos] = true
	}

	written := make([][]SpanCell, len(rows))
	pos := -1
	for i, row := range rows {
		for _, text := range row {
			pos++
			if skipped[pos] {
				continue
			}
			cell := SpanCell{Text: text, RowSpan: 1, ColSpan: 1}
			if s, ok := spans[pos]; ok {
				cell.RowSpan, cell.ColSpan = s.RowSpan, s.ColSpan
			}
			written[i] = append(written[i], cell)
		}
	}
	return FlattenRows(written, len(rows[0]))
}

// FlattenRows places written cells into a grid of the given width, each cell
// at the first free position of its row. Spans overflowing the grid are
// clipped with a warning.
func FlattenRows(rows [][]SpanCell, width int) FlatTable {
	if len(rows) == 0 || width <= 0 {
		return nil
	}
	log := logger.WithComponent("model")
	flat := make(FlatTable, len(rows))
	for i := range flat {
		flat[i] = make([]FlatCell, width)
	}

	for i, row := range rows {
		for _, cell := range row {
			rowspan, colspan := max(cell.RowSpan, 1), max(cell.ColSpan, 1)
			col := firstFree(flat[i])
			if col < 0 {
				continue
			}
			flat[i][col] = FlatCell{Text: cell.Text, Kind: FlatCellText, RowSpan: rowspan, ColSpan: colspan, set: true}
			for k := 1; k < colspan; k++ {
				if col+k >= width {
					log.Warn().Int("colspan", colspan).Int("width", width).Int("row", i).
						Msg("cell colspan exceeds row length, clipping")
					break
				}
				flat[i][col+k] = FlatCell{Kind: FlatCellColCont, RowSpan: rowspan, ColSpan: colspan, set: true}
			}
			for j := 1; j < rowspan; j++ {
				if i+j >= len(flat) {
					log.Warn().Int("rowspan", rowspan).Int("height", len(flat)).Int("row", i).
						Msg("cell rowspan exceeds table height, clipping")
					break
				}
				flat[i+j][col] = FlatCell{Kind: FlatCellRowCont, RowSpan: rowspan, ColSpan: colspan, set: true}
				for k := 1; k < colspan && col+k < width; k++ {
					flat[i+j][col+k] = FlatCell{Kind: FlatCellColCont, RowSpan: rowspan, ColSpan: colspan, set: true}
				}
			}
		}
	}

	for i := range flat {
		for j := range flat[i] {
			if !flat[i][j].set {
				flat[i][j] = FlatCell{Kind: FlatCellText, RowSpan: 1, ColSpan: 1, set: true}
			}
		}
	}
	return flat
}

func firstFree(row []FlatCell) int {
	for j, c := range row {
		if !c.set {
			return j
		}
	}
	return -1
}

// Rows returns the flattened text with span continuations filled with the
// spanned text, for formats without span support.
func (ft FlatTable) Rows() [][]string {
	out := make([][]string, len(ft))
	for i, row := range ft {
		out[i] = make([]string, len(row))
		for j, c := range row {
			switch {
			case c.Kind == FlatCellColCont && j > 0:
				out[i][j] = out[i][j-1]
			case c.Kind == FlatCellRowCont && i > 0:
				out[i][j] = out[i-1][j]
			default:
				out[i][j] = c.Text
			}
		}
	}
	return out
}

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\^{}`,
)

// FlatTableToLatex renders a flat table as a standalone LaTeX tabular.
// Horizontal rules are interrupted inside row spans.
func FlatTableToLatex(ft FlatTable) string {
	if len(ft) == 0 {
		return ""
	}
	width := len(ft[0])
	var sb strings.Builder
	sb.WriteString("\\documentclass{standalone}\n")
	sb.WriteString("\\usepackage{multirow}\n")
	sb.WriteString("\\begin{document}\n")
	sb.WriteString("\\begin{tabular}{|" + strings.Repeat("c|", width) + "}\n")
	sb.WriteString("\\hline\n")

	for i, row := range ft {
		var cells []string
		for _, c := range row {
			if c.Kind == FlatCellColCont {
				continue
			}
			text := latexReplacer.Replace(c.Text)
			switch {
			case c.Kind == FlatCellRowCont && c.ColSpan > 1:
				cells = append(cells, fmt.Sprintf("\\multicolumn{%d}{|c|}{}", c.ColSpan))
			case c.Kind == FlatCellRowCont:
				cells = append(cells, "")
			case c.RowSpan > 1 && c.ColSpan > 1:
				cells = append(cells, fmt.Sprintf("\\multicolumn{%d}{|c|}{\\multirow{%d}{*}{%s}}", c.ColSpan, c.RowSpan, text))
			case c.ColSpan > 1:
				cells = append(cells, fmt.Sprintf("\\multicolumn{%d}{|c|}{%s}", c.ColSpan, text))
			case c.RowSpan > 1:
				cells = append(cells, fmt.Sprintf("\\multirow{%d}{*}{%s}", c.RowSpan, text))
			default:
				cells = append(cells, text)
			}
		}
		sb.WriteString(strings.Join(cells, "&"))
		sb.WriteString("\\\\\n")

		ruled := make([]bool, width)
		for j := range ruled {
			ruled[j] = i+1 >= len(ft) || !continuesFromAbove(ft[i+1], j)
		}
		sb.WriteString(rules(ruled))
	}

	sb.WriteString("\\end{tabular}\n")
	sb.WriteString("\\end{document}")
	return sb.String()
}

// continuesFromAbove reports whether column j of row belongs to a row span
// started on an earlier row
func continuesFromAbove(row []FlatCell, j int) bool {
	for j > 0 && row[j].Kind == FlatCellColCont {
		j--
	}
	return row[j].Kind == FlatCellRowCont
}

// rules emits \hline when every column is ruled, \cline runs otherwise
func rules(ruled []bool) string {
	all := true
	for _, r := range ruled {
		all = all && r
	}
	if all {
		return "\\hline\n"
	}
	var sb strings.Builder
	for j := 0; j < len(ruled); {
		if !ruled[j] {
			j++
			continue
		}
		start := j
		for j < len(ruled) && ruled[j] {
			j++
		}
		sb.WriteString(fmt.Sprintf("\\cline{%d-%d}\n", start+1, j))
	}
	return sb.String()
}
