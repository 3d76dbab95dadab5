package rag

import (
	"bytes"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/folio/model"
)

// spanRows returns the cells of tc as written in an HTML table: positions
// covered by a spanning cell are omitted
func spanRows(tc *model.TableContent) [][]model.SpanCell {
	spans, skip := tc.SpanningCells()
	skipped := make(map[int]bool, len(skip))
	for _, i := range skip {
		skipped[i] = true
	}
	rows := make([][]model.SpanCell, len(tc.Rows))
	pos := -1
	for i, row := range tc.Rows {
		for _, text := range row {
			pos++
			if skipped[pos] {
				continue
			}
			cell := model.SpanCell{Text: text, RowSpan: 1, ColSpan: 1}
			if s, ok := spans[pos]; ok {
				cell.RowSpan, cell.ColSpan = s.RowSpan, s.ColSpan
			}
			rows[i] = append(rows[i], cell)
		}
	}
	return rows
}

// rowWidth returns the number of grid columns a written row covers
func rowWidth(row []model.SpanCell) int {
	width := 0
	for _, c := range row {
		width += max(c.ColSpan, 1)
	}
	return width
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

// renderHTMLTable renders written rows as an HTML table with rowspan and
// colspan attributes
func renderHTMLTable(rows [][]model.SpanCell) string {
	table := element(atom.Table)
	for _, row := range rows {
		tr := element(atom.Tr)
		for _, c := range row {
			td := element(atom.Td)
			if c.RowSpan > 1 {
				td.Attr = append(td.Attr, html.Attribute{Key: "rowspan", Val: strconv.Itoa(c.RowSpan)})
			}
			if c.ColSpan > 1 {
				td.Attr = append(td.Attr, html.Attribute{Key: "colspan", Val: strconv.Itoa(c.ColSpan)})
			}
			if c.Text != "" {
				td.AppendChild(&html.Node{Type: html.TextNode, Data: c.Text})
			}
			tr.AppendChild(td)
		}
		table.AppendChild(tr)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, table); err != nil {
		return ""
	}
	return buf.String()
}

// TableHTML renders tc as an HTML table, spanning cells included
func TableHTML(tc *model.TableContent) string {
	return renderHTMLTable(spanRows(tc))
}

// flatMarkdown renders a flat table as a Markdown grid, repeating the text
// of spanning cells in every position they cover. The first row is the
// header.
func flatMarkdown(ft model.FlatTable) string {
	rows := ft.Rows()
	if len(rows) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i, row := range rows {
		buf.WriteString("|")
		for _, cell := range row {
			buf.WriteString(cell)
			buf.WriteString("|")
		}
		if i == 0 && len(rows) > 1 {
			buf.WriteString("\n|")
			for range row {
				buf.WriteString("---|")
			}
		}
		if i < len(rows)-1 {
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// tableMarkdown renders written rows in the given table format
func tableMarkdown(rows [][]model.SpanCell, format TableFormat) string {
	if len(rows) == 0 {
		return ""
	}
	switch format {
	case TableFormatHTML:
		return renderHTMLTable(rows)
	case TableFormatLatex:
		return model.FlatTableToLatex(model.FlattenRows(rows, rowWidth(rows[0])))
	}
	return flatMarkdown(model.FlattenRows(rows, rowWidth(rows[0])))
}
