package rag

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/model"
)

// xmlNode is a parsed element of an exported XML document
type xmlNode struct {
	name     string
	attrs    map[string]string
	text     string
	children []*xmlNode
}

func (n *xmlNode) attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// parseXML reads an XML document into a node tree
func parseXML(r io.Reader) (*xmlNode, error) {
	dec := xml.NewDecoder(r)
	var stack []*xmlNode
	var root *xmlNode
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// iter calls fn on n and its descendants in document order
func (n *xmlNode) iter(fn func(*xmlNode)) {
	fn(n)
	for _, c := range n.children {
		c.iter(fn)
	}
}

// wordText joins the text of the word children of n
func (n *xmlNode) wordText() string {
	var parts []string
	for _, c := range n.children {
		if c.name == "word" && c.text != "" {
			parts = append(parts, c.text)
		}
	}
	return strings.Join(parts, " ")
}

// blockMeta is the metadata comment written before every block
type blockMeta struct {
	SplitCandidate int             `json:"split_candidate"`
	Type           string          `json:"type"`
	Pages          json.RawMessage `json:"pages"`
	BBoxes         json.RawMessage `json:"bboxes"`
	ID             *string         `json:"id,omitempty"`
}

func rawJSON(s string, ok bool) json.RawMessage {
	if !ok || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// MarkdownFromXML converts an XML document written by WriteXML to Markdown.
// Every block is preceded by an HTML comment holding its split candidate,
// type, pages and boxes; titles become headings nested by depth.
func (e *Exporter) MarkdownFromXML(r io.Reader) (string, error) {
	root, err := parseXML(r)
	if err != nil {
		return "", fmt.Errorf("rag: reading xml: %w", err)
	}
	var sb strings.Builder
	prevTitle := 0
	leaveTitle := func() {
		if prevTitle != 0 {
			prevTitle = 1
		}
	}

	root.iter(func(n *xmlNode) {
		if n.name == "word" {
			return
		}
		if sc, ok := n.attr("split_candidate"); ok {
			meta := blockMeta{Type: n.name}
			meta.SplitCandidate, _ = strconv.Atoi(sc)
			meta.Pages = rawJSON(n.attr("pages"))
			meta.BBoxes = rawJSON(n.attr("bboxes"))
			if n.name == "image" {
				id := n.attrs["id"]
				meta.ID = &id
			}
			b, _ := json.Marshal(meta)
			sb.WriteString("<!-- ")
			sb.Write(b)
			sb.WriteString(" -->\n")
		}

		switch n.name {
		case "list":
			sb.WriteString(e.xmlListMarkdown(n))
			sb.WriteString("\n\n")
			leaveTitle()
		case "title":
			sb.WriteString(layout.HeadingLevelForDepth(prevTitle).MarkdownPrefix())
			sb.WriteString(" ")
			prevTitle++
			sb.WriteString(n.wordText())
			sb.WriteString("\n\n")
		case "text", "extra", "header", "footer", "image":
			leaveTitle()
			sb.WriteString(n.wordText())
			sb.WriteString("\n\n")
		case "table":
			if strings.HasPrefix(strings.TrimSpace(n.text), `\documentclass`) {
				sb.WriteString(n.text)
			} else {
				sb.WriteString(tableMarkdown(xmlTableRows(n), e.config.MarkdownTableFormat))
			}
			sb.WriteString("\n\n")
		}
	})
	return sb.String(), nil
}

// xmlListMarkdown writes each li or dd item as a dash item, bullet mark
// removed, and each dt description as plain text
func (e *Exporter) xmlListMarkdown(list *xmlNode) string {
	var sb strings.Builder
	list.iter(func(n *xmlNode) {
		switch n.name {
		case "li", "dd":
			var words []string
			for _, c := range n.children {
				if c.name == "word" {
					words = append(words, c.text)
				}
			}
			if len(words) > 0 {
				words[0] = e.stripStarter(words[0])
			}
			sb.WriteString("- ")
			sb.WriteString(strings.TrimSpace(strings.Join(words, " ")))
			sb.WriteString("\n")
		case "dt":
			sb.WriteString(strings.TrimSpace(n.wordText()))
			sb.WriteString("\n")
		}
	})
	return sb.String()
}

func (e *Exporter) stripStarter(s string) string {
	for _, st := range e.lists.Starters {
		if st != "" && strings.HasPrefix(s, st) {
			s = strings.TrimRight(strings.Replace(s, st, "", 1), " \t")
		}
	}
	return s
}

// xmlTableRows reads the tr/td rows of a table node
func xmlTableRows(table *xmlNode) [][]model.SpanCell {
	var rows [][]model.SpanCell
	for _, tr := range table.children {
		if tr.name != "tr" {
			continue
		}
		var row []model.SpanCell
		for _, td := range tr.children {
			if td.name != "td" {
				continue
			}
			cell := model.SpanCell{Text: td.text, RowSpan: 1, ColSpan: 1}
			if v, err := strconv.Atoi(td.attrs["rowspan"]); err == nil {
				cell.RowSpan = v
			}
			if v, err := strconv.Atoi(td.attrs["colspan"]); err == nil {
				cell.ColSpan = v
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

// Markdown exports the hierarchy of l as Markdown, by way of its XML tree
func (e *Exporter) Markdown(l *model.Layout) (string, error) {
	var buf bytes.Buffer
	if err := e.WriteXML(&buf, l); err != nil {
		return "", err
	}
	return e.MarkdownFromXML(&buf)
}

// PlainMarkdown exports elements as Markdown without hierarchy metadata:
// bold and italic runs are marked, list items open on their own line and
// tables are Markdown grids
func (e *Exporter) PlainMarkdown(elements []model.Element) string {
	var sb strings.Builder
	prevTitle := 0
	leaveTitle := func() {
		if prevTitle != 0 {
			prevTitle = 1
		}
	}
	var words []*model.Word
	for _, el := range elements {
		switch v := el.(type) {
		case *model.Word:
			words = append(words, v)
		case *model.Line:
			sb.WriteString(joinStyled(v.Words))
			sb.WriteString("\n")
		case *model.Paragraph:
			switch v.Kind {
			case model.ElementTypeList:
				sb.WriteString(e.listMarkdown(v.Words))
				sb.WriteString("\n\n")
				leaveTitle()
				continue
			case model.ElementTypeTitle:
				sb.WriteString("\n")
				sb.WriteString(layout.HeadingLevelForDepth(prevTitle).MarkdownPrefix())
				sb.WriteString(" ")
				prevTitle++
			default:
				leaveTitle()
			}
			sb.WriteString(joinStyled(v.Words))
			sb.WriteString("\n\n")
		case *model.TableContent:
			if len(v.Rows) > 0 {
				sb.WriteString(v.ToMarkdown())
				sb.WriteString("\n\n")
			}
			leaveTitle()
		}
	}
	if len(words) > 0 {
		return joinStyled(words)
	}
	out := sb.String()
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

// joinStyled joins words with spaces, wrapping bold runs in ** and italic
// runs in *
func joinStyled(words []*model.Word) string {
	var sb strings.Builder
	bold, italic := false, false
	for i, w := range words {
		wb, wi := w.IsBold(), w.IsItalic()
		if italic && !wi {
			sb.WriteString("*")
		}
		if bold && !wb {
			sb.WriteString("**")
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		if wb && !bold {
			sb.WriteString("**")
		}
		if wi && !italic {
			sb.WriteString("*")
		}
		bold, italic = wb, wi
		sb.WriteString(w.Content)
	}
	if italic {
		sb.WriteString("*")
	}
	if bold {
		sb.WriteString("**")
	}
	return sb.String()
}

// listMarkdown opens a new line at every item: dash items become "- ",
// numbered items "n. " and upper case openings "- "
func (e *Exporter) listMarkdown(words []*model.Word) string {
	starts := e.lists.ClassifyLines(layout.SplitLines(words))
	var at []int
	kind := ""
	switch {
	case len(starts.Dash) > 1:
		at, kind = starts.Dash, "dash"
	case len(starts.Number) > 1:
		at, kind = starts.Number, "number"
	case len(starts.Upper) > 1:
		at, kind = starts.Upper, "upper"
	default:
		return joinStyled(words)
	}
	opens := make(map[int]bool, len(at))
	for _, i := range at {
		opens[i] = true
	}

	var sb strings.Builder
	for i, w := range words {
		if !opens[i] {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(w.Content)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		switch kind {
		case "dash":
			sb.WriteString("- ")
			sb.WriteString(strings.TrimSpace(e.stripStarter(w.Content)))
		case "number":
			number := strings.TrimSuffix(w.Content, ".")
			sb.WriteString(number)
			sb.WriteString(".")
		default:
			sb.WriteString("- ")
			sb.WriteString(w.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}
