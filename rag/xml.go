package rag

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/tsawler/folio/model"
)

// spanned is implemented by elements that may have been joined across pages
type spanned interface {
	PageList() []int
	BBoxList() []model.BBox
}

// pagesAttr returns the JSON encoded pages and boxes of e
func pagesAttr(e model.Element) (pages, bboxes string) {
	s, ok := e.(spanned)
	if !ok {
		return "[]", "[]"
	}
	tuples := make([][4]float64, 0, len(s.BBoxList()))
	for _, b := range s.BBoxList() {
		tuples = append(tuples, b.Tuple())
	}
	p, _ := json.Marshal(s.PageList())
	b, _ := json.Marshal(tuples)
	return string(p), string(b)
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// xmlWriter streams a document tree as XML tokens
type xmlWriter struct {
	enc         *xml.Encoder
	tableFormat TableFormat
}

func (w *xmlWriter) start(name string, attrs ...xml.Attr) error {
	return w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *xmlWriter) end(name string) error {
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *xmlWriter) text(name, content string, attrs ...xml.Attr) error {
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	if content != "" {
		if err := w.enc.EncodeToken(xml.CharData(content)); err != nil {
			return err
		}
	}
	return w.end(name)
}

// WriteXML writes the hierarchy of l as an indented XML document rooted at
// a layout element
func (e *Exporter) WriteXML(out io.Writer, l *model.Layout) error {
	tree := BuildTree(l, e.config.AllowCrossPageNodes)
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	w := &xmlWriter{enc: xml.NewEncoder(out), tableFormat: e.config.XMLTableFormat}
	w.enc.Indent("", "    ")

	if err := w.start("layout"); err != nil {
		return err
	}
	err := tree.Walk(
		func(pos int) error { return w.open(tree.Elements[pos], tree.SplitCandidate[pos]) },
		func(pos int) error { return w.end(nodeName(tree.Elements[pos])) },
	)
	if err != nil {
		return fmt.Errorf("rag: writing xml: %w", err)
	}
	if err := w.end("layout"); err != nil {
		return err
	}
	return w.enc.Flush()
}

// XML returns the hierarchy of l as an XML document
func (e *Exporter) XML(l *model.Layout) (string, error) {
	var buf bytes.Buffer
	if err := e.WriteXML(&buf, l); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func nodeName(e model.Element) string {
	if e.Type() == model.ElementTypeTableContent {
		return "table"
	}
	return e.Type().String()
}

// open writes the start tag and content of a node; its children follow
func (w *xmlWriter) open(e model.Element, splitCandidate int) error {
	pages, bboxes := pagesAttr(e)
	attrs := []xml.Attr{attr("split_candidate", strconv.Itoa(splitCandidate))}

	switch el := e.(type) {
	case *model.Paragraph:
		attrs = append(attrs, attr("inferred", strconv.FormatBool(el.Metadata.Inferred)))
		if el.IsVertical() {
			attrs = append(attrs, attr("vertical", "true"))
		}
		attrs = append(attrs, attr("pages", pages), attr("bboxes", bboxes))
		if el.Kind == model.ElementTypeImage {
			attrs = append(attrs, attr("id", el.Metadata.ID))
		}
		if err := w.start(nodeName(e), attrs...); err != nil {
			return err
		}
		if el.Kind == model.ElementTypeList {
			return w.listContent(el)
		}
		return w.words(el.Words)

	case *model.TableContent:
		attrs = append(attrs, attr("pages", pages), attr("bboxes", bboxes))
		if err := w.start("table", attrs...); err != nil {
			return err
		}
		if w.tableFormat == TableFormatLatex {
			return w.enc.EncodeToken(xml.CharData(el.ToLatex()))
		}
		return w.tableRows(el)
	}
	return fmt.Errorf("unexpected node %s", e.Type())
}

func (w *xmlWriter) words(words []*model.Word) error {
	for _, word := range words {
		if err := w.text("word", word.Content, attr("fontname", word.Metadata.FontName)); err != nil {
			return err
		}
	}
	return nil
}

// listContent wraps items in li, or dd when the list has descriptions, and
// descriptions in dt
func (w *xmlWriter) listContent(p *model.Paragraph) error {
	items := make(map[int]bool, len(p.Metadata.ItemIdx))
	for _, i := range p.Metadata.ItemIdx {
		items[i] = true
	}
	descs := make(map[int]bool, len(p.Metadata.DescIdx))
	for _, i := range p.Metadata.DescIdx {
		descs[i] = true
	}
	itemTag := "li"
	if len(descs) > 0 {
		itemTag = "dd"
	}

	idx := 0
	for _, item := range p.Items() {
		tag := ""
		switch {
		case items[idx]:
			tag = itemTag
		case descs[idx]:
			tag = "dt"
		}
		idx += len(item)
		if tag == "" {
			if err := w.words(item); err != nil {
				return err
			}
			continue
		}
		if err := w.start(tag); err != nil {
			return err
		}
		if err := w.words(item); err != nil {
			return err
		}
		if err := w.end(tag); err != nil {
			return err
		}
	}
	return nil
}

// tableRows writes tr/td rows; spanning cells are written once with their
// rowspan and colspan
func (w *xmlWriter) tableRows(tc *model.TableContent) error {
	spans, skip := tc.SpanningCells()
	skipped := make(map[int]bool, len(skip))
	for _, i := range skip {
		skipped[i] = true
	}
	pos := -1
	for _, row := range tc.Rows {
		if err := w.start("tr"); err != nil {
			return err
		}
		for _, text := range row {
			pos++
			if skipped[pos] {
				continue
			}
			var attrs []xml.Attr
			if s, ok := spans[pos]; ok {
				if s.RowSpan > 1 {
					attrs = append(attrs, attr("rowspan", strconv.Itoa(s.RowSpan)))
				}
				if s.ColSpan > 1 {
					attrs = append(attrs, attr("colspan", strconv.Itoa(s.ColSpan)))
				}
			}
			if err := w.text("td", text, attrs...); err != nil {
				return err
			}
		}
		if err := w.end("tr"); err != nil {
			return err
		}
	}
	return nil
}
