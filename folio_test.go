package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/folio/config"
	"github.com/tsawler/folio/pipeline"
)

// samplePDF builds a document with one line of text per page
func samplePDF(lines ...string) []byte {
	objs := []string{"<< /Type /Catalog /Pages 2 0 R >>", ""}
	var kids []string
	first := 3
	for i := range lines {
		kids = append(kids, fmt.Sprintf("%d 0 R", first+2*i))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 300 200] /Resources << /Font << /F1 %d 0 R >> >> >>",
		strings.Join(kids, " "), len(lines), first+2*len(lines))
	for i, line := range lines {
		content := fmt.Sprintf("BT /F1 12 Tf 20 150 Td (%s) Tj ET", line)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R >>", first+2*i+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// textOnly is the default configuration without the OCR fallback, so
// tests behave the same with and without the ocr build tag
func textOnly() config.Config {
	c := config.Default()
	c.Extraction.Fallback = config.ExtractorNone
	return c
}

func TestOpen(t *testing.T) {
	_, _, err := Open("nonexistent.pdf").Text(context.Background())
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestNoDocument(t *testing.T) {
	_, err := (&Document{config: config.Default()}).Parse(context.Background())
	if err == nil {
		t.Error("expected error without a document")
	}
}

func TestText(t *testing.T) {
	doc := FromBytes("sample.pdf", samplePDF("Introduction", "Results", "Conclusion")).WithConfig(textOnly())

	text, warnings, err := doc.Text(context.Background())
	if err != nil {
		t.Fatalf("failed to extract text: %v", err)
	}
	for _, want := range []string{"Introduction", "Results", "Conclusion"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if strings.Index(text, "Introduction") > strings.Index(text, "Conclusion") {
		t.Error("pages out of order")
	}
}

func TestPageSelection(t *testing.T) {
	doc := FromBytes("sample.pdf", samplePDF("Introduction", "Results", "Conclusion")).WithConfig(textOnly())

	text, _, err := doc.Pages(2).Text(context.Background())
	if err != nil {
		t.Fatalf("failed to extract page 2: %v", err)
	}
	if !strings.Contains(text, "Results") {
		t.Errorf("expected page 2 text, got %q", text)
	}
	if strings.Contains(text, "Introduction") || strings.Contains(text, "Conclusion") {
		t.Errorf("unexpected text from other pages: %q", text)
	}

	if _, _, err := doc.Pages(4).Text(context.Background()); err == nil {
		t.Error("expected error for page out of range")
	}
}

func TestParse(t *testing.T) {
	result, err := FromBytes("sample.pdf", samplePDF("one", "two", "three", "four", "five")).
		WithConfig(textOnly()).
		BatchSize(2).
		Parse(context.Background())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(result.Batches) != 3 {
		t.Errorf("expected 3 batches, got %d", len(result.Batches))
	}
	if result.State != pipeline.StateEnriched {
		t.Errorf("expected state %s, got %s", pipeline.StateEnriched, result.State)
	}
	if got := result.Layout.PageCount(); got != 5 {
		t.Errorf("expected 5 pages, got %d", got)
	}
	for _, b := range result.Batches {
		if b.Extractor.String() != config.ExtractorPDFText {
			t.Errorf("batch %d read by %s", b.Index, b.Extractor)
		}
	}
}

func TestMarkdownAndXML(t *testing.T) {
	doc := FromBytes("sample.pdf", samplePDF("Hello")).WithConfig(textOnly())

	md, _, err := doc.Markdown(context.Background())
	if err != nil {
		t.Fatalf("markdown failed: %v", err)
	}
	if !strings.Contains(md, "Hello") {
		t.Errorf("expected markdown to contain Hello, got %q", md)
	}

	xml, _, err := doc.XML(context.Background())
	if err != nil {
		t.Fatalf("xml failed: %v", err)
	}
	if !strings.Contains(xml, "<layout") {
		t.Errorf("expected a layout root, got %q", xml)
	}
}

func TestChunks(t *testing.T) {
	result, _, err := FromBytes("sample.pdf", samplePDF("alpha", "beta")).WithConfig(textOnly()).Chunks(context.Background())
	if err != nil {
		t.Fatalf("chunks failed: %v", err)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
}

func TestInvalidConfig(t *testing.T) {
	c := textOnly()
	c.Output.Format = "docx"
	_, err := FromBytes("sample.pdf", samplePDF("x")).WithConfig(c).Parse(context.Background())
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yolo.yaml")
	records := `
extractor: yolov10
pages:
  - page: 0
    predictions:
      - {label: title, score: 0.9, bbox: [0.05, 0.15, 0.5, 0.3]}
`
	if err := os.WriteFile(path, []byte(records), 0o600); err != nil {
		t.Fatal(err)
	}

	result, err := FromBytes("sample.pdf", samplePDF("Overview")).WithConfig(textOnly()).Records(path).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	titles := 0
	for _, e := range result.Layout.Elements {
		if e.Type().String() == "title" {
			titles++
		}
	}
	if titles != 1 {
		t.Errorf("expected the detected title, got %d titles", titles)
	}
}

func TestImmutability(t *testing.T) {
	base := Open("doc.pdf")
	withPages := base.Pages(1, 2)
	_ = withPages.Pages(3)

	if len(base.pages) != 0 {
		t.Error("base document was modified")
	}
	if len(withPages.pages) != 2 {
		t.Errorf("expected 2 pages, got %d", len(withPages.pages))
	}

	batched := base.BatchSize(7)
	if base.config.Pipeline.BatchSize == 7 || batched.config.Pipeline.BatchSize != 7 {
		t.Error("BatchSize must only change the new document")
	}
}

func TestMust(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Must to panic")
		}
	}()
	Must(Open("nonexistent.pdf").PageCount())
}
