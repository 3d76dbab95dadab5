package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/ocr"
)

// testPDF assembles a single page PDF. Objects 1-3 are the catalog, page
// tree and page; extra objects are numbered from 4.
func testPDF(pageAttrs, content string, extra ...string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] %s /Contents %d 0 R >>", pageAttrs, 4+len(extra)),
	}
	objs = append(objs, extra...)
	objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

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

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

func extract(t *testing.T, data []byte) (*model.Layout, error) {
	t.Helper()
	return New().ExtractWords(context.Background(), ocr.Batch{PDF: data, PageCount: 1})
}

func contents(l *model.Layout) []string {
	var out []string
	for _, w := range l.Words() {
		out = append(out, w.Content)
	}
	return out
}

func TestExtractWords(t *testing.T) {
	data := testPDF("/Resources << /Font << /F1 4 0 R >> >>",
		"BT /F1 10 Tf 10 80 Td (Hello world) Tj ET 10 50 m 150 50 l S 10 20 m 15 20 l S",
		helvetica)

	l, err := extract(t, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "world"}, contents(l))

	hello := l.Words()[0]
	assert.InDelta(t, 0.05, hello.X0, 1e-9)
	assert.InDelta(t, 0.12, hello.Y0, 1e-9)
	assert.InDelta(t, 0.22, hello.Y1, 1e-9)
	assert.InDelta(t, (10+22.78)/200, hello.X1, 1e-9)
	assert.Equal(t, "Helvetica", hello.Metadata.FontName)
	assert.Equal(t, model.ExtractorPDFText, hello.Metadata.Extractor)
	assert.False(t, hello.Metadata.Vertical)
	assert.Equal(t, 0, hello.PageIndex())

	rules := l.VisualElements(false)
	require.Len(t, rules, 1, "short segment is not a rule")
	assert.InDelta(t, 0.5, rules[0].Y0, 1e-9)
	assert.InDelta(t, 0.51, rules[0].Y1, 1e-9)
	assert.InDelta(t, 0.75, rules[0].X1, 1e-9)
}

func TestExtractWordsKerning(t *testing.T) {
	data := testPDF("/Resources << /Font << /F1 4 0 R >> >>",
		"BT /F1 10 Tf 10 80 Td [(Hel) -50 (lo) -1000 (there)] TJ ET",
		helvetica)

	l, err := extract(t, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "there"}, contents(l))
}

func TestExtractWordsLines(t *testing.T) {
	data := testPDF("/Resources << /Font << /F1 4 0 R >> >>",
		"BT /F1 10 Tf 12 TL 10 80 Td (one) Tj T* (two) Tj (three) ' ET",
		helvetica)

	l, err := extract(t, data)
	require.NoError(t, err)
	words := l.Words()
	require.Len(t, words, 3)
	assert.Equal(t, []string{"one", "two", "three"}, contents(l))
	assert.InDelta(t, words[0].Y0+0.12, words[1].Y0, 1e-9)
	assert.InDelta(t, words[1].Y0+0.12, words[2].Y0, 1e-9)
}

func TestExtractWordsFormXObject(t *testing.T) {
	form := "BT /F1 10 Tf 0 0 Td (inside) Tj ET q"
	data := testPDF("/Resources << /Font << /F1 4 0 R >> /XObject << /Fm1 5 0 R >> >>",
		"q 1 0 0 1 20 30 cm /Fm1 Do Q BT /F1 10 Tf 100 80 Td (after) Tj ET",
		helvetica,
		fmt.Sprintf("<< /Type /XObject /Subtype /Form /BBox [0 0 100 100] /Matrix [1 0 0 1 10 0] /Length %d >>\nstream\n%s\nendstream", len(form), form))

	l, err := extract(t, data)
	require.NoError(t, err)
	words := l.Words()
	require.Len(t, words, 2)
	assert.Equal(t, "inside", words[0].Content)
	assert.InDelta(t, 30.0/200, words[0].X0, 1e-9)
	assert.Equal(t, "after", words[1].Content)
	assert.InDelta(t, 100.0/200, words[1].X0, 1e-9, "unbalanced q in the form must not move later text")
}

func TestExtractWordsRotatedPage(t *testing.T) {
	data := testPDF("/Rotate 90 /Resources << /Font << /F1 4 0 R >> >>",
		"BT /F1 10 Tf 10 80 Td (Hi) Tj ET",
		helvetica)

	l, err := extract(t, data)
	require.NoError(t, err)
	words := l.Words()
	require.Len(t, words, 1)
	assert.Equal(t, "Hi", words[0].Content)
	assert.True(t, words[0].Metadata.Vertical)
	// the page displays 100 wide and 200 high
	assert.InDelta(t, 0.78, words[0].X0, 1e-9)
	assert.InDelta(t, 0.88, words[0].X1, 1e-9)
	assert.InDelta(t, 0.05, words[0].Y0, 1e-9)
}

func TestExtractWordsQualityFaults(t *testing.T) {
	identity := "<< /Type /Font /Subtype /Type0 /BaseFont /Foo /Encoding /Identity-H /DescendantFonts [<< /Subtype /CIDFontType2 >>] >>"

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty page", testPDF("", "0 0 m 100 0 l S"), ocr.ErrEmptyContent},
		{"cid placeholders", testPDF("/Resources << /Font << /F1 4 0 R >> >>",
			"BT /F1 10 Tf 10 80 Td <00410042> Tj 30 0 Td <0043> Tj ET", identity), ocr.ErrManyCID},
		{"no pdf", nil, ocr.ErrNoPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := extract(t, tt.data)
			assert.Nil(t, l)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var extractionErr *ocr.ExtractionError
			require.ErrorAs(t, err, &extractionErr)
			assert.Equal(t, model.ExtractorPDFText, extractionErr.Extractor)
		})
	}
}

func TestExtractWordsEncrypted(t *testing.T) {
	data := testPDF("", "")
	data = bytes.Replace(data, []byte("/Root 1 0 R"), []byte("/Root 1 0 R /Encrypt 1 0 R"), 1)

	_, err := extract(t, data)
	require.Error(t, err)
	assert.True(t, ocr.IsQualityFault(err), "encrypted documents fall back to OCR")
}

func TestExtractWordsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().ExtractWords(ctx, ocr.Batch{PDF: testPDF("", "")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestName(t *testing.T) {
	assert.Equal(t, model.ExtractorPDFText, New().Name())
	assert.Equal(t, "pdftext", New().Name().String())
}
