package detect

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/gcp"
	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/ocr"
)

// DocumentAIConfig holds Document AI settings
type DocumentAIConfig struct {
	ProjectID        string          `yaml:"project_id"`
	Location         string          `yaml:"location"`
	ProcessorID      string          `yaml:"processor_id"`
	ProcessorVersion string          `yaml:"processor_version"`
	Credentials      gcp.Credentials `yaml:"credentials"`
	Timeout          time.Duration   `yaml:"timeout"`
}

// DefaultDocumentAIConfig returns sensible defaults
func DefaultDocumentAIConfig() DocumentAIConfig {
	return DocumentAIConfig{
		Location: "us",
		Timeout:  60 * time.Second,
	}
}

// ProcessorName returns the resource name of the configured processor
func (c DocumentAIConfig) ProcessorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
	if c.ProcessorVersion != "" {
		name += "/processorVersions/" + c.ProcessorVersion
	}
	return name
}

// DocumentAI runs a Document AI OCR processor over batch PDFs. Its
// paragraphs and tables serve as a layout Detector, its tokens as an
// ocr.Extractor; each batch is processed once for both.
type DocumentAI struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[int]*documentaipb.Document
}

// NewDocumentAI creates a DocumentAI detector on the regional endpoint of
// config.Location
func NewDocumentAI(ctx context.Context, config DocumentAIConfig) (*DocumentAI, error) {
	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, fmt.Errorf("detect: document ai needs a project and a processor id")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	config.Credentials = config.Credentials.FromEnv()
	opts := gcp.ClientOptions(config.Credentials, gcp.RegionalEndpoint("documentai", config.Location))
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("detect: create document ai client for %s: %w", config.Location, err)
	}
	return NewDocumentAIWithClient(client, config), nil
}

// NewDocumentAIWithClient creates a DocumentAI detector around an existing
// client
func NewDocumentAIWithClient(client *documentai.DocumentProcessorClient, config DocumentAIConfig) *DocumentAI {
	return &DocumentAI{
		client: client,
		config: config,
		logger: logger.WithComponent("detect"),
		cache:  make(map[int]*documentaipb.Document),
	}
}

// WithLogger replaces the component logger
func (d *DocumentAI) WithLogger(l zerolog.Logger) *DocumentAI {
	d.logger = l
	return d
}

// Close closes the underlying client
func (d *DocumentAI) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// Name identifies the extractor
func (d *DocumentAI) Name() model.Extractor { return model.ExtractorDocumentAI }

// process returns the processed document of a batch. The first caller of a
// batch processes it; the second one takes it out of the cache.
func (d *DocumentAI) process(ctx context.Context, batch ocr.Batch) (*documentaipb.Document, error) {
	d.mu.Lock()
	if doc, ok := d.cache[batch.Index]; ok {
		delete(d.cache, batch.Index)
		d.mu.Unlock()
		return doc, nil
	}
	d.mu.Unlock()

	if len(batch.PDF) == 0 {
		return nil, ocr.ErrNoPDF
	}
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}
	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  batch.PDF,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("detect: process batch %d: %w", batch.Index, err)
	}
	if resp.GetDocument() == nil {
		return nil, fmt.Errorf("detect: process batch %d: no document in response", batch.Index)
	}

	d.mu.Lock()
	d.cache[batch.Index] = resp.GetDocument()
	d.mu.Unlock()
	d.logger.Debug().Int("batch", batch.Index).Int("pages", len(resp.GetDocument().GetPages())).Msg("batch processed")
	return resp.GetDocument(), nil
}

// Detect returns the paragraphs and tables of the batch
func (d *DocumentAI) Detect(ctx context.Context, batch ocr.Batch) (*model.Layout, error) {
	doc, err := d.process(ctx, batch)
	if err != nil {
		return nil, err
	}
	return ElementsFromDocument(doc), nil
}

// ExtractWords returns the tokens of the batch as words
func (d *DocumentAI) ExtractWords(ctx context.Context, batch ocr.Batch) (*model.Layout, error) {
	doc, err := d.process(ctx, batch)
	if err != nil {
		return nil, &ocr.ExtractionError{Op: "extract words", Extractor: model.ExtractorDocumentAI, Err: err}
	}
	return WordsFromDocument(doc), nil
}

// pageIndex returns the 0-based page of a Document AI page
func pageIndex(p *documentaipb.Document_Page, i int) int {
	if n := p.GetPageNumber(); n > 0 {
		return int(n) - 1
	}
	return i
}

// ElementsFromDocument maps the paragraphs of a processed document onto
// Text elements and its tables onto Tables with their cell grid
func ElementsFromDocument(doc *documentaipb.Document) *model.Layout {
	out := &model.Layout{}
	for i, p := range doc.GetPages() {
		page := pageIndex(p, i)
		for _, para := range p.GetParagraphs() {
			b, ok := layoutBox(para.GetLayout(), p.GetDimension())
			if !ok {
				continue
			}
			text := model.NewParagraph(model.ElementTypeText, b[0], b[1], b[2], b[3], page)
			if text == nil {
				continue
			}
			text.Metadata.Confidence = float64(para.GetLayout().GetConfidence())
			text.Metadata.Extractor = model.ExtractorDocumentAI
			out.Append(text)
		}
		for _, t := range p.GetTables() {
			if table := tableFromDocument(t, p.GetDimension(), page); table != nil {
				out.Append(table)
			}
		}
	}
	return out
}

// WordsFromDocument maps the tokens of a processed document onto words
func WordsFromDocument(doc *documentaipb.Document) *model.Layout {
	out := &model.Layout{}
	for i, p := range doc.GetPages() {
		page := pageIndex(p, i)
		for _, tok := range p.GetTokens() {
			content := strings.TrimSpace(anchorText(doc.GetText(), tok.GetLayout().GetTextAnchor()))
			if content == "" {
				continue
			}
			b, ok := layoutBox(tok.GetLayout(), p.GetDimension())
			if !ok {
				continue
			}
			w := model.NewWord(content, b[0], b[1], b[2], b[3], page)
			if w == nil {
				continue
			}
			w.Metadata.Confidence = float64(tok.GetLayout().GetConfidence())
			w.Metadata.Extractor = model.ExtractorDocumentAI
			switch tok.GetLayout().GetOrientation() {
			case documentaipb.Document_Page_Layout_PAGE_LEFT, documentaipb.Document_Page_Layout_PAGE_RIGHT:
				w.Metadata.Vertical = true
			}
			out.Append(w)
		}
	}
	return out
}

// anchorText returns the document text an anchor points to
func anchorText(text string, anchor *documentaipb.Document_TextAnchor) string {
	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return sb.String()
}

// layoutBox returns the normalized box of a layout. Pixel vertices are
// normalized by the page dimension.
func layoutBox(l *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) ([4]float64, bool) {
	var xs, ys []float64
	poly := l.GetBoundingPoly()
	if nv := poly.GetNormalizedVertices(); len(nv) > 0 {
		for _, v := range nv {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	} else if dim.GetWidth() > 0 && dim.GetHeight() > 0 {
		for _, v := range poly.GetVertices() {
			xs = append(xs, float64(v.GetX())/float64(dim.GetWidth()))
			ys = append(ys, float64(v.GetY())/float64(dim.GetHeight()))
		}
	}
	if len(xs) == 0 {
		return [4]float64{}, false
	}
	b := [4]float64{xs[0], ys[0], xs[0], ys[0]}
	for i := range xs {
		b[0], b[2] = math.Min(b[0], xs[i]), math.Max(b[2], xs[i])
		b[1], b[3] = math.Min(b[1], ys[i]), math.Max(b[3], ys[i])
	}
	return b, true
}

// tableFromDocument builds a table whose cells follow the header and body
// rows of a Document AI table. A cell spanning several positions is
// repeated over all of them with one SpanID. When the rows do not fill a
// rectangular grid the table is returned without cells, so its grid is
// inferred from the words later on.
func tableFromDocument(t *documentaipb.Document_Page_Table, dim *documentaipb.Document_Page_Dimension, page int) *model.Table {
	b, ok := layoutBox(t.GetLayout(), dim)
	if !ok {
		return nil
	}
	table := model.NewTable(b[0], b[1], b[2], b[3], page)
	if table == nil {
		return nil
	}
	table.Metadata.Confidence = float64(t.GetLayout().GetConfidence())
	table.Metadata.Extractor = model.ExtractorDocumentAI

	type row struct {
		cells  []*documentaipb.Document_Page_Table_TableCell
		header bool
	}
	var rows []row
	for _, r := range t.GetHeaderRows() {
		rows = append(rows, row{cells: r.GetCells(), header: true})
	}
	for _, r := range t.GetBodyRows() {
		rows = append(rows, row{cells: r.GetCells()})
	}
	if len(rows) == 0 {
		return table
	}

	grid := make([][]*model.Cell, len(rows))
	width := 0
	var spanID model.SpanningCellID
	for r, rw := range rows {
		c := 0
		for _, dc := range rw.cells {
			for c < len(grid[r]) && grid[r][c] != nil {
				c++
			}
			rs, cs := max(1, int(dc.GetRowSpan())), max(1, int(dc.GetColSpan()))
			cb, ok := layoutBox(dc.GetLayout(), dim)
			if !ok {
				return table
			}
			cell, ok := model.NewCell(cb[0], cb[1], cb[2], cb[3], page)
			if !ok {
				return table
			}
			cell.Confidence = float64(dc.GetLayout().GetConfidence())
			cell.Extractor = model.ExtractorDocumentAI
			if rw.header {
				cell.Label = model.CellLabelHeader
			}
			if rs*cs > 1 {
				spanID++
				cell.SpanID = spanID
				cell.Label = model.CellLabelSpanning
				if rw.header {
					cell.Label = model.CellLabelSpanningHeader
				}
			}
			for i := r; i < min(r+rs, len(rows)); i++ {
				for j := c; j < c+cs; j++ {
					for len(grid[i]) <= j {
						grid[i] = append(grid[i], nil)
					}
					grid[i][j] = &cell
				}
			}
			c += cs
		}
		width = max(width, len(grid[r]))
	}

	cells := make([]model.Cell, 0, len(rows)*width)
	for _, gr := range grid {
		if len(gr) != width {
			return table
		}
		for _, cell := range gr {
			if cell == nil {
				return table
			}
			cells = append(cells, *cell)
		}
	}
	table.Cells = cells
	return table
}
