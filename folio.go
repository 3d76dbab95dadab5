// Package folio provides a fluent API for turning PDF files into
// structured, enriched documents ready for retrieval augmented generation.
//
// Basic usage:
//
//	md, warnings, err := folio.Open("document.pdf").Markdown(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", strings.Join(warnings, "; "))
//	}
//
// With options:
//
//	xml, _, err := folio.Open("report.pdf").
//	    WithConfig(cfg).
//	    Pages(1, 2, 3).
//	    BatchSize(4).
//	    XML(ctx)
//
// For advanced use cases, the pipeline, layout and rag packages are also
// available.
package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/config"
	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/pipeline"
	"github.com/tsawler/folio/rag"
)

// Document configures the processing of one PDF. Each configuration
// method returns a new Document, so a base configuration can be shared
// and refined safely.
type Document struct {
	filename string
	name     string
	data     []byte

	config config.Config
	pages  []int
	logger *zerolog.Logger
}

// Open returns a Document reading the PDF file at filename. Nothing is read
// until a terminal operation such as Markdown is called.
//
// Example:
//
//	md, warnings, err := folio.Open("document.pdf").Markdown(ctx)
func Open(filename string) *Document {
	return &Document{filename: filename, name: filename, config: config.Default()}
}

// FromBytes returns a Document reading a PDF already in memory
//
// Example:
//
//	text, _, err := folio.FromBytes("upload.pdf", data).Text(ctx)
func FromBytes(name string, data []byte) *Document {
	return &Document{name: name, data: data, config: config.Default()}
}

// FromReader reads r to its end and returns a Document over its content
func FromReader(name string, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("folio: read %s: %w", name, err)
	}
	return FromBytes(name, data), nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	result := folio.Must(folio.Open("document.pdf").Parse(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustText is a helper that wraps a call to an export such as Markdown
// and panics if the error is non-nil. It discards warnings.
//
// Example:
//
//	md := folio.MustText(folio.Open("document.pdf").Markdown(ctx))
func MustText[T any](val T, _ []string, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func (d *Document) clone() *Document {
	c := *d
	c.pages = append([]int(nil), d.pages...)
	return &c
}

// WithConfig replaces the whole configuration. Page selection is kept.
func (d *Document) WithConfig(c config.Config) *Document {
	n := d.clone()
	n.config = c
	return n
}

// WithLogger sets the logger of the run
func (d *Document) WithLogger(l zerolog.Logger) *Document {
	n := d.clone()
	n.logger = &l
	return n
}

// Pages restricts processing to the given pages (1-indexed). Multiple
// calls are cumulative.
//
// Example:
//
//	md, _, err := folio.Open("doc.pdf").Pages(1, 3, 5).Markdown(ctx)
func (d *Document) Pages(pages ...int) *Document {
	n := d.clone()
	n.pages = append(n.pages, pages...)
	return n
}

// PageRange restricts processing to a range of pages (1-indexed,
// inclusive)
func (d *Document) PageRange(start, end int) *Document {
	n := d.clone()
	for i := start; i <= end; i++ {
		n.pages = append(n.pages, i)
	}
	return n
}

// BatchSize sets the number of pages processed together; 0 processes the
// document as one batch
func (d *Document) BatchSize(size int) *Document {
	n := d.clone()
	n.config.Pipeline.BatchSize = size
	return n
}

// Concurrency caps the batches processed at once
func (d *Document) Concurrency(n int) *Document {
	c := d.clone()
	c.config.Pipeline.Concurrency = n
	return c
}

// Extractors selects the primary and fallback word extractors by name,
// e.g. ("pdftext", "tesseract"). An empty fallback or "none" disables
// the fallback.
func (d *Document) Extractors(primary, fallback string) *Document {
	n := d.clone()
	n.config.Extraction.Primary = primary
	n.config.Extraction.Fallback = fallback
	return n
}

// Records adds layout detection from prediction files of external
// detectors, most trusted first
func (d *Document) Records(paths ...string) *Document {
	n := d.clone()
	n.config.Extraction.RecordFiles = append(append([]string(nil), n.config.Extraction.RecordFiles...), paths...)
	if !contains(n.config.Extraction.Detectors, config.ExtractorRecords) {
		n.config.Extraction.Detectors = append(append([]string(nil), n.config.Extraction.Detectors...), config.ExtractorRecords)
	}
	return n
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Parse runs the pipeline and returns the enriched document with the
// report of every batch
func (d *Document) Parse(ctx context.Context) (*pipeline.Result, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	log := logger.WithComponent("folio")
	if d.logger != nil {
		log = *d.logger
	}

	src, err := d.source()
	if err != nil {
		return nil, err
	}
	pages, err := d.resolvePages(src.PageCount())
	if err != nil {
		return nil, err
	}

	s, err := newStages(ctx, d.config, log)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	p := s.pipeline()
	if d.logger != nil {
		p.WithLogger(*d.logger)
	}
	return p.RunPages(ctx, src, pages)
}

// Layout runs the pipeline and returns the enriched document only
func (d *Document) Layout(ctx context.Context) (*model.Layout, []string, error) {
	result, err := d.Parse(ctx)
	if err != nil {
		return nil, warningsOf(result), err
	}
	return result.Layout, result.Warnings, nil
}

// Export runs the pipeline and writes the document to w in format
func (d *Document) Export(ctx context.Context, w io.Writer, format rag.Format) ([]string, error) {
	result, err := d.Parse(ctx)
	if err != nil {
		return warningsOf(result), err
	}
	exporter := rag.NewExporterWithConfig(d.config.Enrich)
	if err := exporter.Export(w, result.Layout, format); err != nil {
		return result.Warnings, err
	}
	result.State = pipeline.StateExported
	return result.Warnings, nil
}

func (d *Document) exportString(ctx context.Context, format rag.Format) (string, []string, error) {
	var buf bytes.Buffer
	warnings, err := d.Export(ctx, &buf, format)
	if err != nil {
		return "", warnings, err
	}
	return buf.String(), warnings, nil
}

// Markdown returns the document as Markdown, headings nested by section
//
// Example:
//
//	md, warnings, err := folio.Open("document.pdf").Markdown(ctx)
func (d *Document) Markdown(ctx context.Context) (string, []string, error) {
	return d.exportString(ctx, rag.FormatMarkdown)
}

// XML returns the document as an XML tree
func (d *Document) XML(ctx context.Context) (string, []string, error) {
	return d.exportString(ctx, rag.FormatXML)
}

// JSON returns the document as a JSON tree
func (d *Document) JSON(ctx context.Context) (string, []string, error) {
	return d.exportString(ctx, rag.FormatJSON)
}

// Text returns the content of the document in reading order
func (d *Document) Text(ctx context.Context) (string, []string, error) {
	return d.exportString(ctx, rag.FormatString)
}

// Chunks returns the document split at its section boundaries for
// retrieval
//
// Example:
//
//	result, _, err := folio.Open("document.pdf").Chunks(ctx)
//	for _, chunk := range result.Chunks {
//	    fmt.Println(chunk.ID, chunk.Text)
//	}
func (d *Document) Chunks(ctx context.Context) (*rag.ChunkResult, []string, error) {
	l, warnings, err := d.Layout(ctx)
	if err != nil {
		return nil, warnings, err
	}
	chunks, err := rag.NewChunkerWithConfig(d.config.Chunker, d.config.Enrich).Chunk(l)
	if err != nil {
		return nil, warnings, err
	}
	return chunks, warnings, nil
}

// PageCount returns the number of pages of the document
func (d *Document) PageCount() (int, error) {
	src, err := d.source()
	if err != nil {
		return 0, err
	}
	return src.PageCount(), nil
}

func (d *Document) source() (*pipeline.PDFSource, error) {
	if d.data != nil {
		return pipeline.NewPDFSource(d.name, d.data)
	}
	if d.filename == "" {
		return nil, errors.New("folio: no document specified")
	}
	return pipeline.OpenPDF(d.filename)
}

// resolvePages converts the 1-indexed selection to sorted 0-based pages
func (d *Document) resolvePages(count int) ([]int, error) {
	if len(d.pages) == 0 {
		pages := make([]int, count)
		for i := range pages {
			pages[i] = i
		}
		return pages, nil
	}
	pages := make([]int, 0, len(d.pages))
	for _, p := range d.pages {
		if p < 1 || p > count {
			return nil, fmt.Errorf("folio: page %d out of range (document has %d pages)", p, count)
		}
		pages = append(pages, p-1)
	}
	return pages, nil
}

func warningsOf(result *pipeline.Result) []string {
	if result == nil {
		return nil
	}
	return result.Warnings
}
