package rag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/model"
)

// Format defines the available export formats
type Format int

const (
	// FormatJSON exports the element tree as JSON
	FormatJSON Format = iota
	// FormatXML exports the hierarchy as XML
	FormatXML
	// FormatMarkdown exports the hierarchy as Markdown with block metadata
	FormatMarkdown
	// FormatString exports the plain text of every element
	FormatString
)

// String returns the name of the format as used on the command line
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	case FormatMarkdown:
		return "md"
	case FormatString:
		return "str"
	default:
		return "unknown"
	}
}

// FileExtension returns the typical file extension for this format
func (f Format) FileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatXML:
		return ".xml"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// ParseFormat parses a format name: json, xml, md (or markdown) and str
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "str", "txt", "text":
		return FormatString, nil
	}
	return FormatJSON, fmt.Errorf("rag: unknown export format %q", s)
}

// Exporter writes an enriched layout in the supported formats
type Exporter struct {
	config Config
	lists  layout.ListConfig
	logger zerolog.Logger
}

// NewExporter creates an exporter with default configuration
func NewExporter() *Exporter {
	return NewExporterWithConfig(DefaultConfig())
}

// NewExporterWithConfig creates an exporter with custom configuration
func NewExporterWithConfig(config Config) *Exporter {
	return &Exporter{
		config: config,
		lists:  config.listConfig(),
		logger: logger.WithComponent("rag"),
	}
}

// WithLogger replaces the exporter's logger
func (e *Exporter) WithLogger(l zerolog.Logger) *Exporter {
	e.logger = l
	return e
}

// Export writes l to w in the given format
func (e *Exporter) Export(w io.Writer, l *model.Layout, format Format) error {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return fmt.Errorf("rag: encoding json: %w", err)
		}
		_, err = w.Write(b)
		return err
	case FormatXML:
		return e.WriteXML(w, l)
	case FormatMarkdown:
		md, err := e.Markdown(l)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case FormatString:
		_, err := io.WriteString(w, l.String())
		return err
	}
	return fmt.Errorf("rag: unsupported export format: %v", format)
}

// ExportToFile writes l to a file in the given format
func (e *Exporter) ExportToFile(l *model.Layout, format Format, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := e.Export(f, l, format); err != nil {
		return err
	}
	e.logger.Debug().Str("file", filename).Str("format", format.String()).Msg("layout exported")
	return nil
}

// ExportToString returns l in the given format
func (e *Exporter) ExportToString(l *model.Layout, format Format) (string, error) {
	var buf bytes.Buffer
	if err := e.Export(&buf, l, format); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportChunks writes chunks as JSON Lines, one chunk per line
func (e *Exporter) ExportChunks(w io.Writer, chunks []*Chunk) error {
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("rag: encoding chunk %s: %w", c.ID, err)
		}
	}
	return nil
}
