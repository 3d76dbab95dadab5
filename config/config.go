// Package config loads the folio configuration: a YAML file holding the
// settings of every stage, overridden by FOLIO_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/folio/detect"
	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/pdftext"
	"github.com/tsawler/folio/pipeline"
	"github.com/tsawler/folio/rag"
	"github.com/tsawler/folio/tables"
)

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid configuration")

// Extractor names accepted in ExtractionConfig
const (
	ExtractorPDFText    = "pdftext"
	ExtractorTesseract  = "tesseract"
	ExtractorVision     = "vision"
	ExtractorDocumentAI = "documentai"
	ExtractorRecords    = "records"
	ExtractorNone       = "none"
)

// OutputConfig selects the export format and where exports are written
type OutputConfig struct {
	// Format is one of json, xml, md or str
	Format string `yaml:"format"`

	// Dir is the directory of exported files; empty writes to stdout
	Dir string `yaml:"dir"`
}

// ExtractionConfig selects the word extractors and layout detectors
type ExtractionConfig struct {
	// Primary reads the words of every batch: pdftext, tesseract, vision,
	// documentai or records
	Primary string `yaml:"primary"`

	// Fallback replaces the primary words on quality or alignment faults:
	// tesseract, vision, documentai, records or none
	Fallback string `yaml:"fallback"`

	// Detectors predict the layout, most trusted first: records or
	// documentai
	Detectors []string `yaml:"detectors"`

	// RecordFiles are prediction files of external detectors, in the same
	// trust order. Each one serves as a detector when "records" is listed
	// in Detectors and the first one as extractor when "records" is the
	// primary or fallback extractor.
	RecordFiles []string `yaml:"record_files"`

	// Transcriber reads the text of image elements: vision, tesseract or
	// none
	Transcriber string `yaml:"transcriber"`
}

// Config aggregates the configuration of every stage
type Config struct {
	Log        logger.LogConfig        `yaml:"log"`
	Output     OutputConfig            `yaml:"output"`
	Extraction ExtractionConfig        `yaml:"extraction"`
	Pipeline   pipeline.Config         `yaml:"pipeline"`
	Layout     layout.AnalyzerConfig   `yaml:"layout"`
	Structure  tables.StructureConfig  `yaml:"structure"`
	Enrich     rag.Config              `yaml:"enrich"`
	Chunker    rag.ChunkerConfig       `yaml:"chunker"`
	PDFText    pdftext.Config          `yaml:"pdftext"`
	Tesseract  ocr.TesseractConfig     `yaml:"tesseract"`
	Vision     ocr.VisionConfig        `yaml:"vision"`
	DocumentAI detect.DocumentAIConfig `yaml:"documentai"`
	Records    detect.RecordsConfig    `yaml:"records"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Log:    logger.DefaultConfig(),
		Output: OutputConfig{Format: "md"},
		Extraction: ExtractionConfig{
			Primary:     ExtractorPDFText,
			Fallback:    ExtractorTesseract,
			Transcriber: ExtractorNone,
		},
		Pipeline:   pipeline.DefaultConfig(),
		Layout:     layout.DefaultAnalyzerConfig(),
		Structure:  tables.DefaultStructureConfig(),
		Enrich:     rag.DefaultConfig(),
		Chunker:    rag.DefaultChunkerConfig(),
		PDFText:    pdftext.DefaultConfig(),
		Tesseract:  ocr.DefaultTesseractConfig(),
		Vision:     ocr.DefaultVisionConfig(),
		DocumentAI: detect.DefaultDocumentAIConfig(),
		Records:    detect.DefaultRecordsConfig(),
	}
}

// Load reads the YAML file at path over the defaults, applies the
// environment overrides and validates the result. An empty path loads
// the defaults only.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := c.decode(bytes.NewReader(data)); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse decodes a YAML document over the defaults and validates it,
// without environment overrides
func Parse(r io.Reader) (Config, error) {
	c := Default()
	if err := c.decode(r); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides c with the FOLIO_* environment variables that are set
func (c *Config) ApplyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"FOLIO_BATCH_SIZE", &c.Pipeline.BatchSize},
		{"FOLIO_CONCURRENCY", &c.Pipeline.Concurrency},
		{"FOLIO_MAX_RETRIES", &c.Pipeline.MaxRetries},
	}
	for _, v := range ints {
		s, ok := os.LookupEnv(v.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, v.key, err)
		}
		*v.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"FOLIO_LOG_LEVEL", &c.Log.Level},
		{"FOLIO_LOG_FORMAT", &c.Log.Format},
		{"FOLIO_LOG_OUTPUT", &c.Log.Output},
		{"FOLIO_OUTPUT_FORMAT", &c.Output.Format},
		{"FOLIO_OUTPUT_DIR", &c.Output.Dir},
		{"FOLIO_PRIMARY_EXTRACTOR", &c.Extraction.Primary},
		{"FOLIO_FALLBACK_EXTRACTOR", &c.Extraction.Fallback},
		{"FOLIO_TRANSCRIBER", &c.Extraction.Transcriber},
		{"FOLIO_GCP_PROJECT", &c.DocumentAI.ProjectID},
		{"FOLIO_GCP_LOCATION", &c.DocumentAI.Location},
		{"FOLIO_DOCAI_PROCESSOR", &c.DocumentAI.ProcessorID},
		{"FOLIO_DOCAI_PROCESSOR_VERSION", &c.DocumentAI.ProcessorVersion},
		{"FOLIO_GOOGLE_CREDENTIALS", &c.DocumentAI.Credentials.JSON},
		{"FOLIO_GOOGLE_CREDENTIALS_FILE", &c.DocumentAI.Credentials.File},
	}
	for _, v := range strs {
		if s, ok := os.LookupEnv(v.key); ok {
			*v.dst = strings.TrimSpace(s)
		}
	}

	// Vision and Document AI share one Google Cloud identity
	if os.Getenv("FOLIO_GOOGLE_CREDENTIALS") != "" || os.Getenv("FOLIO_GOOGLE_CREDENTIALS_FILE") != "" {
		c.Vision.Credentials = c.DocumentAI.Credentials
	}
	if s, ok := os.LookupEnv("FOLIO_DETECTORS"); ok {
		c.Extraction.Detectors = splitList(s)
	}
	if s, ok := os.LookupEnv("FOLIO_RECORD_FILES"); ok {
		c.Extraction.RecordFiles = splitList(s)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first setting out of range or unknown. Every error
// wraps ErrInvalid.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if _, err := rag.ParseFormat(c.Output.Format); err != nil {
		return invalid("output.format: %v", err)
	}

	e := c.Extraction
	if !oneOf(e.Primary, ExtractorPDFText, ExtractorTesseract, ExtractorVision, ExtractorDocumentAI, ExtractorRecords) {
		return invalid("extraction.primary: unknown extractor %q", e.Primary)
	}
	if !oneOf(e.Fallback, ExtractorTesseract, ExtractorVision, ExtractorDocumentAI, ExtractorRecords, ExtractorNone, "") {
		return invalid("extraction.fallback: unknown extractor %q", e.Fallback)
	}
	if e.Fallback == e.Primary {
		return invalid("extraction.fallback: same extractor as the primary one")
	}
	for _, d := range e.Detectors {
		if !oneOf(d, ExtractorRecords, ExtractorDocumentAI) {
			return invalid("extraction.detectors: unknown detector %q", d)
		}
	}
	if !oneOf(e.Transcriber, ExtractorVision, ExtractorTesseract, ExtractorNone, "") {
		return invalid("extraction.transcriber: unknown transcriber %q", e.Transcriber)
	}
	if c.UsesRecords() && len(e.RecordFiles) == 0 {
		return invalid("extraction.record_files: records are used but no file is given")
	}
	if c.UsesDocumentAI() && (c.DocumentAI.ProjectID == "" || c.DocumentAI.ProcessorID == "") {
		return invalid("documentai: project_id and processor_id are required")
	}

	p := c.Pipeline
	if p.BatchSize < 0 {
		return invalid("pipeline.batch_size must not be negative, got %d", p.BatchSize)
	}
	if p.Concurrency < 0 {
		return invalid("pipeline.concurrency must not be negative, got %d", p.Concurrency)
	}
	if p.MaxRetries < 0 {
		return invalid("pipeline.max_retries must not be negative, got %d", p.MaxRetries)
	}

	thresholds := []struct {
		name  string
		value float64
	}{
		{"pipeline.alignment_threshold", p.AlignmentThreshold},
		{"pipeline.within_threshold", p.WithinThreshold},
		{"layout.aggregate.paragraph_overlap", c.Layout.AggregatorConfig.ParagraphOverlap},
		{"layout.aggregate.table_overlap", c.Layout.AggregatorConfig.TableOverlap},
		{"layout.lines.word_in_line", c.Layout.LineConfig.WordInLine},
		{"layout.paragraphs.word_in_paragraph", c.Layout.ParagraphConfig.WordInParagraph},
		{"layout.paragraphs.visual_in_element", c.Layout.ParagraphConfig.VisualInElement},
		{"layout.tables.word_in_table", c.Layout.TableConfig.WordInTable},
		{"layout.reading_order.column_overlap", c.Layout.ReadingOrderConfig.ColumnOverlap},
		{"structure.spanning_overlap", c.Structure.SpanningOverlap},
		{"structure.header_score", c.Structure.HeaderScore},
		{"pdftext.quality.cid_ratio", c.PDFText.Quality.CIDRatio},
		{"pdftext.quality.unreadable_ratio", c.PDFText.Quality.UnreadableRatio},
		{"records.paragraph_threshold", c.Records.ParagraphThreshold},
		{"records.table_threshold", c.Records.TableThreshold},
	}
	for _, t := range thresholds {
		if t.value <= 0 || t.value > 1 {
			return invalid("%s must be in (0,1], got %v", t.name, t.value)
		}
	}

	if c.Pipeline.Transcribe.Concurrency < 0 || c.Pipeline.Transcribe.MaxSide < 0 {
		return invalid("pipeline.transcribe values must not be negative")
	}
	if err := c.Enrich.Validate(); err != nil {
		return invalid("enrich: %v", err)
	}
	return nil
}

// UsesRecords reports whether a prediction file serves as detector or
// extractor
func (c Config) UsesRecords() bool {
	e := c.Extraction
	return e.Primary == ExtractorRecords || e.Fallback == ExtractorRecords || oneOf(ExtractorRecords, e.Detectors...)
}

// UsesDocumentAI reports whether Document AI serves as detector or
// extractor
func (c Config) UsesDocumentAI() bool {
	e := c.Extraction
	return e.Primary == ExtractorDocumentAI || e.Fallback == ExtractorDocumentAI || oneOf(ExtractorDocumentAI, e.Detectors...)
}

// PipelineConfig returns the pipeline settings with the analyzer and
// enrichment settings of c
func (c Config) PipelineConfig() pipeline.Config {
	p := c.Pipeline
	p.Analyzer = c.Layout
	p.Enrich = c.Enrich
	return p
}

// Format returns the parsed export format
func (c Config) Format() rag.Format {
	f, _ := rag.ParseFormat(c.Output.Format)
	return f
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
