package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/rag"
)

// clearEnv unsets the overrides a developer may have exported
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "FOLIO_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, ExtractorPDFText, c.Extraction.Primary)
	assert.Equal(t, ExtractorTesseract, c.Extraction.Fallback)
	assert.Equal(t, rag.FormatMarkdown, c.Format())
	assert.Equal(t, 2, c.Pipeline.BatchSize)
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
log:
  level: debug
output:
  format: xml
extraction:
  primary: pdftext
  fallback: vision
  detectors: [records]
  record_files: [yolo.json]
pipeline:
  batch_size: 4
  alignment_threshold: 0.3
layout:
  lines:
    method: ocr_order
  aggregate:
    table_overlap: 0.7
enrich:
  vertical_anchor: top
documentai:
  timeout: 90s
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format, "unset keys keep their default")
	assert.Equal(t, rag.FormatXML, c.Format())
	assert.Equal(t, ExtractorVision, c.Extraction.Fallback)
	assert.Equal(t, []string{"yolo.json"}, c.Extraction.RecordFiles)
	assert.True(t, c.UsesRecords())
	assert.False(t, c.UsesDocumentAI())
	assert.Equal(t, 4, c.Pipeline.BatchSize)
	assert.InDelta(t, 0.3, c.Pipeline.AlignmentThreshold, 1e-9)
	assert.Equal(t, layout.LineMethodOCROrder, c.Layout.LineConfig.Method)
	assert.InDelta(t, 0.7, c.Layout.AggregatorConfig.TableOverlap, 1e-9)
	assert.InDelta(t, 0.25, c.Layout.AggregatorConfig.ParagraphOverlap, 1e-9)
	assert.Equal(t, 90*time.Second, c.DocumentAI.Timeout)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "pipeline:\n  batch_sise: 3\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeFile(t, "pipeline:\n  within_threshold: 1.5\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLIO_BATCH_SIZE", "8")
	t.Setenv("FOLIO_CONCURRENCY", " 2 ")
	t.Setenv("FOLIO_LOG_LEVEL", "warn")
	t.Setenv("FOLIO_OUTPUT_FORMAT", "json")
	t.Setenv("FOLIO_FALLBACK_EXTRACTOR", "documentai")
	t.Setenv("FOLIO_GCP_PROJECT", "acme")
	t.Setenv("FOLIO_GCP_LOCATION", "eu")
	t.Setenv("FOLIO_DOCAI_PROCESSOR", "abc123")
	t.Setenv("FOLIO_GOOGLE_CREDENTIALS", `{"type":"service_account"}`)
	t.Setenv("FOLIO_DETECTORS", "documentai, records")
	t.Setenv("FOLIO_RECORD_FILES", "a.json,b.yaml")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Pipeline.BatchSize)
	assert.Equal(t, 2, c.Pipeline.Concurrency)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, rag.FormatJSON, c.Format())
	assert.Equal(t, ExtractorDocumentAI, c.Extraction.Fallback)
	assert.Equal(t, "acme", c.DocumentAI.ProjectID)
	assert.Equal(t, "eu", c.DocumentAI.Location)
	assert.Equal(t, "abc123", c.DocumentAI.ProcessorID)
	assert.Equal(t, `{"type":"service_account"}`, c.Vision.Credentials.JSON, "vision shares the credentials")
	assert.Equal(t, []string{"documentai", "records"}, c.Extraction.Detectors)
	assert.Equal(t, []string{"a.json", "b.yaml"}, c.Extraction.RecordFiles)
}

func TestApplyEnvBadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLIO_BATCH_SIZE", "two")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown format", func(c *Config) { c.Output.Format = "pdf" }},
		{"unknown primary", func(c *Config) { c.Extraction.Primary = "yolo" }},
		{"fallback equals primary", func(c *Config) { c.Extraction.Fallback = ExtractorPDFText }},
		{"unknown detector", func(c *Config) { c.Extraction.Detectors = []string{"tesseract"} }},
		{"unknown transcriber", func(c *Config) { c.Extraction.Transcriber = "gpt" }},
		{"records without files", func(c *Config) { c.Extraction.Detectors = []string{ExtractorRecords} }},
		{"documentai without processor", func(c *Config) { c.Extraction.Fallback = ExtractorDocumentAI }},
		{"negative batch size", func(c *Config) { c.Pipeline.BatchSize = -1 }},
		{"negative retries", func(c *Config) { c.Pipeline.MaxRetries = -1 }},
		{"zero threshold", func(c *Config) { c.Layout.LineConfig.WordInLine = 0 }},
		{"threshold above one", func(c *Config) { c.Structure.HeaderScore = 1.2 }},
		{"enrichment policy", func(c *Config) { c.Enrich.VerticalAnchor = "left" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestPipelineConfig(t *testing.T) {
	c := Default()
	c.Layout.UseColumns = false
	c.Enrich.VerticalAnchor = "bottom"

	p := c.PipelineConfig()
	assert.False(t, p.Analyzer.UseColumns)
	assert.Equal(t, c.Enrich, p.Enrich)
	assert.Equal(t, c.Pipeline.BatchSize, p.BatchSize)
}

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader("output:\n  format: str\n"))
	require.NoError(t, err)
	assert.Equal(t, rag.FormatString, c.Format())

	c, err = Parse(strings.NewReader(""))
	require.NoError(t, err, "an empty document keeps the defaults")
	assert.Equal(t, Default(), c)
}
