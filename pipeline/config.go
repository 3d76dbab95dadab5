package pipeline

import (
	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/rag"
)

// Config holds the settings of a pipeline run
type Config struct {
	// BatchSize is the number of pages per batch; 0 processes the whole
	// document as one batch
	BatchSize int `yaml:"batch_size"`

	// Concurrency caps the batches processed at once
	Concurrency int `yaml:"concurrency"`

	// MaxRetries is the number of times a failed batch is run again from
	// its first stage
	MaxRetries int `yaml:"max_retries"`

	// CheckAlignment compares the words of the primary extractor with the
	// detected structure and switches to the fallback extractor when too
	// many structural elements have no word under them
	CheckAlignment bool `yaml:"check_alignment"`

	// AlignmentThreshold is the largest tolerated ratio of empty
	// text, list, title and table elements
	AlignmentThreshold float64 `yaml:"alignment_threshold"`

	// WithinThreshold is the share of a word's area that must lie inside an
	// element for the word to count as its content
	WithinThreshold float64 `yaml:"within_threshold"`

	// TranscribeImages sends the crop of every image element to the
	// transcriber, when one is set
	TranscribeImages bool `yaml:"transcribe_images"`

	Transcribe ocr.TranscribeConfig `yaml:"transcribe"`

	Analyzer layout.AnalyzerConfig `yaml:"-"`
	Enrich   rag.Config            `yaml:"-"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		BatchSize:          2,
		Concurrency:        4,
		MaxRetries:         1,
		CheckAlignment:     true,
		AlignmentThreshold: 0.5,
		WithinThreshold:    0.8,
		TranscribeImages:   true,
		Transcribe:         ocr.DefaultTranscribeConfig(),
		Analyzer:           layout.DefaultAnalyzerConfig(),
		Enrich:             rag.DefaultConfig(),
	}
}
